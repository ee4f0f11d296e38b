// Package httpclient is the request pipeline every API call goes through.
// It attaches the bearer credential, normalizes failures into the error
// taxonomy of internal/errors and coordinates recovery from 401 responses.
package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	apperrors "codeberg.org/pyqpapers/portal/internal/errors"
	"codeberg.org/pyqpapers/portal/internal/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sony/gobreaker/v2"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"
)

// upper bound on a response body the client will buffer
const maxResponseBody = 32 << 20

// provides and replaces the credential attached to requests.
// the session store implements it and is the only writer of persisted state.
type CredentialSource interface {
	Token() string
	ReplaceToken(ctx context.Context, token string) error
}

// sent to subscribers once per invalid credential episode
type AuthLostEvent struct {
	Reason string
	Method string
	Path   string

	// set when the user is already on the login route; clear, don't navigate
	SuppressRedirect bool
}

// Client is the authenticated HTTP pipeline to the papers API
type Client struct {
	cfg        Config
	baseURL    *url.URL
	http       *http.Client
	limiter    *rate.Limiter
	breaker    *gobreaker.CircuitBreaker[*Response]
	metrics    *metrics
	registerer prometheus.Registerer
	locate     func() string

	refreshGroup singleflight.Group

	mu        sync.Mutex
	creds     CredentialSource
	lostToken string
	listeners map[int]func(AuthLostEvent)
	nextID    int
}

// creates a pipeline for cfg.BaseURL
func New(cfg Config, opts ...Option) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}

	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid base url %q: must be absolute", cfg.BaseURL)
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	if cfg.Policy == "" {
		cfg.Policy = PolicyRedirect
	}

	if cfg.RefreshPath == "" {
		cfg.RefreshPath = DefaultRefreshPath
	}

	if cfg.LoginRoute == "" {
		cfg.LoginRoute = DefaultLoginRoute
	}

	c := &Client{
		cfg:       cfg,
		baseURL:   base,
		listeners: make(map[int]func(AuthLostEvent)),
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.http == nil {
		// the jar carries the refresh cookie set by the login exchange
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create cookie jar: %w", err)
		}

		c.http = &http.Client{
			Timeout: cfg.Timeout,
			Jar:     jar,
		}
	}

	if cfg.RateLimit > 0 {
		burst := int(math.Max(1, math.Ceil(cfg.RateLimit)))
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}

	c.metrics = newMetrics(c.registerer)
	c.breaker = newBreaker(cfg, c.metrics)

	return c, nil
}

// sets the credential source; called once by the session store
func (c *Client) UseCredentials(src CredentialSource) {
	c.mu.Lock()
	c.creds = src
	c.mu.Unlock()
}

// the configured 401 policy
func (c *Client) Policy() AuthPolicy {
	return c.cfg.Policy
}

// the API base URL, for links handed to external viewers
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// registers fn for authentication lost events and returns an unsubscribe func
func (c *Client) OnAuthLost(fn func(AuthLostEvent)) func() {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.listeners[id] = fn
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.listeners, id)
		c.mu.Unlock()
	}
}

// constructs and sends a request to the server-relative path.
// body is JSON encoded unless WithRawBody supplies a payload.
func (c *Client) Send(ctx context.Context, method, path string, body any, opts ...RequestOption) (*Response, error) {
	ro := &requestOptions{}
	for _, opt := range opts {
		opt(ro)
	}

	payload, contentType, err := encodeBody(body, ro)
	if err != nil {
		return nil, err
	}

	token := c.token()

	resp, err := c.do(ctx, method, path, payload, contentType, token, ro)
	if err != nil {
		return nil, err
	}

	if resp.Status == http.StatusUnauthorized && token != "" && !ro.skipAuthRecovery {
		return c.recoverAuth(ctx, method, path, payload, contentType, token, ro)
	}

	if resp.Status >= http.StatusBadRequest {
		return nil, apiError(resp, ro.fallbackMessage)
	}

	return resp, nil
}

// sends a GET request
func (c *Client) Get(ctx context.Context, path string, opts ...RequestOption) (*Response, error) {
	return c.Send(ctx, http.MethodGet, path, nil, opts...)
}

// sends a POST request with a JSON body
func (c *Client) Post(ctx context.Context, path string, body any, opts ...RequestOption) (*Response, error) {
	return c.Send(ctx, http.MethodPost, path, body, opts...)
}

// sends a PUT request with a JSON body
func (c *Client) Put(ctx context.Context, path string, body any, opts ...RequestOption) (*Response, error) {
	return c.Send(ctx, http.MethodPut, path, body, opts...)
}

// sends a DELETE request
func (c *Client) Delete(ctx context.Context, path string, opts ...RequestOption) (*Response, error) {
	return c.Send(ctx, http.MethodDelete, path, nil, opts...)
}

// sends in and decodes the response into out (out may be nil)
func (c *Client) DoJSON(ctx context.Context, method, path string, in, out any, opts ...RequestOption) error {
	resp, err := c.Send(ctx, method, path, in, opts...)
	if err != nil {
		return err
	}

	if out == nil {
		return nil
	}

	return resp.Decode(out)
}

func (c *Client) token() string {
	c.mu.Lock()
	src := c.creds
	c.mu.Unlock()

	if src == nil {
		return ""
	}

	return src.Token()
}

// performs one round trip; no retries
func (c *Client) do(ctx context.Context, method, path string, payload []byte, contentType, token string, ro *requestOptions) (*Response, error) {
	op := method + " " + path
	start := time.Now()

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, &apperrors.NetworkError{Op: op, Err: err}
		}
	}

	req, err := c.newRequest(ctx, method, path, payload, contentType, token, ro)
	if err != nil {
		return nil, err
	}

	var resp *Response
	roundTrip := func() (*Response, error) {
		resp, err = c.roundTrip(req)
		if err != nil {
			return nil, err
		}

		if isServerFailure(resp) {
			return resp, errServerStatus
		}

		return resp, nil
	}

	if c.breaker != nil {
		_, err = c.breaker.Execute(roundTrip)
	} else {
		_, err = roundTrip()
	}

	elapsed := time.Since(start)
	c.metrics.duration.WithLabelValues(method).Observe(elapsed.Seconds())

	switch {
	case err == nil || (err == errServerStatus && resp != nil):
	case isBreakerRejection(err):
		c.metrics.requests.WithLabelValues(method, "0").Inc()
		logger.Debug("api request rejected by breaker", "method", method, "path", path)
		return nil, &apperrors.NetworkError{Op: op, Err: ErrServiceUnavailable}
	default:
		c.metrics.requests.WithLabelValues(method, "0").Inc()
		logger.Debug("api request failed", "method", method, "path", path, "error", err)
		return nil, &apperrors.NetworkError{Op: op, Err: err}
	}

	c.metrics.requests.WithLabelValues(method, strconv.Itoa(resp.Status)).Inc()
	logger.Debug("api response",
		"method", method,
		"path", path,
		"status", resp.Status,
		"authenticated", token != "",
		"duration_ms", elapsed.Milliseconds(),
	)

	return resp, nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, payload []byte, contentType, token string, ro *requestOptions) (*http.Request, error) {
	target := c.resolve(path)

	query := target.Query()
	for key, vals := range ro.query {
		for _, v := range vals {
			query.Add(key, v)
		}
	}

	// cache busting, as the browser client did
	if method == http.MethodGet && !ro.noCacheBuster {
		query.Set("_t", strconv.FormatInt(time.Now().UnixMilli(), 10))
	}

	target.RawQuery = query.Encode()

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target.String(), body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	return req, nil
}

func (c *Client) resolve(path string) *url.URL {
	target := *c.baseURL

	rel, err := url.Parse(path)
	if err != nil {
		target.Path = strings.TrimRight(target.Path, "/") + "/" + strings.TrimLeft(path, "/")
		return &target
	}

	target.Path = strings.TrimRight(target.Path, "/") + "/" + strings.TrimLeft(rel.Path, "/")
	target.RawQuery = rel.RawQuery

	return &target
}

func (c *Client) roundTrip(req *http.Request) (*Response, error) {
	httpResp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseBody))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	return &Response{
		Status: httpResp.StatusCode,
		Header: httpResp.Header,
		Body:   body,
	}, nil
}

func encodeBody(body any, ro *requestOptions) ([]byte, string, error) {
	if ro.rawBody != nil {
		return ro.rawBody, ro.contentType, nil
	}

	if body == nil {
		return nil, "", nil
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, "", fmt.Errorf("failed to marshal request: %w", err)
	}

	return payload, "application/json", nil
}
