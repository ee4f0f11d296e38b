package httpclient

import (
	"net/http"
	"net/url"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// what the pipeline does when a credentialed request comes back 401
type AuthPolicy string

const (
	// clear the session and send the user to the login route, no retry
	PolicyRedirect AuthPolicy = "redirect"

	// try one silent refresh, replay the request once, fall back to redirect
	PolicyRefresh AuthPolicy = "refresh"
)

// default route of the login screen, used by the redirect loop guard
const DefaultLoginRoute = "/login"

// default server route exchanging the refresh cookie for a new access token
const DefaultRefreshPath = "/auth/refresh"

// Config holds pipeline configuration
type Config struct {
	BaseURL     string
	Timeout     time.Duration
	Policy      AuthPolicy
	RefreshPath string
	LoginRoute  string

	// outbound requests per second, 0 disables limiting
	RateLimit float64

	// consecutive transport/5xx failures that open the breaker, 0 disables it
	BreakerThreshold uint32
	BreakerCooldown  time.Duration
}

// DefaultConfig returns sensible defaults for the given API base URL
func DefaultConfig(baseURL string) Config {
	return Config{
		BaseURL:          baseURL,
		Timeout:          30 * time.Second,
		Policy:           PolicyRedirect,
		RefreshPath:      DefaultRefreshPath,
		LoginRoute:       DefaultLoginRoute,
		BreakerThreshold: 5,
		BreakerCooldown:  15 * time.Second,
	}
}

// configures optional collaborators of a Client
type Option func(*Client)

// replaces the underlying *http.Client (tests, custom transports)
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// reports the route currently shown to the user
func WithLocator(locate func() string) Option {
	return func(c *Client) {
		c.locate = locate
	}
}

// registers pipeline metrics on reg
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(c *Client) {
		c.registerer = reg
	}
}

// per-request settings
type requestOptions struct {
	query            url.Values
	contentType      string
	rawBody          []byte
	skipAuthRecovery bool
	fallbackMessage  string
	noCacheBuster    bool
}

type RequestOption func(*requestOptions)

// adds query parameters to the request URL
func WithQuery(values url.Values) RequestOption {
	return func(o *requestOptions) {
		if o.query == nil {
			o.query = url.Values{}
		}

		for key, vals := range values {
			for _, v := range vals {
				o.query.Add(key, v)
			}
		}
	}
}

// sends a prebuilt payload with its own content type (multipart uploads)
func WithRawBody(contentType string, body []byte) RequestOption {
	return func(o *requestOptions) {
		o.contentType = contentType
		o.rawBody = body
	}
}

// marks credential exchanges whose 401 means bad input, not a lost session
func SkipAuthRecovery() RequestOption {
	return func(o *requestOptions) {
		o.skipAuthRecovery = true
	}
}

// message used when an error response carries none
func WithFallbackMessage(message string) RequestOption {
	return func(o *requestOptions) {
		o.fallbackMessage = message
	}
}

// omits the _t cache busting parameter on GET requests
func WithoutCacheBuster() RequestOption {
	return func(o *requestOptions) {
		o.noCacheBuster = true
	}
}
