package httpclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	apperrors "codeberg.org/pyqpapers/portal/internal/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// in-memory credential holder standing in for the session store
type fakeCreds struct {
	mu       sync.Mutex
	token    string
	replaced []string
}

func (f *fakeCreds) Token() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.token
}

func (f *fakeCreds) ReplaceToken(_ context.Context, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.token = token
	f.replaced = append(f.replaced, token)
	return nil
}

func (f *fakeCreds) clear() {
	f.mu.Lock()
	f.token = ""
	f.mu.Unlock()
}

func newTestClient(t *testing.T, baseURL string, mutate func(*Config), opts ...Option) *Client {
	t.Helper()

	cfg := DefaultConfig(baseURL)
	cfg.Timeout = 2 * time.Second
	if mutate != nil {
		mutate(&cfg)
	}

	client, err := New(cfg, opts...)
	require.NoError(t, err)

	return client
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // test server
}

func TestSend_AttachesBearerWhenCredentialPresent(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL, nil)
	client.UseCredentials(&fakeCreds{token: "abc"})

	resp, err := client.Get(context.Background(), "/papers")

	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.Status)
	assert.Equal(t, "Bearer abc", gotAuth)
}

func TestSend_OmitsBearerWithoutCredential(t *testing.T) {
	var gotAuth []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Values("Authorization")
		writeJSON(w, http.StatusOK, map[string]any{})
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL, nil)
	client.UseCredentials(&fakeCreds{})

	_, err := client.Get(context.Background(), "/papers")

	require.NoError(t, err)
	assert.Empty(t, gotAuth)
}

func TestSend_JoinsPathOntoBaseAndAddsQuery(t *testing.T) {
	var gotPath string
	var gotQuery url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.Query()
		writeJSON(w, http.StatusOK, map[string]any{})
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL+"/api/", nil)

	_, err := client.Get(context.Background(), "/papers/search", WithQuery(url.Values{"q": {"dbms"}}))

	require.NoError(t, err)
	assert.Equal(t, "/api/papers/search", gotPath)
	assert.Equal(t, "dbms", gotQuery.Get("q"))
	assert.NotEmpty(t, gotQuery.Get("_t"), "GET requests carry a cache buster")
}

func TestSend_NoCacheBusterOnWrites(t *testing.T) {
	var gotQuery url.Values
	var gotType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		gotType = r.Header.Get("Content-Type")
		writeJSON(w, http.StatusCreated, map[string]any{})
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL, nil)

	_, err := client.Post(context.Background(), "/feedback", map[string]string{"message": "hi"})

	require.NoError(t, err)
	assert.Empty(t, gotQuery.Get("_t"))
	assert.Equal(t, "application/json", gotType)
}

func TestSend_RawBodyOverridesContentType(t *testing.T) {
	var gotType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotType = r.Header.Get("Content-Type")
		writeJSON(w, http.StatusCreated, map[string]any{})
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL, nil)

	_, err := client.Send(context.Background(), http.MethodPost, "/papers", nil,
		WithRawBody("multipart/form-data; boundary=xyz", []byte("--xyz--")))

	require.NoError(t, err)
	assert.Equal(t, "multipart/form-data; boundary=xyz", gotType)
}

func TestSend_APIErrorUsesServerMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "conflict", "message": "subject already exists"})
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL, nil)

	_, err := client.Post(context.Background(), "/subjects", map[string]string{"name": "DBMS"})

	var apiErr *apperrors.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusConflict, apiErr.Status)
	assert.Equal(t, "conflict", apiErr.Code)
	assert.Equal(t, "subject already exists", apiErr.Message)
}

func TestSend_APIErrorFallsBackToGenericMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL, nil)

	_, err := client.Delete(context.Background(), "/papers/1", WithFallbackMessage("failed to delete paper"))

	var apiErr *apperrors.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "failed to delete paper", apiErr.Message)
}

func TestSend_UnauthenticatedRequest401IsPlainAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Invalid credentials"})
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL, nil)
	client.UseCredentials(&fakeCreds{})

	var events int
	client.OnAuthLost(func(AuthLostEvent) { events++ })

	_, err := client.Post(context.Background(), "/auth/login", map[string]string{"email": "a@b.c"})

	var apiErr *apperrors.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
	assert.Equal(t, "Invalid credentials", apiErr.Message)
	assert.Zero(t, events)
}

func TestSend_SkipAuthRecoveryKeeps401AsAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Invalid credentials"})
	}))
	defer srv.Close()

	creds := &fakeCreds{token: "stale"}
	client := newTestClient(t, srv.URL, nil)
	client.UseCredentials(creds)

	var events int
	client.OnAuthLost(func(AuthLostEvent) { events++ })

	_, err := client.Post(context.Background(), "/auth/login", nil, SkipAuthRecovery())

	var apiErr *apperrors.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Zero(t, events)
	assert.Equal(t, "stale", creds.Token())
}

func TestSend_NetworkErrorWhenServerUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	baseURL := srv.URL
	srv.Close()

	client := newTestClient(t, baseURL, func(cfg *Config) { cfg.BreakerThreshold = 0 })

	_, err := client.Get(context.Background(), "/papers")

	var netErr *apperrors.NetworkError
	require.ErrorAs(t, err, &netErr)
	assert.True(t, apperrors.IsNetwork(err))
}

func TestSend_TimeoutSurfacesAsNetworkError(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		<-release
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()
	defer close(release)

	client := newTestClient(t, srv.URL, func(cfg *Config) { cfg.Timeout = 50 * time.Millisecond })

	_, err := client.Get(context.Background(), "/papers")

	var netErr *apperrors.NetworkError
	require.ErrorAs(t, err, &netErr)
}

func TestSend_BreakerOpensAfterConsecutiveServerErrors(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal_error"})
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL, func(cfg *Config) {
		cfg.BreakerThreshold = 2
		cfg.BreakerCooldown = time.Minute
	})

	for range 2 {
		_, err := client.Get(context.Background(), "/papers")
		var apiErr *apperrors.APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, http.StatusInternalServerError, apiErr.Status)
	}

	_, err := client.Get(context.Background(), "/papers")

	assert.ErrorIs(t, err, ErrServiceUnavailable)
	assert.True(t, apperrors.IsNetwork(err))
	assert.Equal(t, int32(2), hits.Load(), "open breaker must not reach the server")
}

func TestDoJSON_DecodesBodyAndFlagsMalformed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/empty" {
			w.WriteHeader(http.StatusOK)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"count": 3})
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL, nil)

	var out struct {
		Count int `json:"count"`
	}
	require.NoError(t, client.DoJSON(context.Background(), http.MethodGet, "/full", nil, &out))
	assert.Equal(t, 3, out.Count)

	err := client.DoJSON(context.Background(), http.MethodGet, "/empty", nil, &out)
	var malformed *apperrors.MalformedResponseError
	assert.ErrorAs(t, err, &malformed)
}

func TestNew_RejectsRelativeBaseURL(t *testing.T) {
	_, err := New(DefaultConfig("/api"))

	assert.Error(t, err)
}

func TestMetrics_CountRequestsByStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{})
	}))
	defer srv.Close()

	reg := prometheus.NewRegistry()
	client := newTestClient(t, srv.URL, nil, WithRegisterer(reg))

	_, err := client.Get(context.Background(), "/health")
	require.NoError(t, err)

	assert.Equal(t, float64(1), testutil.ToFloat64(client.metrics.requests.WithLabelValues(http.MethodGet, "200")))

	// a second pipeline on the same registry reuses the collectors
	again := newTestClient(t, srv.URL, nil, WithRegisterer(reg))
	assert.Same(t, client.metrics.requests, again.metrics.requests)
}

func TestRateLimit_WaitRespectsContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{})
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL, func(cfg *Config) { cfg.RateLimit = 0.1 })

	_, err := client.Get(context.Background(), "/papers")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err = client.Get(ctx, "/papers")

	var netErr *apperrors.NetworkError
	require.ErrorAs(t, err, &netErr)
	assert.False(t, errors.Is(err, ErrServiceUnavailable))
}
