package httpclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	apperrors "codeberg.org/pyqpapers/portal/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// holds the first n requests until all of them have arrived
func barrier(n int) func() {
	var wg sync.WaitGroup
	wg.Add(n)

	var arrived atomic.Int32
	return func() {
		if arrived.Add(1) > int32(n) {
			return
		}
		wg.Done()
		wg.Wait()
	}
}

func sendConcurrently(t *testing.T, client *Client, n int) []error {
	t.Helper()

	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = client.Get(context.Background(), "/admin/users")
		}()
	}
	wg.Wait()

	return errs
}

func TestRedirectPolicy_EmitsAuthLostAndFailsWithAuthExpired(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
	}))
	defer srv.Close()

	creds := &fakeCreds{token: "t1"}
	client := newTestClient(t, srv.URL, nil)
	client.UseCredentials(creds)

	var events []AuthLostEvent
	client.OnAuthLost(func(ev AuthLostEvent) {
		events = append(events, ev)
		creds.clear()
	})

	_, err := client.Get(context.Background(), "/auth/me")

	var expired *apperrors.AuthExpiredError
	require.ErrorAs(t, err, &expired)
	require.Len(t, events, 1)
	assert.Equal(t, "/auth/me", events[0].Path)
	assert.Equal(t, http.MethodGet, events[0].Method)
}

func TestRedirectPolicy_ConcurrentUnauthorizedEmitsOneEvent(t *testing.T) {
	wait := barrier(2)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		wait()
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
	}))
	defer srv.Close()

	creds := &fakeCreds{token: "t1"}
	client := newTestClient(t, srv.URL, nil)
	client.UseCredentials(creds)

	var events atomic.Int32
	client.OnAuthLost(func(AuthLostEvent) {
		events.Add(1)
		creds.clear()
	})

	errs := sendConcurrently(t, client, 2)

	for _, err := range errs {
		assert.True(t, apperrors.IsAuthExpired(err))
	}
	assert.Equal(t, int32(1), events.Load())
}

func TestRedirectPolicy_EventsWithoutListenerClearingStayIdempotent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusUnauthorized, nil)
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL, nil)
	client.UseCredentials(&fakeCreds{token: "t1"})

	var events int
	client.OnAuthLost(func(AuthLostEvent) { events++ })

	for range 3 {
		_, err := client.Get(context.Background(), "/papers")
		assert.True(t, apperrors.IsAuthExpired(err))
	}

	assert.Equal(t, 1, events)
}

func TestRedirectPolicy_SameTokenAfterReloginStartsNewEpisode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusUnauthorized, nil)
	}))
	defer srv.Close()

	creds := &fakeCreds{token: "t1"}
	client := newTestClient(t, srv.URL, nil)
	client.UseCredentials(creds)

	var events int
	client.OnAuthLost(func(AuthLostEvent) {
		events++
		creds.clear()
	})

	_, _ = client.Get(context.Background(), "/papers")
	require.NoError(t, creds.ReplaceToken(context.Background(), "t1"))
	_, _ = client.Get(context.Background(), "/papers")

	assert.Equal(t, 2, events)
}

func TestRedirectPolicy_LoginRouteGuardSuppressesRedirect(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusUnauthorized, nil)
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL, nil, WithLocator(func() string { return DefaultLoginRoute }))
	client.UseCredentials(&fakeCreds{token: "t1"})

	var events []AuthLostEvent
	client.OnAuthLost(func(ev AuthLostEvent) { events = append(events, ev) })

	_, err := client.Get(context.Background(), "/papers")
	assert.True(t, apperrors.IsAuthExpired(err))

	_, err = client.Get(context.Background(), "/subjects")
	assert.True(t, apperrors.IsAuthExpired(err))

	require.Len(t, events, 1, "the credential is still reported lost once")
	assert.True(t, events[0].SuppressRedirect)
	assert.Equal(t, "/papers", events[0].Path)
}

func TestOnAuthLost_Unsubscribe(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusUnauthorized, nil)
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL, nil)
	client.UseCredentials(&fakeCreds{token: "t1"})

	var events int
	cancel := client.OnAuthLost(func(AuthLostEvent) { events++ })
	cancel()

	_, _ = client.Get(context.Background(), "/papers")

	assert.Zero(t, events)
}

// serves /items only to "t2" and hands out "t2" from /auth/refresh
func refreshServer(t *testing.T, refreshes *atomic.Int32, wait func(), refreshStatus int) *httptest.Server {
	t.Helper()

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case DefaultRefreshPath:
			refreshes.Add(1)
			assert.Empty(t, r.Header.Get("Authorization"), "refresh relies on the cookie, not the bearer")
			time.Sleep(20 * time.Millisecond)
			if refreshStatus != http.StatusOK {
				writeJSON(w, refreshStatus, map[string]string{"message": "refresh token expired"})
				return
			}
			writeJSON(w, http.StatusOK, map[string]string{"accessToken": "t2"})
		default:
			if r.Header.Get("Authorization") == "Bearer t2" {
				writeJSON(w, http.StatusOK, map[string]any{"success": true})
				return
			}
			if wait != nil {
				wait()
			}
			writeJSON(w, http.StatusUnauthorized, nil)
		}
	}))
}

func TestRefreshPolicy_RefreshesAndReplaysOnce(t *testing.T) {
	var refreshes atomic.Int32
	srv := refreshServer(t, &refreshes, nil, http.StatusOK)
	defer srv.Close()

	creds := &fakeCreds{token: "t1"}
	client := newTestClient(t, srv.URL, func(cfg *Config) { cfg.Policy = PolicyRefresh })
	client.UseCredentials(creds)

	resp, err := client.Get(context.Background(), "/items")

	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.Status)
	assert.Equal(t, "t2", creds.Token())
	assert.Equal(t, int32(1), refreshes.Load())
}

func TestRefreshPolicy_ConcurrentUnauthorizedShareOneRefresh(t *testing.T) {
	var refreshes atomic.Int32
	srv := refreshServer(t, &refreshes, barrier(3), http.StatusOK)
	defer srv.Close()

	creds := &fakeCreds{token: "t1"}
	client := newTestClient(t, srv.URL, func(cfg *Config) { cfg.Policy = PolicyRefresh })
	client.UseCredentials(creds)

	errs := make([]error, 3)
	var wg sync.WaitGroup
	for i := range 3 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = client.Get(context.Background(), "/items")
		}()
	}
	wg.Wait()

	for _, err := range errs {
		assert.NoError(t, err)
	}
	assert.Equal(t, int32(1), refreshes.Load())
	assert.Equal(t, []string{"t2"}, creds.replaced)
}

func TestRefreshPolicy_FailedRefreshFallsBackToRedirect(t *testing.T) {
	var refreshes atomic.Int32
	srv := refreshServer(t, &refreshes, nil, http.StatusUnauthorized)
	defer srv.Close()

	creds := &fakeCreds{token: "t1"}
	client := newTestClient(t, srv.URL, func(cfg *Config) { cfg.Policy = PolicyRefresh })
	client.UseCredentials(creds)

	var events []AuthLostEvent
	client.OnAuthLost(func(ev AuthLostEvent) {
		events = append(events, ev)
		creds.clear()
	})

	_, err := client.Get(context.Background(), "/items")

	assert.True(t, apperrors.IsAuthExpired(err))
	require.Len(t, events, 1)
	assert.Equal(t, "refresh failed", events[0].Reason)
	assert.Equal(t, int32(1), refreshes.Load())
}

func TestRefreshPolicy_UnauthorizedReplayIsTerminal(t *testing.T) {
	var refreshes, items atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == DefaultRefreshPath {
			refreshes.Add(1)
			writeJSON(w, http.StatusOK, map[string]string{"accessToken": "t2"})
			return
		}
		items.Add(1)
		writeJSON(w, http.StatusUnauthorized, nil)
	}))
	defer srv.Close()

	creds := &fakeCreds{token: "t1"}
	client := newTestClient(t, srv.URL, func(cfg *Config) { cfg.Policy = PolicyRefresh })
	client.UseCredentials(creds)

	var events int
	client.OnAuthLost(func(AuthLostEvent) {
		events++
		creds.clear()
	})

	_, err := client.Get(context.Background(), "/items")

	assert.True(t, apperrors.IsAuthExpired(err))
	assert.Equal(t, int32(2), items.Load(), "original request plus exactly one replay")
	assert.Equal(t, int32(1), refreshes.Load())
	assert.Equal(t, 1, events)
}

func TestRefreshPolicy_MissingAccessTokenIsRefreshFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == DefaultRefreshPath {
			writeJSON(w, http.StatusOK, map[string]string{})
			return
		}
		writeJSON(w, http.StatusUnauthorized, nil)
	}))
	defer srv.Close()

	creds := &fakeCreds{token: "t1"}
	client := newTestClient(t, srv.URL, func(cfg *Config) { cfg.Policy = PolicyRefresh })
	client.UseCredentials(creds)

	_, err := client.Get(context.Background(), "/items")

	assert.True(t, apperrors.IsAuthExpired(err))
	assert.Empty(t, creds.replaced)
}
