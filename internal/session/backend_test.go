package session

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"codeberg.org/pyqpapers/portal/internal/httpclient"
	"codeberg.org/pyqpapers/portal/internal/persist"
	"codeberg.org/pyqpapers/portal/internal/router"
	"github.com/stretchr/testify/require"
)

type fakeAccount struct {
	user     Identity
	password string
}

// a minimal stand-in for the papers API auth routes
type fakeBackend struct {
	t *testing.T

	mu       sync.Mutex
	accounts map[string]*fakeAccount
	tokens   map[string]string
	seq      int

	logouts    atomic.Int32
	meCalls    atomic.Int32
	logoutCode int

	// overrides per route, keyed by "METHOD /path"
	overrides map[string]http.HandlerFunc
}

func newFakeBackend(t *testing.T) *fakeBackend {
	return &fakeBackend{
		t:         t,
		accounts:  make(map[string]*fakeAccount),
		tokens:    make(map[string]string),
		overrides: make(map[string]http.HandlerFunc),
	}
}

func (b *fakeBackend) addAccount(user Identity, password string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.accounts[user.Email] = &fakeAccount{user: user, password: password}
}

// issues a token for an existing account, as a previous login would have
func (b *fakeBackend) issue(email string) string {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.seq++
	token := "tok-" + strings.Repeat("x", b.seq)
	b.tokens[token] = email
	return token
}

func (b *fakeBackend) revokeAll() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.tokens = make(map[string]string)
}

func (b *fakeBackend) override(route string, h http.HandlerFunc) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.overrides[route] = h
}

func (b *fakeBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	h := b.overrides[r.Method+" "+r.URL.Path]
	b.mu.Unlock()

	if h != nil {
		h(w, r)
		return
	}

	switch r.Method + " " + r.URL.Path {
	case "POST /auth/login":
		b.login(w, r)
	case "POST /auth/register":
		b.register(w, r)
	case "GET /auth/me":
		b.me(w, r)
	case "PUT /auth/profile":
		b.profile(w, r)
	case "POST /auth/logout":
		b.logouts.Add(1)
		if b.logoutCode != 0 {
			respond(w, b.logoutCode, map[string]string{"message": "logout failed"})
			return
		}
		respond(w, http.StatusOK, map[string]any{"success": true})
	default:
		if _, ok := b.authenticate(r); !ok {
			respond(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
			return
		}
		respond(w, http.StatusOK, map[string]any{"success": true, "data": []any{}})
	}
}

func (b *fakeBackend) authenticate(r *http.Request) (*fakeAccount, bool) {
	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok {
		return nil, false
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	email, ok := b.tokens[token]
	if !ok {
		return nil, false
	}

	return b.accounts[email], true
}

func (b *fakeBackend) login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	require.NoError(b.t, json.NewDecoder(r.Body).Decode(&req))

	b.mu.Lock()
	acct, ok := b.accounts[req.Email]
	b.mu.Unlock()

	if !ok || acct.password != req.Password {
		respond(w, http.StatusUnauthorized, map[string]string{"message": "Invalid credentials"})
		return
	}

	token := b.issue(req.Email)
	respond(w, http.StatusOK, map[string]any{"success": true, "token": token, "user": acct.user})
}

func (b *fakeBackend) register(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	require.NoError(b.t, json.NewDecoder(r.Body).Decode(&req))

	b.mu.Lock()
	_, exists := b.accounts[req.Email]
	b.mu.Unlock()

	if exists {
		respond(w, http.StatusBadRequest, map[string]string{"message": "User already exists"})
		return
	}

	user := Identity{ID: "u-" + req.Email, Name: req.Name, Email: req.Email}
	b.addAccount(user, req.Password)

	token := b.issue(req.Email)
	respond(w, http.StatusCreated, map[string]any{"success": true, "token": token, "user": user})
}

func (b *fakeBackend) me(w http.ResponseWriter, r *http.Request) {
	b.meCalls.Add(1)

	acct, ok := b.authenticate(r)
	if !ok {
		respond(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}

	b.mu.Lock()
	user := acct.user
	b.mu.Unlock()

	respond(w, http.StatusOK, map[string]any{"success": true, "data": user})
}

func (b *fakeBackend) profile(w http.ResponseWriter, r *http.Request) {
	acct, ok := b.authenticate(r)
	if !ok {
		respond(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}

	var req ProfileUpdate
	require.NoError(b.t, json.NewDecoder(r.Body).Decode(&req))

	b.mu.Lock()
	if req.Name != nil {
		acct.user.Name = *req.Name
	}
	if req.Email != nil {
		acct.user.Email = *req.Email
	}
	user := acct.user
	b.mu.Unlock()

	respond(w, http.StatusOK, map[string]any{"success": true, "data": map[string]any{
		"id":   user.ID,
		"name": user.Name,
	}})
}

func respond(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // test server
}

type fixture struct {
	backend   *fakeBackend
	server    *httptest.Server
	client    *httpclient.Client
	store     *Store
	persisted persist.Store
	history   *router.History
}

func newFixture(t *testing.T, persisted persist.Store, mutate func(*httpclient.Config)) *fixture {
	t.Helper()

	backend := newFakeBackend(t)
	server := httptest.NewServer(backend)
	t.Cleanup(server.Close)

	return attachFixture(t, backend, server, persisted, mutate)
}

// builds a fresh pipeline and store against an existing server, as a restart would
func attachFixture(t *testing.T, backend *fakeBackend, server *httptest.Server, persisted persist.Store, mutate func(*httpclient.Config)) *fixture {
	t.Helper()

	cfg := httpclient.DefaultConfig(server.URL)
	cfg.Timeout = 2 * time.Second
	if mutate != nil {
		mutate(&cfg)
	}

	history := router.NewHistory(router.RouteHome)
	client, err := httpclient.New(cfg, httpclient.WithLocator(history.Current))
	require.NoError(t, err)

	if persisted == nil {
		persisted = persist.NewMemoryStore()
	}

	store := New(client, persisted, history)
	t.Cleanup(store.Close)

	return &fixture{
		backend:   backend,
		server:    server,
		client:    client,
		store:     store,
		persisted: persisted,
		history:   history,
	}
}

func (f *fixture) persistedRecord(t *testing.T) *persist.Record {
	t.Helper()

	rec, err := f.persisted.Load(context.Background())
	require.NoError(t, err)
	return rec
}

// counts navigations to route from now on
func (f *fixture) countNavigations(route string) *atomic.Int32 {
	var n atomic.Int32
	f.history.Subscribe(func(r string) {
		if r == route {
			n.Add(1)
		}
	})
	return &n
}
