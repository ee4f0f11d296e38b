// Package session owns the signed-in user's credential and identity.
//
// The Store is the single writer of persisted session state. It rehydrates
// from persistence at startup, performs the credential exchanges, and clears
// itself when the HTTP pipeline reports the credential as lost.
package session

import (
	"context"
	"sync"

	"codeberg.org/pyqpapers/portal/internal/httpclient"
	"codeberg.org/pyqpapers/portal/internal/persist"
	"codeberg.org/pyqpapers/portal/internal/router"
	"codeberg.org/pyqpapers/portal/pyq/users"
)

type State int

const (
	StateUninitialized State = iota
	StateAnonymous
	StateRehydrating
	StateAuthenticated
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateAnonymous:
		return "anonymous"
	case StateRehydrating:
		return "rehydrating"
	case StateAuthenticated:
		return "authenticated"
	default:
		return "unknown"
	}
}

// the cached user profile
type Identity = users.User

// Pipeline is the part of *httpclient.Client the store depends on
type Pipeline interface {
	Send(ctx context.Context, method, path string, body any, opts ...httpclient.RequestOption) (*httpclient.Response, error)
	UseCredentials(src httpclient.CredentialSource)
	OnAuthLost(fn func(httpclient.AuthLostEvent)) func()
}

// a point-in-time copy of the session for rendering
type Snapshot struct {
	State     State
	Identity  *Identity
	Loading   bool
	LastError error
}

func (s Snapshot) IsAuthenticated() bool {
	return s.State == StateAuthenticated && s.Identity != nil
}

func (s Snapshot) IsAdmin() bool {
	return s.IsAuthenticated() && s.Identity.IsAdmin
}

// Store is the process-wide session. create one with New and share it.
type Store struct {
	client    Pipeline
	persisted persist.Store
	nav       router.Navigator

	// serializes state-changing operations
	opMu sync.Mutex

	// guards persisted writes together with the in-memory credential
	persistMu sync.Mutex

	mu        sync.RWMutex
	state     State
	token     string
	identity  *Identity
	loading   bool
	lastErr   error
	listeners map[int]func(Snapshot)
	nextID    int

	stopAuthLost func()
}

// creates the store and attaches it to client as its credential source.
// nav may be nil when nothing should follow navigations.
func New(client Pipeline, persisted persist.Store, nav router.Navigator) *Store {
	s := &Store{
		client:    client,
		persisted: persisted,
		nav:       nav,
		state:     StateUninitialized,
		listeners: make(map[int]func(Snapshot)),
	}

	client.UseCredentials(s)
	s.stopAuthLost = client.OnAuthLost(s.handleAuthLost)

	return s
}

// detaches the store from the pipeline's auth lost events
func (s *Store) Close() {
	if s.stopAuthLost != nil {
		s.stopAuthLost()
	}
}

func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.snapshotLocked()
}

func (s *Store) snapshotLocked() Snapshot {
	snap := Snapshot{
		State:     s.state,
		Loading:   s.loading,
		LastError: s.lastErr,
	}

	if s.identity != nil {
		id := *s.identity
		snap.Identity = &id
	}

	return snap
}

func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.state
}

// a copy of the validated identity, nil unless authenticated
func (s *Store) Identity() *Identity {
	snap := s.Snapshot()
	if !snap.IsAuthenticated() {
		return nil
	}

	return snap.Identity
}

func (s *Store) IsAuthenticated() bool {
	return s.Snapshot().IsAuthenticated()
}

func (s *Store) IsAdmin() bool {
	return s.Snapshot().IsAdmin()
}

func (s *Store) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.loading
}

func (s *Store) LastError() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.lastErr
}

func (s *Store) ClearError() {
	s.mu.Lock()
	s.lastErr = nil
	s.mu.Unlock()

	s.notify()
}

// registers fn for every state change and returns an unsubscribe func.
// fn runs on the goroutine that changed the state.
func (s *Store) Subscribe(fn func(Snapshot)) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

func (s *Store) notify() {
	s.mu.RLock()
	snap := s.snapshotLocked()
	listeners := make([]func(Snapshot), 0, len(s.listeners))
	for _, fn := range s.listeners {
		listeners = append(listeners, fn)
	}
	s.mu.RUnlock()

	for _, fn := range listeners {
		fn(snap)
	}
}

func (s *Store) navigate(route string) {
	if s.nav != nil {
		s.nav.Navigate(route)
	}
}

// marks an operation as started and clears the previous error
func (s *Store) begin() {
	s.mu.Lock()
	s.loading = true
	s.lastErr = nil
	s.mu.Unlock()

	s.notify()
}

// records err in the last error slot and returns it
func (s *Store) fail(err error) error {
	s.mu.Lock()
	s.loading = false
	s.lastErr = err
	s.mu.Unlock()

	s.notify()
	return err
}

func (s *Store) done() {
	s.mu.Lock()
	s.loading = false
	s.mu.Unlock()

	s.notify()
}
