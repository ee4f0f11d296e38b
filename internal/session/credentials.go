package session

import (
	"context"
	"errors"
	"time"

	"codeberg.org/pyqpapers/portal/internal/httpclient"
	"codeberg.org/pyqpapers/portal/internal/logger"
	"codeberg.org/pyqpapers/portal/internal/persist"
	"codeberg.org/pyqpapers/portal/internal/router"
	"github.com/golang-jwt/jwt/v5"
)

var errNoSession = errors.New("no active session")

// upper bound on clearing persisted state once the session has ended
const clearTimeout = 5 * time.Second

// the credential attached to outgoing requests, empty when signed out
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.token
}

// stores a refreshed access token alongside the current identity
func (s *Store) ReplaceToken(ctx context.Context, token string) error {
	s.persistMu.Lock()
	defer s.persistMu.Unlock()

	s.mu.RLock()
	current, identity := s.token, s.identity
	s.mu.RUnlock()

	if current == "" || identity == nil {
		return errNoSession
	}

	if err := s.persisted.Save(ctx, persist.Record{Token: token, Identity: *identity}); err != nil {
		return err
	}

	s.mu.Lock()
	s.token = token
	s.mu.Unlock()

	logger.Debug("session credential replaced")
	return nil
}

// runs on the pipeline's goroutine; must not wait on opMu
func (s *Store) handleAuthLost(ev httpclient.AuthLostEvent) {
	logger.Info("session ended by server", "reason", ev.Reason, "path", ev.Path)

	if !s.reset(context.Background()) {
		return
	}

	s.notify()
	if !ev.SuppressRedirect {
		s.navigate(router.RouteLogin)
	}
}

// clears memory and persistence; reports whether a session was active.
// the storage clear outlives ctx so a cancelled caller cannot leave a
// credential behind for the next start.
func (s *Store) reset(ctx context.Context) bool {
	s.persistMu.Lock()
	defer s.persistMu.Unlock()

	s.mu.Lock()
	hadSession := s.token != "" || s.identity != nil || s.state != StateAnonymous
	s.token = ""
	s.identity = nil
	s.state = StateAnonymous
	s.loading = false
	s.mu.Unlock()

	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), clearTimeout)
	defer cancel()

	if err := s.persisted.Clear(cctx); err != nil {
		logger.ErrorErr(err, "failed to clear persisted session")
	}

	return hadSession
}

// persists the pair and then makes it live
func (s *Store) commit(ctx context.Context, token string, identity Identity) error {
	s.persistMu.Lock()
	defer s.persistMu.Unlock()

	if err := s.persisted.Save(ctx, persist.Record{Token: token, Identity: identity}); err != nil {
		return err
	}

	s.mu.Lock()
	s.token = token
	s.identity = &identity
	s.state = StateAuthenticated
	s.mu.Unlock()

	return nil
}

// replaces the identity of the live session. fails with errNoSession when
// the credential was cleared while the caller waited on the server.
func (s *Store) commitIdentity(ctx context.Context, identity Identity) error {
	s.persistMu.Lock()
	defer s.persistMu.Unlock()

	token := s.Token()
	if token == "" {
		return errNoSession
	}

	if err := s.persisted.Save(ctx, persist.Record{Token: token, Identity: identity}); err != nil {
		return err
	}

	s.mu.Lock()
	s.identity = &identity
	s.state = StateAuthenticated
	s.mu.Unlock()

	return nil
}

// reports whether token is a JWT whose exp claim has passed.
// tokens that are not JWTs are never considered expired here.
func tokenExpired(token string, now time.Time) bool {
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return false
	}

	if claims.ExpiresAt == nil {
		return false
	}

	return !claims.ExpiresAt.After(now)
}
