package session

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	apperrors "codeberg.org/pyqpapers/portal/internal/errors"
	"codeberg.org/pyqpapers/portal/internal/httpclient"
	"codeberg.org/pyqpapers/portal/internal/logger"
	"codeberg.org/pyqpapers/portal/internal/router"
	"codeberg.org/pyqpapers/portal/internal/validate"
)

// server routes of the credential exchanges
const (
	pathLogin          = "/auth/login"
	pathRegister       = "/auth/register"
	pathGoogle         = "/auth/google"
	pathMe             = "/auth/me"
	pathProfile        = "/auth/profile"
	pathUpdatePassword = "/auth/updatepassword"
	pathLogout         = "/auth/logout"
)

// ErrNotAuthenticated is returned by operations that need a signed-in user
var ErrNotAuthenticated = errors.New("you need to sign in first")

// fields a user may change on their own profile; nil fields are left alone
type ProfileUpdate struct {
	Name         *string `json:"name,omitempty" validate:"omitnil,notblank"`
	Email        *string `json:"email,omitempty" validate:"omitnil,email"`
	ProfileImage *string `json:"profileImage,omitempty"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type registerRequest struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

type googleRequest struct {
	AccessToken string `json:"accessToken" validate:"required"`
}

type passwordRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required,min=6"`
}

type authResponse struct {
	Success bool      `json:"success"`
	Token   string    `json:"token"`
	User    *Identity `json:"user"`
}

// /auth/me and profile routes answer with either {user} or {data}
type identityResponse struct {
	User *identityPatch `json:"user"`
	Data *identityPatch `json:"data"`
}

func (r identityResponse) patch() *identityPatch {
	if r.Data != nil {
		return r.Data
	}
	return r.User
}

// identity fields as returned by the server; absent fields stay nil
type identityPatch struct {
	ID           *string    `json:"id"`
	AltID        *string    `json:"_id"`
	Name         *string    `json:"name"`
	Email        *string    `json:"email"`
	IsAdmin      *bool      `json:"isAdmin"`
	ProfileImage *string    `json:"profileImage"`
	Status       *string    `json:"status"`
	CreatedAt    *time.Time `json:"createdAt"`
}

// applies every present field over base
func (p identityPatch) apply(base Identity) Identity {
	if p.ID == nil {
		p.ID = p.AltID
	}
	if p.ID != nil {
		base.ID = *p.ID
	}
	if p.Name != nil {
		base.Name = *p.Name
	}
	if p.Email != nil {
		base.Email = *p.Email
	}
	if p.IsAdmin != nil {
		base.IsAdmin = *p.IsAdmin
	}
	if p.ProfileImage != nil {
		base.ProfileImage = *p.ProfileImage
	}
	if p.Status != nil {
		base.Status = *p.Status
	}
	if p.CreatedAt != nil {
		base.CreatedAt = *p.CreatedAt
	}
	return base
}

type passwordResponse struct {
	Token string `json:"token"`
}

// rehydrates from persistence and revalidates against the server.
// any failure leaves the store anonymous with storage cleared.
func (s *Store) Init(ctx context.Context) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	rec, err := s.persisted.Load(ctx)
	if err != nil {
		logger.ErrorErr(err, "failed to load persisted session")
		s.reset(ctx)
		s.notify()
		return nil
	}

	if rec == nil {
		s.setAnonymous()
		return nil
	}

	if tokenExpired(rec.Token, time.Now()) {
		logger.Info("persisted credential expired, discarding")
		s.reset(ctx)
		s.notify()
		return nil
	}

	identity := rec.Identity
	s.mu.Lock()
	s.token = rec.Token
	s.identity = &identity
	s.state = StateRehydrating
	s.loading = true
	s.mu.Unlock()
	s.notify()

	confirmed, err := s.fetchIdentity(ctx)
	if err != nil {
		logger.Info("persisted session rejected", "error", err)
		s.reset(ctx)
		s.notify()
		return nil
	}

	if err := s.commitIdentity(ctx, confirmed); err != nil {
		logger.Info("session changed during rehydration", "error", err)
		s.reset(ctx)
		s.notify()
		return nil
	}

	logger.Info("session restored", "user_id", confirmed.ID)
	s.done()
	return nil
}

func (s *Store) setAnonymous() {
	s.mu.Lock()
	s.state = StateAnonymous
	s.loading = false
	s.mu.Unlock()
	s.notify()
}

func (s *Store) Login(ctx context.Context, email, password string) (*Identity, error) {
	req := loginRequest{Email: strings.TrimSpace(email), Password: password}
	if err := validate.Struct(req); err != nil {
		return nil, s.record(err)
	}

	return s.exchange(ctx, pathLogin, req, "Login failed")
}

func (s *Store) Register(ctx context.Context, name, email, password string) (*Identity, error) {
	req := registerRequest{
		Name:     strings.TrimSpace(name),
		Email:    strings.TrimSpace(email),
		Password: password,
	}
	if err := validate.Struct(req); err != nil {
		return nil, s.record(err)
	}

	return s.exchange(ctx, pathRegister, req, "Registration failed")
}

func (s *Store) GoogleLogin(ctx context.Context, accessToken string) (*Identity, error) {
	req := googleRequest{AccessToken: strings.TrimSpace(accessToken)}
	if err := validate.Struct(req); err != nil {
		return nil, s.record(err)
	}

	return s.exchange(ctx, pathGoogle, req, "Google login failed")
}

// records a local validation failure without touching state
func (s *Store) record(err error) error {
	s.mu.Lock()
	s.lastErr = err
	s.mu.Unlock()

	s.notify()
	return err
}

// runs a credential exchange and makes the returned pair the live session
func (s *Store) exchange(ctx context.Context, path string, body any, fallback string) (*Identity, error) {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	s.begin()

	resp, err := s.client.Send(ctx, http.MethodPost, path, body,
		httpclient.SkipAuthRecovery(),
		httpclient.WithFallbackMessage(fallback),
	)
	if err != nil {
		return nil, s.fail(err)
	}

	var out authResponse
	if err := resp.Decode(&out); err != nil {
		return nil, s.fail(err)
	}

	var missing []string
	if out.Token == "" {
		missing = append(missing, "token")
	}
	if out.User == nil || out.User.ID == "" {
		missing = append(missing, "user")
	}
	if len(missing) > 0 {
		return nil, s.fail(&apperrors.MalformedResponseError{Missing: missing})
	}

	if err := s.commit(ctx, out.Token, *out.User); err != nil {
		return nil, s.fail(err)
	}

	logger.Info("signed in", "user_id", out.User.ID, "admin", out.User.IsAdmin)

	s.done()
	s.navigate(router.RouteSearch)

	identity := *out.User
	return &identity, nil
}

// sends partial profile fields and merges what the server returns
func (s *Store) UpdateProfile(ctx context.Context, update ProfileUpdate) (*Identity, error) {
	if update.Name == nil && update.Email == nil && update.ProfileImage == nil {
		return nil, s.record(&apperrors.ValidationError{Message: "nothing to update"})
	}

	update.Name = trimmed(update.Name)
	update.Email = trimmed(update.Email)
	if err := validate.Struct(update); err != nil {
		return nil, s.record(err)
	}

	s.opMu.Lock()
	defer s.opMu.Unlock()

	current, err := s.requireSession()
	if err != nil {
		return nil, s.record(err)
	}

	s.begin()

	resp, err := s.client.Send(ctx, http.MethodPut, pathProfile, update,
		httpclient.WithFallbackMessage("Profile update failed"))
	if err != nil {
		return nil, s.fail(err)
	}

	var out identityResponse
	if err := resp.Decode(&out); err != nil {
		return nil, s.fail(err)
	}

	patch := out.patch()
	if patch == nil {
		return nil, s.fail(&apperrors.MalformedResponseError{Missing: []string{"user"}})
	}

	merged := patch.apply(current)
	if err := s.commitIdentity(ctx, merged); err != nil {
		return nil, s.fail(sessionEnded(err))
	}

	s.done()
	return &merged, nil
}

// changes the password; the identity is unchanged
func (s *Store) UpdatePassword(ctx context.Context, currentPassword, newPassword string) error {
	req := passwordRequest{CurrentPassword: currentPassword, NewPassword: newPassword}
	if err := validate.Struct(req); err != nil {
		return s.record(err)
	}

	s.opMu.Lock()
	defer s.opMu.Unlock()

	if _, err := s.requireSession(); err != nil {
		return s.record(err)
	}

	s.begin()

	resp, err := s.client.Send(ctx, http.MethodPut, pathUpdatePassword, req,
		httpclient.WithFallbackMessage("Failed to update password"))
	if err != nil {
		return s.fail(err)
	}

	// some deployments rotate the token on password change
	var out passwordResponse
	if len(resp.Body) > 0 && resp.Decode(&out) == nil && out.Token != "" {
		if err := s.ReplaceToken(ctx, out.Token); err != nil {
			return s.fail(sessionEnded(err))
		}
	}

	s.done()
	return nil
}

// re-fetches the identity from the server, e.g. after an admin changed it
func (s *Store) Refresh(ctx context.Context) (*Identity, error) {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	if _, err := s.requireSession(); err != nil {
		return nil, s.record(err)
	}

	s.begin()

	confirmed, err := s.fetchIdentity(ctx)
	if err != nil {
		return nil, s.fail(err)
	}

	if err := s.commitIdentity(ctx, confirmed); err != nil {
		return nil, s.fail(sessionEnded(err))
	}

	s.done()
	return &confirmed, nil
}

// best-effort server logout, then an unconditional local sign out
func (s *Store) Logout(ctx context.Context) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	if s.Token() != "" {
		_, err := s.client.Send(ctx, http.MethodPost, pathLogout, nil, httpclient.SkipAuthRecovery())
		if err != nil {
			logger.Warn("server logout failed", "error", err)
		}
	}

	s.reset(ctx)

	s.mu.Lock()
	s.lastErr = nil
	s.mu.Unlock()

	s.notify()
	s.navigate(router.RouteLogin)

	logger.Info("signed out")
	return nil
}

func (s *Store) requireSession() (Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.state != StateAuthenticated || s.identity == nil || s.token == "" {
		return Identity{}, ErrNotAuthenticated
	}

	return *s.identity, nil
}

func (s *Store) fetchIdentity(ctx context.Context) (Identity, error) {
	resp, err := s.client.Send(ctx, http.MethodGet, pathMe, nil,
		httpclient.WithFallbackMessage("Failed to get profile"))
	if err != nil {
		return Identity{}, err
	}

	var out identityResponse
	if err := resp.Decode(&out); err != nil {
		return Identity{}, err
	}

	patch := out.patch()
	if patch == nil {
		return Identity{}, &apperrors.MalformedResponseError{Missing: []string{"user"}}
	}

	// the server copy is authoritative
	confirmed := patch.apply(Identity{})
	if confirmed.ID == "" {
		return Identity{}, &apperrors.MalformedResponseError{Missing: []string{"user"}}
	}
	return confirmed, nil
}

func trimmed(v *string) *string {
	if v == nil {
		return nil
	}

	t := strings.TrimSpace(*v)
	return &t
}

func sessionEnded(err error) error {
	if errors.Is(err, errNoSession) {
		return &apperrors.AuthExpiredError{Reason: "session ended"}
	}
	return err
}
