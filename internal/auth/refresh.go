package auth

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/sessions"
)

const (
	refreshCookie = "pyq_refresh"
	keyUserID     = "uid"
	keyVersion    = "ver"
)

// keeps the refresh grant in a signed, http-only cookie
type RefreshStore struct {
	store *sessions.CookieStore
}

func NewRefreshStore(secret string, secure bool, maxAge time.Duration) (*RefreshStore, error) {
	if secret == "" {
		return nil, fmt.Errorf("SESSION_SECRET must be set")
	}

	store := sessions.NewCookieStore([]byte(secret))
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   int(maxAge.Seconds()),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}

	return &RefreshStore{store: store}, nil
}

// sets the refresh cookie for an account and token version
func (r *RefreshStore) Issue(w http.ResponseWriter, req *http.Request, acct Account) error {
	session, err := r.store.Get(req, refreshCookie)
	if err != nil && session == nil {
		return fmt.Errorf("failed to open refresh session: %w", err)
	}

	session.Values[keyUserID] = acct.ID
	session.Values[keyVersion] = acct.TokenVersion

	return session.Save(req, w)
}

// reads the grant carried by the request; ErrNoRefresh when absent or unreadable
func (r *RefreshStore) Read(req *http.Request) (string, int, error) {
	session, err := r.store.Get(req, refreshCookie)
	if err != nil || session.IsNew {
		return "", 0, ErrNoRefresh
	}

	userID, ok := session.Values[keyUserID].(string)
	if !ok || userID == "" {
		return "", 0, ErrNoRefresh
	}

	version, _ := session.Values[keyVersion].(int)
	return userID, version, nil
}

// expires the refresh cookie
func (r *RefreshStore) Clear(w http.ResponseWriter, req *http.Request) error {
	session, _ := r.store.Get(req, refreshCookie)
	if session == nil {
		return nil
	}

	session.Options.MaxAge = -1
	return session.Save(req, w)
}
