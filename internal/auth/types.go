package auth

import (
	"context"
	"errors"

	"github.com/golang-jwt/jwt/v5"
)

// represents JWT claims
type Claims struct {
	UserID  string `json:"user_id"`
	Email   string `json:"email"`
	IsAdmin bool   `json:"is_admin"`

	// bumped by logout and password changes to revoke older tokens
	Version int `json:"ver"`
	jwt.RegisteredClaims
}

// the account state the middleware checks on every request
type Account struct {
	ID           string
	Email        string
	IsAdmin      bool
	Blocked      bool
	TokenVersion int
}

// looks accounts up by id; ErrUnknownAccount when missing
type AccountLookup interface {
	Account(ctx context.Context, id string) (Account, error)
}

var (
	ErrUnknownAccount = errors.New("unknown account")
	ErrRevoked        = errors.New("token revoked")
	ErrNoRefresh      = errors.New("no refresh session")
)

// gin context keys
const (
	ctxUserID  = "user_id"
	ctxEmail   = "user_email"
	ctxIsAdmin = "user_is_admin"
)
