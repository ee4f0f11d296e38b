// Package persist stores the credential and identity of the signed-in user
// across process restarts. The pair is always written and cleared together.
package persist

import (
	"context"

	"codeberg.org/pyqpapers/portal/pyq/users"
)

// fixed storage keys, shared with the browser client's local storage layout
const (
	KeyToken    = "auth_token"
	KeyIdentity = "user_data"
)

// the persisted half of a session
type Record struct {
	Token    string
	Identity users.User
}

// Store is durable storage for a single Record.
// Load returns (nil, nil) when nothing usable is stored.
type Store interface {
	Load(ctx context.Context) (*Record, error)
	Save(ctx context.Context, rec Record) error
	Clear(ctx context.Context) error
}
