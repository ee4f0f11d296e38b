package users

import (
	"encoding/json"
	"time"

	"codeberg.org/pyqpapers/portal/internal/httpclient"
)

// account statuses an administrator can assign
const (
	StatusActive  = "active"
	StatusBlocked = "blocked"
)

// the authenticated user's profile as cached by the client.
// the server's /auth/me response is authoritative.
type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	IsAdmin      bool      `json:"isAdmin"`
	ProfileImage string    `json:"profileImage,omitempty"`
	Status       string    `json:"status,omitempty"`
	CreatedAt    time.Time `json:"createdAt,omitzero"`
}

// accepts both "id" and the "_id" key some deployments send
func (u *User) UnmarshalJSON(data []byte) error {
	type plain User
	var aux struct {
		plain
		AltID string `json:"_id"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	*u = User(aux.plain)
	if u.ID == "" {
		u.ID = aux.AltID
	}
	return nil
}

// reports whether an administrator has blocked the account
func (u User) Blocked() bool {
	return u.Status == StatusBlocked
}

// handles admin user management requests
type Client struct {
	http *httpclient.Client
}

// aggregate counts for the admin dashboard
type Stats struct {
	TotalUsers         int          `json:"totalUsers"`
	AdminUsers         int          `json:"adminUsers"`
	RegularUsers       int          `json:"regularUsers"`
	DailyRegistrations []DailyCount `json:"dailyRegistrations"`
}

type DailyCount struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// fields an administrator may change on another account
type UpdateRequest struct {
	IsAdmin *bool   `json:"isAdmin,omitempty"`
	Status  *string `json:"status,omitempty" validate:"omitnil,oneof=active blocked"`
	Name    *string `json:"name,omitempty" validate:"omitnil,notblank"`
}
