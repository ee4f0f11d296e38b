package auth

import (
	"codeberg.org/pyqpapers/portal/internal/auth"
	"codeberg.org/pyqpapers/portal/internal/devstore"
	"codeberg.org/pyqpapers/portal/pyq/users"
)

// collaborators of the auth routes
type Deps struct {
	Store   *devstore.Store
	Issuer  *auth.Issuer
	Refresh *auth.RefreshStore

	// nil disables Google login
	Google auth.GoogleVerifier
}

type RegisterRequest struct {
	Name     string `json:"name" binding:"required,max=100"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type GoogleRequest struct {
	AccessToken string `json:"accessToken" binding:"required"`
}

type UpdateProfileRequest struct {
	Name         *string `json:"name" binding:"omitempty,min=1,max=100"`
	Email        *string `json:"email" binding:"omitempty,email"`
	ProfileImage *string `json:"profileImage" binding:"omitempty,max=2048"`
}

type UpdatePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" binding:"required"`
	NewPassword     string `json:"newPassword" binding:"required,min=6"`
}

// AuthResponse is returned by every credential exchange
type AuthResponse struct {
	Success bool       `json:"success"`
	Token   string     `json:"token"`
	User    users.User `json:"user"`
}

type TokenResponse struct {
	Success bool   `json:"success"`
	Token   string `json:"token"`
}

type RefreshResponse struct {
	Success     bool   `json:"success"`
	AccessToken string `json:"accessToken"`
}
