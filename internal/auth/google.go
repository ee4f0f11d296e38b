package auth

import (
	"context"
	"fmt"

	"github.com/markbates/goth"
	"github.com/markbates/goth/providers/google"
)

// profile fields taken from a verified Google account
type GoogleProfile struct {
	GoogleID  string
	Email     string
	Name      string
	AvatarURL string
}

// turns a Google access token into the profile it belongs to
type GoogleVerifier interface {
	Verify(ctx context.Context, accessToken string) (GoogleProfile, error)
}

type gothGoogle struct {
	provider goth.Provider
}

// verifies tokens against Google's userinfo endpoint through goth
func NewGoogleVerifier(clientID, clientSecret, callbackURL string) GoogleVerifier {
	return &gothGoogle{
		provider: google.New(clientID, clientSecret, callbackURL, "email", "profile"),
	}
}

func (g *gothGoogle) Verify(_ context.Context, accessToken string) (GoogleProfile, error) {
	user, err := g.provider.FetchUser(&google.Session{AccessToken: accessToken})
	if err != nil {
		return GoogleProfile{}, fmt.Errorf("failed to verify google token: %w", err)
	}

	if user.Email == "" {
		return GoogleProfile{}, fmt.Errorf("google account has no email")
	}

	return GoogleProfile{
		GoogleID:  user.UserID,
		Email:     user.Email,
		Name:      user.Name,
		AvatarURL: user.AvatarURL,
	}, nil
}

// a verifier for tests and offline runs
type GoogleVerifierFunc func(ctx context.Context, accessToken string) (GoogleProfile, error)

func (f GoogleVerifierFunc) Verify(ctx context.Context, accessToken string) (GoogleProfile, error) {
	return f(ctx, accessToken)
}
