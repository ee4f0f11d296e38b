package users

import (
	"context"
	"net/http"
	"net/url"

	apperrors "codeberg.org/pyqpapers/portal/internal/errors"
	"codeberg.org/pyqpapers/portal/internal/httpclient"
	"codeberg.org/pyqpapers/portal/internal/validate"
)

const basePath = "/users"

// creates an admin user management client
func NewClient(hc *httpclient.Client) *Client {
	return &Client{http: hc}
}

// lists every account (admin)
func (c *Client) List(ctx context.Context) ([]User, error) {
	env, err := httpclient.FetchGet[[]User](ctx, c.http, basePath,
		httpclient.WithFallbackMessage("Failed to fetch users"))
	if err != nil {
		return nil, err
	}

	return *env.Data, nil
}

func (c *Client) Get(ctx context.Context, id string) (*User, error) {
	if id == "" {
		return nil, &apperrors.ValidationError{Field: "id", Message: "user id is required"}
	}

	env, err := httpclient.FetchGet[User](ctx, c.http, userPath(id),
		httpclient.WithFallbackMessage("Failed to fetch user"))
	if err != nil {
		return nil, err
	}

	return env.Data, nil
}

// dashboard counts; a response without data yields zero counts
func (c *Client) Stats(ctx context.Context) (*Stats, error) {
	var env httpclient.Envelope[Stats]
	err := c.http.DoJSON(ctx, http.MethodGet, basePath+"/stats", nil, &env,
		httpclient.WithFallbackMessage("Failed to fetch user statistics"))
	if err != nil {
		return nil, err
	}

	if env.Data == nil {
		return &Stats{DailyRegistrations: []DailyCount{}}, nil
	}

	return env.Data, nil
}

// grants or revokes administrator rights
func (c *Client) UpdateRole(ctx context.Context, id string, isAdmin bool) (*User, error) {
	return c.update(ctx, id, UpdateRequest{IsAdmin: &isAdmin}, "Failed to update user role")
}

// blocks or reactivates an account
func (c *Client) UpdateStatus(ctx context.Context, id, status string) (*User, error) {
	return c.update(ctx, id, UpdateRequest{Status: &status}, "Failed to update user status")
}

func (c *Client) update(ctx context.Context, id string, req UpdateRequest, fallback string) (*User, error) {
	if id == "" {
		return nil, &apperrors.ValidationError{Field: "id", Message: "user id is required"}
	}

	if err := validate.Struct(req); err != nil {
		return nil, err
	}

	env, err := httpclient.Fetch[User](ctx, c.http, http.MethodPut, userPath(id), req,
		httpclient.WithFallbackMessage(fallback))
	if err != nil {
		return nil, err
	}

	return env.Data, nil
}

func (c *Client) Delete(ctx context.Context, id string) error {
	if id == "" {
		return &apperrors.ValidationError{Field: "id", Message: "user id is required"}
	}

	_, err := c.http.Delete(ctx, userPath(id), httpclient.WithFallbackMessage("Failed to delete user"))
	return err
}

func userPath(id string) string {
	return basePath + "/" + url.PathEscape(id)
}
