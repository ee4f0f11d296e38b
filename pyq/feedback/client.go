package feedback

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	apperrors "codeberg.org/pyqpapers/portal/internal/errors"
	"codeberg.org/pyqpapers/portal/internal/httpclient"
	"codeberg.org/pyqpapers/portal/internal/validate"
)

const basePath = "/feedback"

func NewClient(hc *httpclient.Client) *Client {
	return &Client{http: hc}
}

func (c *Client) Submit(ctx context.Context, s Submission) (*Feedback, error) {
	if err := validate.Struct(s); err != nil {
		return nil, err
	}

	s.Subject = strings.TrimSpace(s.Subject)
	s.Message = strings.TrimSpace(s.Message)

	env, err := httpclient.Fetch[Feedback](ctx, c.http, http.MethodPost, basePath, s,
		httpclient.WithFallbackMessage("Failed to submit feedback"))
	if err != nil {
		return nil, err
	}

	return env.Data, nil
}

// feedback submitted by the signed-in user; an absent data field is an empty list
func (c *Client) Mine(ctx context.Context) ([]Feedback, error) {
	var env httpclient.Envelope[[]Feedback]
	err := c.http.DoJSON(ctx, http.MethodGet, basePath+"/me", nil, &env,
		httpclient.WithFallbackMessage("Failed to fetch feedback"))
	if err != nil {
		return nil, err
	}

	if env.Data == nil {
		return []Feedback{}, nil
	}

	return *env.Data, nil
}

func (c *Client) ForPaper(ctx context.Context, paperID string) ([]Feedback, error) {
	if paperID == "" {
		return nil, &apperrors.ValidationError{Field: "paperId", Message: "paper id is required"}
	}

	return c.list(ctx, basePath+"/paper/"+url.PathEscape(paperID), "Failed to fetch paper feedback")
}

// all feedback (admin)
func (c *Client) List(ctx context.Context) ([]Feedback, error) {
	return c.list(ctx, basePath, "Failed to fetch feedback")
}

func (c *Client) list(ctx context.Context, path, fallback string) ([]Feedback, error) {
	env, err := httpclient.FetchGet[[]Feedback](ctx, c.http, path,
		httpclient.WithFallbackMessage(fallback))
	if err != nil {
		return nil, err
	}

	return *env.Data, nil
}

// moves feedback to a new review state with an optional reply (admin)
func (c *Client) UpdateStatus(ctx context.Context, id, status, response string) (*Feedback, error) {
	if id == "" {
		return nil, &apperrors.ValidationError{Field: "id", Message: "feedback id is required"}
	}

	update := statusUpdate{Status: status, Response: strings.TrimSpace(response)}
	if err := validate.Struct(update); err != nil {
		return nil, err
	}

	env, err := httpclient.Fetch[Feedback](ctx, c.http, http.MethodPut, feedbackPath(id), update,
		httpclient.WithFallbackMessage("Failed to update feedback status"))
	if err != nil {
		return nil, err
	}

	return env.Data, nil
}

func (c *Client) Delete(ctx context.Context, id string) error {
	if id == "" {
		return &apperrors.ValidationError{Field: "id", Message: "feedback id is required"}
	}

	_, err := c.http.Delete(ctx, feedbackPath(id), httpclient.WithFallbackMessage("Failed to delete feedback"))
	return err
}

func feedbackPath(id string) string {
	return basePath + "/" + url.PathEscape(id)
}
