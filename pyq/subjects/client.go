package subjects

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	apperrors "codeberg.org/pyqpapers/portal/internal/errors"
	"codeberg.org/pyqpapers/portal/internal/httpclient"
	"codeberg.org/pyqpapers/portal/internal/validate"
)

const basePath = "/subjects"

func NewClient(hc *httpclient.Client) *Client {
	return &Client{http: hc}
}

func (c *Client) List(ctx context.Context) ([]Subject, error) {
	env, err := httpclient.FetchGet[[]Subject](ctx, c.http, basePath,
		httpclient.WithFallbackMessage("Failed to fetch subjects"))
	if err != nil {
		return nil, err
	}

	return *env.Data, nil
}

// subjects nested by year and semester
func (c *Client) Grouped(ctx context.Context) ([]YearGroup, error) {
	env, err := httpclient.FetchGet[[]YearGroup](ctx, c.http, basePath+"/grouped",
		httpclient.WithFallbackMessage("Failed to fetch subjects"))
	if err != nil {
		return nil, err
	}

	return *env.Data, nil
}

// subjects taught in the given year and semester
func (c *Client) Filter(ctx context.Context, year, semester string) ([]Subject, error) {
	if year == "" || semester == "" {
		return nil, &apperrors.ValidationError{Message: "year and semester are required"}
	}

	query := url.Values{"year": {year}, "semester": {semester}}
	env, err := httpclient.FetchGet[[]Subject](ctx, c.http, basePath+"/filter",
		httpclient.WithQuery(query),
		httpclient.WithFallbackMessage("Failed to fetch subjects"))
	if err != nil {
		return nil, err
	}

	return *env.Data, nil
}

func (c *Client) Get(ctx context.Context, id string) (*Subject, error) {
	if id == "" {
		return nil, &apperrors.ValidationError{Field: "id", Message: "subject id is required"}
	}

	env, err := httpclient.FetchGet[Subject](ctx, c.http, subjectPath(id),
		httpclient.WithFallbackMessage("Failed to fetch subject"))
	if err != nil {
		return nil, err
	}

	return env.Data, nil
}

// adds a subject (admin)
func (c *Client) Create(ctx context.Context, req CreateRequest) (*Subject, error) {
	req.Name = strings.TrimSpace(req.Name)

	if err := validate.Struct(req); err != nil {
		return nil, err
	}

	env, err := httpclient.Fetch[Subject](ctx, c.http, http.MethodPost, basePath, req,
		httpclient.WithFallbackMessage("Failed to add subject"))
	if err != nil {
		return nil, err
	}

	return env.Data, nil
}

// removes a subject (admin)
func (c *Client) Delete(ctx context.Context, id string) error {
	if id == "" {
		return &apperrors.ValidationError{Field: "id", Message: "subject id is required"}
	}

	_, err := c.http.Delete(ctx, subjectPath(id), httpclient.WithFallbackMessage("Failed to delete subject"))
	return err
}

func subjectPath(id string) string {
	return basePath + "/" + url.PathEscape(id)
}
