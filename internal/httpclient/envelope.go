package httpclient

import (
	"context"
	"net/http"

	apperrors "codeberg.org/pyqpapers/portal/internal/errors"
)

// page information returned by list routes
type Pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
	Pages int `json:"pages"`
}

// the {success, count, pagination, data} wrapper used by resource routes
type Envelope[T any] struct {
	Success    bool        `json:"success"`
	Count      int         `json:"count,omitempty"`
	Pagination *Pagination `json:"pagination,omitempty"`
	Data       *T          `json:"data"`
}

// sends a request and unwraps the data field of the envelope.
// a missing data field is a malformed response.
func Fetch[T any](ctx context.Context, c *Client, method, path string, body any, opts ...RequestOption) (*Envelope[T], error) {
	var env Envelope[T]
	if err := c.DoJSON(ctx, method, path, body, &env, opts...); err != nil {
		return nil, err
	}

	if env.Data == nil {
		return nil, &apperrors.MalformedResponseError{Missing: []string{"data"}}
	}

	return &env, nil
}

// like Fetch for GET requests
func FetchGet[T any](ctx context.Context, c *Client, path string, opts ...RequestOption) (*Envelope[T], error) {
	return Fetch[T](ctx, c, http.MethodGet, path, nil, opts...)
}
