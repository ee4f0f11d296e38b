package papers

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	apperrors "codeberg.org/pyqpapers/portal/internal/errors"
	"codeberg.org/pyqpapers/portal/internal/httpclient"
	"codeberg.org/pyqpapers/portal/internal/logger"
	"codeberg.org/pyqpapers/portal/internal/validate"
)

const basePath = "/papers"

// external viewer the PDF is delegated to
const viewerBase = "https://docs.google.com/viewer"

func NewClient(hc *httpclient.Client) *Client {
	return &Client{http: hc}
}

func (c *Client) List(ctx context.Context, opts ListOptions) (*Page, error) {
	return c.list(ctx, basePath, opts.query(), "Failed to fetch papers")
}

// full text search over titles, subjects and tags, narrowed by opts
func (c *Client) Search(ctx context.Context, q string, opts ListOptions) (*Page, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return nil, &apperrors.ValidationError{Field: "q", Message: "enter something to search for"}
	}

	query := opts.query()
	query.Set("q", q)

	return c.list(ctx, basePath+"/search", query, "Search failed")
}

func (c *Client) list(ctx context.Context, path string, query url.Values, fallback string) (*Page, error) {
	env, err := httpclient.FetchGet[[]Paper](ctx, c.http, path,
		httpclient.WithQuery(query),
		httpclient.WithFallbackMessage(fallback))
	if err != nil {
		return nil, err
	}

	return &Page{
		Papers:     *env.Data,
		Count:      env.Count,
		Pagination: env.Pagination,
	}, nil
}

func (o ListOptions) query() url.Values {
	q := url.Values{}

	if o.Page > 0 {
		q.Set("page", strconv.Itoa(o.Page))
	}
	if o.Limit > 0 {
		q.Set("limit", strconv.Itoa(o.Limit))
	}
	if o.Subject != "" {
		q.Set("subject", o.Subject)
	}
	if o.Year != "" {
		q.Set("year", o.Year)
	}
	if o.Semester != "" {
		q.Set("semester", o.Semester)
	}
	if o.Approved != nil {
		q.Set("approved", strconv.FormatBool(*o.Approved))
	}

	return q
}

func (c *Client) Get(ctx context.Context, id string) (*Paper, error) {
	if id == "" {
		return nil, &apperrors.ValidationError{Field: "id", Message: "paper id is required"}
	}

	env, err := httpclient.FetchGet[Paper](ctx, c.http, paperPath(id),
		httpclient.WithFallbackMessage("Failed to fetch paper"))
	if err != nil {
		return nil, err
	}

	return env.Data, nil
}

// uploads a new paper with its PDF (admin)
func (c *Client) Create(ctx context.Context, in Input, file *File) (*Paper, error) {
	if err := validate.Struct(in); err != nil {
		return nil, err
	}

	if err := file.Validate(); err != nil {
		return nil, err
	}

	return c.sendForm(ctx, http.MethodPost, basePath, in, file, "Failed to upload paper")
}

// replaces paper metadata and, when file is non-nil, its PDF (admin)
func (c *Client) Update(ctx context.Context, id string, in Input, file *File) (*Paper, error) {
	if id == "" {
		return nil, &apperrors.ValidationError{Field: "id", Message: "paper id is required"}
	}

	if file != nil {
		if err := file.Validate(); err != nil {
			return nil, err
		}
	}

	return c.sendForm(ctx, http.MethodPut, paperPath(id), in, file, "Failed to update paper")
}

func (c *Client) sendForm(ctx context.Context, method, path string, in Input, file *File, fallback string) (*Paper, error) {
	contentType, body, err := encodeForm(in, file)
	if err != nil {
		return nil, err
	}

	env, err := httpclient.Fetch[Paper](ctx, c.http, method, path, nil,
		httpclient.WithRawBody(contentType, body),
		httpclient.WithFallbackMessage(fallback))
	if err != nil {
		return nil, err
	}

	return env.Data, nil
}

// marks a pending paper as approved (admin)
func (c *Client) Approve(ctx context.Context, id string) (*Paper, error) {
	if id == "" {
		return nil, &apperrors.ValidationError{Field: "id", Message: "paper id is required"}
	}

	env, err := httpclient.Fetch[Paper](ctx, c.http, http.MethodPut, paperPath(id),
		map[string]bool{"approved": true},
		httpclient.WithFallbackMessage("Failed to approve paper"))
	if err != nil {
		return nil, err
	}

	return env.Data, nil
}

func (c *Client) Delete(ctx context.Context, id string) error {
	if id == "" {
		return &apperrors.ValidationError{Field: "id", Message: "paper id is required"}
	}

	_, err := c.http.Delete(ctx, paperPath(id), httpclient.WithFallbackMessage("Failed to delete paper"))
	return err
}

// bumps the download counter. failures are logged and otherwise ignored.
func (c *Client) IncrementDownload(ctx context.Context, id string) {
	if id == "" {
		return
	}

	if _, err := c.http.Put(ctx, paperPath(id)+"/download", nil); err != nil {
		logger.Warn("failed to increment download count", "paper_id", id, "error", err)
	}
}

// dashboard overview; a response without data yields zero counts
func (c *Client) Stats(ctx context.Context) (*Stats, error) {
	var env httpclient.Envelope[Stats]
	err := c.http.DoJSON(ctx, http.MethodGet, basePath+"/stats/overview", nil, &env,
		httpclient.WithFallbackMessage("Failed to fetch paper statistics"))
	if err != nil {
		return nil, err
	}

	if env.Data == nil {
		return &Stats{
			RecentPapers:    []Paper{},
			TopPapers:       []Paper{},
			DepartmentStats: []DepartmentCount{},
			MonthlyUploads:  []MonthlyCount{},
		}, nil
	}

	return env.Data, nil
}

// absolute URL of the paper's PDF, or "" when it has none
func (c *Client) FileURL(p Paper) string {
	if p.FileURL == "" {
		return ""
	}

	ref, err := url.Parse(p.FileURL)
	if err != nil {
		return ""
	}

	if ref.IsAbs() {
		return ref.String()
	}

	base, err := url.Parse(c.http.BaseURL())
	if err != nil {
		return ""
	}

	return base.ResolveReference(&url.URL{Path: "/" + strings.TrimLeft(ref.Path, "/"), RawQuery: ref.RawQuery}).String()
}

// link to the external viewer rendering the paper's PDF
func (c *Client) ViewerURL(p Paper) string {
	file := c.FileURL(p)
	if file == "" {
		return ""
	}

	return viewerBase + "?" + url.Values{"url": {file}, "embedded": {"true"}}.Encode()
}

func paperPath(id string) string {
	return basePath + "/" + url.PathEscape(id)
}
