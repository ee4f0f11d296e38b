package pagination

import (
	"strconv"

	"github.com/gin-gonic/gin"
)

// Params holds pagination parameters from request
type Params struct {
	Page  int
	Limit int
}

// Meta holds pagination metadata for response
type Meta struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
	Pages int `json:"pages"`
}

// NewMeta creates pagination metadata from params and total count
func NewMeta(params Params, total int) Meta {
	return Meta{
		Page:  params.Page,
		Limit: params.Limit,
		Total: total,
		Pages: (total + params.Limit - 1) / params.Limit,
	}
}

// DefaultParams returns pagination params with defaults applied
// defaultLimit: default items per page, maxLimit: maximum allowed limit
func DefaultParams(page, limit, defaultLimit, maxLimit int) Params {
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	if page < 1 {
		page = 1
	}
	return Params{
		Page:  page,
		Limit: limit,
	}
}

// reads ?page= and ?limit=, ignoring unparsable values
func FromQuery(c *gin.Context, defaultLimit, maxLimit int) Params {
	page, _ := strconv.Atoi(c.Query("page"))   //nolint:errcheck // zero falls back to default
	limit, _ := strconv.Atoi(c.Query("limit")) //nolint:errcheck // zero falls back to default

	return DefaultParams(page, limit, defaultLimit, maxLimit)
}
