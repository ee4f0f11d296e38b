// Package respond writes the {success, data} envelope the API answers with.
package respond

import (
	"errors"
	"net/http"

	"codeberg.org/pyqpapers/portal/api/rest/pagination"
	"codeberg.org/pyqpapers/portal/internal/devstore"
	apperrors "codeberg.org/pyqpapers/portal/internal/errors"
	"github.com/gin-gonic/gin"
)

type Envelope[T any] struct {
	Success    bool             `json:"success"`
	Count      int              `json:"count,omitempty"`
	Pagination *pagination.Meta `json:"pagination,omitempty"`
	Data       T                `json:"data"`
}

func Data[T any](c *gin.Context, status int, data T) {
	c.JSON(status, Envelope[T]{Success: true, Data: data})
}

func List[T any](c *gin.Context, items []T) {
	c.JSON(http.StatusOK, Envelope[[]T]{Success: true, Count: len(items), Data: items})
}

func Page[T any](c *gin.Context, items []T, meta pagination.Meta) {
	c.JSON(http.StatusOK, Envelope[[]T]{Success: true, Count: len(items), Pagination: &meta, Data: items})
}

// acknowledges a mutation that returns nothing
func OK(c *gin.Context, message string) {
	c.JSON(http.StatusOK, gin.H{"success": true, "message": message})
}

// maps devstore errors onto error responses
func StoreError(c *gin.Context, err error, resource string) {
	switch {
	case errors.Is(err, devstore.ErrNotFound):
		apperrors.NotFound(c, resource)
	case errors.Is(err, devstore.ErrEmailTaken):
		apperrors.Conflict(c, "User already exists")
	case errors.Is(err, devstore.ErrInUse):
		apperrors.Conflict(c, resource+" is still in use")
	default:
		apperrors.InternalError(c, "failed to process "+resource, err)
	}
}
