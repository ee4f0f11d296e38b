package errors

import (
	"context"
	"errors"
	"os"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin"
)

// UUID format: xxxxxxxx-xxxx-xxxx-xxxx-xxxxxxxxxxxx (36 characters)
var uuidRegex = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)

// error categories for classification
const (
	CategoryNetwork    = "network"
	CategoryValidation = "validation"
	CategoryAuth       = "auth"
	CategoryNotFound   = "not_found"
	CategoryTimeout    = "timeout"
	CategoryServer     = "server"
	CategoryMalformed  = "malformed"
	CategoryUnknown    = "unknown"
)

const (
	networkMessage   = "No response from server. Please check your internet connection."
	timeoutMessage   = "The server took too long to respond. Please try again."
	authLostMessage  = "Your session has expired. Please log in again."
	malformedMessage = "Unexpected response from server. Please try again later."
)

// analyzes an error and returns its category and sanitized message
func classifyError(err error) ErrorInfo {
	if err == nil {
		return ErrorInfo{CategoryUnknown, ""}
	}

	isProduction := os.Getenv("ENVIRONMENT") == "production"

	var validationErr *ValidationError
	if errors.As(err, &validationErr) {
		return ErrorInfo{CategoryValidation, validationErr.Message}
	}

	var authErr *AuthExpiredError
	if errors.As(err, &authErr) {
		return ErrorInfo{CategoryAuth, authLostMessage}
	}

	var malformedErr *MalformedResponseError
	if errors.As(err, &malformedErr) {
		return ErrorInfo{CategoryMalformed, malformedMessage}
	}

	// context errors
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrorInfo{CategoryTimeout, timeoutMessage}
	}

	var networkErr *NetworkError
	if errors.As(err, &networkErr) {
		return ErrorInfo{CategoryNetwork, networkMessage}
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		category := CategoryServer
		switch {
		case apiErr.Status == 404:
			category = CategoryNotFound
		case apiErr.Status == 401 || apiErr.Status == 403:
			category = CategoryAuth
		case apiErr.Status < 500:
			category = CategoryValidation
		}

		return ErrorInfo{category, apiErr.Message}
	}

	// fallback to string matching for unknown error types
	errMsg := strings.ToLower(err.Error())

	if strings.Contains(errMsg, "timeout") || strings.Contains(errMsg, "deadline") {
		return ErrorInfo{CategoryTimeout, ternary(isProduction, "request timed out", err.Error())}
	}

	if strings.Contains(errMsg, "not found") {
		return ErrorInfo{CategoryNotFound, ternary(isProduction, "resource not found", err.Error())}
	}

	if strings.Contains(errMsg, "connection") || strings.Contains(errMsg, "network") ||
		strings.Contains(errMsg, "dial") {
		return ErrorInfo{CategoryNetwork, ternary(isProduction, "connection error occurred", err.Error())}
	}

	if strings.Contains(errMsg, "validation") || strings.Contains(errMsg, "binding") ||
		strings.Contains(errMsg, "invalid") || strings.Contains(errMsg, "required") {
		return ErrorInfo{CategoryValidation, ternary(isProduction, "validation failed", err.Error())}
	}

	if strings.Contains(errMsg, "unauthorized") || strings.Contains(errMsg, "forbidden") ||
		strings.Contains(errMsg, "permission") {
		return ErrorInfo{CategoryAuth, ternary(isProduction, "permission denied", err.Error())}
	}

	return ErrorInfo{CategoryUnknown, ternary(isProduction, "an error occurred", err.Error())}
}

// returns the classification category of err
func Category(err error) string {
	return classifyError(err).category
}

// maps an error to text a screen can show inline.
// fallback is used when the error carries no message of its own.
func UserMessage(err error, fallback string) string {
	if err == nil {
		return ""
	}

	info := classifyError(err)
	if info.sanitized == "" {
		return fallback
	}

	if info.category == CategoryUnknown && fallback != "" {
		return fallback
	}

	return info.sanitized
}

// reports whether err is an unrecoverable authentication failure
func IsAuthExpired(err error) bool {
	var authErr *AuthExpiredError
	return errors.As(err, &authErr)
}

// reports whether err means no response was received
func IsNetwork(err error) bool {
	var networkErr *NetworkError
	return errors.As(err, &networkErr)
}

// returns the HTTP status carried by an APIError, or 0
func Status(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}

	return 0
}

// ternary helper for cleaner conditional assignment
func ternary(condition bool, trueVal, falseVal string) string {
	if condition {
		return trueVal
	}

	return falseVal
}

// validates a UUID string format
func IsValidUUID(id string) bool {
	if id == "" {
		return false
	}

	return uuidRegex.MatchString(strings.ToLower(id))
}

// validates a UUID parameter from the request path
func ValidatePathUUID(c *gin.Context, paramName string) (string, bool) {
	id := c.Param(paramName)

	if id == "" {
		BadRequest(c, "missing "+paramName, nil)
		return "", false
	}

	if !IsValidUUID(id) {
		NotFound(c, "resource")
		return "", false
	}

	return id, true
}
