package errors

import (
	"fmt"
	"strings"
)

// ErrorResponse represents a standardized error response
type ErrorResponse struct {
	Error   string `json:"error"`             // error code (e.g., "unauthorized", "not_found")
	Message string `json:"message"`           // user-friendly message
	Details string `json:"details,omitempty"` // optional details (sanitized in production)
}

type ErrorInfo struct {
	category  string
	sanitized string
}

// ValidationError is a local precondition failure detected before any request is sent.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}

	return e.Field + ": " + e.Message
}

// NetworkError means no response was received (offline, timeout, DNS, circuit open).
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	if e.Err == nil {
		return e.Op + ": network error"
	}

	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// APIError is a non-401 error status returned by the server.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
}

// AuthExpiredError is a 401 that could not be recovered. It is terminal for the session.
type AuthExpiredError struct {
	Reason string
}

func (e *AuthExpiredError) Error() string {
	if e.Reason == "" {
		return "authentication expired"
	}

	return "authentication expired: " + e.Reason
}

// MalformedResponseError is a 2xx response missing contractually required fields.
type MalformedResponseError struct {
	Missing []string
}

func (e *MalformedResponseError) Error() string {
	if len(e.Missing) == 0 {
		return "malformed response from server"
	}

	return "malformed response from server: missing " + strings.Join(e.Missing, ", ")
}
