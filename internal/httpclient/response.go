package httpclient

import (
	"encoding/json"
	"net/http"
	"strings"

	apperrors "codeberg.org/pyqpapers/portal/internal/errors"
)

// a fully read server response
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// decodes the JSON body into v.
// an empty or unparsable body on a success status is a contract violation.
func (r *Response) Decode(v any) error {
	if len(strings.TrimSpace(string(r.Body))) == 0 {
		return &apperrors.MalformedResponseError{Missing: []string{"body"}}
	}

	if err := json.Unmarshal(r.Body, v); err != nil {
		return &apperrors.MalformedResponseError{Missing: []string{"valid JSON body"}}
	}

	return nil
}

// error payload shapes seen from the API: {"error": code, "message": text} or {"message": text}
type errorEnvelope struct {
	Error   any    `json:"error"`
	Message string `json:"message"`
}

// builds an APIError from a non-2xx response
func apiError(resp *Response, fallback string) *apperrors.APIError {
	apiErr := &apperrors.APIError{Status: resp.Status}

	var envelope errorEnvelope
	if json.Unmarshal(resp.Body, &envelope) == nil {
		apiErr.Message = envelope.Message

		switch e := envelope.Error.(type) {
		case string:
			apiErr.Code = e
			if apiErr.Message == "" && strings.Contains(e, " ") {
				// some routes return a sentence in "error" instead of a code
				apiErr.Message = e
			}
		case map[string]any:
			if code, ok := e["code"].(string); ok {
				apiErr.Code = code
			}
			if message, ok := e["message"].(string); ok && apiErr.Message == "" {
				apiErr.Message = message
			}
		}
	}

	if apiErr.Message == "" {
		apiErr.Message = fallback
	}

	if apiErr.Message == "" {
		apiErr.Message = strings.ToLower(http.StatusText(resp.Status))
	}

	return apiErr
}
