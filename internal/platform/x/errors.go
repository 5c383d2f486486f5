package x

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/postpilot/postpilot/internal/guard"
)

// APIError is returned when the platform responds with a non-2xx status.
// The body is preserved for logging; it never contains credentials.
type APIError struct {
	StatusCode int
	Title      string
	Detail     string
	Body       []byte
}

func newAPIError(statusCode int, body []byte) *APIError {
	apiErr := &APIError{StatusCode: statusCode, Body: body}

	var envelope struct {
		Title  string `json:"title"`
		Detail string `json:"detail"`
		Errors []struct {
			Message string `json:"message"`
		} `json:"errors"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil {
		apiErr.Title = envelope.Title
		apiErr.Detail = envelope.Detail
		if apiErr.Detail == "" && len(envelope.Errors) > 0 {
			apiErr.Detail = envelope.Errors[0].Message
		}
	}
	return apiErr
}

func (e *APIError) Error() string {
	if e == nil {
		return "platform error"
	}
	detail := e.Detail
	if detail == "" {
		detail = e.Title
	}
	if detail == "" {
		detail = strings.TrimSpace(string(e.Body))
	}
	return fmt.Sprintf("x request failed: status %d: %s", e.StatusCode, detail)
}

// Retryable classifies platform failures for the gate's retrier: rate-limit
// responses and server errors are retryable, other 4xx responses are not.
// Non-API errors (transport failures) stay retryable. Guard errors and
// context cancellation never retry, matching the default predicate.
func Retryable(err error) bool {
	if !guard.DefaultRetryable(err) {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		if apiErr.StatusCode == http.StatusTooManyRequests {
			return true
		}
		return apiErr.StatusCode >= http.StatusInternalServerError
	}
	return true
}
