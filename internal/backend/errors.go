package backend

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	app_errors "ragchat/client/internal/errors"
)

// APIError is a non-2xx answer from the backend.
type APIError struct {
	Method     string
	Path       string
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s %s: api returned status %d", e.Method, e.Path, e.StatusCode)
	}
	return fmt.Sprintf("%s %s: api returned status %d: %s", e.Method, e.Path, e.StatusCode, e.Message)
}

// Unwrap maps the status onto the sentinel taxonomy so callers can use errors.Is.
func (e *APIError) Unwrap() []error {
	errs := []error{app_errors.ErrServer}
	switch e.StatusCode {
	case http.StatusNotFound:
		errs = append(errs, app_errors.ErrNotFound)
	case http.StatusUnauthorized, http.StatusForbidden:
		errs = append(errs, app_errors.ErrUnauthorized)
	}
	return errs
}

// errorResponse is the backend's error payload.
type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func newAPIError(method, path string, status int, body []byte) *APIError {
	apiErr := &APIError{Method: method, Path: path, StatusCode: status}
	var payload errorResponse
	if err := json.Unmarshal(body, &payload); err == nil {
		apiErr.Message = payload.Error
		if apiErr.Message == "" {
			apiErr.Message = payload.Message
		}
	}
	if apiErr.Message == "" {
		apiErr.Message = strings.TrimSpace(truncate(string(body), 200))
	}
	return apiErr
}

// ErrorMessage extracts the most useful message for a notification, preferring
// the backend's own error text.
func ErrorMessage(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return err.Error()
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
