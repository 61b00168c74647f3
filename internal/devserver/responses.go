package devserver

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	app_errors "ragchat/client/internal/errors"
)

// ErrorResponse is the JSON body of every error answer.
type ErrorResponse struct {
	Error string `json:"error"`
}

// MessageResponse acknowledges operations that return no resource.
type MessageResponse struct {
	Message string `json:"message"`
}

// respondWithError maps sentinel errors onto HTTP status codes.
func respondWithError(w http.ResponseWriter, err error) {
	var statusCode int
	message := err.Error()

	switch {
	case errors.Is(err, app_errors.ErrValidation):
		statusCode = http.StatusBadRequest
	case errors.Is(err, app_errors.ErrUnauthorized):
		statusCode = http.StatusUnauthorized
	case errors.Is(err, app_errors.ErrNotFound):
		statusCode = http.StatusNotFound
	case errors.Is(err, app_errors.ErrConflict):
		statusCode = http.StatusConflict
	default:
		statusCode = http.StatusInternalServerError
		message = "An unexpected internal server error occurred."
	}
	// Sentinel prefixes are internal; clients only see the detail.
	if i := strings.Index(message, ": "); i >= 0 && statusCode != http.StatusInternalServerError {
		message = message[i+2:]
	}

	slog.Warn("Responding with error", "status_code", statusCode, "client_message", message, "internal_error", err)
	respondWithJSON(w, statusCode, ErrorResponse{Error: message})
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		slog.Error("Failed to marshal JSON response", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if _, err := w.Write(response); err != nil {
		slog.Error("Failed to write JSON response", "error", err)
	}
}
