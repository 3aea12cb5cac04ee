// Package httperr maps domain errors onto HTTP responses.
package httperr

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/shopkit/order/internal/service/ordererr"
)

type errorResponse struct {
	Error string `json:"error"`
	Code  int    `json:"code,omitempty"`
}

// Write sends err as a JSON error response with the appropriate status.
func Write(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	code := 0

	var coded *ordererr.Error
	switch {
	case errors.As(err, &coded):
		status = http.StatusNotFound
		code = coded.Code
	case errors.Is(err, ordererr.ErrPermissionDenied):
		status = http.StatusForbidden
	case errors.Is(err, ordererr.ErrHashMismatch):
		status = http.StatusConflict
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(errorResponse{Error: err.Error(), Code: code}); err != nil {
		slog.Error("Error sending error response", "error", err)
	}
}

// BadRequest sends a 400 with the given error.
func BadRequest(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusBadRequest)
	if err := json.NewEncoder(w).Encode(errorResponse{Error: err.Error()}); err != nil {
		slog.Error("Error sending error response", "error", err)
	}
}

// JSON writes v as a JSON response body with the given status.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Error sending response", "error", err)
	}
}
