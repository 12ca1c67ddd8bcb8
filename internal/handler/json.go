package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/msomdec/conduit/internal/domain"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

// errBadRequest marks bodies that are not valid JSON.
var errBadRequest = errors.New("malformed request body")

type errorBody struct {
	Errors any `json:"errors"`
}

// writeJSON sends a JSON response with the given status code and data.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("write JSON response", "error", err)
	}
}

// writeError maps err onto a status code and error body. Unclassified errors
// are logged and reported without detail.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusUnprocessableEntity, errorBody{Errors: verr.Fields})
	case errors.Is(err, errBadRequest):
		writeJSON(w, http.StatusBadRequest, errorBody{Errors: map[string][]string{"body": {"is malformed"}}})
	case errors.Is(err, domain.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody{Errors: []string{"entity not found"}})
	case errors.Is(err, domain.ErrUnauthorized):
		writeJSON(w, http.StatusUnauthorized, errorBody{Errors: map[string][]string{"token": {"is missing or invalid"}}})
	case errors.Is(err, domain.ErrForbidden):
		writeJSON(w, http.StatusForbidden, errorBody{Errors: map[string][]string{"status": {"forbidden"}}})
	case errors.Is(err, domain.ErrConflict):
		writeJSON(w, http.StatusConflict, errorBody{Errors: []string{"entity already exists"}})
	case errors.Is(err, domain.ErrUnavailable):
		loggerFrom(r.Context()).Warn("request could not be served", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, errorBody{Errors: []string{"service unavailable"}})
	default:
		loggerFrom(r.Context()).Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		writeJSON(w, http.StatusInternalServerError, errorBody{Errors: []string{"internal server error"}})
	}
}

// readJSON decodes the request body into dst. The body is capped at
// maxBodyBytes.
func readJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return fmt.Errorf("%w: %w", errBadRequest, err)
	}
	return nil
}
