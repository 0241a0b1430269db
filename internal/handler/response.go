package handler

// Response helpers. Every error response has the same shape:
//
//	{"error": "not_found", "message": "meal not found with id abc123"}
//
// so clients can parse failures without looking at the status code first.

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/sakif/nutriswap/internal/apperror"
	"github.com/sakif/nutriswap/internal/auth"
	"github.com/sakif/nutriswap/internal/model"
)

// maxBodyBytes caps JSON request bodies. A meal's ingredient list is the
// largest thing a client sends.
const maxBodyBytes = 1 << 20

// dateLayout is the format of from/to query parameters and body fields.
const dateLayout = "2006-01-02"

// ErrorResponse is the standard error format returned by all API endpoints.
type ErrorResponse struct {
	Error   string `json:"error"`   // machine-readable, e.g. "not_found"
	Message string `json:"message"` // human-readable
	Field   string `json:"field,omitempty"`
}

// writeJSON sends data with the given status. Headers must be set before
// WriteHeader; anything set afterwards is ignored.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			// Headers are already sent; all we can do is log.
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// writeError maps a domain error to an HTTP status and sends it.
//
//	validation, parse → 400    resolution  → 422
//	not found         → 404    forbidden   → 403
//	conflict          → 409    unavailable → 503
//
// Anything else is a 500 with a generic message; raw errors can carry SQL
// or file paths and never reach the client.
func writeError(w http.ResponseWriter, err error) {
	if appErr, ok := asAppError(err); ok {
		status, errorType := classify(err)
		writeJSON(w, status, ErrorResponse{
			Error:   errorType,
			Message: appErr.Message,
			Field:   appErr.Field,
		})
		return
	}

	writeJSON(w, http.StatusInternalServerError, ErrorResponse{
		Error:   "internal_error",
		Message: "An internal error occurred",
	})
}

func asAppError(err error) (*apperror.AppError, bool) {
	var appErr *apperror.AppError
	ok := errors.As(err, &appErr)
	return appErr, ok
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, apperror.ErrValidation):
		return http.StatusBadRequest, "validation_error"
	case errors.Is(err, apperror.ErrParse):
		return http.StatusBadRequest, "parse_error"
	case errors.Is(err, apperror.ErrResolution):
		return http.StatusUnprocessableEntity, "resolution_error"
	case errors.Is(err, apperror.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, apperror.ErrForbidden):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, apperror.ErrConflict):
		return http.StatusConflict, "conflict"
	case errors.Is(err, apperror.ErrUnavailable):
		return http.StatusServiceUnavailable, "unavailable"
	}
	return http.StatusInternalServerError, "internal_error"
}

// logFailure records errors that end in a 5xx. Client mistakes are not logged.
func logFailure(logger *slog.Logger, r *http.Request, err error) {
	if status, _ := classify(err); status >= http.StatusInternalServerError {
		logger.Error("request failed",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
	}
}

// decodeJSON reads a JSON body into dst. Unknown fields are rejected so
// typos in field names surface as 400s instead of silently ignored input.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return apperror.ValidationFailed("body", "request body is required")
		}
		return apperror.ValidationFailed("body", fmt.Sprintf("invalid JSON body: %v", err))
	}
	return nil
}

// parseDate parses an optional YYYY-MM-DD value. Empty yields the zero time.
func parseDate(field, value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(dateLayout, value)
	if err != nil {
		return time.Time{}, apperror.ValidationFailed(field,
			fmt.Sprintf("%s must be a date in YYYY-MM-DD format", field))
	}
	return t, nil
}

// dateRange reads from/to values into a DateRange.
func dateRange(from, to string) (model.DateRange, error) {
	f, err := parseDate("from", from)
	if err != nil {
		return model.DateRange{}, err
	}
	t, err := parseDate("to", to)
	if err != nil {
		return model.DateRange{}, err
	}
	return model.DateRange{From: f, To: t}, nil
}

// queryRange reads the from and to query parameters.
func queryRange(r *http.Request) (model.DateRange, error) {
	q := r.URL.Query()
	return dateRange(q.Get("from"), q.Get("to"))
}

// requireUser returns the authenticated user ID or writes a 401.
func requireUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{
			Error:   "unauthorized",
			Message: "valid authentication required",
		})
		return "", false
	}
	return userID, true
}
