package handler

// Response helpers shared by every handler.
//
// Success bodies are JSON objects keyed by resource name:
//
//	{"team": {...}}
//	{"projects": [...], "pagination": {...}}
//
// CONSISTENT ERROR FORMAT:
// Every error has the same shape, so the frontend can parse it without
// looking at the status code first:
//
//	{"error": "not_found", "message": "team not found with id abc123"}

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/hackhub/internal/apperror"
	"github.com/sakif/hackhub/internal/metrics"
)

// maxBodyBytes caps request bodies. The largest legitimate body is a project
// with a 2000-character description plus links and tags.
const maxBodyBytes = 64 << 10

// ErrorResponse is the body of every non-2xx API response.
type ErrorResponse struct {
	Error   string `json:"error"`           // machine-readable kind, e.g. "not_found"
	Message string `json:"message"`         // human-readable description
	Field   string `json:"field,omitempty"` // offending input field for validation errors

	RetryAfter int `json:"retryAfter,omitempty"` // seconds, only on 429
}

// envelope wraps a response body under named keys.
type envelope map[string]any

// writeJSON sets the header and status before writing the body; header
// changes after the first Write are ignored.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// writeError maps a domain error to an HTTP status.
//
// WHY HERE AND NOT IN THE SERVICE?
// The service layer returns errors wrapping apperror sentinels and knows
// nothing about HTTP. errors.Is walks the whole chain, so
// fmt.Errorf("...: %w", apperror.NotFound(...)) still maps to 404.
// Anything that is not an *apperror.AppError is an internal failure: it is
// logged here and the client only sees a generic message.
func writeError(w http.ResponseWriter, logger *slog.Logger, err error) {
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		logger.Error("internal error", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "An internal error occurred",
		})
		return
	}

	status, kind := http.StatusInternalServerError, "internal_error"
	switch {
	case errors.Is(err, apperror.ErrValidation):
		status, kind = http.StatusBadRequest, "validation_error"
	case errors.Is(err, apperror.ErrUnauthorized):
		status, kind = http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, apperror.ErrForbidden):
		status, kind = http.StatusForbidden, "forbidden"
	case errors.Is(err, apperror.ErrNotFound):
		status, kind = http.StatusNotFound, "not_found"
	case errors.Is(err, apperror.ErrConflict):
		status, kind = http.StatusConflict, "conflict"
	}
	writeJSON(w, status, ErrorResponse{Error: kind, Message: appErr.Message, Field: appErr.Field})
}

// TooManyRequests answers requests the rate limiter turned away.
//
// RETRY-AFTER:
// The limiter works on a sliding estimate, so the exact moment the client
// may come back is not known; the whole window is the safe upper bound. It
// goes out both as the standard header and in the body for the frontend.
func TooManyRequests(message string, window time.Duration) http.HandlerFunc {
	retryAfter := int(window.Round(time.Second) / time.Second)
	return func(w http.ResponseWriter, r *http.Request) {
		metrics.Event("rate_limited", nil)
		if w.Header().Get("Retry-After") == "" {
			w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
		}
		writeJSON(w, http.StatusTooManyRequests, ErrorResponse{
			Error:      "rate_limited",
			Message:    message,
			RetryAfter: retryAfter,
		})
	}
}

// RateLimitFailed answers when the limiter itself fails, for example when no
// client IP can be derived from the request.
func RateLimitFailed(logger *slog.Logger) func(http.ResponseWriter, *http.Request, error) {
	return func(w http.ResponseWriter, r *http.Request, err error) {
		writeError(w, logger, fmt.Errorf("rate limiter: %w", err))
	}
}

// decodeJSON reads a single JSON object from the body into dst. Malformed
// bodies come back as validation errors so they render as 400.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.Is(err, io.EOF):
			return apperror.ValidationFailed("body", "request body is required")
		case errors.As(err, &tooLarge):
			return apperror.ValidationFailed("body",
				fmt.Sprintf("request body must not exceed %d bytes", tooLarge.Limit))
		default:
			return apperror.ValidationFailed("body", "invalid JSON body")
		}
	}
	if dec.More() {
		return apperror.ValidationFailed("body", "request body must contain a single JSON object")
	}
	return nil
}

// queryInt parses an optional integer query parameter; absent or malformed
// values yield fallback.
func queryInt(r *http.Request, key string, fallback int) int {
	v, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil {
		return fallback
	}
	return v
}

func param(r *http.Request, name string) string {
	return chi.URLParam(r, name)
}
