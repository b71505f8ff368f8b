package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/gshare/gallery-editor/internal/backend"
	"github.com/gshare/gallery-editor/internal/models"
	"github.com/gshare/gallery-editor/internal/observability"
	"github.com/gshare/gallery-editor/internal/reorder"
	"github.com/gshare/gallery-editor/internal/validator"
)

const maxBodyBytes = 64 << 10

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, models.ErrorResponse{Error: msg})
}

// writeServiceError maps editor errors onto HTTP statuses
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status >= http.StatusInternalServerError && status != http.StatusBadGateway && status != http.StatusGatewayTimeout {
		msg = "Internal server error"
	}
	if status >= http.StatusInternalServerError {
		observability.WithContext(r.Context()).WithError(err).WithField("path", r.URL.Path).Error("Request failed")
	}
	writeError(w, status, msg)
}

func statusFor(err error) int {
	var commitErr *reorder.CommitError
	var statusErr *backend.StatusError
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, models.ErrSessionNotFound), errors.Is(err, models.ErrGalleryNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrUnsavedChanges), errors.Is(err, models.ErrInvalidTransition):
		return http.StatusConflict
	case errors.Is(err, models.ErrPhotoNotFound),
		errors.Is(err, models.ErrUnsupportedKey),
		errors.Is(err, models.ErrUnknownGrid),
		errors.Is(err, models.ErrUnknownBreakpoint):
		return http.StatusBadRequest
	case errors.As(err, &commitErr), errors.As(err, &statusErr), errors.Is(err, models.ErrDuplicatePhoto):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// decodeAndValidate reads a JSON body into dst and runs struct validation.
// It writes the error response itself and reports whether to continue.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return validate(w, dst)
}

func validate(w http.ResponseWriter, v interface{}) bool {
	if fields := validator.Validate(v); fields != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Validation failed", Fields: fields})
		return false
	}
	return true
}

func galleryIDParam(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "galleryID"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func forceParam(r *http.Request) bool {
	force, _ := strconv.ParseBool(r.URL.Query().Get("force"))
	return force
}
