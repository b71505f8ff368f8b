package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/gshare/gallery-editor/internal/models"
	"github.com/gshare/gallery-editor/internal/services"
)

// LayoutHandler serves grid layouts
type LayoutHandler struct {
	layouts *services.LayoutService
}

// NewLayoutHandler creates a new LayoutHandler
func NewLayoutHandler(layouts *services.LayoutService) *LayoutHandler {
	return &LayoutHandler{layouts: layouts}
}

// SessionLayout renders a session's working order
func (h *LayoutHandler) SessionLayout(w http.ResponseWriter, r *http.Request) {
	q, ok := layoutQuery(w, r)
	if !ok {
		return
	}

	out, err := h.layouts.ForSession(r.Context(), chi.URLParam(r, "sessionID"), q)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// GalleryLayout renders a gallery's stored order
func (h *LayoutHandler) GalleryLayout(w http.ResponseWriter, r *http.Request) {
	galleryID, ok := galleryIDParam(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid gallery ID")
		return
	}
	q, ok := layoutQuery(w, r)
	if !ok {
		return
	}

	out, err := h.layouts.ForGallery(r.Context(), galleryID, q)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// ListGrids returns the configured grid names
func (h *LayoutHandler) ListGrids(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{"grids": h.layouts.Grids()})
}

func layoutQuery(w http.ResponseWriter, r *http.Request) (models.LayoutQuery, bool) {
	values := r.URL.Query()
	q := models.LayoutQuery{
		Grid:       values.Get("grid"),
		Breakpoint: values.Get("breakpoint"),
		Surface:    values.Get("surface"),
	}

	if v := values.Get("viewport"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, models.ErrorResponse{
				Error:  "Validation failed",
				Fields: map[string]string{"viewport": "Must be a whole number of pixels"},
			})
			return q, false
		}
		q.Viewport = n
	}
	if v := values.Get("placeholders"); v != "" {
		q.Placeholders, _ = strconv.ParseBool(v)
	}

	return q, validate(w, q)
}
