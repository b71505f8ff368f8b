package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/gshare/gallery-editor/internal/models"
	"github.com/gshare/gallery-editor/internal/services"
)

// EditorHandler handles gallery editing session endpoints
type EditorHandler struct {
	editor *services.EditorService
}

// NewEditorHandler creates a new EditorHandler
func NewEditorHandler(editor *services.EditorService) *EditorHandler {
	return &EditorHandler{editor: editor}
}

// OpenSession starts editing a gallery
func (h *EditorHandler) OpenSession(w http.ResponseWriter, r *http.Request) {
	galleryID, ok := galleryIDParam(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid gallery ID")
		return
	}

	es, err := h.editor.Open(r.Context(), galleryID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	w.Header().Set("Location", "/api/sessions/"+es.ID)
	writeJSON(w, http.StatusCreated, es.Snapshot())
}

// GetSession returns the session's order and drag state
func (h *EditorHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	es, err := h.editor.Get(chi.URLParam(r, "sessionID"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, es.Snapshot())
}

// CloseSession ends a session. ?force=true drops unsaved changes from the
// session while keeping them as a draft.
func (h *EditorHandler) CloseSession(w http.ResponseWriter, r *http.Request) {
	if err := h.editor.Close(r.Context(), chi.URLParam(r, "sessionID"), forceParam(r)); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Drag applies a normalized drag event
func (h *EditorHandler) Drag(w http.ResponseWriter, r *http.Request) {
	var req models.DragEventRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	resp, err := h.editor.Drag(r.Context(), chi.URLParam(r, "sessionID"), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// Pointer applies raw pointer input
func (h *EditorHandler) Pointer(w http.ResponseWriter, r *http.Request) {
	var req models.PointerEventRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	resp, err := h.editor.Pointer(r.Context(), chi.URLParam(r, "sessionID"), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// Key applies a key press
func (h *EditorHandler) Key(w http.ResponseWriter, r *http.Request) {
	var req models.KeyPressRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	resp, err := h.editor.Key(r.Context(), chi.URLParam(r, "sessionID"), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// Move applies a direct move
func (h *EditorHandler) Move(w http.ResponseWriter, r *http.Request) {
	var req models.MoveRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	resp, err := h.editor.Move(r.Context(), chi.URLParam(r, "sessionID"), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// Commit saves the current order to the gallery backend
func (h *EditorHandler) Commit(w http.ResponseWriter, r *http.Request) {
	snap, err := h.editor.Commit(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// Refresh reloads the gallery from the backend
func (h *EditorHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	resp, err := h.editor.Refresh(r.Context(), chi.URLParam(r, "sessionID"), forceParam(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
