package handlers

import (
	"net/http"
	"time"

	"github.com/gshare/gallery-editor/internal/models"
	"github.com/gshare/gallery-editor/internal/services"
)

// SessionCounter reports open editing sessions
type SessionCounter interface {
	Count() int
}

// MaintenanceReporter exposes the background sweep status
type MaintenanceReporter interface {
	GetStatus() services.MaintenanceStatus
}

// HealthHandler handles health check endpoints
type HealthHandler struct {
	sessions    SessionCounter
	maintenance MaintenanceReporter
}

// NewHealthHandler creates a new HealthHandler. maintenance may be nil.
func NewHealthHandler(sessions SessionCounter, maintenance MaintenanceReporter) *HealthHandler {
	return &HealthHandler{sessions: sessions, maintenance: maintenance}
}

// HealthCheck returns the server health status
func (h *HealthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	response := models.HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC(),
	}
	if h.sessions != nil {
		response.Sessions = h.sessions.Count()
	}

	writeJSON(w, http.StatusOK, response)
}

// MaintenanceStatus returns the last sweep results
func (h *HealthHandler) MaintenanceStatus(w http.ResponseWriter, r *http.Request) {
	if h.maintenance == nil {
		writeError(w, http.StatusNotFound, "Maintenance is not running")
		return
	}
	writeJSON(w, http.StatusOK, h.maintenance.GetStatus())
}
