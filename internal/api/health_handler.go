package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/davidahmann/reliaansible/internal/api/shared"
)

// HealthResponse reports liveness and which optional subsystems are on.
type HealthResponse struct {
	Status     string          `json:"status"`
	Components map[string]bool `json:"components"`
}

// HealthHandler serves GET /health and GET /healthz.
type HealthHandler struct {
	databaseEnabled bool
	authEnabled     bool
}

// NewHealthHandler creates a HealthHandler.
func NewHealthHandler(databaseEnabled, authEnabled bool) *HealthHandler {
	return &HealthHandler{
		databaseEnabled: databaseEnabled,
		authEnabled:     authEnabled,
	}
}

// Health reports process liveness.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	shared.RespondWithJSON(w, r, http.StatusOK, HealthResponse{
		Status:     "ok",
		Components: h.components(),
	})
}

// ComponentHealthResponse reports one subsystem.
type ComponentHealthResponse struct {
	Component string `json:"component"`
	Enabled   bool   `json:"enabled"`
}

// ComponentHealth handles GET /health/{component}. Unknown component
// names are 404.
func (h *HealthHandler) ComponentHealth(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "component")
	enabled, ok := h.components()[name]
	if !ok {
		shared.RespondWithError(w, r, http.StatusNotFound, "Unknown component")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, ComponentHealthResponse{
		Component: name,
		Enabled:   enabled,
	})
}

func (h *HealthHandler) components() map[string]bool {
	return map[string]bool{
		"database": h.databaseEnabled,
		"auth":     h.authEnabled,
	}
}
