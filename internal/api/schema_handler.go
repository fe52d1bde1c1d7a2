package api

import (
	"log/slog"
	"net/http"

	"github.com/davidahmann/reliaansible/internal/api/shared"
	"github.com/davidahmann/reliaansible/internal/service"
)

// ModuleListResponse lists the modules with a schema on disk.
type ModuleListResponse struct {
	Modules []string `json:"modules"`
}

// SchemaHandler serves read-only module schema lookups.
type SchemaHandler struct {
	schemas *service.SchemaService
	logger  *slog.Logger
}

// NewSchemaHandler creates a SchemaHandler.
func NewSchemaHandler(schemas *service.SchemaService, logger *slog.Logger) *SchemaHandler {
	if logger == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("logger cannot be nil for SchemaHandler")
	}
	return &SchemaHandler{
		schemas: schemas,
		logger:  logger.With(slog.String("component", "schema_handler")),
	}
}

// GetSchema handles GET /v1/schema?module=name. Unknown modules are 404.
func (h *SchemaHandler) GetSchema(w http.ResponseWriter, r *http.Request) {
	module := r.URL.Query().Get("module")
	if module == "" {
		shared.RespondWithError(w, r, http.StatusBadRequest, "module query parameter is required")
		return
	}

	schema, err := h.schemas.GetSchema(r.Context(), module)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, schema)
}

// ListModules handles GET /v1/schema/modules.
func (h *SchemaHandler) ListModules(w http.ResponseWriter, r *http.Request) {
	modules, err := h.schemas.ListModules(r.Context())
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}
	if modules == nil {
		modules = []string{}
	}
	shared.RespondWithJSON(w, r, http.StatusOK, ModuleListResponse{Modules: modules})
}
