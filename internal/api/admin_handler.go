package api

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/davidahmann/reliaansible/internal/api/shared"
	"github.com/davidahmann/reliaansible/internal/cache"
)

// CacheStatsResponse reports the state of every named cache.
type CacheStatsResponse struct {
	TotalEntries int           `json:"total_entries"`
	Caches       []cache.Stats `json:"caches"`
}

// ClearCachesResponse lists which caches were cleared.
type ClearCachesResponse struct {
	Cleared []string `json:"cleared"`
}

// AdminHandler serves the admin cache surface. It operates on the
// type-erased cache stores so heterogeneous value types stay behind one
// interface.
type AdminHandler struct {
	caches []cache.Store
	logger *slog.Logger
}

// NewAdminHandler creates an AdminHandler over the named caches.
func NewAdminHandler(caches []cache.Store, logger *slog.Logger) *AdminHandler {
	if logger == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("logger cannot be nil for AdminHandler")
	}
	return &AdminHandler{
		caches: caches,
		logger: logger.With(slog.String("component", "admin_handler")),
	}
}

// CacheStats handles GET /api/admin/cache/stats.
func (h *AdminHandler) CacheStats(w http.ResponseWriter, r *http.Request) {
	resp := CacheStatsResponse{Caches: make([]cache.Stats, 0, len(h.caches))}
	for _, c := range h.caches {
		stats := c.Stats()
		resp.TotalEntries += stats.Size
		resp.Caches = append(resp.Caches, stats)
	}
	shared.RespondWithJSON(w, r, http.StatusOK, resp)
}

// ClearCaches handles POST /api/admin/cache/clear. The name query
// parameter selects one cache; without it every cache is cleared.
func (h *AdminHandler) ClearCaches(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSpace(r.URL.Query().Get("name"))

	var cleared []string
	for _, c := range h.caches {
		if name != "" && c.Name() != name {
			continue
		}
		c.Clear()
		cleared = append(cleared, c.Name())
	}
	if name != "" && len(cleared) == 0 {
		shared.RespondWithError(w, r, http.StatusNotFound, "Cache not found")
		return
	}

	h.logger.InfoContext(r.Context(), "cleared caches", "caches", cleared)
	shared.RespondWithJSON(w, r, http.StatusOK, ClearCachesResponse{Cleared: cleared})
}
