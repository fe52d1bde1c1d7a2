package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealth(t *testing.T) {
	t.Parallel()
	h := NewHealthHandler(true, false)

	rec := httptest.NewRecorder()
	h.Health(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeBody[HealthResponse](t, rec)
	assert.Equal(t, "ok", resp.Status)
	assert.True(t, resp.Components["database"])
	assert.False(t, resp.Components["auth"])
}

func TestComponentHealth(t *testing.T) {
	t.Parallel()
	h := NewHealthHandler(true, false)
	r := chi.NewRouter()
	r.Get("/health/{component}", h.ComponentHealth)

	t.Run("known component", func(t *testing.T) {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/database", nil))

		require.Equal(t, http.StatusOK, rec.Code)
		resp := decodeBody[ComponentHealthResponse](t, rec)
		assert.Equal(t, "database", resp.Component)
		assert.True(t, resp.Enabled)
	})

	t.Run("unknown component", func(t *testing.T) {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/gpu", nil))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}
