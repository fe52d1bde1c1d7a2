package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/davidahmann/reliaansible/internal/api/shared"
	"github.com/davidahmann/reliaansible/internal/config"
	"github.com/davidahmann/reliaansible/internal/service/auth"
)

const testSecret = "test-secret-that-is-at-least-32-chars!!"

func newTokenService(t *testing.T) auth.TokenService {
	t.Helper()
	svc, err := auth.NewTokenService(config.AuthConfig{
		JWTSecret:            testSecret,
		TokenLifetimeMinutes: 60,
	})
	require.NoError(t, err)
	return svc
}

// principalEcho records the principal seen by the downstream handler.
func principalEcho(got *shared.Principal) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if p, ok := shared.PrincipalFrom(r.Context()); ok {
			*got = p
		}
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthenticateWithValidToken(t *testing.T) {
	t.Parallel()
	tokens := newTokenService(t)
	token, err := tokens.GenerateToken(context.Background(), "user-1", []string{"generator"})
	require.NoError(t, err)

	var got shared.Principal
	handler := NewAuthMiddleware(tokens).Authenticate(principalEcho(&got))

	req := httptest.NewRequest(http.MethodGet, "/v1/tasks", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "user-1", got.UserID)
	assert.Equal(t, []string{"generator"}, got.Roles)
}

func TestAuthenticateRejections(t *testing.T) {
	t.Parallel()
	tokens := newTokenService(t)
	handler := NewAuthMiddleware(tokens).Authenticate(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))

	cases := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"not bearer", "Basic dXNlcjpwYXNz"},
		{"garbage token", "Bearer not.a.jwt"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/v1/tasks", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
		})
	}

	t.Run("wrong secret", func(t *testing.T) {
		other, err := auth.NewTokenService(config.AuthConfig{
			JWTSecret:            strings.Repeat("x", 32),
			TokenLifetimeMinutes: 60,
		})
		require.NoError(t, err)
		token, err := other.GenerateToken(context.Background(), "user-1", nil)
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/v1/tasks", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestAuthenticateDisabled(t *testing.T) {
	t.Parallel()
	var got shared.Principal
	handler := NewAuthMiddleware(nil).Authenticate(principalEcho(&got))

	req := httptest.NewRequest(http.MethodGet, "/v1/tasks", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "anonymous", got.UserID)
	assert.True(t, got.HasRole("admin"))
}

func TestRequireRole(t *testing.T) {
	t.Parallel()
	m := NewAuthMiddleware(nil)
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	t.Run("role present", func(t *testing.T) {
		handler := m.RequireRole("tester")(ok)
		req := httptest.NewRequest(http.MethodPost, "/v1/async/lint", nil)
		req = req.WithContext(shared.WithPrincipal(req.Context(),
			shared.Principal{UserID: "u", Roles: []string{"tester"}}))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("admin implies other roles", func(t *testing.T) {
		handler := m.RequireRole("generator")(ok)
		req := httptest.NewRequest(http.MethodPost, "/v1/async/generate", nil)
		req = req.WithContext(shared.WithPrincipal(req.Context(),
			shared.Principal{UserID: "u", Roles: []string{"admin"}}))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("role missing", func(t *testing.T) {
		handler := m.RequireRole("admin")(ok)
		req := httptest.NewRequest(http.MethodGet, "/api/admin/cache/stats", nil)
		req = req.WithContext(shared.WithPrincipal(req.Context(),
			shared.Principal{UserID: "u", Roles: []string{"generator"}}))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("no principal", func(t *testing.T) {
		handler := m.RequireRole("generator")(ok)
		req := httptest.NewRequest(http.MethodGet, "/v1/tasks", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}
