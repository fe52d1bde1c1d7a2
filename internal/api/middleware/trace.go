// Package middleware provides the HTTP middleware chain: request tracing
// and JWT authentication with role gates.
package middleware

import (
	"log/slog"
	"net/http"

	"github.com/davidahmann/reliaansible/internal/api/shared"
)

// Trace adds a trace ID to the request context and logs request starts.
// Apply it early so every later handler sees the ID.
func Trace(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := shared.SetTraceID(r.Context())

		slog.Debug("request started",
			slog.String("trace_id", shared.GetTraceID(ctx)),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("remote_addr", r.RemoteAddr))

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
