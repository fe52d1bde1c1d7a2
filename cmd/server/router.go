package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/davidahmann/reliaansible/internal/api"
	apimiddleware "github.com/davidahmann/reliaansible/internal/api/middleware"
	"github.com/davidahmann/reliaansible/internal/cache"
)

// setupRouter builds the route tree. Task and async endpoints need the
// generator or tester role; the cache surface needs admin. With no JWT
// secret configured every request passes with all roles.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(apimiddleware.Trace)

	metrics := apimiddleware.NewMetrics()
	r.Use(metrics.Middleware)

	authMiddleware := apimiddleware.NewAuthMiddleware(app.tokens)
	taskHandler := api.NewTaskHandler(app.queue, app.playbooks, app.logger)
	schemaHandler := api.NewSchemaHandler(app.schemas, app.logger)
	adminHandler := api.NewAdminHandler([]cache.Store{
		app.schemaCache, app.llmCache, app.playbookCache,
	}, app.logger)
	healthHandler := api.NewHealthHandler(app.config.Database.Enabled(), app.tokens != nil)

	// A typed nil store must not become a non-nil interface.
	var saver api.FeedbackSaver
	if app.feedback != nil {
		saver = app.feedback
	}
	feedbackHandler := api.NewFeedbackHandler(saver, app.logger)

	var telemetryReader api.TelemetryReader
	if app.telemetry != nil {
		telemetryReader = app.telemetry
	}
	var feedbackReader api.FeedbackReader
	if app.feedback != nil {
		feedbackReader = app.feedback
	}
	statsHandler := api.NewStatsHandler(telemetryReader, feedbackReader, metrics, app.logger)

	r.Route("/v1", func(r chi.Router) {
		r.Use(authMiddleware.Authenticate)

		r.Group(func(r chi.Router) {
			r.Use(authMiddleware.RequireRole("generator"))
			r.Get("/tasks", taskHandler.ListTasks)
			r.Get("/tasks/{id}", taskHandler.GetTask)
			r.Get("/tasks/{id}/result", taskHandler.GetTaskResult)
			r.Post("/tasks/{id}/cancel", taskHandler.CancelTask)
			r.Post("/async/generate", taskHandler.AsyncGenerate)
			r.Post("/feedback", feedbackHandler.PostFeedback)
			r.Get("/schema", schemaHandler.GetSchema)
			r.Get("/schema/modules", schemaHandler.ListModules)
			r.Get("/history", statsHandler.History)
		})

		r.Group(func(r chi.Router) {
			r.Use(authMiddleware.RequireRole("tester"))
			r.Post("/async/lint", taskHandler.AsyncLint)
			r.Post("/async/test", taskHandler.AsyncTest)
		})
	})

	r.Route("/api/admin", func(r chi.Router) {
		r.Use(authMiddleware.Authenticate)
		r.Use(authMiddleware.RequireRole("admin"))
		r.Get("/cache/stats", adminHandler.CacheStats)
		r.Post("/cache/clear", adminHandler.ClearCaches)
		r.Get("/stats/feedback", statsHandler.FeedbackStats)
		r.Get("/stats/telemetry", statsHandler.TelemetryStats)
	})

	r.With(authMiddleware.Authenticate, authMiddleware.RequireRole("admin")).
		Get("/metrics", statsHandler.Metrics)

	r.Get("/health", healthHandler.Health)
	r.Get("/health/{component}", healthHandler.ComponentHealth)
	r.Get("/healthz", healthHandler.Health)

	return r
}
