package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/davidahmann/reliaansible/internal/cache"
	"github.com/davidahmann/reliaansible/internal/config"
	"github.com/davidahmann/reliaansible/internal/generation"
	"github.com/davidahmann/reliaansible/internal/platform/gemini"
	"github.com/davidahmann/reliaansible/internal/platform/postgres"
	"github.com/davidahmann/reliaansible/internal/service"
	"github.com/davidahmann/reliaansible/internal/service/auth"
	"github.com/davidahmann/reliaansible/internal/task"
)

// application holds the wired dependency graph. Construction order
// matters: caches and the recorder exist before the queue, the queue
// before the sweeper.
type application struct {
	config *config.Config
	logger *slog.Logger

	db        *sql.DB
	queue     *task.Queue
	sweeper   *task.Sweeper
	tokens    auth.TokenService
	telemetry *postgres.TelemetryStore
	feedback  *postgres.FeedbackStore

	schemaCache   *cache.Cache[map[string]any]
	llmCache      *cache.Cache[string]
	playbookCache *cache.Cache[service.GenerateResult]

	schemas   *service.SchemaService
	playbooks *service.PlaybookService
}

// unavailableGenerator stands in when no Gemini API key is configured so
// the server can still serve lint, test, and task endpoints.
type unavailableGenerator struct{}

func (unavailableGenerator) GeneratePlaybook(ctx context.Context, req generation.PlaybookRequest) (string, error) {
	return "", fmt.Errorf("%w: no Gemini API key configured", generation.ErrInvalidConfig)
}

func newApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*application, error) {
	app := &application{config: cfg, logger: logger}

	var err error
	if app.schemaCache, err = cache.New[map[string]any]("schema", cfg.Caches.SchemaTTL, logger); err != nil {
		return nil, fmt.Errorf("failed to create schema cache: %w", err)
	}
	if app.llmCache, err = cache.New[string]("llm", cfg.Caches.LLMTTL, logger); err != nil {
		return nil, fmt.Errorf("failed to create llm cache: %w", err)
	}
	if app.playbookCache, err = cache.New[service.GenerateResult]("playbook", cfg.Caches.PlaybookTTL, logger); err != nil {
		return nil, fmt.Errorf("failed to create playbook cache: %w", err)
	}

	var recorder task.Recorder = task.NoopRecorder{}
	if cfg.Database.Enabled() {
		app.db, err = postgres.Connect(ctx, cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		if err := runMigrations(app.db, logger); err != nil {
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
		app.telemetry = postgres.NewTelemetryStore(app.db, logger)
		app.feedback = postgres.NewFeedbackStore(app.db, logger)
		recorder = app.telemetry
	} else {
		logger.Info("no database configured, telemetry events will be dropped")
	}

	app.queue, err = task.NewQueue(task.QueueConfig{WorkerCount: cfg.Tasks.WorkerCount}, recorder, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create task queue: %w", err)
	}

	app.sweeper = task.NewSweeper(app.queue, task.SweeperConfig{
		Interval:  cfg.Tasks.SweepInterval,
		Retention: cfg.Tasks.Retention(),
	}, logger)
	app.sweeper.Register(app.schemaCache)
	app.sweeper.Register(app.llmCache)
	app.sweeper.Register(app.playbookCache)
	app.sweeper.Start()

	if cfg.Auth.JWTSecret != "" {
		app.tokens, err = auth.NewTokenService(cfg.Auth)
		if err != nil {
			return nil, fmt.Errorf("failed to create token service: %w", err)
		}
	} else {
		logger.Warn("no JWT secret configured, authentication is disabled")
	}

	var generator generation.Generator = unavailableGenerator{}
	if cfg.LLM.GeminiAPIKey != "" {
		generator, err = gemini.NewPlaybookGenerator(ctx, logger, cfg.LLM)
		if err != nil {
			return nil, fmt.Errorf("failed to create generator: %w", err)
		}
	} else {
		logger.Warn("no Gemini API key configured, playbook generation is disabled")
	}

	app.schemas = service.NewSchemaService(cfg.Playbooks.SchemaDir, app.schemaCache, logger)
	app.playbooks = service.NewPlaybookService(
		generator,
		app.schemas,
		app.llmCache,
		app.playbookCache,
		cfg.Playbooks.Dir,
		cfg.Playbooks.LintBin,
		cfg.Playbooks.TestBin,
		logger,
	)

	return app, nil
}

// cleanup stops background work and closes the database. Safe to call
// once after the HTTP server has shut down.
func (app *application) cleanup() {
	if app.sweeper != nil {
		app.sweeper.Stop()
	}
	if app.queue != nil {
		app.queue.Stop()
	}
	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("failed to close database", "error", err)
		}
	}
}
