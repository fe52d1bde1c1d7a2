// Package main implements the entry point for the Relia server, which
// generates, lints, and tests Ansible playbooks through a background task
// queue with TTL-cached intermediate results.
package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"

	"github.com/davidahmann/reliaansible/internal/config"
	"github.com/davidahmann/reliaansible/internal/platform/logger"
)

func main() {
	ctx := context.Background()

	cfg, appLogger, err := initialize()
	if err != nil {
		log.Fatalf("Failed to initialize: %v", err)
	}

	app, err := newApplication(ctx, cfg, appLogger)
	if err != nil {
		log.Fatalf("Failed to build application: %v", err)
	}

	if err := app.startHTTPServer(ctx, app.setupRouter()); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

// initialize loads configuration and installs the structured logger.
func initialize() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	appLogger, err := logger.Setup(cfg.Server)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to set up logger: %w", err)
	}

	appLogger.Info("configuration loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Server.LogLevel,
		"workers", cfg.Tasks.WorkerCount,
		"database_enabled", cfg.Database.Enabled(),
		"auth_enabled", cfg.Auth.JWTSecret != "")

	return cfg, appLogger, nil
}
