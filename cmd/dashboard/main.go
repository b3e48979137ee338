// Package main provides the entry point for the dashboard API server.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/fabriclabs/dcdash/internal/api"
	"github.com/fabriclabs/dcdash/internal/auth"
	"github.com/fabriclabs/dcdash/internal/clitool"
	"github.com/fabriclabs/dcdash/internal/docstore"
	"github.com/fabriclabs/dcdash/internal/metrics"
	"github.com/fabriclabs/dcdash/internal/refresh"
	"github.com/fabriclabs/dcdash/pkg/config"
	"github.com/fabriclabs/dcdash/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Default().Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New(logger.ParseLevel(cfg.LogLevel), cfg.LogJSON)

	// Initialize document store
	store, err := docstore.New(cfg.DataDir, log.Logger)
	if err != nil {
		log.Error("failed to initialize document store", "error", err)
		os.Exit(1)
	}

	// External CLI tools
	runner := clitool.NewExecRunner(log.Logger)
	metricsService := metrics.NewService(runner, cfg.TenantCLIBin, log.Logger)

	// Refresh orchestrator
	orchestrator := refresh.New(runner, cfg.AdminCLIBin, store, metricsService, log.Logger)

	// Auth
	tokens := auth.NewTokenValidator(cfg.AdminTokenFile, log.Logger)
	sessions, err := auth.NewSessionManager(cfg.SessionTTL, log.Logger)
	if err != nil {
		log.Error("failed to initialize session manager", "error", err)
		os.Exit(1)
	}

	// Create the API server
	server := api.NewServer(cfg, store, orchestrator, tokens, sessions, log.Logger)

	// Setup graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		log.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	// Start the server
	log.Info("starting dashboard server",
		"host", cfg.APIHost,
		"port", cfg.APIPort,
		"data_dir", cfg.DataDir,
	)

	if err := server.Start(ctx); err != nil {
		log.Error("server error", "error", err)
		os.Exit(1)
	}

	log.Info("server stopped")
}
