package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/szhang829/badgerscholar/api"
	"github.com/szhang829/badgerscholar/internal/app"
)

// runServe initializes and starts the HTTP API server.
func runServe() error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}

	addr, err := parseServeAddr(cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("parsing address: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger.Info("starting HTTP API server", "version", AppVersion)

	a, err := app.Setup(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}
	defer func() {
		if closeErr := a.Close(); closeErr != nil {
			logger.Warn("shutdown error", "error", closeErr)
		}
	}()

	srv := api.NewServer(a.DBPool, api.Services{
		RAG:    a.System,
		Sync:   a.Syncer,
		Status: a.Reporter,
		Reset:  a.Resetter,
	}, logger)

	logger.Info("HTTP server ready",
		"addr", addr,
		"api", "/api/*",
		"health", "/health, /ready",
	)

	return srv.Run(ctx, addr)
}
