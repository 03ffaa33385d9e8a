package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/szhang829/badgerscholar/internal/app"
)

// runSync embeds every paper missing from the coarse index.
func runSync() error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := app.Setup(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}
	defer func() {
		if closeErr := a.Close(); closeErr != nil {
			logger.Warn("shutdown error", "error", closeErr)
		}
	}()

	res, err := a.Syncer.Run(ctx)
	if err != nil {
		return fmt.Errorf("coarse sync: %w", err)
	}

	fmt.Printf("Coarse sync complete: %d indexed, %d skipped\n", res.Indexed, res.Skipped)
	return nil
}
