package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/szhang829/badgerscholar/internal/app"
)

// runReset drops all stored vectors and clears index flags. Destructive,
// so it requires an explicit --force flag.
func runReset() error {
	force := false
	for _, arg := range os.Args[2:] {
		if arg == "--force" || arg == "-f" {
			force = true
		}
	}
	if !force {
		return fmt.Errorf("reset deletes all stored vectors; re-run with --force to confirm")
	}

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

	if err := a.Resetter.DropAllVectors(ctx); err != nil {
		return fmt.Errorf("dropping vectors: %w", err)
	}

	fmt.Println("All vectors dropped; index flags cleared.")
	return nil
}
