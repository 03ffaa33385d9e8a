package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/szhang829/badgerscholar/internal/app"
)

// runStatus reports sync state for both index stages.
func runStatus() error {
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

	coarse, err := a.Reporter.CoarseStatus(ctx)
	if err != nil {
		return fmt.Errorf("coarse status: %w", err)
	}
	fine, err := a.Reporter.FineStatus(ctx)
	if err != nil {
		return fmt.Errorf("fine status: %w", err)
	}

	fmt.Println("Coarse index (title + abstract):")
	fmt.Printf("  papers:   %d\n", coarse.Papers)
	fmt.Printf("  indexed:  %d\n", coarse.Indexed)
	fmt.Printf("  in sync:  %v\n", coarse.InSync)
	fmt.Println()
	fmt.Println("Fine index (full-text chunks):")
	fmt.Printf("  flagged papers:  %d\n", fine.FlaggedPapers)
	fmt.Printf("  chunked papers:  %d\n", fine.ChunkedPapers)
	fmt.Printf("  chunks:          %d\n", fine.Chunks)
	fmt.Printf("  cache:           %d/%d\n", fine.CacheSize, fine.CacheCapacity)
	fmt.Printf("  in sync:         %v\n", fine.InSync)
	return nil
}
