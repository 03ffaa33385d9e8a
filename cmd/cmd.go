// Package cmd provides CLI commands for badgerscholar.
//
// Commands:
//   - serve: HTTP API server exposing the retrieval pipeline
//   - sync: bring the coarse paper index up to date with the store
//   - status: report sync state for both index stages
//   - reset: drop all stored vectors and clear index flags
//
// Signal handling and graceful shutdown are implemented
// for all commands via context cancellation.
package cmd

import (
	"fmt"
	"os"

	"github.com/szhang829/badgerscholar/internal/config"
	"github.com/szhang829/badgerscholar/internal/log"
)

// Execute is the main entry point for the badgerscholar CLI.
func Execute() error {
	if len(os.Args) < 2 {
		runHelp()
		return nil
	}

	switch os.Args[1] {
	case "serve":
		return runServe()
	case "sync":
		return runSync()
	case "status":
		return runStatus()
	case "reset":
		return runReset()
	case "version", "--version", "-v":
		runVersion()
		return nil
	case "help", "--help", "-h":
		runHelp()
		return nil
	default:
		return fmt.Errorf("unknown command: %s", os.Args[1])
	}
}

// loadConfig loads and validates configuration, then builds the logger
// the loaded settings describe. Shared by every command.
func loadConfig() (*config.Config, log.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}

	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, nil, fmt.Errorf("parsing log level: %w", err)
	}
	logger := log.New(log.Config{Level: level, JSON: cfg.LogJSON})

	return cfg, logger, nil
}

// runHelp displays the help message.
func runHelp() {
	fmt.Println("badgerscholar - two-stage retrieval over arXiv papers")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  badgerscholar serve [addr]  Start HTTP API server (default: 127.0.0.1:8080)")
	fmt.Println("  badgerscholar sync          Embed papers missing from the coarse index")
	fmt.Println("  badgerscholar status        Show coarse and fine index sync state")
	fmt.Println("  badgerscholar reset         Drop all vectors and clear index flags")
	fmt.Println("  badgerscholar --version     Show version information")
	fmt.Println("  badgerscholar --help        Show this help")
	fmt.Println()
	fmt.Println("Environment Variables:")
	fmt.Println("  GEMINI_API_KEY     Required: Gemini API key")
	fmt.Println("  DATABASE_URL       Optional: PostgreSQL connection URL")
	fmt.Println("  SCHOLAR_LOG_LEVEL  Optional: debug, info, warn, error")
}
