// Package app provides application initialization and dependency wiring.
//
// App is the container that holds every long-lived component: the database
// pool, the Genkit instance, the paper store, both vector indexes and the
// retrieval pipeline built on top of them. Setup constructs it in
// dependency order; Close releases resources in reverse.
package app

import (
	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/szhang829/badgerscholar/internal/config"
	"github.com/szhang829/badgerscholar/internal/fulltext"
	"github.com/szhang829/badgerscholar/internal/log"
	"github.com/szhang829/badgerscholar/internal/paper"
	"github.com/szhang829/badgerscholar/internal/rag"
	"github.com/szhang829/badgerscholar/internal/vecindex"
)

// App is the core application container.
type App struct {
	Config *config.Config
	Logger log.Logger

	// Core services
	Genkit   *genkit.Genkit
	Embedder ai.Embedder
	DBPool   *pgxpool.Pool

	// Storage
	Store  *paper.Store
	Coarse *vecindex.Coarse
	Fine   *vecindex.Fine

	// Pipeline
	Fulltext *fulltext.Service
	Indexer  *rag.Indexer
	Syncer   *rag.Syncer
	Reporter *rag.Reporter
	Resetter *rag.Resetter
	System   *rag.System

	// Lifecycle
	otelCleanup func()
	dbCleanup   func()
}

// Close gracefully shuts down all resources.
func (a *App) Close() error {
	a.logger().Info("shutting down application")

	if a.dbCleanup != nil {
		a.dbCleanup()
		a.logger().Info("database pool closed")
	}
	if a.otelCleanup != nil {
		a.otelCleanup()
	}
	return nil
}

func (a *App) logger() log.Logger {
	if a.Logger != nil {
		return a.Logger
	}
	return log.NewNop()
}
