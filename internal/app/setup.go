package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/googlegenai"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgxvec "github.com/pgvector/pgvector-go/pgx"
	"golang.org/x/time/rate"

	"github.com/szhang829/badgerscholar/db"
	"github.com/szhang829/badgerscholar/internal/config"
	"github.com/szhang829/badgerscholar/internal/embed"
	"github.com/szhang829/badgerscholar/internal/fulltext"
	"github.com/szhang829/badgerscholar/internal/llm"
	"github.com/szhang829/badgerscholar/internal/log"
	"github.com/szhang829/badgerscholar/internal/observability"
	"github.com/szhang829/badgerscholar/internal/paper"
	"github.com/szhang829/badgerscholar/internal/rag"
	"github.com/szhang829/badgerscholar/internal/vecindex"
)

// Setup creates and initializes the application.
// Returns an App with embedded cleanup — call Close() to release.
func Setup(ctx context.Context, cfg *config.Config, logger log.Logger) (_ *App, retErr error) {
	if logger == nil {
		logger = log.NewNop()
	}
	a := &App{Config: cfg, Logger: logger}

	// On error, clean up everything already initialized
	defer func() {
		if retErr != nil {
			if err := a.Close(); err != nil {
				logger.Warn("cleanup during setup failure", "error", err)
			}
		}
	}()

	a.otelCleanup = provideOtelShutdown(ctx, cfg, logger)

	pool, dbCleanup, err := provideDBPool(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.dbCleanup = dbCleanup
	a.DBPool = pool

	g, err := provideGenkit(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	a.Genkit = g

	embedder := provideEmbedder(g, cfg)
	if embedder == nil {
		return nil, fmt.Errorf("embedder %q not found for provider %q", cfg.EmbedderModel, cfg.Provider)
	}
	a.Embedder = embedder

	providePipeline(a, logger)

	// Rebuild the full-text cache from the store's flags so eviction
	// order survives restarts.
	if err := a.Indexer.Warm(ctx); err != nil {
		return nil, fmt.Errorf("warming fulltext cache: %w", err)
	}

	return a, nil
}

// provideOtelShutdown sets up OTLP tracing before Genkit initialization,
// so spans land on Genkit's TracerProvider. Tracing failures never block
// startup.
func provideOtelShutdown(ctx context.Context, cfg *config.Config, logger log.Logger) func() {
	if !cfg.Tracing.Enabled {
		return func() {}
	}

	shutdown, err := observability.SetupTracing(ctx, observability.Config{
		Endpoint:    cfg.Tracing.Endpoint,
		Environment: cfg.Tracing.Environment,
		ServiceName: cfg.Tracing.ServiceName,
	}, logger)
	if err != nil {
		logger.Warn("setting up tracing, continuing without it", "error", err)
		return func() {}
	}

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			logger.Warn("shutting down tracer provider", "error", err)
		}
	}
}

// provideDBPool runs migrations and creates a PostgreSQL connection pool
// with pgvector types registered on every connection.
func provideDBPool(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, func(), error) {
	if err := db.Migrate(cfg.PostgresURL()); err != nil {
		return nil, nil, fmt.Errorf("running migrations: %w", err)
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.PostgresConnectionString())
	if err != nil {
		return nil, nil, fmt.Errorf("parsing connection config: %w", err)
	}

	poolCfg.MaxConns = 10
	poolCfg.MinConns = 2
	poolCfg.MaxConnLifetime = 30 * time.Minute
	poolCfg.MaxConnIdleTime = 5 * time.Minute
	poolCfg.HealthCheckPeriod = 1 * time.Minute
	poolCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvec.RegisterTypes(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, nil, fmt.Errorf("creating connection pool: %w", err)
	}

	pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
	defer pingCancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("pinging database: %w", err)
	}

	cleanup := func() {
		pool.Close()
	}

	return pool, cleanup, nil
}

// provideGenkit initializes Genkit with the configured AI provider.
// Call ordering in Setup ensures tracing is set up first.
func provideGenkit(ctx context.Context, cfg *config.Config, logger log.Logger) (*genkit.Genkit, error) {
	g := genkit.Init(ctx, genkit.WithPlugins(&googlegenai.GoogleAI{}))
	if g == nil {
		return nil, errors.New("initializing genkit with googleai provider")
	}
	logger.Info("initialized Genkit", "provider", cfg.Provider, "model", cfg.ModelName)
	return g, nil
}

// provideEmbedder looks up the embedder registered by the AI provider plugin.
func provideEmbedder(g *genkit.Genkit, cfg *config.Config) ai.Embedder {
	return googlegenai.GoogleAIEmbedder(g, cfg.EmbedderModel)
}

// providePipeline wires the storage and retrieval components onto a.
// Everything downstream of the pool and the embedder is pure construction;
// nothing here can fail.
func providePipeline(a *App, logger log.Logger) {
	cfg := a.Config

	embedClient := embed.New(a.Embedder, cfg.EmbedderModel)
	genClient := llm.New(a.Genkit, cfg.FullModelName(), float64(cfg.Temperature))

	a.Store = paper.NewStore(a.DBPool, logger.With("component", "paper"))
	a.Coarse = vecindex.NewCoarse(a.DBPool, logger.With("component", "vecindex"))
	a.Fine = vecindex.NewFine(a.DBPool, logger.With("component", "vecindex"))

	a.Fulltext = fulltext.NewService(logger.With("component", "fulltext"),
		fulltext.WithRateLimit(rate.Every(time.Duration(cfg.FetchIntervalMS)*time.Millisecond), 1),
	)

	ragLogger := logger.With("component", "rag")
	a.Indexer = rag.NewIndexer(a.Store, a.Fine, a.Fulltext, embedClient,
		cfg.CacheCapacity, ragLogger,
		rag.WithChunking(cfg.ChunkSize, cfg.ChunkOverlap),
	)

	coarseRet := rag.NewCoarseRetriever(a.Coarse, embedClient, ragLogger)
	fineRet := rag.NewFineRetriever(a.Fine, embedClient, cfg.BroadK, ragLogger)

	a.System = rag.NewSystem(coarseRet, a.Indexer, fineRet, genClient, ragLogger,
		rag.WithTopK(cfg.TopKPapers, cfg.TopKChunks),
	)
	a.Syncer = rag.NewSyncer(a.Store, a.Coarse, embedClient, ragLogger)
	a.Reporter = rag.NewReporter(a.Store, a.Coarse, a.Fine, a.Indexer, ragLogger)
	a.Resetter = rag.NewResetter(a.Store, a.Coarse, a.Fine, a.Indexer, ragLogger)
}
