// Package api provides the HTTP REST API for badgerscholar.
//
// This package exposes the retrieval pipeline via HTTP endpoints,
// enabling programmatic access from external tools and automation pipelines.
//
// Architecture:
//
//	┌─────────────────────────────────────────────────────────┐
//	│                      API Endpoints                      │
//	├─────────────────────────────────────────────────────────┤
//	│                                                         │
//	│  POST   /api/rag/query          →  answer a question    │
//	│  POST   /api/sync/coarse        →  run coarse sync      │
//	│  GET    /api/sync/status/coarse →  coarse index status  │
//	│  GET    /api/sync/status/fine   →  fine index status    │
//	│  DELETE /api/vectors            →  drop all vectors     │
//	│                                                         │
//	│  GET    /health                 →  liveness probe       │
//	│  GET    /ready                  →  readiness probe      │
//	│                                                         │
//	└─────────────────────────────────────────────────────────┘
//
// File structure:
//   - server.go: HTTP server setup and lifecycle
//   - middleware.go: HTTP middleware (logging, recovery)
//   - health.go: Health check endpoints (/health, /ready)
//   - rag.go: Question answering endpoint
//   - sync.go: Index sync, status and reset endpoints
//   - response.go: JSON response helpers
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/szhang829/badgerscholar/internal/log"
)

const (
	// DefaultAddr is the default address for the HTTP server.
	DefaultAddr = "127.0.0.1:8080"

	// ShutdownTimeout is the maximum time to wait for graceful shutdown.
	ShutdownTimeout = 10 * time.Second

	// ReadHeaderTimeout is the timeout for reading request headers.
	// This prevents Slowloris attacks (CWE-400).
	ReadHeaderTimeout = 10 * time.Second

	// ReadTimeout is the maximum duration for reading the entire request.
	ReadTimeout = 30 * time.Second

	// WriteTimeout is the maximum duration for writing the response.
	// Answer generation calls an external model, so this is generous.
	WriteTimeout = 120 * time.Second

	// IdleTimeout is the maximum time to wait for the next request on keep-alive connections.
	IdleTimeout = 120 * time.Second
)

// Services groups the pipeline services the API exposes. Any nil field
// simply leaves its routes unregistered.
type Services struct {
	RAG    RAGService
	Sync   SyncRunner
	Status StatusReporter
	Reset  VectorResetter
}

// Server is the HTTP server for badgerscholar's REST API.
type Server struct {
	mux    *http.ServeMux
	logger log.Logger

	// Handlers
	health *HealthHandler
	rag    *RAGHandler
	sync   *SyncHandler
}

// NewServer creates a new HTTP server with all routes registered.
// pool is used for readiness checks and may be nil in tests.
func NewServer(pool *pgxpool.Pool, svcs Services, logger log.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		mux:    mux,
		logger: logger,
		health: NewHealthHandler(pool, logger),
		rag:    NewRAGHandler(svcs.RAG, logger),
		sync:   NewSyncHandler(svcs.Sync, svcs.Status, svcs.Reset, logger),
	}

	// Register all routes
	s.health.RegisterRoutes(mux)
	s.rag.RegisterRoutes(mux)
	s.sync.RegisterRoutes(mux)

	return s
}

// Handler returns the HTTP handler with middleware applied.
// Middleware order: recovery → logging → handler
func (s *Server) Handler() http.Handler {
	return chain(s.mux, recoveryMiddleware(s.logger), loggingMiddleware(s.logger))
}

// Run starts the HTTP server and blocks until the context is cancelled.
// It handles graceful shutdown when the context is done.
func (s *Server) Run(ctx context.Context, addr string) error {
	if addr == "" {
		addr = DefaultAddr
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: ReadHeaderTimeout,
		ReadTimeout:       ReadTimeout,
		WriteTimeout:      WriteTimeout,
		IdleTimeout:       IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting HTTP server", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}
