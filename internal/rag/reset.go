package rag

import (
	"context"
	"fmt"
	"log/slog"
)

// VectorDropper removes every record from one vector index.
type VectorDropper interface {
	DropAll(ctx context.Context) error
}

// ResetStore clears the store's index flags alongside the vectors.
type ResetStore interface {
	ResetIndexFlags(ctx context.Context) error
}

// Resetter wipes both vector indexes and the index bookkeeping. Used for
// re-embedding after an embedding model change, where stale vectors are
// worse than missing ones.
type Resetter struct {
	store   ResetStore
	coarse  VectorDropper
	fine    VectorDropper
	indexer *Indexer
	logger  *slog.Logger
}

// NewResetter creates a resetter.
func NewResetter(store ResetStore, coarse, fine VectorDropper, indexer *Indexer, logger *slog.Logger) *Resetter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resetter{store: store, coarse: coarse, fine: fine, indexer: indexer, logger: logger}
}

// DropAllVectors removes all coarse and fine vectors, resets the store's
// index flags and empties the in-memory cache. Paper metadata is kept.
func (r *Resetter) DropAllVectors(ctx context.Context) error {
	if err := r.coarse.DropAll(ctx); err != nil {
		return fmt.Errorf("dropping vectors: coarse: %w", err)
	}
	if err := r.fine.DropAll(ctx); err != nil {
		return fmt.Errorf("dropping vectors: fine: %w", err)
	}
	if err := r.store.ResetIndexFlags(ctx); err != nil {
		return fmt.Errorf("dropping vectors: resetting flags: %w", err)
	}
	r.indexer.ResetCache()
	r.logger.Info("all vectors dropped")
	return nil
}
