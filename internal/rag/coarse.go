package rag

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/szhang829/badgerscholar/internal/paper"
)

// Embedder produces vectors for retrieval queries and chunk content.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	ModelName() string
}

// CoarseIndex is the paper-level vector index consumed by the coarse
// retriever.
type CoarseIndex interface {
	Query(ctx context.Context, vec []float32, topK int) ([]paper.Hit, error)
}

// CoarseRetriever ranks whole papers against a query using their
// title-plus-abstract embeddings. It is the first stage of the pipeline
// and its results decide which papers are worth full-text indexing.
type CoarseRetriever struct {
	index    CoarseIndex
	embedder Embedder
	logger   *slog.Logger
}

// NewCoarseRetriever creates a coarse retriever.
func NewCoarseRetriever(index CoarseIndex, embedder Embedder, logger *slog.Logger) *CoarseRetriever {
	if logger == nil {
		logger = slog.Default()
	}
	return &CoarseRetriever{index: index, embedder: embedder, logger: logger}
}

// RetrievePapers returns up to topK papers ranked by similarity to the
// query. Fewer results than topK means the corpus is smaller than topK,
// not an error.
func (r *CoarseRetriever) RetrievePapers(ctx context.Context, query string, topK int) ([]paper.Hit, error) {
	if query == "" {
		return nil, fmt.Errorf("retrieving papers: empty query")
	}
	if topK < 1 {
		return nil, fmt.Errorf("retrieving papers: topK must be positive, got %d", topK)
	}

	vec, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("retrieving papers: %w: %w", ErrEmbedding, err)
	}

	hits, err := r.index.Query(ctx, vec, topK)
	if err != nil {
		return nil, fmt.Errorf("retrieving papers: %w", err)
	}

	r.logger.Debug("coarse retrieval", "query_len", len(query), "top_k", topK, "hits", len(hits))
	return hits, nil
}
