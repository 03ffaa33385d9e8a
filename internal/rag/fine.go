package rag

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/szhang829/badgerscholar/internal/paper"
)

// DefaultBroadK is how many chunks the fine retriever pulls from the
// index before narrowing to the candidate papers. Large enough that a
// handful of candidates still yield topK chunks even when other papers
// dominate the global ranking.
const DefaultBroadK = 100

// ChunkQuerier is the chunk-level vector index consumed by the fine
// retriever.
type ChunkQuerier interface {
	Query(ctx context.Context, vec []float32, topK int) ([]paper.ChunkHit, error)
}

// FineRetriever ranks individual chunks against a query, restricted to a
// candidate set of papers chosen by the coarse stage.
type FineRetriever struct {
	index    ChunkQuerier
	embedder Embedder
	broadK   int
	logger   *slog.Logger
}

// NewFineRetriever creates a fine retriever. broadK <= 0 selects
// DefaultBroadK.
func NewFineRetriever(index ChunkQuerier, embedder Embedder, broadK int, logger *slog.Logger) *FineRetriever {
	if broadK <= 0 {
		broadK = DefaultBroadK
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &FineRetriever{index: index, embedder: embedder, broadK: broadK, logger: logger}
}

// RetrieveChunks returns up to topK chunks from the candidate papers,
// ranked by similarity to the query. The index is queried broadly and
// filtered afterwards; chunks from non-candidate papers never appear in
// the result. An empty candidate set yields no chunks.
func (r *FineRetriever) RetrieveChunks(ctx context.Context, query string, candidates []string, topK int) ([]paper.ChunkHit, error) {
	if query == "" {
		return nil, fmt.Errorf("retrieving chunks: empty query")
	}
	if topK < 1 {
		return nil, fmt.Errorf("retrieving chunks: topK must be positive, got %d", topK)
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	vec, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("retrieving chunks: %w: %w", ErrEmbedding, err)
	}

	broad := r.broadK
	if broad < topK {
		broad = topK
	}
	hits, err := r.index.Query(ctx, vec, broad)
	if err != nil {
		return nil, fmt.Errorf("retrieving chunks: %w", err)
	}

	allowed := make(map[string]struct{}, len(candidates))
	for _, id := range candidates {
		allowed[paper.NormalizeID(id)] = struct{}{}
	}

	var out []paper.ChunkHit
	for _, h := range hits {
		if _, ok := allowed[h.PaperID]; !ok {
			continue
		}
		out = append(out, h)
		if len(out) == topK {
			break
		}
	}

	r.logger.Debug("fine retrieval",
		"candidates", len(candidates), "broad_hits", len(hits), "hits", len(out))
	return out, nil
}
