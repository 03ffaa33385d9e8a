// Package vecindex implements the two pgvector-backed vector indexes:
// one paper-level embedding per paper (coarse) and one embedding per
// full-text chunk (fine). Similarity is cosine, computed in the database.
package vecindex

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/szhang829/badgerscholar/internal/paper"
)

// Coarse is the paper-level vector index. One row per paper, embedding
// computed from title and abstract.
type Coarse struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewCoarse creates a Coarse index over the given pool.
func NewCoarse(pool *pgxpool.Pool, logger *slog.Logger) *Coarse {
	if logger == nil {
		logger = slog.Default()
	}
	return &Coarse{pool: pool, logger: logger}
}

// Upsert writes or replaces a paper's coarse embedding record, keeping the
// source text and the producing model alongside the vector.
func (c *Coarse) Upsert(ctx context.Context, paperID string, vec []float32, sourceText, model string) error {
	_, err := c.pool.Exec(ctx, `
		INSERT INTO paper_embeddings (paper_id, embedding, source_text, embedding_model)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (paper_id) DO UPDATE SET
			embedding = EXCLUDED.embedding,
			source_text = EXCLUDED.source_text,
			embedding_model = EXCLUDED.embedding_model,
			created_at = now()`,
		paperID, pgvector.NewVector(vec), sourceText, model)
	if err != nil {
		return fmt.Errorf("upserting coarse embedding for %q: %w", paperID, err)
	}

	c.logger.Debug("upserted coarse embedding", "paper_id", paperID)
	return nil
}

// Query returns the topK most similar papers by cosine similarity.
// Ties are broken by more recent publication date.
func (c *Coarse) Query(ctx context.Context, vec []float32, topK int) ([]paper.Hit, error) {
	rows, err := c.pool.Query(ctx, `
		SELECT e.paper_id, p.title, 1 - (e.embedding <=> $1) AS similarity, p.published
		FROM paper_embeddings e
		JOIN papers p ON p.id = e.paper_id
		ORDER BY e.embedding <=> $1 ASC, p.published DESC NULLS LAST
		LIMIT $2`,
		pgvector.NewVector(vec), topK)
	if err != nil {
		return nil, fmt.Errorf("querying coarse index: %w", err)
	}
	defer rows.Close()

	var hits []paper.Hit
	for rows.Next() {
		var (
			h         paper.Hit
			published *time.Time
		)
		if err := rows.Scan(&h.ID, &h.Title, &h.Score, &published); err != nil {
			return nil, fmt.Errorf("scanning coarse hit: %w", err)
		}
		if published != nil {
			h.Published = *published
		}
		hits = append(hits, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("querying coarse index: %w", err)
	}
	return hits, nil
}

// Count returns the number of coarse embedding records.
func (c *Coarse) Count(ctx context.Context) (int, error) {
	var n int
	if err := c.pool.QueryRow(ctx, `SELECT COUNT(*) FROM paper_embeddings`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting coarse embeddings: %w", err)
	}
	return n, nil
}

// DropAll removes every coarse embedding record.
func (c *Coarse) DropAll(ctx context.Context) error {
	if _, err := c.pool.Exec(ctx, `TRUNCATE paper_embeddings`); err != nil {
		return fmt.Errorf("dropping coarse index: %w", err)
	}
	return nil
}
