package vecindex

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/szhang829/badgerscholar/internal/paper"
)

// Fine is the chunk-level vector index. Rows exist only for papers that
// have been through full-text indexing; a paper's chunks are written and
// deleted as one atomic set.
type Fine struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewFine creates a Fine index over the given pool.
func NewFine(pool *pgxpool.Pool, logger *slog.Logger) *Fine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Fine{pool: pool, logger: logger}
}

// UpsertChunks replaces a paper's chunk set in a single transaction.
// Either every chunk is stored or none is; a failed indexing pass never
// leaves a partial set behind.
func (f *Fine) UpsertChunks(ctx context.Context, paperID string, chunks []paper.EmbeddedChunk) error {
	if len(chunks) == 0 {
		return fmt.Errorf("upserting chunks for %q: empty chunk set", paperID)
	}

	tx, err := f.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("upserting chunks for %q: begin: %w", paperID, err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if _, err := tx.Exec(ctx, `DELETE FROM chunk_embeddings WHERE paper_id = $1`, paperID); err != nil {
		return fmt.Errorf("upserting chunks for %q: clearing old set: %w", paperID, err)
	}

	for _, ch := range chunks {
		_, err := tx.Exec(ctx, `
			INSERT INTO chunk_embeddings (id, paper_id, seq, content, embedding, embedding_model)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			ch.ID, ch.PaperID, ch.Seq, ch.Text, pgvector.NewVector(ch.Vector), ch.Model)
		if err != nil {
			return fmt.Errorf("upserting chunks for %q: inserting %s: %w", paperID, ch.ID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("upserting chunks for %q: commit: %w", paperID, err)
	}

	f.logger.Debug("stored chunk set", "paper_id", paperID, "chunks", len(chunks))
	return nil
}

// DeleteByPaper removes every chunk belonging to one paper. Used by cache
// eviction and safe to call for papers with no stored chunks.
func (f *Fine) DeleteByPaper(ctx context.Context, paperID string) error {
	tag, err := f.pool.Exec(ctx, `DELETE FROM chunk_embeddings WHERE paper_id = $1`, paperID)
	if err != nil {
		return fmt.Errorf("deleting chunks for %q: %w", paperID, err)
	}

	f.logger.Debug("deleted chunk set", "paper_id", paperID, "chunks", tag.RowsAffected())
	return nil
}

// Query returns the topK most similar chunks across the whole index.
// Candidate filtering happens in the retrieval layer, not here; the index
// query stays uniform regardless of the candidate set.
func (f *Fine) Query(ctx context.Context, vec []float32, topK int) ([]paper.ChunkHit, error) {
	rows, err := f.pool.Query(ctx, `
		SELECT id, paper_id, seq, content, 1 - (embedding <=> $1) AS similarity
		FROM chunk_embeddings
		ORDER BY embedding <=> $1 ASC
		LIMIT $2`,
		pgvector.NewVector(vec), topK)
	if err != nil {
		return nil, fmt.Errorf("querying fine index: %w", err)
	}
	defer rows.Close()

	var hits []paper.ChunkHit
	for rows.Next() {
		var h paper.ChunkHit
		if err := rows.Scan(&h.ID, &h.PaperID, &h.Seq, &h.Text, &h.Score); err != nil {
			return nil, fmt.Errorf("scanning chunk hit: %w", err)
		}
		hits = append(hits, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("querying fine index: %w", err)
	}
	return hits, nil
}

// Count returns the total number of stored chunks.
func (f *Fine) Count(ctx context.Context) (int, error) {
	var n int
	if err := f.pool.QueryRow(ctx, `SELECT COUNT(*) FROM chunk_embeddings`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting chunks: %w", err)
	}
	return n, nil
}

// PaperCount returns the number of distinct papers with chunks in the
// index. Compared against the fulltext_indexed flag count by the status
// reporter.
func (f *Fine) PaperCount(ctx context.Context) (int, error) {
	var n int
	err := f.pool.QueryRow(ctx, `SELECT COUNT(DISTINCT paper_id) FROM chunk_embeddings`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting chunked papers: %w", err)
	}
	return n, nil
}

// DropAll removes every chunk record.
func (f *Fine) DropAll(ctx context.Context) error {
	if _, err := f.pool.Exec(ctx, `TRUNCATE chunk_embeddings`); err != nil {
		return fmt.Errorf("dropping fine index: %w", err)
	}
	return nil
}
