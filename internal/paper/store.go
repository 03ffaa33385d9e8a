package paper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned by Store.Get when no paper exists for the
// requested identifier.
var ErrNotFound = errors.New("paper not found")

// Store persists paper metadata in PostgreSQL.
//
// Store is safe for concurrent use by multiple goroutines; all state lives
// in the database and the connection pool handles its own synchronization.
type Store struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewStore creates a Store backed by the given connection pool.
func NewStore(pool *pgxpool.Pool, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{pool: pool, logger: logger}
}

const paperColumns = `id, title, summary, authors, categories, primary_category,
	published, updated, source_url, vector_indexed, fulltext_indexed,
	fulltext_indexed_at, embedding_model`

// Get fetches one paper by canonical identifier. The identifier is
// normalized before lookup, so versioned IDs resolve to the same record.
func (s *Store) Get(ctx context.Context, id string) (Paper, error) {
	id = NormalizeID(id)

	row := s.pool.QueryRow(ctx, `SELECT `+paperColumns+` FROM papers WHERE id = $1`, id)
	p, err := scanPaper(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Paper{}, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return Paper{}, fmt.Errorf("getting paper %q: %w", id, err)
	}
	return p, nil
}

// Upsert inserts or updates paper metadata. Indexing flags are preserved on
// update; they belong to the indexing subsystem, not to ingestion.
func (s *Store) Upsert(ctx context.Context, p Paper) error {
	p.ID = NormalizeID(p.ID)
	if p.ID == "" {
		return fmt.Errorf("upserting paper: empty identifier")
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO papers (id, title, summary, authors, categories, primary_category,
			published, updated, source_url)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			title = EXCLUDED.title,
			summary = EXCLUDED.summary,
			authors = EXCLUDED.authors,
			categories = EXCLUDED.categories,
			primary_category = EXCLUDED.primary_category,
			published = EXCLUDED.published,
			updated = EXCLUDED.updated,
			source_url = EXCLUDED.source_url,
			updated_at = now()`,
		p.ID, p.Title, p.Summary, p.Authors, p.Categories, p.PrimaryCategory,
		nullableTime(p.Published), nullableTime(p.Updated), p.SourceURL)
	if err != nil {
		return fmt.Errorf("upserting paper %q: %w", p.ID, err)
	}

	s.logger.Debug("upserted paper", "id", p.ID)
	return nil
}

// Count returns the total number of papers in the store.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM papers`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting papers: %w", err)
	}
	return n, nil
}

// CountFulltextIndexed returns the number of papers currently holding the
// fulltext_indexed flag.
func (s *Store) CountFulltextIndexed(ctx context.Context) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM papers WHERE fulltext_indexed`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting fulltext-indexed papers: %w", err)
	}
	return n, nil
}

// ListUnindexed returns papers that have not been through coarse vector
// indexing yet, oldest first, up to limit.
func (s *Store) ListUnindexed(ctx context.Context, limit int) ([]Paper, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+paperColumns+` FROM papers
		WHERE NOT vector_indexed
		ORDER BY published ASC NULLS LAST
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing unindexed papers: %w", err)
	}
	defer rows.Close()

	var papers []Paper
	for rows.Next() {
		p, err := scanPaper(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning unindexed paper: %w", err)
		}
		papers = append(papers, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing unindexed papers: %w", err)
	}
	return papers, nil
}

// IndexedAt is one fulltext-indexed paper with its indexing timestamp,
// used to seed the indexing cache on startup.
type IndexedAt struct {
	PaperID   string
	IndexedAt time.Time
}

// ListFulltextIndexed returns all papers currently flagged fulltext_indexed
// together with their indexing timestamps, oldest first.
func (s *Store) ListFulltextIndexed(ctx context.Context) ([]IndexedAt, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, fulltext_indexed_at FROM papers
		WHERE fulltext_indexed
		ORDER BY fulltext_indexed_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("listing fulltext-indexed papers: %w", err)
	}
	defer rows.Close()

	var out []IndexedAt
	for rows.Next() {
		var rec IndexedAt
		if err := rows.Scan(&rec.PaperID, &rec.IndexedAt); err != nil {
			return nil, fmt.Errorf("scanning fulltext-indexed paper: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing fulltext-indexed papers: %w", err)
	}
	return out, nil
}

// MarkVectorIndexed flips the coarse indexing flag and records the
// embedding model that produced the stored vector.
func (s *Store) MarkVectorIndexed(ctx context.Context, id, model string) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE papers SET vector_indexed = TRUE, embedding_model = $2, updated_at = now()
		WHERE id = $1`, NormalizeID(id), model)
	if err != nil {
		return fmt.Errorf("marking paper %q vector-indexed: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

// MarkFulltextIndexed flips the full-text flag and stamps the indexing
// time in a single statement, preserving the flag/timestamp invariant.
func (s *Store) MarkFulltextIndexed(ctx context.Context, id string, at time.Time) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE papers SET fulltext_indexed = TRUE, fulltext_indexed_at = $2, updated_at = now()
		WHERE id = $1`, NormalizeID(id), at)
	if err != nil {
		return fmt.Errorf("marking paper %q fulltext-indexed: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

// ClearFulltextIndexed clears the full-text flag and its timestamp
// together. Used by cache eviction.
func (s *Store) ClearFulltextIndexed(ctx context.Context, id string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE papers SET fulltext_indexed = FALSE, fulltext_indexed_at = NULL, updated_at = now()
		WHERE id = $1`, NormalizeID(id))
	if err != nil {
		return fmt.Errorf("clearing fulltext flag for paper %q: %w", id, err)
	}
	return nil
}

// ResetIndexFlags clears both indexing flags for every paper. Used by the
// drop-all-vectors operation after the vector tables are truncated.
func (s *Store) ResetIndexFlags(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE papers SET vector_indexed = FALSE, fulltext_indexed = FALSE,
			fulltext_indexed_at = NULL, embedding_model = '', updated_at = now()`)
	if err != nil {
		return fmt.Errorf("resetting index flags: %w", err)
	}
	return nil
}

// scanPaper reads one paper row in paperColumns order.
func scanPaper(row pgx.Row) (Paper, error) {
	var (
		p                  Paper
		published, updated *time.Time
		fulltextIndexedAt  *time.Time
	)
	err := row.Scan(&p.ID, &p.Title, &p.Summary, &p.Authors, &p.Categories,
		&p.PrimaryCategory, &published, &updated, &p.SourceURL,
		&p.VectorIndexed, &p.FulltextIndexed, &fulltextIndexedAt, &p.EmbeddingModel)
	if err != nil {
		return Paper{}, err
	}
	if published != nil {
		p.Published = *published
	}
	if updated != nil {
		p.Updated = *updated
	}
	p.FulltextIndexedAt = fulltextIndexedAt
	return p, nil
}

// nullableTime maps the zero time to NULL for timestamptz columns.
func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
