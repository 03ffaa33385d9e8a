package rag

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/szhang829/badgerscholar/internal/fulltext"
	"github.com/szhang829/badgerscholar/internal/paper"
)

// DefaultCacheCapacity bounds how many papers hold a full-text chunk set
// at once.
const DefaultCacheCapacity = 75

// PaperStore is the subset of the paper store the indexer needs.
type PaperStore interface {
	Get(ctx context.Context, id string) (paper.Paper, error)
	MarkFulltextIndexed(ctx context.Context, id string, at time.Time) error
	ClearFulltextIndexed(ctx context.Context, id string) error
	ListFulltextIndexed(ctx context.Context) ([]paper.IndexedAt, error)
}

// ChunkIndex stores and removes whole chunk sets per paper.
type ChunkIndex interface {
	UpsertChunks(ctx context.Context, paperID string, chunks []paper.EmbeddedChunk) error
	DeleteByPaper(ctx context.Context, paperID string) error
}

// SourceProvider fetches a paper's source document and returns its raw
// extracted text.
type SourceProvider interface {
	Text(ctx context.Context, paperID string) (string, error)
}

// Indexer performs on-demand full-text indexing: fetch, extract, clean,
// chunk, embed and store. Concurrent requests for one paper share a
// single indexing pass; the bounded cache evicts the oldest chunk set
// when capacity is exceeded.
type Indexer struct {
	store    PaperStore
	chunks   ChunkIndex
	source   SourceProvider
	embedder Embedder

	cache  *indexCache
	flight singleflight.Group

	chunkSize    int
	chunkOverlap int
	now          func() time.Time
	logger       *slog.Logger
}

// IndexerOption adjusts indexer construction.
type IndexerOption func(*Indexer)

// WithChunking overrides the chunk size and overlap.
func WithChunking(size, overlap int) IndexerOption {
	return func(i *Indexer) {
		i.chunkSize = size
		i.chunkOverlap = overlap
	}
}

// WithClock overrides the time source. Tests use it to control eviction
// order.
func WithClock(now func() time.Time) IndexerOption {
	return func(i *Indexer) {
		i.now = now
	}
}

// NewIndexer creates an indexer with the given cache capacity.
// capacity <= 0 selects DefaultCacheCapacity.
func NewIndexer(store PaperStore, chunks ChunkIndex, source SourceProvider, embedder Embedder, capacity int, logger *slog.Logger, opts ...IndexerOption) *Indexer {
	if capacity <= 0 {
		capacity = DefaultCacheCapacity
	}
	if logger == nil {
		logger = slog.Default()
	}
	i := &Indexer{
		store:        store,
		chunks:       chunks,
		source:       source,
		embedder:     embedder,
		cache:        newIndexCache(capacity),
		chunkSize:    fulltext.DefaultChunkSize,
		chunkOverlap: fulltext.DefaultChunkOverlap,
		now:          time.Now,
		logger:       logger,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Warm rebuilds the cache from the store's indexed flags. Called once at
// startup, before the indexer serves requests.
func (i *Indexer) Warm(ctx context.Context) error {
	entries, err := i.store.ListFulltextIndexed(ctx)
	if err != nil {
		return fmt.Errorf("warming index cache: %w", err)
	}
	for _, e := range entries {
		i.cache.seed(e.PaperID, e.IndexedAt)
	}
	i.logger.Info("index cache warmed", "entries", len(entries))
	return nil
}

// CacheLen returns the number of papers currently holding a chunk set.
func (i *Indexer) CacheLen() int { return i.cache.len() }

// CacheCapacity returns the cache bound.
func (i *Indexer) CacheCapacity() int { return i.cache.capacity }

// ResetCache empties the cache. Only called after the stored chunk sets
// and flags were wiped, so cache and store stay in agreement.
func (i *Indexer) ResetCache() { i.cache.clear() }

// EnsureIndexed makes sure a paper's full text is chunked and stored,
// indexing it if needed. Returns true when this call performed (or
// joined) an indexing pass, false when the paper was already indexed.
// Concurrent calls for the same paper are collapsed into one pass;
// cancelling one caller does not abort the shared work.
func (i *Indexer) EnsureIndexed(ctx context.Context, paperID string) (bool, error) {
	paperID = paper.NormalizeID(paperID)

	p, err := i.store.Get(ctx, paperID)
	if err != nil {
		if errors.Is(err, paper.ErrNotFound) {
			return false, fmt.Errorf("%w: %s", ErrPaperNotFound, paperID)
		}
		return false, fmt.Errorf("ensuring %q indexed: %w", paperID, err)
	}
	if p.FulltextIndexed {
		return false, nil
	}

	// The shared pass must not die with the first caller that gives up
	// on it, so it runs detached from any single caller's cancellation.
	ch := i.flight.DoChan(paperID, func() (any, error) {
		return nil, i.indexOne(context.WithoutCancel(ctx), p)
	})

	select {
	case <-ctx.Done():
		return false, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return false, res.Err
		}
		return true, nil
	}
}

// indexOne runs the full pipeline for one paper. The store flag is only
// set after the chunk set is durably stored, so a failure at any stage
// leaves the paper unindexed and retryable.
func (i *Indexer) indexOne(ctx context.Context, p paper.Paper) error {
	// A caller that joined the flight after an earlier pass finished
	// sees the flag already set and has nothing to do.
	fresh, err := i.store.Get(ctx, p.ID)
	if err != nil {
		return fmt.Errorf("indexing %q: %w", p.ID, err)
	}
	if fresh.FulltextIndexed {
		return nil
	}

	start := i.now()
	raw, err := i.source.Text(ctx, p.ID)
	if err != nil {
		switch {
		case errors.Is(err, fulltext.ErrFetch):
			return fmt.Errorf("indexing %q: %w: %w", p.ID, ErrSourceFetch, err)
		case errors.Is(err, fulltext.ErrExtract):
			return fmt.Errorf("indexing %q: %w: %w", p.ID, ErrExtraction, err)
		default:
			return fmt.Errorf("indexing %q: %w", p.ID, err)
		}
	}

	cleaned := fulltext.Clean(raw)
	if cleaned == "" {
		return fmt.Errorf("indexing %q: %w: document yielded no usable text", p.ID, ErrExtraction)
	}

	texts := fulltext.Split(cleaned, i.chunkSize, i.chunkOverlap)
	model := i.embedder.ModelName()
	embedded := make([]paper.EmbeddedChunk, 0, len(texts))
	for seq, text := range texts {
		vec, err := i.embedder.Embed(ctx, text)
		if err != nil {
			return fmt.Errorf("indexing %q: chunk %d: %w: %w", p.ID, seq, ErrEmbedding, err)
		}
		embedded = append(embedded, paper.EmbeddedChunk{
			Chunk: paper.Chunk{
				ID:      paper.ChunkID(p.ID, seq),
				PaperID: p.ID,
				Seq:     seq,
				Text:    text,
			},
			Vector: vec,
			Model:  model,
		})
	}

	if err := i.chunks.UpsertChunks(ctx, p.ID, embedded); err != nil {
		return fmt.Errorf("indexing %q: %w", p.ID, err)
	}

	at := i.now()
	if err := i.store.MarkFulltextIndexed(ctx, p.ID, at); err != nil {
		return fmt.Errorf("indexing %q: %w", p.ID, err)
	}

	i.logger.Info("paper indexed",
		"paper_id", p.ID, "chunks", len(embedded),
		"duration", i.now().Sub(start).Round(time.Millisecond))

	// The paper itself is indexed at this point. A failed eviction is
	// logged, not surfaced: the restored cache entry makes the next
	// insertion retry the same victim.
	if victim, evicted := i.cache.insert(p.ID, at); evicted {
		if err := i.evict(ctx, victim); err != nil {
			i.logger.Warn("eviction failed", "paper_id", victim, "error", err)
		}
	}
	return nil
}

// evict removes a paper's chunk set and clears its indexed flag. When
// the chunk delete fails the cache entry is restored so a later
// insertion retries the same victim.
func (i *Indexer) evict(ctx context.Context, victim string) error {
	if err := i.chunks.DeleteByPaper(ctx, victim); err != nil {
		p, getErr := i.store.Get(ctx, victim)
		if getErr == nil && p.FulltextIndexedAt != nil {
			i.cache.restore(victim, *p.FulltextIndexedAt)
		}
		return fmt.Errorf("evicting %q: %w", victim, err)
	}
	if err := i.store.ClearFulltextIndexed(ctx, victim); err != nil {
		return fmt.Errorf("evicting %q: clearing flag: %w", victim, err)
	}
	i.logger.Info("paper evicted", "paper_id", victim)
	return nil
}
