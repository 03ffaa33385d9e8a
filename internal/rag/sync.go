package rag

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/szhang829/badgerscholar/internal/paper"
)

// syncBatchSize is how many unindexed papers each sync iteration pulls
// from the store.
const syncBatchSize = 200

// CoarseUpserter writes paper-level embedding records.
type CoarseUpserter interface {
	Upsert(ctx context.Context, paperID string, vec []float32, sourceText, model string) error
}

// SyncStore is the subset of the paper store the syncer needs.
type SyncStore interface {
	ListUnindexed(ctx context.Context, limit int) ([]paper.Paper, error)
	MarkVectorIndexed(ctx context.Context, id, model string) error
}

// SyncResult summarizes one coarse sync run.
type SyncResult struct {
	Indexed int `json:"indexed"`
	Skipped int `json:"skipped"`
}

// Syncer brings the coarse index up to date with the paper store:
// every paper without a stored embedding gets one, derived from its
// title and abstract.
type Syncer struct {
	store    SyncStore
	index    CoarseUpserter
	embedder Embedder
	logger   *slog.Logger
}

// NewSyncer creates a coarse index syncer.
func NewSyncer(store SyncStore, index CoarseUpserter, embedder Embedder, logger *slog.Logger) *Syncer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Syncer{store: store, index: index, embedder: embedder, logger: logger}
}

// Run embeds and indexes every unindexed paper. Papers with neither
// title nor abstract are skipped and counted; they cannot produce a
// meaningful embedding. A paper is only marked indexed after its record
// is stored, so an interrupted run resumes where it stopped.
func (s *Syncer) Run(ctx context.Context) (SyncResult, error) {
	var result SyncResult
	model := s.embedder.ModelName()

	// Skipped papers stay unindexed and reappear in later batches; the
	// set keeps them from being counted twice and ends the run once a
	// batch holds nothing new.
	skipped := make(map[string]struct{})

	for {
		// Widening the limit by the skip count keeps the listing window
		// moving past papers that will never index.
		batch, err := s.store.ListUnindexed(ctx, syncBatchSize+len(skipped))
		if err != nil {
			return result, fmt.Errorf("coarse sync: %w", err)
		}

		progressed := false
		for _, p := range batch {
			if _, ok := skipped[p.ID]; ok {
				continue
			}

			text := p.EmbeddingText()
			if text == "" {
				s.logger.Warn("skipping paper without title or abstract", "paper_id", p.ID)
				skipped[p.ID] = struct{}{}
				result.Skipped++
				progressed = true
				continue
			}

			vec, err := s.embedder.Embed(ctx, text)
			if err != nil {
				return result, fmt.Errorf("coarse sync: embedding %q: %w: %w", p.ID, ErrEmbedding, err)
			}
			if err := s.index.Upsert(ctx, p.ID, vec, text, model); err != nil {
				return result, fmt.Errorf("coarse sync: storing %q: %w", p.ID, err)
			}
			if err := s.store.MarkVectorIndexed(ctx, p.ID, model); err != nil {
				return result, fmt.Errorf("coarse sync: marking %q: %w", p.ID, err)
			}
			result.Indexed++
			progressed = true
		}

		if !progressed {
			break
		}
	}

	s.logger.Info("coarse sync complete", "indexed", result.Indexed, "skipped", result.Skipped)
	return result, nil
}
