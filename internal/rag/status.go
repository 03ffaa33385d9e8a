package rag

import (
	"context"
	"fmt"
	"log/slog"
)

// StatusStore is the subset of the paper store the reporter needs.
type StatusStore interface {
	Count(ctx context.Context) (int, error)
	CountFulltextIndexed(ctx context.Context) (int, error)
}

// CoarseCounter exposes the coarse index's record count.
type CoarseCounter interface {
	Count(ctx context.Context) (int, error)
}

// FineCounter exposes the fine index's chunk and paper counts.
type FineCounter interface {
	Count(ctx context.Context) (int, error)
	PaperCount(ctx context.Context) (int, error)
}

// CoarseStatus compares the paper store against the coarse index.
type CoarseStatus struct {
	Papers  int  `json:"papers"`
	Indexed int  `json:"indexed"`
	InSync  bool `json:"in_sync"`
}

// FineStatus compares the store's fulltext flags against the chunk
// index and reports cache occupancy.
type FineStatus struct {
	FlaggedPapers int  `json:"flagged_papers"`
	ChunkedPapers int  `json:"chunked_papers"`
	Chunks        int  `json:"chunks"`
	CacheSize     int  `json:"cache_size"`
	CacheCapacity int  `json:"cache_capacity"`
	InSync        bool `json:"in_sync"`
}

// Reporter answers sync status questions for both index stages.
type Reporter struct {
	store   StatusStore
	coarse  CoarseCounter
	fine    FineCounter
	indexer *Indexer
	logger  *slog.Logger
}

// NewReporter creates a status reporter.
func NewReporter(store StatusStore, coarse CoarseCounter, fine FineCounter, indexer *Indexer, logger *slog.Logger) *Reporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reporter{store: store, coarse: coarse, fine: fine, indexer: indexer, logger: logger}
}

// CoarseStatus reports whether the coarse index holds exactly one
// embedding per paper. Orphaned index records count as drift just like
// missing ones.
func (r *Reporter) CoarseStatus(ctx context.Context) (CoarseStatus, error) {
	papers, err := r.store.Count(ctx)
	if err != nil {
		return CoarseStatus{}, fmt.Errorf("coarse status: %w", err)
	}
	indexed, err := r.coarse.Count(ctx)
	if err != nil {
		return CoarseStatus{}, fmt.Errorf("coarse status: %w", err)
	}
	return CoarseStatus{
		Papers:  papers,
		Indexed: indexed,
		InSync:  indexed == papers,
	}, nil
}

// FineStatus reports whether the set of papers flagged as fulltext
// indexed matches the set of papers holding chunks. Drift between the
// two means an indexing or eviction pass was interrupted.
func (r *Reporter) FineStatus(ctx context.Context) (FineStatus, error) {
	flagged, err := r.store.CountFulltextIndexed(ctx)
	if err != nil {
		return FineStatus{}, fmt.Errorf("fine status: %w", err)
	}
	chunked, err := r.fine.PaperCount(ctx)
	if err != nil {
		return FineStatus{}, fmt.Errorf("fine status: %w", err)
	}
	chunks, err := r.fine.Count(ctx)
	if err != nil {
		return FineStatus{}, fmt.Errorf("fine status: %w", err)
	}
	return FineStatus{
		FlaggedPapers: flagged,
		ChunkedPapers: chunked,
		Chunks:        chunks,
		CacheSize:     r.indexer.CacheLen(),
		CacheCapacity: r.indexer.CacheCapacity(),
		InSync:        flagged == chunked,
	}, nil
}
