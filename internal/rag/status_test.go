package rag

import (
	"context"
	"testing"
	"time"
)

// fakeFineCounter reports fixed chunk and paper counts.
type fakeFineCounter struct {
	chunks int
	papers int
}

func (f *fakeFineCounter) Count(context.Context) (int, error)      { return f.chunks, nil }
func (f *fakeFineCounter) PaperCount(context.Context) (int, error) { return f.papers, nil }

func TestCoarseStatus(t *testing.T) {
	store := newFakeStore(testPaper("a"), testPaper("b"), testPaper("c"))
	index := newFakeCoarseIndex()
	index.upserted["a"] = "x"
	index.upserted["b"] = "y"

	r := NewReporter(store, index, &fakeFineCounter{}, newTestIndexer(store, newFakeChunks(), newFakeSource(), 10), nil)

	st, err := r.CoarseStatus(context.Background())
	if err != nil {
		t.Fatalf("CoarseStatus() error = %v", err)
	}
	if st.Papers != 3 || st.Indexed != 2 {
		t.Fatalf("status = %+v, want 3 papers, 2 indexed", st)
	}
	if st.InSync {
		t.Fatal("status must report out of sync")
	}

	index.upserted["c"] = "z"
	st, err = r.CoarseStatus(context.Background())
	if err != nil {
		t.Fatalf("CoarseStatus() error = %v", err)
	}
	if !st.InSync {
		t.Fatal("status must report in sync")
	}

	// An orphaned index record (no matching paper) is drift too.
	index.upserted["gone"] = "w"
	st, err = r.CoarseStatus(context.Background())
	if err != nil {
		t.Fatalf("CoarseStatus() error = %v", err)
	}
	if st.Papers != 3 || st.Indexed != 4 {
		t.Fatalf("status = %+v, want 3 papers, 4 indexed", st)
	}
	if st.InSync {
		t.Fatal("orphaned index records must report out of sync")
	}
}

func TestFineStatus(t *testing.T) {
	at := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	a, b := testPaper("a"), testPaper("b")
	a.FulltextIndexed, a.FulltextIndexedAt = true, &at
	b.FulltextIndexed, b.FulltextIndexedAt = true, &at
	store := newFakeStore(a, b, testPaper("c"))

	idx := newTestIndexer(store, newFakeChunks(), newFakeSource(), 10)
	if err := idx.Warm(context.Background()); err != nil {
		t.Fatalf("Warm() error = %v", err)
	}

	r := NewReporter(store, newFakeCoarseIndex(), &fakeFineCounter{chunks: 14, papers: 2}, idx, nil)

	st, err := r.FineStatus(context.Background())
	if err != nil {
		t.Fatalf("FineStatus() error = %v", err)
	}
	if st.FlaggedPapers != 2 || st.ChunkedPapers != 2 || st.Chunks != 14 {
		t.Fatalf("status = %+v", st)
	}
	if !st.InSync {
		t.Fatal("matching flag and chunk counts must report in sync")
	}
	if st.CacheSize != 2 || st.CacheCapacity != 10 {
		t.Fatalf("cache = %d/%d, want 2/10", st.CacheSize, st.CacheCapacity)
	}
}

func TestFineStatusDrift(t *testing.T) {
	at := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	a := testPaper("a")
	a.FulltextIndexed, a.FulltextIndexedAt = true, &at
	store := newFakeStore(a)

	idx := newTestIndexer(store, newFakeChunks(), newFakeSource(), 10)
	r := NewReporter(store, newFakeCoarseIndex(), &fakeFineCounter{chunks: 0, papers: 0}, idx, nil)

	st, err := r.FineStatus(context.Background())
	if err != nil {
		t.Fatalf("FineStatus() error = %v", err)
	}
	if st.InSync {
		t.Fatal("flagged paper without chunks must report drift")
	}
}
