package rag

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/szhang829/badgerscholar/internal/fulltext"
	"github.com/szhang829/badgerscholar/internal/paper"
)

func newTestSystem(t *testing.T, store *fakeStore, coarseIdx *fakeCoarseIndex, chunkIdx *fakeChunkQuerier, source *fakeSource, gen *fakeGen) *System {
	t.Helper()
	embedder := &fakeEmbedder{}
	coarse := NewCoarseRetriever(coarseIdx, embedder, nil)
	fine := NewFineRetriever(chunkIdx, embedder, 0, nil)
	indexer := newTestIndexer(store, newFakeChunks(), source, 10)
	return NewSystem(coarse, indexer, fine, gen, nil)
}

func TestAnswerHappyPath(t *testing.T) {
	store := newFakeStore(testPaper("2509.00001"), testPaper("2509.00002"))
	source := newFakeSource()
	source.texts["2509.00001"] = "full text one"
	source.texts["2509.00002"] = "full text two"

	coarseIdx := newFakeCoarseIndex(
		paper.Hit{ID: "2509.00001", Title: "Paper one", Score: 0.92},
		paper.Hit{ID: "2509.00002", Title: "Paper two", Score: 0.85},
	)
	chunkIdx := &fakeChunkQuerier{hits: []paper.ChunkHit{
		{Chunk: paper.Chunk{ID: "2509.00001#0", PaperID: "2509.00001", Seq: 0, Text: "evidence one"}, Score: 0.9},
		{Chunk: paper.Chunk{ID: "2509.00002#3", PaperID: "2509.00002", Seq: 3, Text: "evidence two"}, Score: 0.8},
	}}
	gen := &fakeGen{answer: "Grounded answer [Source 1]."}

	sys := newTestSystem(t, store, coarseIdx, chunkIdx, source, gen)

	got, err := sys.Answer(context.Background(), "what does paper one claim?")
	if err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
	if got.Answer != "Grounded answer [Source 1]." {
		t.Fatalf("answer = %q", got.Answer)
	}
	if len(got.Papers) != 2 || len(got.Chunks) != 2 {
		t.Fatalf("evidence = %d papers, %d chunks", len(got.Papers), len(got.Chunks))
	}

	// Both candidates went through full-text indexing on demand.
	if !store.indexed("2509.00001") || !store.indexed("2509.00002") {
		t.Fatal("candidates not indexed")
	}

	if !strings.Contains(gen.prompt, "=== CONTEXT START ===") {
		t.Fatalf("prompt missing context marker:\n%s", gen.prompt)
	}
	if !strings.Contains(gen.prompt, "[Source 1] arxiv_id=2509.00001 | chunk=0") {
		t.Fatalf("prompt missing source block:\n%s", gen.prompt)
	}
	if !strings.Contains(gen.prompt, "Question: what does paper one claim?") {
		t.Fatalf("prompt missing question:\n%s", gen.prompt)
	}
	if !strings.Contains(gen.system, "ONLY the provided context") {
		t.Fatalf("system prompt = %q", gen.system)
	}
}

func TestAnswerIndexFailureIsolated(t *testing.T) {
	store := newFakeStore(testPaper("good"), testPaper("bad"))
	source := newFakeSource()
	source.texts["good"] = "healthy full text"
	source.errs["bad"] = fulltext.ErrFetch

	coarseIdx := newFakeCoarseIndex(
		paper.Hit{ID: "bad", Title: "Broken", Score: 0.95},
		paper.Hit{ID: "good", Title: "Healthy", Score: 0.90},
	)
	chunkIdx := &fakeChunkQuerier{hits: []paper.ChunkHit{
		{Chunk: paper.Chunk{ID: "good#0", PaperID: "good", Seq: 0, Text: "evidence"}, Score: 0.9},
		{Chunk: paper.Chunk{ID: "bad#0", PaperID: "bad", Seq: 0, Text: "stale"}, Score: 0.95},
	}}
	gen := &fakeGen{answer: "Answer from the healthy paper."}

	sys := newTestSystem(t, store, coarseIdx, chunkIdx, source, gen)

	got, err := sys.Answer(context.Background(), "question")
	if err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
	if got.Answer != "Answer from the healthy paper." {
		t.Fatalf("answer = %q", got.Answer)
	}
	if len(got.Chunks) != 1 || got.Chunks[0].PaperID != "good" {
		t.Fatalf("chunks = %+v, want only the healthy paper's", got.Chunks)
	}

	// The coarse result list is untouched: the failed paper only loses
	// its fine-grained evidence.
	if len(got.Papers) != 2 {
		t.Fatalf("papers = %d, want 2", len(got.Papers))
	}
	var sawBad bool
	for _, h := range got.Papers {
		if h.ID == "bad" {
			sawBad = true
		}
	}
	if !sawBad {
		t.Fatalf("papers = %+v, failed paper missing from the coarse results", got.Papers)
	}
}

func TestAnswerSkipsAlreadyIndexed(t *testing.T) {
	at := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	a, b := testPaper("a"), testPaper("b")
	a.FulltextIndexed, a.FulltextIndexedAt = true, &at
	b.FulltextIndexed, b.FulltextIndexedAt = true, &at
	store := newFakeStore(a, b, testPaper("c"))
	source := newFakeSource()
	source.texts["c"] = "only fetched full text"

	coarseIdx := newFakeCoarseIndex(
		paper.Hit{ID: "a", Title: "Alpha", Score: 0.9},
		paper.Hit{ID: "b", Title: "Beta", Score: 0.8},
		paper.Hit{ID: "c", Title: "Gamma", Score: 0.7},
	)
	chunkIdx := &fakeChunkQuerier{hits: []paper.ChunkHit{
		{Chunk: paper.Chunk{ID: "c#0", PaperID: "c", Seq: 0, Text: "evidence"}, Score: 0.9},
	}}
	gen := &fakeGen{answer: "answer"}

	sys := newTestSystem(t, store, coarseIdx, chunkIdx, source, gen)

	if _, err := sys.Answer(context.Background(), "question"); err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
	if got := source.calls.Load(); got != 1 {
		t.Fatalf("source fetched %d times, want 1 (only the unindexed paper)", got)
	}
	if !store.indexed("c") {
		t.Fatal("unindexed candidate was not indexed")
	}
}

func TestAnswerInsufficientEvidence(t *testing.T) {
	store := newFakeStore(testPaper("a"))
	source := newFakeSource()
	source.texts["a"] = "full text"

	coarseIdx := newFakeCoarseIndex(paper.Hit{ID: "a", Title: "Alpha", Score: 0.5})
	chunkIdx := &fakeChunkQuerier{} // no chunks survive retrieval
	gen := &fakeGen{answer: "should never be used"}

	sys := newTestSystem(t, store, coarseIdx, chunkIdx, source, gen)

	got, err := sys.Answer(context.Background(), "question with no evidence")
	if err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
	if got.Answer != insufficientEvidence {
		t.Fatalf("answer = %q, want the insufficient-evidence text", got.Answer)
	}
	if gen.calls != 0 {
		t.Fatalf("model called %d times, want 0", gen.calls)
	}
	if len(got.Chunks) != 0 {
		t.Fatalf("chunks = %d, want 0", len(got.Chunks))
	}
}

func TestAnswerEmptyCorpus(t *testing.T) {
	gen := &fakeGen{answer: "unused"}
	sys := newTestSystem(t, newFakeStore(), newFakeCoarseIndex(), &fakeChunkQuerier{}, newFakeSource(), gen)

	got, err := sys.Answer(context.Background(), "anything")
	if err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
	if got.Answer != insufficientEvidence {
		t.Fatalf("answer = %q", got.Answer)
	}
	if gen.calls != 0 {
		t.Fatal("model must not run without coarse hits")
	}
}

func TestAnswerEmptyQuery(t *testing.T) {
	sys := newTestSystem(t, newFakeStore(), newFakeCoarseIndex(), &fakeChunkQuerier{}, newFakeSource(), &fakeGen{})

	if _, err := sys.Answer(context.Background(), "   "); err == nil {
		t.Fatal("expected error for blank query")
	}
}

func TestResetterDropAllVectors(t *testing.T) {
	at := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	a := testPaper("a")
	a.VectorIndexed = true
	a.FulltextIndexed, a.FulltextIndexedAt = true, &at
	store := newFakeStore(a)

	coarseIdx := newFakeCoarseIndex()
	coarseIdx.upserted["a"] = "x"
	chunks := newFakeChunks()
	chunks.sets["a"] = []paper.EmbeddedChunk{{}}

	idx := newTestIndexer(store, chunks, newFakeSource(), 10)
	if err := idx.Warm(context.Background()); err != nil {
		t.Fatalf("Warm() error = %v", err)
	}

	r := NewResetter(store, coarseIdx, chunks, idx, nil)
	if err := r.DropAllVectors(context.Background()); err != nil {
		t.Fatalf("DropAllVectors() error = %v", err)
	}

	if !coarseIdx.dropped || !chunks.dropped {
		t.Fatal("indexes were not dropped")
	}
	if idx.CacheLen() != 0 {
		t.Fatalf("CacheLen = %d, want 0", idx.CacheLen())
	}
	p, err := store.Get(context.Background(), "a")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if p.VectorIndexed || p.FulltextIndexed || p.FulltextIndexedAt != nil {
		t.Fatalf("flags not reset: %+v", p)
	}
}

func TestAnswerTopKOverridesLimits(t *testing.T) {
	store := newFakeStore(testPaper("2509.00001"), testPaper("2509.00002"), testPaper("2509.00003"))
	source := newFakeSource()
	source.texts["2509.00001"] = "full text one"
	source.texts["2509.00002"] = "full text two"
	source.texts["2509.00003"] = "full text three"

	coarseIdx := newFakeCoarseIndex(
		paper.Hit{ID: "2509.00001", Title: "Paper one", Score: 0.92},
		paper.Hit{ID: "2509.00002", Title: "Paper two", Score: 0.85},
		paper.Hit{ID: "2509.00003", Title: "Paper three", Score: 0.71},
	)
	chunkIdx := &fakeChunkQuerier{hits: []paper.ChunkHit{
		{Chunk: paper.Chunk{ID: "2509.00001#0", PaperID: "2509.00001", Seq: 0, Text: "evidence"}, Score: 0.9},
	}}
	gen := &fakeGen{answer: "answer"}

	sys := newTestSystem(t, store, coarseIdx, chunkIdx, source, gen)

	ans, err := sys.AnswerTopK(context.Background(), "narrow question", 1, 4)
	if err != nil {
		t.Fatalf("AnswerTopK() error = %v", err)
	}
	if len(ans.Papers) != 1 {
		t.Errorf("len(Papers) = %d, want 1", len(ans.Papers))
	}

	// Non-positive limits fall back to the configured defaults.
	ans, err = sys.AnswerTopK(context.Background(), "broad question", 0, 0)
	if err != nil {
		t.Fatalf("AnswerTopK() error = %v", err)
	}
	if len(ans.Papers) != 3 {
		t.Errorf("len(Papers) = %d, want 3", len(ans.Papers))
	}
}
