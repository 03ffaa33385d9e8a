package rag

import (
	"context"
	"testing"

	"github.com/szhang829/badgerscholar/internal/paper"
)

func TestRetrievePapersValidation(t *testing.T) {
	r := NewCoarseRetriever(newFakeCoarseIndex(), &fakeEmbedder{}, nil)

	if _, err := r.RetrievePapers(context.Background(), "", 5); err == nil {
		t.Fatal("expected error for empty query")
	}
	if _, err := r.RetrievePapers(context.Background(), "q", 0); err == nil {
		t.Fatal("expected error for non-positive topK")
	}
}

func TestRetrievePapersRespectsTopK(t *testing.T) {
	index := newFakeCoarseIndex(
		paper.Hit{ID: "a", Score: 0.9},
		paper.Hit{ID: "b", Score: 0.8},
		paper.Hit{ID: "c", Score: 0.7},
	)
	r := NewCoarseRetriever(index, &fakeEmbedder{}, nil)

	hits, err := r.RetrievePapers(context.Background(), "query", 2)
	if err != nil {
		t.Fatalf("RetrievePapers() error = %v", err)
	}
	if len(hits) != 2 || hits[0].ID != "a" || hits[1].ID != "b" {
		t.Fatalf("hits = %+v", hits)
	}
}

func TestRetrieveChunksFiltersCandidates(t *testing.T) {
	index := &fakeChunkQuerier{hits: []paper.ChunkHit{
		{Chunk: paper.Chunk{PaperID: "other", Seq: 0}, Score: 0.99},
		{Chunk: paper.Chunk{PaperID: "a", Seq: 0}, Score: 0.9},
		{Chunk: paper.Chunk{PaperID: "a", Seq: 1}, Score: 0.8},
		{Chunk: paper.Chunk{PaperID: "b", Seq: 0}, Score: 0.7},
	}}
	r := NewFineRetriever(index, &fakeEmbedder{}, 0, nil)

	hits, err := r.RetrieveChunks(context.Background(), "query", []string{"a", "b"}, 10)
	if err != nil {
		t.Fatalf("RetrieveChunks() error = %v", err)
	}
	if len(hits) != 3 {
		t.Fatalf("hits = %d, want 3", len(hits))
	}
	for _, h := range hits {
		if h.PaperID == "other" {
			t.Fatal("non-candidate chunk leaked into the result")
		}
	}
}

func TestRetrieveChunksRespectsTopK(t *testing.T) {
	index := &fakeChunkQuerier{hits: []paper.ChunkHit{
		{Chunk: paper.Chunk{PaperID: "a", Seq: 0}, Score: 0.9},
		{Chunk: paper.Chunk{PaperID: "a", Seq: 1}, Score: 0.8},
		{Chunk: paper.Chunk{PaperID: "a", Seq: 2}, Score: 0.7},
	}}
	r := NewFineRetriever(index, &fakeEmbedder{}, 0, nil)

	hits, err := r.RetrieveChunks(context.Background(), "query", []string{"a"}, 2)
	if err != nil {
		t.Fatalf("RetrieveChunks() error = %v", err)
	}
	if len(hits) != 2 {
		t.Fatalf("hits = %d, want 2", len(hits))
	}
}

func TestRetrieveChunksEmptyCandidates(t *testing.T) {
	embedder := &fakeEmbedder{}
	r := NewFineRetriever(&fakeChunkQuerier{}, embedder, 0, nil)

	hits, err := r.RetrieveChunks(context.Background(), "query", nil, 5)
	if err != nil {
		t.Fatalf("RetrieveChunks() error = %v", err)
	}
	if hits != nil {
		t.Fatalf("hits = %+v, want nil", hits)
	}
	if embedder.calls.Load() != 0 {
		t.Fatal("no candidates must short-circuit before embedding")
	}
}

func TestRetrieveChunksNormalizesCandidateIDs(t *testing.T) {
	index := &fakeChunkQuerier{hits: []paper.ChunkHit{
		{Chunk: paper.Chunk{PaperID: "2509.00001", Seq: 0}, Score: 0.9},
	}}
	r := NewFineRetriever(index, &fakeEmbedder{}, 0, nil)

	hits, err := r.RetrieveChunks(context.Background(), "query", []string{"2509.00001v2"}, 5)
	if err != nil {
		t.Fatalf("RetrieveChunks() error = %v", err)
	}
	if len(hits) != 1 {
		t.Fatalf("hits = %d, want 1", len(hits))
	}
}
