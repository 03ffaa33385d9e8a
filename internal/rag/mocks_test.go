package rag

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/szhang829/badgerscholar/internal/paper"
)

// fakeStore is an in-memory PaperStore, SyncStore, StatusStore and
// ResetStore with injectable failures.
type fakeStore struct {
	mu     sync.Mutex
	papers map[string]paper.Paper

	markErr  error
	clearErr error
}

func newFakeStore(papers ...paper.Paper) *fakeStore {
	s := &fakeStore{papers: make(map[string]paper.Paper)}
	for _, p := range papers {
		s.papers[p.ID] = p
	}
	return s
}

func (s *fakeStore) Get(_ context.Context, id string) (paper.Paper, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.papers[paper.NormalizeID(id)]
	if !ok {
		return paper.Paper{}, paper.ErrNotFound
	}
	return p, nil
}

func (s *fakeStore) MarkFulltextIndexed(_ context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.markErr != nil {
		return s.markErr
	}
	p, ok := s.papers[id]
	if !ok {
		return paper.ErrNotFound
	}
	p.FulltextIndexed = true
	p.FulltextIndexedAt = &at
	s.papers[id] = p
	return nil
}

func (s *fakeStore) ClearFulltextIndexed(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.clearErr != nil {
		return s.clearErr
	}
	p, ok := s.papers[id]
	if !ok {
		return nil
	}
	p.FulltextIndexed = false
	p.FulltextIndexedAt = nil
	s.papers[id] = p
	return nil
}

func (s *fakeStore) ListFulltextIndexed(context.Context) ([]paper.IndexedAt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []paper.IndexedAt
	for _, p := range s.papers {
		if p.FulltextIndexed {
			out = append(out, paper.IndexedAt{PaperID: p.ID, IndexedAt: *p.FulltextIndexedAt})
		}
	}
	return out, nil
}

func (s *fakeStore) ListUnindexed(_ context.Context, limit int) ([]paper.Paper, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []paper.Paper
	for _, p := range s.papers {
		if !p.VectorIndexed {
			out = append(out, p)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *fakeStore) MarkVectorIndexed(_ context.Context, id, model string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.papers[id]
	if !ok {
		return paper.ErrNotFound
	}
	p.VectorIndexed = true
	p.EmbeddingModel = model
	s.papers[id] = p
	return nil
}

func (s *fakeStore) Count(context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.papers), nil
}

func (s *fakeStore) CountFulltextIndexed(context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, p := range s.papers {
		if p.FulltextIndexed {
			n++
		}
	}
	return n, nil
}

func (s *fakeStore) ResetIndexFlags(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, p := range s.papers {
		p.VectorIndexed = false
		p.FulltextIndexed = false
		p.FulltextIndexedAt = nil
		s.papers[id] = p
	}
	return nil
}

func (s *fakeStore) indexed(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.papers[id].FulltextIndexed
}

// fakeChunks is an in-memory ChunkIndex.
type fakeChunks struct {
	mu     sync.Mutex
	sets   map[string][]paper.EmbeddedChunk
	delErr error

	dropped bool
}

func newFakeChunks() *fakeChunks {
	return &fakeChunks{sets: make(map[string][]paper.EmbeddedChunk)}
}

func (c *fakeChunks) UpsertChunks(_ context.Context, paperID string, chunks []paper.EmbeddedChunk) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sets[paperID] = chunks
	return nil
}

func (c *fakeChunks) DeleteByPaper(_ context.Context, paperID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.delErr != nil {
		return c.delErr
	}
	delete(c.sets, paperID)
	return nil
}

func (c *fakeChunks) DropAll(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sets = make(map[string][]paper.EmbeddedChunk)
	c.dropped = true
	return nil
}

func (c *fakeChunks) has(paperID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.sets[paperID]
	return ok
}

// fakeSource serves canned text per paper and counts fetches.
type fakeSource struct {
	texts map[string]string
	errs  map[string]error
	calls atomic.Int64

	// gate, when set, blocks Text until closed. Used to hold several
	// callers inside one indexing pass.
	gate chan struct{}
}

func newFakeSource() *fakeSource {
	return &fakeSource{texts: make(map[string]string), errs: make(map[string]error)}
}

func (f *fakeSource) Text(_ context.Context, paperID string) (string, error) {
	f.calls.Add(1)
	if f.gate != nil {
		<-f.gate
	}
	if err := f.errs[paperID]; err != nil {
		return "", err
	}
	text, ok := f.texts[paperID]
	if !ok {
		return "", fmt.Errorf("no text for %s", paperID)
	}
	return text, nil
}

// fakeEmbedder returns a fixed-size vector derived from the text length.
type fakeEmbedder struct {
	err   error
	calls atomic.Int64
}

func (f *fakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	return []float32{float32(len(text)), 1, 2}, nil
}

func (f *fakeEmbedder) ModelName() string { return "test-embedder" }

// fakeCoarseIndex returns preset paper hits and records upserts.
type fakeCoarseIndex struct {
	mu       sync.Mutex
	hits     []paper.Hit
	upserted map[string]string // paper id -> source text
	dropped  bool
}

func newFakeCoarseIndex(hits ...paper.Hit) *fakeCoarseIndex {
	return &fakeCoarseIndex{hits: hits, upserted: make(map[string]string)}
}

func (f *fakeCoarseIndex) Query(_ context.Context, _ []float32, topK int) ([]paper.Hit, error) {
	if len(f.hits) > topK {
		return f.hits[:topK], nil
	}
	return f.hits, nil
}

func (f *fakeCoarseIndex) Upsert(_ context.Context, paperID string, _ []float32, sourceText, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.upserted[paperID] = sourceText
	return nil
}

func (f *fakeCoarseIndex) Count(context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.upserted), nil
}

func (f *fakeCoarseIndex) DropAll(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.upserted = make(map[string]string)
	f.dropped = true
	return nil
}

// fakeChunkQuerier returns preset chunk hits regardless of the vector.
type fakeChunkQuerier struct {
	hits []paper.ChunkHit
}

func (f *fakeChunkQuerier) Query(_ context.Context, _ []float32, topK int) ([]paper.ChunkHit, error) {
	if len(f.hits) > topK {
		return f.hits[:topK], nil
	}
	return f.hits, nil
}

// fakeGen returns a canned answer and records the prompts it saw.
type fakeGen struct {
	mu     sync.Mutex
	answer string
	err    error

	system string
	prompt string
	calls  int
}

func (f *fakeGen) Generate(_ context.Context, system, prompt string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.system = system
	f.prompt = prompt
	if f.err != nil {
		return "", f.err
	}
	return f.answer, nil
}
