package rag

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/szhang829/badgerscholar/internal/paper"
)

// Pipeline defaults, applied when the corresponding option is zero.
const (
	DefaultTopKPapers = 5
	DefaultTopKChunks = 8

	// insufficientEvidence is returned without calling the model when
	// retrieval produced no usable context.
	insufficientEvidence = "I could not find enough evidence in the indexed papers to answer this question."

	systemPrompt = `You are a research assistant answering questions about academic papers.
Answer using ONLY the provided context excerpts. Cite sources inline as [Source N].
If the context does not contain enough information to answer, say so plainly instead of guessing.`
)

// Generator produces a completion from a system prompt and a user prompt.
type Generator interface {
	Generate(ctx context.Context, system, prompt string) (string, error)
}

// Answer is the full result of one pipeline run: the generated text plus
// the retrieval evidence behind it.
type Answer struct {
	Answer string           `json:"answer"`
	Papers []paper.Hit      `json:"papers"`
	Chunks []paper.ChunkHit `json:"chunks"`
}

// System runs the two-stage pipeline end to end: coarse paper retrieval,
// on-demand full-text indexing of the candidates, fine chunk retrieval
// and answer generation.
type System struct {
	coarse  *CoarseRetriever
	indexer *Indexer
	fine    *FineRetriever
	gen     Generator

	topKPapers int
	topKChunks int
	logger     *slog.Logger
}

// SystemOption adjusts pipeline construction.
type SystemOption func(*System)

// WithTopK overrides how many papers and chunks feed the answer.
func WithTopK(papers, chunks int) SystemOption {
	return func(s *System) {
		if papers > 0 {
			s.topKPapers = papers
		}
		if chunks > 0 {
			s.topKChunks = chunks
		}
	}
}

// NewSystem assembles the pipeline.
func NewSystem(coarse *CoarseRetriever, indexer *Indexer, fine *FineRetriever, gen Generator, logger *slog.Logger, opts ...SystemOption) *System {
	if logger == nil {
		logger = slog.Default()
	}
	s := &System{
		coarse:     coarse,
		indexer:    indexer,
		fine:       fine,
		gen:        gen,
		topKPapers: DefaultTopKPapers,
		topKChunks: DefaultTopKChunks,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Answer runs the full pipeline for one question with the configured
// retrieval limits.
func (s *System) Answer(ctx context.Context, query string) (*Answer, error) {
	return s.AnswerTopK(ctx, query, 0, 0)
}

// AnswerTopK runs the full pipeline for one question. Non-positive
// limits fall back to the configured defaults. Candidate papers are
// indexed concurrently; a paper whose indexing fails is logged and
// dropped from the candidate set rather than failing the whole answer.
// When no chunk evidence survives, a fixed insufficient-evidence answer
// is returned without calling the model.
func (s *System) AnswerTopK(ctx context.Context, query string, topKPapers, topKChunks int) (*Answer, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("answering: empty query")
	}
	if topKPapers <= 0 {
		topKPapers = s.topKPapers
	}
	if topKChunks <= 0 {
		topKChunks = s.topKChunks
	}

	hits, err := s.coarse.RetrievePapers(ctx, query, topKPapers)
	if err != nil {
		return nil, fmt.Errorf("answering: %w", err)
	}
	if len(hits) == 0 {
		return &Answer{Answer: insufficientEvidence}, nil
	}

	candidates := s.indexCandidates(ctx, hits)
	if len(candidates) == 0 {
		return &Answer{Answer: insufficientEvidence, Papers: hits}, nil
	}

	chunks, err := s.fine.RetrieveChunks(ctx, query, candidates, topKChunks)
	if err != nil {
		return nil, fmt.Errorf("answering: %w", err)
	}
	if len(chunks) == 0 {
		return &Answer{Answer: insufficientEvidence, Papers: hits}, nil
	}

	prompt := buildPrompt(query, chunks)
	text, err := s.gen.Generate(ctx, systemPrompt, prompt)
	if err != nil {
		return nil, fmt.Errorf("answering: %w: %w", ErrCompletion, err)
	}

	s.logger.Info("answered query",
		"papers", len(hits), "candidates", len(candidates), "chunks", len(chunks))

	return &Answer{Answer: text, Papers: hits, Chunks: chunks}, nil
}

// indexCandidates fans out full-text indexing across the coarse hits and
// returns the papers whose chunk sets are available. Order of the input
// hits is preserved.
func (s *System) indexCandidates(ctx context.Context, hits []paper.Hit) []string {
	var (
		mu sync.Mutex
		ok = make(map[string]bool, len(hits))
	)

	g, gctx := errgroup.WithContext(ctx)
	for _, h := range hits {
		g.Go(func() error {
			if _, err := s.indexer.EnsureIndexed(gctx, h.ID); err != nil {
				s.logger.Warn("candidate dropped, indexing failed", "paper_id", h.ID, "error", err)
				return nil
			}
			mu.Lock()
			ok[h.ID] = true
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	candidates := make([]string, 0, len(hits))
	for _, h := range hits {
		if ok[h.ID] {
			candidates = append(candidates, h.ID)
		}
	}
	return candidates
}

// buildPrompt assembles the generation prompt: numbered source blocks
// wrapped in context markers, followed by the question. The source
// numbering matches the citation format the system prompt asks for.
func buildPrompt(query string, chunks []paper.ChunkHit) string {
	var b strings.Builder
	b.WriteString("=== CONTEXT START ===\n")
	for n, ch := range chunks {
		fmt.Fprintf(&b, "[Source %d] arxiv_id=%s | chunk=%d\n%s\n\n", n+1, ch.PaperID, ch.Seq, ch.Text)
	}
	b.WriteString("=== CONTEXT END ===\n\n")
	b.WriteString("Question: ")
	b.WriteString(query)
	return b.String()
}
