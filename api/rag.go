package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/szhang829/badgerscholar/internal/log"
	"github.com/szhang829/badgerscholar/internal/rag"
)

// RAGService answers a question over the indexed corpus. Non-positive
// limits select the service's configured defaults.
type RAGService interface {
	AnswerTopK(ctx context.Context, question string, topKPapers, topKChunks int) (*rag.Answer, error)
}

// RAGHandler handles the question answering endpoint.
type RAGHandler struct {
	svc    RAGService
	logger log.Logger
}

// NewRAGHandler creates a new RAG handler.
func NewRAGHandler(svc RAGService, logger log.Logger) *RAGHandler {
	return &RAGHandler{svc: svc, logger: logger}
}

// RegisterRoutes registers the query route on the given mux.
// No route is registered when the service is nil.
func (h *RAGHandler) RegisterRoutes(mux *http.ServeMux) {
	if h.svc == nil {
		return
	}
	mux.HandleFunc("POST /api/rag/query", h.query)
}

// QueryRequest is the request body for POST /api/rag/query. The top_k
// fields are optional; zero values use the configured defaults.
type QueryRequest struct {
	Question   string `json:"question"`
	TopKPapers int    `json:"top_k_papers,omitempty"`
	TopKChunks int    `json:"top_k_chunks,omitempty"`
}

// PaperResult is one coarse retrieval hit in a query response.
type PaperResult struct {
	ArxivID   string    `json:"arxiv_id"`
	Title     string    `json:"title"`
	Score     float32   `json:"score"`
	Published time.Time `json:"published,omitzero"`
}

// ChunkResult is one fine retrieval hit in a query response.
type ChunkResult struct {
	ArxivID string  `json:"arxiv_id"`
	Seq     int     `json:"chunk"`
	Score   float32 `json:"score"`
}

// QueryResponse is the response body for POST /api/rag/query.
type QueryResponse struct {
	Answer string        `json:"answer"`
	Papers []PaperResult `json:"papers"`
	Chunks []ChunkResult `json:"chunks"`
}

func (h *RAGHandler) query(w http.ResponseWriter, r *http.Request) {
	var req QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "request body must be JSON")
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "question must not be empty")
		return
	}
	if req.TopKPapers < 0 || req.TopKChunks < 0 {
		writeError(w, http.StatusBadRequest, "invalid_request", "top_k values must not be negative")
		return
	}

	ans, err := h.svc.AnswerTopK(r.Context(), req.Question, req.TopKPapers, req.TopKChunks)
	if err != nil {
		h.logger.Error("query failed", "error", err)
		switch {
		case errors.Is(err, rag.ErrEmbedding), errors.Is(err, rag.ErrCompletion):
			writeError(w, http.StatusBadGateway, "upstream_error", "model provider request failed")
		default:
			writeError(w, http.StatusInternalServerError, "internal_error", "query failed")
		}
		return
	}

	resp := QueryResponse{
		Answer: ans.Answer,
		Papers: make([]PaperResult, 0, len(ans.Papers)),
		Chunks: make([]ChunkResult, 0, len(ans.Chunks)),
	}
	for _, p := range ans.Papers {
		resp.Papers = append(resp.Papers, PaperResult{
			ArxivID:   p.ID,
			Title:     p.Title,
			Score:     p.Score,
			Published: p.Published,
		})
	}
	for _, c := range ans.Chunks {
		resp.Chunks = append(resp.Chunks, ChunkResult{
			ArxivID: c.PaperID,
			Seq:     c.Seq,
			Score:   c.Score,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}
