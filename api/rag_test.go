package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/szhang829/badgerscholar/internal/log"
	"github.com/szhang829/badgerscholar/internal/paper"
	"github.com/szhang829/badgerscholar/internal/rag"
)

type stubRAG struct {
	answer     *rag.Answer
	err        error
	question   string
	topKPapers int
	topKChunks int
}

func (s *stubRAG) AnswerTopK(_ context.Context, question string, topKPapers, topKChunks int) (*rag.Answer, error) {
	s.question = question
	s.topKPapers = topKPapers
	s.topKChunks = topKChunks
	if s.err != nil {
		return nil, s.err
	}
	return s.answer, nil
}

func newRAGServer(svc RAGService) http.Handler {
	srv := NewServer(nil, Services{RAG: svc}, log.NewNop())
	return srv.Handler()
}

func postQuery(t *testing.T, handler http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/rag/query", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	return w
}

func TestRAGHandler_Query(t *testing.T) {
	published := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	svc := &stubRAG{answer: &rag.Answer{
		Answer: "Transformers use self-attention.",
		Papers: []paper.Hit{{ID: "1706.03762", Title: "Attention Is All You Need", Score: 0.91, Published: published}},
		Chunks: []paper.ChunkHit{
			{Chunk: paper.Chunk{ID: "1706.03762#3", PaperID: "1706.03762", Seq: 3, Text: "..."}, Score: 0.88},
		},
	}}
	handler := newRAGServer(svc)

	w := postQuery(t, handler, `{"question": "how does attention work?"}`)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "how does attention work?", svc.question)
	assert.Equal(t, 0, svc.topKPapers)
	assert.Equal(t, 0, svc.topKChunks)

	var resp QueryResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "Transformers use self-attention.", resp.Answer)
	require.Len(t, resp.Papers, 1)
	assert.Equal(t, "1706.03762", resp.Papers[0].ArxivID)
	assert.Equal(t, "Attention Is All You Need", resp.Papers[0].Title)
	require.Len(t, resp.Chunks, 1)
	assert.Equal(t, 3, resp.Chunks[0].Seq)
}

func TestRAGHandler_CustomTopK(t *testing.T) {
	svc := &stubRAG{answer: &rag.Answer{Answer: "ok"}}
	handler := newRAGServer(svc)

	w := postQuery(t, handler, `{"question": "what is a kernel?", "top_k_papers": 3, "top_k_chunks": 12}`)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 3, svc.topKPapers)
	assert.Equal(t, 12, svc.topKChunks)
}

func TestRAGHandler_EmptyQuestion(t *testing.T) {
	svc := &stubRAG{answer: &rag.Answer{}}
	handler := newRAGServer(svc)

	w := postQuery(t, handler, `{"question": "   "}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, svc.question)
}

func TestRAGHandler_NegativeTopK(t *testing.T) {
	svc := &stubRAG{answer: &rag.Answer{}}
	handler := newRAGServer(svc)

	w := postQuery(t, handler, `{"question": "anything", "top_k_papers": -1}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, svc.question)
}

func TestRAGHandler_InvalidBody(t *testing.T) {
	handler := newRAGServer(&stubRAG{})

	w := postQuery(t, handler, `{not json`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRAGHandler_UpstreamError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"completion failure maps to 502", rag.ErrCompletion, http.StatusBadGateway},
		{"embedding failure maps to 502", rag.ErrEmbedding, http.StatusBadGateway},
		{"source fetch failure maps to 500", rag.ErrSourceFetch, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := newRAGServer(&stubRAG{err: tt.err})

			w := postQuery(t, handler, `{"question": "anything"}`)

			assert.Equal(t, tt.want, w.Code)

			var resp ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.NotEmpty(t, resp.Error)
		})
	}
}

func TestRAGHandler_WrongMethod(t *testing.T) {
	handler := newRAGServer(&stubRAG{})

	req := httptest.NewRequest(http.MethodGet, "/api/rag/query", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}
