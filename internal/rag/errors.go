package rag

import "errors"

// Pipeline stage errors. Wrapped around the underlying cause so callers
// can tell which stage of an answer or indexing run failed.
var (
	ErrPaperNotFound = errors.New("paper not found")
	ErrSourceFetch   = errors.New("source document fetch failed")
	ErrExtraction    = errors.New("text extraction failed")
	ErrEmbedding     = errors.New("embedding failed")
	ErrCompletion    = errors.New("completion failed")
)
