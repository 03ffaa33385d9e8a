// Package paper defines the core domain types for the scholar corpus:
// paper metadata, full-text chunks, and retrieval hits shared by the
// document store, the vector indexes and the RAG pipeline.
package paper

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Paper is the authoritative metadata record for one arXiv paper.
//
// Invariant: FulltextIndexedAt is non-nil iff FulltextIndexed is true.
// The flag pair is only mutated through Store.MarkFulltextIndexed and
// Store.ClearFulltextIndexed, which update both fields together.
type Paper struct {
	ID              string // canonical arXiv identifier, version suffix stripped
	Title           string
	Summary         string
	Authors         []string
	Categories      []string
	PrimaryCategory string
	Published       time.Time
	Updated         time.Time
	SourceURL       string // locator of the source document (PDF)

	VectorIndexed     bool
	FulltextIndexed   bool
	FulltextIndexedAt *time.Time

	EmbeddingModel string // model that produced the stored vectors, if any
}

// EmbeddingText builds the coarse embedding input from title and summary.
// The exact format is part of the stored CoarseEmbeddingRecord and must stay
// stable across re-indexing runs.
func (p *Paper) EmbeddingText() string {
	title := strings.TrimSpace(p.Title)
	summary := strings.TrimSpace(p.Summary)
	if title == "" && summary == "" {
		return ""
	}
	return fmt.Sprintf("Title: %s\n\nAbstract: %s", title, summary)
}

// versionSuffix matches a trailing arXiv version marker, e.g. "v2" in
// "2509.12345v2".
var versionSuffix = regexp.MustCompile(`v\d+$`)

// NormalizeID collapses a possibly versioned arXiv identifier to its
// canonical base form: "2509.12345v2" -> "2509.12345". Already-canonical
// identifiers pass through unchanged.
func NormalizeID(id string) string {
	id = strings.TrimSpace(id)
	return versionSuffix.ReplaceAllString(id, "")
}

// Chunk is one bounded, overlapping span of a paper's extracted full text.
// Chunks for a paper are created and destroyed together as a set.
type Chunk struct {
	ID      string // "<paper_id>#<seq>"
	PaperID string
	Seq     int
	Text    string
}

// ChunkID builds the stable chunk identifier for a paper and sequence number.
func ChunkID(paperID string, seq int) string {
	return fmt.Sprintf("%s#%d", paperID, seq)
}

// Hit is a coarse retrieval result: one paper ranked by similarity.
type Hit struct {
	ID        string
	Title     string
	Score     float32
	Published time.Time
}

// ChunkHit is a fine retrieval result: one chunk ranked by similarity.
type ChunkHit struct {
	Chunk
	Score float32
}

// EmbeddedChunk pairs a chunk with its embedding vector, ready to be
// written to the fine vector index.
type EmbeddedChunk struct {
	Chunk
	Vector []float32
	Model  string
}
