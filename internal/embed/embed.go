// Package embed adapts a Genkit ai.Embedder to the single-text embedding
// function the retrieval pipeline consumes, and records the model identity
// that is stored alongside every vector.
package embed

import (
	"context"
	"fmt"

	"github.com/firebase/genkit/go/ai"
)

// Dimension is the width of all stored vectors. The pgvector columns are
// declared with this dimension; embedders must be configured to match.
const Dimension = 768

// Client wraps an ai.Embedder for single-text use.
type Client struct {
	embedder ai.Embedder
	model    string
}

// New creates a Client. model is the provider's embedding model identifier
// and is persisted with every vector for future re-indexing decisions.
func New(embedder ai.Embedder, model string) *Client {
	return &Client{embedder: embedder, model: model}
}

// ModelName returns the embedding model identifier.
func (c *Client) ModelName() string {
	return c.model
}

// Embed converts text to a fixed-length vector. Empty responses from the
// provider are reported as errors rather than silently stored.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := c.embedder.Embed(ctx, &ai.EmbedRequest{
		Input: []*ai.Document{
			ai.DocumentFromText(text, nil),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("embedding text: %w", err)
	}
	if len(resp.Embeddings) == 0 || len(resp.Embeddings[0].Embedding) == 0 {
		return nil, fmt.Errorf("embedder returned empty vector")
	}
	return resp.Embeddings[0].Embedding, nil
}
