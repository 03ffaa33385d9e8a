// Package llm wraps Genkit text generation behind the narrow completion
// interface the RAG orchestrator consumes.
package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
)

// DefaultTemperature keeps answers close to the supplied evidence.
const DefaultTemperature = 0.2

// Client generates grounded answers via a Genkit model.
type Client struct {
	g           *genkit.Genkit
	modelName   string // provider-qualified, e.g. "googleai/gemini-2.5-flash"
	temperature float64
}

// New creates a Client. A zero temperature selects DefaultTemperature.
func New(g *genkit.Genkit, modelName string, temperature float64) *Client {
	if temperature <= 0 {
		temperature = DefaultTemperature
	}
	return &Client{g: g, modelName: modelName, temperature: temperature}
}

// Generate produces a completion for the given system and user prompts.
func (c *Client) Generate(ctx context.Context, system, prompt string) (string, error) {
	opts := []ai.GenerateOption{
		ai.WithSystem(system),
		ai.WithPrompt(prompt),
		ai.WithConfig(&ai.GenerationCommonConfig{
			Temperature: c.temperature,
		}),
	}
	if c.modelName != "" {
		opts = append(opts, ai.WithModelName(c.modelName))
	}

	resp, err := genkit.Generate(ctx, c.g, opts...)
	if err != nil {
		return "", fmt.Errorf("generating completion: %w", err)
	}
	return strings.TrimSpace(resp.Text()), nil
}
