package llm

import (
	"context"
	"time"
)

// Client defines the interface for LLM providers.
type Client interface {
	// Complete sends a system+user prompt and returns the raw text of the
	// first completion choice.
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Config holds provider configuration shared by clients and embedders.
type Config struct {
	Provider        string
	APIKey          string
	Model           string
	EmbeddingModel  string
	Temperature     float64
	MaxTokens       int
	ClassifyTimeout time.Duration
	EmbedTimeout    time.Duration
}
