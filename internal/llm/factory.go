package llm

import (
	"fmt"
	"strings"

	"finsight/internal/service"
)

// NewClient creates a raw LLM client based on the provided configuration.
func NewClient(cfg Config) (Client, error) {
	switch strings.ToLower(cfg.Provider) {
	case "openai":
		return newOpenAIClient(cfg)
	case "gemini":
		return newGeminiClient(cfg)
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.Provider)
	}
}

// NewEmbedder creates an embedding client for the provider.
func NewEmbedder(cfg Config) (service.Embedder, error) {
	switch strings.ToLower(cfg.Provider) {
	case "openai":
		return newOpenAIEmbedder(cfg)
	case "gemini":
		return newGeminiEmbedder(cfg)
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", cfg.Provider)
	}
}
