// Package provider defines interfaces for pluggable components.
package provider

import (
	"context"
)

// EmbeddingProvider generates vector embeddings from text.
type EmbeddingProvider interface {
	// Name returns the provider name (e.g., "openai", "ollama", "stub").
	Name() string

	// Embed generates embeddings for the given texts.
	// Returns one embedding per input text, in input order. All vectors
	// returned by a single call share the same dimensionality.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// Model returns the embedding model name.
	Model() string

	// Dimensions returns the embedding dimension size.
	Dimensions() int

	// MaxBatchSize returns the maximum number of texts per batch.
	MaxBatchSize() int

	// Available checks whether the backend is reachable. Callers must
	// check availability before depending on a real (non-stub) embedding.
	Available(ctx context.Context) error

	// Close releases any resources.
	Close() error
}

// EmbeddingConfig contains configuration for embedding providers.
type EmbeddingConfig struct {
	Provider  string // "openai", "ollama", "stub"
	Model     string // Model name
	BaseURL   string // API endpoint override
	APIKey    string // API key (for OpenAI)
	BatchSize int    // Texts per batch
}
