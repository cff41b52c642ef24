// Package stub implements a deterministic EmbeddingProvider that derives
// pseudo-random unit vectors from a content hash. It needs no backend and
// is used for tests and offline mode.
package stub

import (
	"context"
	"crypto/sha256"

	"github.com/optiprofile/ranker/internal/vectors"
	"github.com/optiprofile/ranker/pkg/provider"
)

// Default values
const (
	DefaultDimensions = 384
	DefaultBatchSize  = 32
	ModelName         = "stub-sha256"
)

// Config contains stub provider configuration.
type Config struct {
	Dimensions int // Set to 0 for the default
}

// Provider implements a hash-derived embedding provider.
type Provider struct {
	dimensions int
}

// New creates a new stub embedding provider.
func New(cfg Config) *Provider {
	if cfg.Dimensions == 0 {
		cfg.Dimensions = DefaultDimensions
	}
	return &Provider{dimensions: cfg.Dimensions}
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return "stub"
}

// Model returns the embedding model name.
func (p *Provider) Model() string {
	return ModelName
}

// Embed generates deterministic embeddings based on text hashing.
func (p *Provider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	embeddings := make([][]float32, len(texts))
	for i, text := range texts {
		embeddings[i] = p.hashToEmbedding(text)
	}
	return embeddings, nil
}

// hashToEmbedding converts text to a deterministic unit vector using
// SHA256, rehashing with the block index to fill all dimensions.
func (p *Provider) hashToEmbedding(text string) []float32 {
	embedding := make([]float32, p.dimensions)

	hash := sha256.Sum256([]byte(text))
	for i := 0; i < p.dimensions; i++ {
		byteIdx := i % 32
		if i >= 32 && byteIdx == 0 {
			combined := append(hash[:], byte(i/32))
			hash = sha256.Sum256(combined)
		}

		// Map byte to [-1, 1]
		embedding[i] = (float32(hash[byteIdx]) / 127.5) - 1.0
	}

	return vectors.Normalize(embedding)
}

// Dimensions returns the embedding dimensions.
func (p *Provider) Dimensions() int {
	return p.dimensions
}

// MaxBatchSize returns the maximum batch size.
func (p *Provider) MaxBatchSize() int {
	return DefaultBatchSize
}

// Available always succeeds: the stub has no backend to reach.
func (p *Provider) Available(ctx context.Context) error {
	return nil
}

// Close closes the provider (no-op).
func (p *Provider) Close() error {
	return nil
}

// Ensure Provider implements EmbeddingProvider interface
var _ provider.EmbeddingProvider = (*Provider)(nil)
