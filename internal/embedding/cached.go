package embedding

import (
	"context"
	"sync/atomic"

	"github.com/optiprofile/ranker/internal/metrics"
	"github.com/optiprofile/ranker/pkg/provider"
	"github.com/optiprofile/ranker/pkg/types"
)

// Result is a batch embedding response: one vector per input text, in
// input order, plus the model and dimensionality they share.
type Result struct {
	Embeddings [][]float32
	Model      string
	Dimensions int
}

// Stats is the cache introspection snapshot.
type Stats struct {
	Backend string
	Size    int
	Hits    uint64
	Misses  uint64
}

// CachedProvider wraps an EmbeddingProvider with a content-hash cache.
// On a batch request it partitions inputs into cached and uncached,
// computes only the uncached subset, and returns results in the original
// input order.
type CachedProvider struct {
	backend provider.EmbeddingProvider
	cache   Cache

	hits   atomic.Uint64
	misses atomic.Uint64
}

// NewCachedProvider wraps backend with the given cache. A nil cache gets
// the default unbounded in-process backend.
func NewCachedProvider(backend provider.EmbeddingProvider, cache Cache) *CachedProvider {
	if cache == nil {
		cache = NewMemoryCache(0)
	}
	return &CachedProvider{backend: backend, cache: cache}
}

// Name returns the wrapped provider name.
func (p *CachedProvider) Name() string { return p.backend.Name() }

// Model returns the wrapped provider's model name.
func (p *CachedProvider) Model() string { return p.backend.Model() }

// Dimensions returns the wrapped provider's dimensionality.
func (p *CachedProvider) Dimensions() int { return p.backend.Dimensions() }

// MaxBatchSize returns the wrapped provider's batch limit.
func (p *CachedProvider) MaxBatchSize() int { return p.backend.MaxBatchSize() }

// Available reports whether the wrapped backend is reachable.
func (p *CachedProvider) Available(ctx context.Context) error {
	return p.backend.Available(ctx)
}

// Close closes the wrapped provider.
func (p *CachedProvider) Close() error { return p.backend.Close() }

// cacheKey scopes hashes by model so switching models never serves stale
// vectors.
func (p *CachedProvider) cacheKey(text string) string {
	return p.backend.Model() + ":" + types.HashText(text)
}

// Embed satisfies provider.EmbeddingProvider with caching applied.
func (p *CachedProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	res, err := p.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, err
	}
	return res.Embeddings, nil
}

// EmbedBatch embeds texts through the cache and reports the model and
// dimensionality alongside the vectors.
func (p *CachedProvider) EmbedBatch(ctx context.Context, texts []string) (*Result, error) {
	out := &Result{
		Embeddings: make([][]float32, len(texts)),
		Model:      p.backend.Model(),
		Dimensions: p.backend.Dimensions(),
	}
	if len(texts) == 0 {
		return out, nil
	}

	// Partition into cached and uncached, remembering original positions.
	var uncached []string
	var uncachedIdx []int
	for i, text := range texts {
		if vec, ok := p.cache.Get(ctx, p.cacheKey(text)); ok {
			out.Embeddings[i] = vec
			p.hits.Add(1)
			metrics.CacheHits.Inc()
			continue
		}
		p.misses.Add(1)
		metrics.CacheMisses.Inc()
		uncached = append(uncached, text)
		uncachedIdx = append(uncachedIdx, i)
	}

	if len(uncached) > 0 {
		computed, err := p.backend.Embed(ctx, uncached)
		if err != nil {
			return nil, err
		}
		for j, vec := range computed {
			i := uncachedIdx[j]
			out.Embeddings[i] = vec
			p.cache.Set(ctx, p.cacheKey(uncached[j]), vec)
		}
	}

	if out.Dimensions == 0 && len(out.Embeddings) > 0 {
		out.Dimensions = len(out.Embeddings[0])
	}
	return out, nil
}

// Stats returns cache size and hit/miss counters.
func (p *CachedProvider) Stats(ctx context.Context) Stats {
	return Stats{
		Backend: p.cache.Name(),
		Size:    p.cache.Len(ctx),
		Hits:    p.hits.Load(),
		Misses:  p.misses.Load(),
	}
}

// Clear drops all cached entries. Counters are kept.
func (p *CachedProvider) Clear(ctx context.Context) {
	p.cache.Clear(ctx)
}

// Ensure CachedProvider satisfies the provider contract.
var _ provider.EmbeddingProvider = (*CachedProvider)(nil)
