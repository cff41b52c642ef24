package embedding

import (
	"context"
	"errors"
	"testing"

	stubEmbed "github.com/optiprofile/ranker/builtin/embedding/stub"
)

// countingProvider wraps the stub and counts backend calls.
type countingProvider struct {
	*stubEmbed.Provider
	calls int
	texts int
}

func (c *countingProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	c.calls++
	c.texts += len(texts)
	return c.Provider.Embed(ctx, texts)
}

func newCounting() *countingProvider {
	return &countingProvider{Provider: stubEmbed.New(stubEmbed.Config{})}
}

func TestCachedProviderDeterminism(t *testing.T) {
	ctx := context.Background()
	p := NewCachedProvider(newCounting(), nil)

	first, err := p.Embed(ctx, []string{"profile headline"})
	if err != nil {
		t.Fatalf("Embed failed: %v", err)
	}
	second, err := p.Embed(ctx, []string{"profile headline"})
	if err != nil {
		t.Fatalf("Embed failed: %v", err)
	}

	if len(first[0]) != len(second[0]) {
		t.Fatalf("dimensions differ: %d vs %d", len(first[0]), len(second[0]))
	}
	for i := range first[0] {
		if first[0][i] != second[0][i] {
			t.Fatalf("vectors differ at %d: %v vs %v", i, first[0][i], second[0][i])
		}
	}
}

func TestCachedProviderPartitionsBatch(t *testing.T) {
	ctx := context.Background()
	backend := newCounting()
	p := NewCachedProvider(backend, nil)

	if _, err := p.Embed(ctx, []string{"alpha", "beta"}); err != nil {
		t.Fatalf("Embed failed: %v", err)
	}
	if backend.texts != 2 {
		t.Fatalf("backend embedded %d texts, want 2", backend.texts)
	}

	// Second batch overlaps; only the new text reaches the backend.
	res, err := p.EmbedBatch(ctx, []string{"beta", "gamma", "alpha"})
	if err != nil {
		t.Fatalf("EmbedBatch failed: %v", err)
	}
	if backend.texts != 3 {
		t.Errorf("backend embedded %d texts total, want 3 (only the uncached one)", backend.texts)
	}
	if len(res.Embeddings) != 3 {
		t.Fatalf("got %d embeddings, want 3", len(res.Embeddings))
	}

	// Results come back in input order: beta and alpha must equal their
	// original vectors.
	direct, _ := stubEmbed.New(stubEmbed.Config{}).Embed(ctx, []string{"beta", "gamma", "alpha"})
	for i := range direct {
		for j := range direct[i] {
			if res.Embeddings[i][j] != direct[i][j] {
				t.Fatalf("embedding %d differs from direct computation", i)
			}
		}
	}

	if res.Model != "stub-sha256" {
		t.Errorf("Model = %q, want stub-sha256", res.Model)
	}
	if res.Dimensions != stubEmbed.DefaultDimensions {
		t.Errorf("Dimensions = %d, want %d", res.Dimensions, stubEmbed.DefaultDimensions)
	}
}

func TestCachedProviderStats(t *testing.T) {
	ctx := context.Background()
	p := NewCachedProvider(newCounting(), nil)

	if _, err := p.Embed(ctx, []string{"a", "b"}); err != nil {
		t.Fatal(err)
	}
	if _, err := p.Embed(ctx, []string{"a", "c"}); err != nil {
		t.Fatal(err)
	}

	stats := p.Stats(ctx)
	if stats.Hits != 1 {
		t.Errorf("Hits = %d, want 1", stats.Hits)
	}
	if stats.Misses != 3 {
		t.Errorf("Misses = %d, want 3", stats.Misses)
	}
	if stats.Size != 3 {
		t.Errorf("Size = %d, want 3", stats.Size)
	}
	if stats.Backend != "memory" {
		t.Errorf("Backend = %q, want memory", stats.Backend)
	}

	p.Clear(ctx)
	if got := p.Stats(ctx).Size; got != 0 {
		t.Errorf("Size after Clear = %d, want 0", got)
	}
}

type failingProvider struct{ *stubEmbed.Provider }

var errBackendDown = errors.New("backend down")

func (f *failingProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	return nil, errBackendDown
}

func TestCachedProviderPropagatesBackendError(t *testing.T) {
	ctx := context.Background()
	p := NewCachedProvider(&failingProvider{stubEmbed.New(stubEmbed.Config{})}, nil)

	if _, err := p.Embed(ctx, []string{"x"}); !errors.Is(err, errBackendDown) {
		t.Errorf("Embed error = %v, want backend error", err)
	}
}

func TestMemoryCacheEviction(t *testing.T) {
	ctx := context.Background()
	cache := NewMemoryCache(2)

	cache.Set(ctx, "k1", []float32{1})
	cache.Set(ctx, "k2", []float32{2})
	cache.Set(ctx, "k3", []float32{3})

	if got := cache.Len(ctx); got != 2 {
		t.Errorf("Len = %d, want 2 after eviction", got)
	}
	if _, ok := cache.Get(ctx, "k3"); !ok {
		t.Error("most recent entry was evicted")
	}
}
