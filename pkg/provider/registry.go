package provider

import (
	"fmt"
	"sync"
)

// EmbeddingFactory creates an EmbeddingProvider from configuration.
type EmbeddingFactory func(config EmbeddingConfig) (EmbeddingProvider, error)

// Registry holds factories for pluggable provider types.
type Registry struct {
	mu sync.RWMutex

	embeddingFactories map[string]EmbeddingFactory
}

// NewRegistry creates a new empty registry.
func NewRegistry() *Registry {
	return &Registry{
		embeddingFactories: make(map[string]EmbeddingFactory),
	}
}

// RegisterEmbedding registers an embedding provider factory.
func (r *Registry) RegisterEmbedding(name string, factory EmbeddingFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.embeddingFactories[name] = factory
}

// CreateEmbedding creates an embedding provider by name.
func (r *Registry) CreateEmbedding(name string, config EmbeddingConfig) (EmbeddingProvider, error) {
	r.mu.RLock()
	factory, ok := r.embeddingFactories[name]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("unknown embedding provider: %s (available: %v)", name, r.ListEmbeddings())
	}
	return factory(config)
}

// ListEmbeddings returns all registered embedding provider names.
func (r *Registry) ListEmbeddings() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.embeddingFactories))
	for name := range r.embeddingFactories {
		names = append(names, name)
	}
	return names
}

// Default is the process-wide registry that built-in providers register
// themselves with.
var Default = NewRegistry()

// RegisterEmbedding registers an embedding factory with the default
// registry.
func RegisterEmbedding(name string, factory EmbeddingFactory) {
	Default.RegisterEmbedding(name, factory)
}

// CreateEmbedding creates an embedding provider from the default registry.
func CreateEmbedding(name string, config EmbeddingConfig) (EmbeddingProvider, error) {
	return Default.CreateEmbedding(name, config)
}
