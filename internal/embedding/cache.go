// Package embedding wraps an EmbeddingProvider with a content-hash cache.
// Cache entries are keyed by model name plus a stable hash of the input
// text, so changed content always misses; entries are never invalidated
// in place.
package embedding

import (
	"context"
	"sync"
	"time"
)

// Cache is the storage behind CachedProvider. Implementations must be
// safe for concurrent use; last-writer-wins on a key collision is
// acceptable, corruption is not.
type Cache interface {
	// Name returns the backend name (for logs and status output).
	Name() string

	// Get returns the cached vector for key, if present.
	Get(ctx context.Context, key string) ([]float32, bool)

	// Set stores the vector under key.
	Set(ctx context.Context, key string, vec []float32)

	// Len returns the number of cached entries.
	Len(ctx context.Context) int

	// Clear drops all entries.
	Clear(ctx context.Context)
}

// memoryCache is the default in-process backend: unbounded unless a max
// size is configured, in which case the least recently used entry is
// evicted on insert.
type memoryCache struct {
	mu      sync.RWMutex
	entries map[string]*memoryEntry
	maxSize int // 0 = unbounded
}

type memoryEntry struct {
	vec      []float32
	accessed time.Time
}

// NewMemoryCache creates an in-process cache. maxSize 0 means unbounded.
func NewMemoryCache(maxSize int) Cache {
	return &memoryCache{
		entries: make(map[string]*memoryEntry),
		maxSize: maxSize,
	}
}

func (c *memoryCache) Name() string { return "memory" }

func (c *memoryCache) Get(ctx context.Context, key string) ([]float32, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	entry.accessed = time.Now()
	return entry.vec, true
}

func (c *memoryCache) Set(ctx context.Context, key string, vec []float32) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.maxSize > 0 && len(c.entries) >= c.maxSize {
		if _, exists := c.entries[key]; !exists {
			c.evictOldest()
		}
	}
	c.entries[key] = &memoryEntry{vec: vec, accessed: time.Now()}
}

// evictOldest removes the least recently accessed entry. Caller holds the
// lock.
func (c *memoryCache) evictOldest() {
	var oldestKey string
	var oldestTime time.Time
	first := true

	for key, entry := range c.entries {
		if first || entry.accessed.Before(oldestTime) {
			oldestKey = key
			oldestTime = entry.accessed
			first = false
		}
	}
	if !first {
		delete(c.entries, oldestKey)
	}
}

func (c *memoryCache) Len(ctx context.Context) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *memoryCache) Clear(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*memoryEntry)
}
