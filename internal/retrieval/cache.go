package retrieval

import (
	"sync"
	"time"
)

// resultCache is a small TTL cache for scored results, keyed on the
// normalized question. Repeat dashboard queries skip re-scoring.
type resultCache struct {
	mu      sync.Mutex
	entries map[string]cacheEntry
	maxSize int
	ttl     time.Duration
}

type cacheEntry struct {
	hits    []Hit
	expires time.Time
}

func newResultCache(maxSize int, ttl time.Duration) *resultCache {
	return &resultCache{
		entries: make(map[string]cacheEntry),
		maxSize: maxSize,
		ttl:     ttl,
	}
}

func (c *resultCache) get(key string) ([]Hit, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if time.Now().After(e.expires) {
		delete(c.entries, key)
		return nil, false
	}
	return e.hits, true
}

func (c *resultCache) put(key string, hits []Hit) {
	c.mu.Lock()
	defer c.mu.Unlock()

	// Crude eviction: drop everything when full. The cache is tiny and
	// rebuilt in one scoring pass, so LRU bookkeeping isn't worth it.
	if len(c.entries) >= c.maxSize {
		c.entries = make(map[string]cacheEntry)
	}
	c.entries[key] = cacheEntry{hits: hits, expires: time.Now().Add(c.ttl)}
}

// invalidate drops all cached results. Called when the chunk store changes.
func (c *resultCache) invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]cacheEntry)
}

// Invalidate drops the retriever's cached results; call after documents
// are added or removed.
func (r *Retriever) Invalidate() {
	r.cache.invalidate()
}
