package automap

import (
	"sync"
)

type cacheKey struct {
	table   string
	version string
}

// Cache keeps the schema walk of one base table for one schema version.
// It is owned by a mapping session; a walk for another base table or
// schema version replaces the cached one.
type Cache struct {
	mu      sync.Mutex
	key     cacheKey
	targets []target
	hits    int
}

// NewCache creates an empty cache.
func NewCache() *Cache {
	return &Cache{}
}

// Invalidate drops the cached walk.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.key, c.targets, c.hits = cacheKey{}, nil, 0
}

// Table returns the base table of the cached walk, or "" when empty.
func (c *Cache) Table() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.targets == nil {
		return ""
	}

	return c.key.table
}

// Hits returns how many lookups were served from the cache since it was
// last filled.
func (c *Cache) Hits() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.hits
}

// get returns the cached walk for key.
func (c *Cache) get(key cacheKey) ([]target, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.targets == nil || c.key != key {
		return nil, false
	}

	c.hits++

	return c.targets, true
}

// getOrFill returns the cached walk for key, computing and storing it when
// the cache holds another key.
func (c *Cache) getOrFill(key cacheKey, fill func() []target) []target {
	if targets, ok := c.get(key); ok {
		return targets
	}

	targets := fill()
	if targets == nil {
		targets = []target{}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.key, c.targets, c.hits = key, targets, 0

	return targets
}
