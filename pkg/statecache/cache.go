// Package statecache holds page state obtained during one page session.
//
// Entries are keyed by URL with the fragment removed, so "/blog/1#top" and
// "/blog/1" share state. Entries are never evicted individually; Clear drops
// everything, which the router does when the build changes.
package statecache

import (
	"net/url"
	"sync"

	"go.uber.org/atomic"

	"github.com/vango-dev/staticrouter/pkg/routepath"
)

// Cache maps URLs to page state. It is safe for concurrent use.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]any

	hits   atomic.Int64
	misses atomic.Int64
}

// Stats is a point-in-time view of cache usage.
type Stats struct {
	Entries int
	Hits    int64
	Misses  int64
}

// New returns an empty cache.
func New() *Cache {
	return &Cache{entries: make(map[string]any)}
}

// Get returns the state stored for u. A stored nil state still reports ok.
func (c *Cache) Get(u *url.URL) (any, bool) {
	c.mu.RLock()
	state, ok := c.entries[routepath.CacheKey(u)]
	c.mu.RUnlock()
	if ok {
		c.hits.Inc()
	} else {
		c.misses.Inc()
	}
	return state, ok
}

// Has reports whether state is stored for u without touching the stats.
func (c *Cache) Has(u *url.URL) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.entries[routepath.CacheKey(u)]
	return ok
}

// Set stores state for u, replacing any previous value.
func (c *Cache) Set(u *url.URL, state any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[routepath.CacheKey(u)] = state
}

// Clear drops every entry.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]any)
}

// Len returns the number of entries.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Stats returns hit and miss counts.
func (c *Cache) Stats() Stats {
	return Stats{Entries: c.Len(), Hits: c.hits.Load(), Misses: c.misses.Load()}
}
