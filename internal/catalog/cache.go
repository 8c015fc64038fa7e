package catalog

import (
	"sync"
	"time"

	"github.com/ayafuji/melodine/internal/structures"
)

// resultCache is a time-boxed memoization of search responses keyed by
// query+entity. Entries expire after the TTL; expired entries are dropped
// lazily on lookup.
type resultCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]cacheEntry
}

type cacheEntry struct {
	tracks  []structures.Track
	fetched time.Time
}

func newResultCache(ttl time.Duration) *resultCache {
	return &resultCache{
		ttl:     ttl,
		entries: make(map[string]cacheEntry),
	}
}

func (c *resultCache) get(key string) ([]structures.Track, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return nil, false
	}

	if time.Since(entry.fetched) > c.ttl {
		delete(c.entries, key)
		return nil, false
	}

	return entry.tracks, true
}

func (c *resultCache) set(key string, tracks []structures.Track) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = cacheEntry{tracks: tracks, fetched: time.Now()}
}
