package iptv

import (
	"sync"
	"time"
)

// CacheTTL is how long a rendered EPG document is reused before
// regeneration (spec.md §6).
const CacheTTL = 5 * time.Minute

// cacheKey is (channel_count, hours, base_url), spec.md §6's cache key.
type cacheKey struct {
	channelCount int
	hours        int
	baseURL      string
}

type cacheEntry struct {
	data      []byte
	expiresAt time.Time
}

// Cache memoizes rendered XMLTV documents keyed by (channel_count, hours,
// base_url).
type Cache struct {
	mu      sync.Mutex
	entries map[cacheKey]cacheEntry
}

func NewCache() *Cache {
	return &Cache{entries: make(map[cacheKey]cacheEntry)}
}

// Get returns the cached document for the key if still fresh at now.
func (c *Cache) Get(channelCount, hours int, baseURL string, now time.Time) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[cacheKey{channelCount, hours, baseURL}]
	if !ok || now.After(e.expiresAt) {
		return nil, false
	}
	return e.data, true
}

// Set stores data under the key with a fresh CacheTTL window starting at now.
func (c *Cache) Set(channelCount, hours int, baseURL string, data []byte, now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[cacheKey{channelCount, hours, baseURL}] = cacheEntry{data: data, expiresAt: now.Add(CacheTTL)}
}
