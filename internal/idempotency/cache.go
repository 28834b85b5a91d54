// Package idempotency replays responses for retried writes that carry an
// Idempotency-Key header, so a resubmitted "add key" does not register the
// same key twice.
package idempotency

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Entry is a captured HTTP response.
type Entry struct {
	Body       []byte
	StatusCode int
	Header     map[string]string
}

// Cache is a TTL-bounded, size-limited response cache. Expired entries are
// dropped by the underlying LRU; the least recently used entry is evicted
// when full.
type Cache struct {
	lru *expirable.LRU[string, Entry]
}

// New creates a Cache holding at most maxEntries for ttl each.
func New(ttl time.Duration, maxEntries int) *Cache {
	return &Cache{lru: expirable.NewLRU[string, Entry](maxEntries, nil, ttl)}
}

// Get returns the cached entry for key, if present and unexpired.
func (c *Cache) Get(key string) (Entry, bool) {
	return c.lru.Get(key)
}

// Set stores e under key.
func (c *Cache) Set(key string, e Entry) {
	c.lru.Add(key, e)
}

// Len returns the number of live entries.
func (c *Cache) Len() int {
	return c.lru.Len()
}
