package main

import (
	"sync"
	"time"
)

// Cache is a read-through cache for the list queries. Entries expire after
// a fixed TTL and carry a tag; every mutation drops the tag's entries
// before the handler reports success, so staleness beyond the TTL only
// happens if a writer crashes mid-request.
type Cache interface {
	Get(key string) (interface{}, bool)
	Set(key, tag string, value interface{})
	Invalidate(tag string)
}

const (
	cacheTagLinks = "links"
	cacheTagIcons = "icons"
)

type cacheEntry struct {
	value   interface{}
	tag     string
	expires time.Time
}

type memoryCache struct {
	ttl     time.Duration
	mu      sync.RWMutex
	entries map[string]cacheEntry
}

func newMemoryCache(ttl time.Duration) *memoryCache {
	return &memoryCache{
		ttl:     ttl,
		entries: map[string]cacheEntry{},
	}
}

func (c *memoryCache) Get(key string) (interface{}, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok || time.Now().After(e.expires) {
		return nil, false
	}

	return e.value, true
}

func (c *memoryCache) Set(key, tag string, value interface{}) {
	c.mu.Lock()
	c.entries[key] = cacheEntry{
		value:   value,
		tag:     tag,
		expires: time.Now().Add(c.ttl),
	}
	c.mu.Unlock()
}

func (c *memoryCache) Invalidate(tag string) {
	c.mu.Lock()
	for key, e := range c.entries {
		if e.tag == tag {
			delete(c.entries, key)
		}
	}
	c.mu.Unlock()
}
