package lookup

import (
	"sync"
)

// Cache key -> string store yang dipakai Lookup. Implementasi: MemoryCache & kv.KVDB.
type Cache interface {
	Get(key string) (string, bool, error)
	Put(key, value string) error
}

type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]string
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		entries: make(map[string]string),
	}
}

func (c *MemoryCache) Get(key string) (string, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	val, ok := c.entries[key]
	return val, ok, nil
}

func (c *MemoryCache) Put(key, value string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = value
	return nil
}
