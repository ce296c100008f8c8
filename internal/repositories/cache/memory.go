package cache

import (
	"context"
	"sync"
	"time"

	"github.com/goccy/go-json"
)

type memoryEntry struct {
	data      []byte
	expiresAt time.Time
}

// MemoryCache is an in-process Store used when redis is not configured.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	ttl     time.Duration
	now     func() time.Time
}

var _ Store = (*MemoryCache)(nil)

func NewMemoryCache(defaultTTL time.Duration) *MemoryCache {
	return &MemoryCache{
		entries: make(map[string]memoryEntry),
		ttl:     defaultTTL,
		now:     time.Now,
	}
}

func (c *MemoryCache) Get(_ context.Context, key string, dest interface{}) (bool, error) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return false, nil
	}
	if !e.expiresAt.IsZero() && c.now().After(e.expiresAt) {
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()
		return false, nil
	}
	if err := json.Unmarshal(e.data, dest); err != nil {
		return false, err
	}
	return true, nil
}

func (c *MemoryCache) Set(_ context.Context, key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	e := memoryEntry{data: data}
	if c.ttl > 0 {
		e.expiresAt = c.now().Add(c.ttl)
	}
	c.mu.Lock()
	c.entries[key] = e
	c.mu.Unlock()
	return nil
}

func (c *MemoryCache) Delete(_ context.Context, keys ...string) error {
	c.mu.Lock()
	for _, k := range keys {
		delete(c.entries, k)
	}
	c.mu.Unlock()
	return nil
}
