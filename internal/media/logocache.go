package media

import (
	"sync"
	"time"
)

// ByteCache is the injectable cache used for watermark logo bytes. The
// in-memory implementation below is per-process; a multi-instance deployment
// can swap in a shared cache without touching the transform pipeline.
type ByteCache interface {
	Get(key string) ([]byte, bool)
	Set(key string, data []byte)
}

type ttlEntry struct {
	data      []byte
	fetchedAt time.Time
}

// TTLCache is a mutex-guarded map with per-entry expiry. Expired entries are
// dropped on read; refetching after expiry is idempotent and harmless.
type TTLCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]ttlEntry
}

func NewTTLCache(ttl time.Duration) *TTLCache {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &TTLCache{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]ttlEntry),
	}
}

func (c *TTLCache) Get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if c.now().Sub(entry.fetchedAt) > c.ttl {
		delete(c.entries, key)
		return nil, false
	}
	return entry.data, true
}

func (c *TTLCache) Set(key string, data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = ttlEntry{data: data, fetchedAt: c.now()}
}

var _ ByteCache = (*TTLCache)(nil)
