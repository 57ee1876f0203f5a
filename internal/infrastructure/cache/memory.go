package cache

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/cartgenie/backend/internal/domain"
)

const defaultCleanupInterval = 10 * time.Minute

// entry is a single cached value with its expiry
type entry struct {
	value     interface{}
	expiresAt time.Time
}

func (e entry) expired(now time.Time) bool {
	return now.After(e.expiresAt)
}

// MemoryCache is a process-local domain.CacheRepository with TTL support.
// Values go through a JSON round trip on Set so that readers see the same
// shapes (maps, []interface{}, float64) as with RedisCache.
type MemoryCache struct {
	data map[string]entry
	mu   sync.RWMutex
	stop chan struct{}
	once sync.Once
}

// NewMemoryCache creates a cache that evicts expired entries every ten minutes
func NewMemoryCache() *MemoryCache {
	return NewMemoryCacheWithInterval(defaultCleanupInterval)
}

// NewMemoryCacheWithInterval creates a cache with a custom eviction interval
func NewMemoryCacheWithInterval(interval time.Duration) *MemoryCache {
	if interval <= 0 {
		interval = defaultCleanupInterval
	}
	c := &MemoryCache{
		data: make(map[string]entry),
		stop: make(chan struct{}),
	}
	go c.evictLoop(interval)
	return c
}

// Get retrieves a value from the cache
func (c *MemoryCache) Get(ctx context.Context, key string) (interface{}, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.data[key]
	if !ok || e.expired(time.Now()) {
		return nil, domain.ErrCacheMiss
	}
	return e.value, nil
}

// Set stores a value in the cache with TTL
func (c *MemoryCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	var stored interface{}
	if err := json.Unmarshal(raw, &stored); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = entry{value: stored, expiresAt: time.Now().Add(ttl)}
	return nil
}

// Delete removes a value from the cache
func (c *MemoryCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.data, key)
	return nil
}

// Exists checks if a key exists in the cache and is not expired
func (c *MemoryCache) Exists(ctx context.Context, key string) (bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.data[key]
	return ok && !e.expired(time.Now()), nil
}

// Size returns the number of stored entries, expired ones included until evicted
func (c *MemoryCache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.data)
}

// Clear removes all entries
func (c *MemoryCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data = make(map[string]entry)
}

// Close stops the eviction goroutine. It is safe to call more than once.
func (c *MemoryCache) Close() error {
	c.once.Do(func() { close(c.stop) })
	return nil
}

func (c *MemoryCache) evictLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			c.evictExpired()
		}
	}
}

func (c *MemoryCache) evictExpired() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	for key, e := range c.data {
		if e.expired(now) {
			delete(c.data, key)
		}
	}
}
