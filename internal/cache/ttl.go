package cache

import (
	"sync"
	"time"
)

// TTLStore is a thread-safe key -> (value, deadline) store. A zero TTL means
// entries never expire (static reference data cached for process lifetime).
// When maxSize is exceeded the oldest stored entry is evicted first.
type TTLStore[T any] struct {
	mu      sync.Mutex
	maxSize int
	ttl     time.Duration
	items   map[string]*entry[T]
	now     func() time.Time // test hook
}

type entry[T any] struct {
	data      T
	expiresAt time.Time // zero for non-expiring entries
	storedAt  time.Time
}

func NewTTLStore[T any](maxSize int, ttl time.Duration) *TTLStore[T] {
	return &TTLStore[T]{
		maxSize: maxSize,
		ttl:     ttl,
		items:   make(map[string]*entry[T]),
		now:     time.Now,
	}
}

func (c *TTLStore[T]) Get(key string) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero T
	e, ok := c.items[key]
	if !ok {
		return zero, false
	}
	if !e.expiresAt.IsZero() && c.now().After(e.expiresAt) {
		delete(c.items, key)
		return zero, false
	}
	return e.data, true
}

func (c *TTLStore[T]) Set(key string, data T) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	e := &entry[T]{data: data, storedAt: now}
	if c.ttl > 0 {
		e.expiresAt = now.Add(c.ttl)
	}
	c.items[key] = e

	if c.maxSize > 0 && len(c.items) > c.maxSize {
		c.evictOldest()
	}
}

func (c *TTLStore[T]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, key)
}

func (c *TTLStore[T]) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// CleanExpired removes all expired entries and reports how many went.
func (c *TTLStore[T]) CleanExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for key, e := range c.items {
		if !e.expiresAt.IsZero() && now.After(e.expiresAt) {
			delete(c.items, key)
			removed++
		}
	}
	return removed
}

// evictOldest is called with the lock held.
func (c *TTLStore[T]) evictOldest() {
	var oldestKey string
	var oldest time.Time
	first := true
	for key, e := range c.items {
		if first || e.storedAt.Before(oldest) {
			oldestKey, oldest = key, e.storedAt
			first = false
		}
	}
	if !first {
		delete(c.items, oldestKey)
	}
}
