package study

import (
	"context"
	"sync"
	"time"
)

type cacheEntry struct {
	outcome   *Outcome
	expiresAt time.Time
}

// Cache keeps recent outcomes in memory so the API can serve them by ID.
// A nil *Cache is valid and stores nothing.
type Cache struct {
	mu    sync.RWMutex
	store map[string]*cacheEntry
	ttl   time.Duration
	now   func() time.Time
}

// NewCache returns a cache whose entries live for ttl (default 1 hour).
func NewCache(ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Cache{store: make(map[string]*cacheEntry), ttl: ttl, now: time.Now}
}

// Get retrieves an outcome if available and not expired
func (c *Cache) Get(id string) (*Outcome, bool) {
	if c == nil {
		return nil, false
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, exists := c.store[id]
	if !exists || c.now().After(entry.expiresAt) {
		return nil, false
	}
	return entry.outcome, true
}

// Set stores an outcome under its ID
func (c *Cache) Set(o *Outcome) {
	if c == nil || o == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.store[o.ID] = &cacheEntry{outcome: o, expiresAt: c.now().Add(c.ttl)}
}

func (c *Cache) Len() int {
	if c == nil {
		return 0
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.store)
}

// Clear removes all entries from the cache
func (c *Cache) Clear() {
	if c == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.store = make(map[string]*cacheEntry)
}

// Prune removes expired entries and returns how many were dropped.
func (c *Cache) Prune() int {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	n := 0
	for id, entry := range c.store {
		if now.After(entry.expiresAt) {
			delete(c.store, id)
			n++
		}
	}
	return n
}

// Run prunes expired entries every interval until ctx is done.
func (c *Cache) Run(ctx context.Context, interval time.Duration) {
	if c == nil {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.Prune()
		}
	}
}
