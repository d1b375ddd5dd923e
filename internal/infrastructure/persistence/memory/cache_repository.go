// Package memory provides in-process cache and state store implementations
package memory

import (
	"container/list"
	"context"
	"sync"
	"time"

	"github.com/tablewise/server/internal/ports/outbound"
)

const (
	defaultMaxEntries = 1024
	defaultTTL        = 24 * time.Hour
)

type cacheEntry struct {
	key       string
	value     []byte
	expiresAt time.Time
}

// CacheRepository is a bounded LRU cache with per-entry expiry
type CacheRepository struct {
	mu         sync.Mutex
	entries    map[string]*list.Element
	order      *list.List
	maxEntries int
	now        func() time.Time
}

// NewCacheRepository creates a cache holding at most maxEntries values.
// A non-positive size falls back to a default.
func NewCacheRepository(maxEntries int) *CacheRepository {
	if maxEntries <= 0 {
		maxEntries = defaultMaxEntries
	}
	return &CacheRepository{
		entries:    make(map[string]*list.Element),
		order:      list.New(),
		maxEntries: maxEntries,
		now:        time.Now,
	}
}

var _ outbound.CacheRepository = (*CacheRepository)(nil)

// Get retrieves a value or outbound.ErrCacheMiss
func (c *CacheRepository) Get(_ context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[key]
	if !ok {
		return nil, outbound.ErrCacheMiss
	}
	entry := el.Value.(*cacheEntry)
	if c.now().After(entry.expiresAt) {
		c.remove(el)
		return nil, outbound.ErrCacheMiss
	}
	c.order.MoveToFront(el)
	return append([]byte(nil), entry.value...), nil
}

// Set stores a value. A zero TTL keeps it for a day.
func (c *CacheRepository) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = defaultTTL
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	entry := &cacheEntry{key: key, value: append([]byte(nil), value...), expiresAt: c.now().Add(ttl)}
	if el, ok := c.entries[key]; ok {
		el.Value = entry
		c.order.MoveToFront(el)
		return nil
	}

	c.entries[key] = c.order.PushFront(entry)
	for c.order.Len() > c.maxEntries {
		c.remove(c.order.Back())
	}
	return nil
}

// Delete removes a key from cache
func (c *CacheRepository) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.entries[key]; ok {
		c.remove(el)
	}
	return nil
}

// Exists reports whether an unexpired value is stored under key
func (c *CacheRepository) Exists(_ context.Context, key string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[key]
	if !ok {
		return false, nil
	}
	return !c.now().After(el.Value.(*cacheEntry).expiresAt), nil
}

// Len returns the number of stored entries, expired ones included
func (c *CacheRepository) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// Sweep drops expired entries and returns how many were removed
func (c *CacheRepository) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for el := c.order.Back(); el != nil; {
		prev := el.Prev()
		if now.After(el.Value.(*cacheEntry).expiresAt) {
			c.remove(el)
			removed++
		}
		el = prev
	}
	return removed
}

// Run sweeps expired entries every interval until ctx is done
func (c *CacheRepository) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.Sweep()
		}
	}
}

func (c *CacheRepository) remove(el *list.Element) {
	c.order.Remove(el)
	delete(c.entries, el.Value.(*cacheEntry).key)
}
