// Package cache provides a generic in-memory TTL cache.
//
// Expiry is checked when an entry is read: expired entries read as misses but
// stay in the map until overwritten or deleted. Every write stores a new
// immutable item, so readers never observe a value paired with another
// write's expiry.
package cache

import (
	"context"
	"sync"
	"time"
)

// Clock returns the current time.
type Clock func() time.Time

type item[V any] struct {
	value     V
	expiresAt time.Time
}

// Cache is a concurrency-safe TTL cache.
type Cache[K comparable, V any] struct {
	mu    sync.RWMutex
	items map[K]*item[V]
	ttl   time.Duration
	now   Clock
}

// Option configures a Cache.
type Option func(*options)

type options struct {
	clock Clock
}

// WithClock overrides the time source.
func WithClock(clock Clock) Option {
	return func(o *options) {
		o.clock = clock
	}
}

// New creates a cache whose Set uses ttl.
func New[K comparable, V any](ttl time.Duration, opts ...Option) *Cache[K, V] {
	o := options{clock: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return &Cache[K, V]{
		items: make(map[K]*item[V]),
		ttl:   ttl,
		now:   o.clock,
	}
}

// Get returns the value for key if present and not expired.
func (c *Cache[K, V]) Get(_ context.Context, key K) (V, bool) {
	c.mu.RLock()
	it, ok := c.items[key]
	c.mu.RUnlock()

	if !ok || !c.now().Before(it.expiresAt) {
		var zero V
		return zero, false
	}
	return it.value, true
}

// Set stores value with the default TTL and returns its expiry.
func (c *Cache[K, V]) Set(ctx context.Context, key K, value V) time.Time {
	expiresAt := c.now().Add(c.ttl)
	c.SetWithExpiry(ctx, key, value, expiresAt)
	return expiresAt
}

// SetWithExpiry stores value with an explicit expiry.
func (c *Cache[K, V]) SetWithExpiry(_ context.Context, key K, value V, expiresAt time.Time) {
	it := &item[V]{value: value, expiresAt: expiresAt}

	c.mu.Lock()
	c.items[key] = it
	c.mu.Unlock()
}

// Delete removes key.
func (c *Cache[K, V]) Delete(_ context.Context, key K) {
	c.mu.Lock()
	delete(c.items, key)
	c.mu.Unlock()
}

// Len returns the number of stored entries, expired ones included.
func (c *Cache[K, V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Range calls fn for every non-expired entry until fn returns false.
func (c *Cache[K, V]) Range(fn func(key K, value V, expiresAt time.Time) bool) {
	now := c.now()

	c.mu.RLock()
	snapshot := make(map[K]*item[V], len(c.items))
	for k, it := range c.items {
		if now.Before(it.expiresAt) {
			snapshot[k] = it
		}
	}
	c.mu.RUnlock()

	for k, it := range snapshot {
		if !fn(k, it.value, it.expiresAt) {
			return
		}
	}
}

// TTL returns the default entry lifetime.
func (c *Cache[K, V]) TTL() time.Duration {
	return c.ttl
}

// Now returns the cache's current time.
func (c *Cache[K, V]) Now() time.Time {
	return c.now()
}
