// Package snapshot caches values derived from the store, keyed by the
// store's version stamp so a changed file is never served stale.
package snapshot

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"
)

type entry[T any] struct {
	version string
	value   T
}

// Cache holds one value per key, valid while the version it was built for
// is current. Concurrent misses for the same key and version share a
// single load.
type Cache[T any] struct {
	mu      sync.RWMutex
	entries map[string]entry[T]
	group   singleflight.Group
}

// New returns an empty cache.
func New[T any]() *Cache[T] {
	return &Cache[T]{entries: make(map[string]entry[T])}
}

// Get returns the value cached for key at version, calling load on a miss
// or when the cached version differs. Failed loads are not cached.
func (c *Cache[T]) Get(ctx context.Context, key, version string, load func(context.Context) (T, error)) (T, error) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if ok && e.version == version {
		return e.value, nil
	}

	v, err, _ := c.group.Do(key+"\x00"+version, func() (any, error) {
		val, err := load(ctx)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.entries[key] = entry[T]{version: version, value: val}
		c.mu.Unlock()
		return val, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return v.(T), nil
}

// Invalidate drops the entry for key.
func (c *Cache[T]) Invalidate(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

// InvalidateAll drops every entry.
func (c *Cache[T]) InvalidateAll() {
	c.mu.Lock()
	clear(c.entries)
	c.mu.Unlock()
}

// Len returns the number of cached entries.
func (c *Cache[T]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
