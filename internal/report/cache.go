package report

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/extrememax/expo-feria/internal/snapshot"
	"github.com/extrememax/expo-feria/internal/store"
)

// Cache serves the registry view of one store, reloading it only when the
// store's version stamp changes.
type Cache struct {
	store store.RowStore
	cache *snapshot.Cache[*View]
}

// NewCache returns a cache over s.
func NewCache(s store.RowStore) *Cache {
	return &Cache{store: s, cache: snapshot.New[*View]()}
}

// View returns the current view. Callers must not modify it.
func (c *Cache) View(ctx context.Context) (*View, error) {
	version, err := c.store.Version(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "report: version")
	}
	return c.cache.Get(ctx, c.store.Location(), version, func(ctx context.Context) (*View, error) {
		return LoadAll(ctx, c.store)
	})
}

// Invalidate drops the cached view.
func (c *Cache) Invalidate() {
	c.cache.InvalidateAll()
}
