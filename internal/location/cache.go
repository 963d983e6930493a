package location

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/extrememax/expo-feria/internal/model"
	"github.com/extrememax/expo-feria/internal/snapshot"
	"github.com/extrememax/expo-feria/internal/store"
)

// Cache serves the location index of one store, rebuilding it only when the
// store's version stamp changes.
type Cache struct {
	store store.RowStore
	cache *snapshot.Cache[*Index]
}

// NewCache returns a cache over s.
func NewCache(s store.RowStore) *Cache {
	return &Cache{store: s, cache: snapshot.New[*Index]()}
}

// Index returns the current index.
func (c *Cache) Index(ctx context.Context) (*Index, error) {
	version, err := c.store.Version(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "location: version")
	}
	return c.cache.Get(ctx, c.store.Location(), version, func(ctx context.Context) (*Index, error) {
		tbl, err := c.store.ScanRows(ctx, model.SheetLocations)
		if err != nil {
			return nil, eris.Wrap(err, "location: scan")
		}
		idx := Build(tbl.Header, tbl.Rows)
		zap.L().Debug("location index rebuilt",
			zap.String("location", c.store.Location()),
			zap.String("version", version),
			zap.Int("rows", len(tbl.Rows)),
			zap.Int("provinces", len(idx.tree)),
		)
		return idx, nil
	})
}

// Invalidate drops the cached index.
func (c *Cache) Invalidate() {
	c.cache.InvalidateAll()
}
