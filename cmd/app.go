package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/extrememax/expo-feria/internal/config"
	"github.com/extrememax/expo-feria/internal/intake"
	"github.com/extrememax/expo-feria/internal/location"
	"github.com/extrememax/expo-feria/internal/report"
	"github.com/extrememax/expo-feria/internal/snapshot"
	"github.com/extrememax/expo-feria/internal/store"
	"github.com/extrememax/expo-feria/internal/workbook"
)

// appEnv holds the store and the services built on it, shared by the
// serve/report/export commands.
type appEnv struct {
	Store     store.RowStore
	Workbook  *store.WorkbookStore // nil unless the xlsx driver is used
	Intake    *intake.Service
	Locations *location.Cache
	Reports   *report.Cache
	watcher   *snapshot.Watcher
}

// Close stops the file watcher and releases the store.
func (e *appEnv) Close() {
	if e.watcher != nil {
		e.watcher.Stop()
	}
	if e.Store != nil {
		_ = e.Store.Close()
	}
}

// initApp validates config for mode, opens the store, brings its schema up
// to date and wires the caches to be dropped after every write. Callers
// should defer env.Close().
func initApp(ctx context.Context, c *config.Config, mode string) (*appEnv, error) {
	if err := c.Validate(mode); err != nil {
		return nil, err
	}

	st, err := openStore(ctx, c)
	if err != nil {
		return nil, err
	}
	if err := ensureSchema(ctx, st); err != nil {
		_ = st.Close()
		return nil, err
	}

	env := &appEnv{
		Store:     st,
		Intake:    intake.NewService(st, c.Intake.Stands),
		Locations: location.NewCache(st),
		Reports:   report.NewCache(st),
	}
	env.Workbook, _ = st.(*store.WorkbookStore)

	invalidate := func() {
		env.Locations.Invalidate()
		env.Reports.Invalidate()
	}
	env.Intake.OnWrite(invalidate)

	if env.Workbook != nil && c.Workbook.Watch && mode == "serve" {
		w, err := snapshot.NewWatcher(env.Workbook.Location(), 300*time.Millisecond, invalidate)
		if err != nil {
			env.Close()
			return nil, err
		}
		if err := w.Start(ctx); err != nil {
			w.Stop()
			env.Close()
			return nil, err
		}
		env.watcher = w
	}

	return env, nil
}

// openStore builds the row store for the configured driver, creating the
// directory of a file-backed store. SQL stores are migrated before they are
// returned.
func openStore(ctx context.Context, c *config.Config) (store.RowStore, error) {
	switch c.Store.Driver {
	case "xlsx":
		if err := os.MkdirAll(c.Workbook.Dir, 0o755); err != nil {
			return nil, eris.Wrap(err, "create workbook dir")
		}
		acc := workbook.New(c.Workbook.Options(), nil)
		return store.NewWorkbook(acc, c.Workbook.Path()), nil

	case "sqlite":
		if err := os.MkdirAll(filepath.Dir(c.Store.SQLitePath), 0o755); err != nil {
			return nil, eris.Wrap(err, "create sqlite dir")
		}
		st, err := store.NewSQLite(c.Store.SQLitePath, nil)
		if err != nil {
			return nil, err
		}
		if err := st.Migrate(ctx); err != nil {
			_ = st.Close()
			return nil, eris.Wrap(err, "migrate store")
		}
		return st, nil

	case "postgres":
		st, err := store.NewPostgres(ctx, c.Store.DatabaseURL, &store.PoolConfig{
			MaxConns: c.Store.MaxConns,
			MinConns: c.Store.MinConns,
		}, nil)
		if err != nil {
			return nil, err
		}
		if err := st.Migrate(ctx); err != nil {
			_ = st.Close()
			return nil, eris.Wrap(err, "migrate store")
		}
		return st, nil

	default:
		return nil, eris.Errorf("unsupported store driver: %s", c.Store.Driver)
	}
}

// ensureSchema adds missing sheets and headers. A locked workbook at startup
// is only logged; writes retry and fall back on their own.
func ensureSchema(ctx context.Context, st store.RowStore) error {
	changed, err := st.EnsureSchema(ctx)
	if err != nil {
		if errors.Is(err, workbook.ErrLocked) {
			zap.L().Warn("workbook locked, schema check skipped", zap.String("location", st.Location()), zap.Error(err))
			return nil
		}
		return eris.Wrap(err, "ensure schema")
	}
	zap.L().Info("schema checked", zap.String("location", st.Location()), zap.Bool("changed", changed))
	return nil
}
