package snapshot

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCache_HitAndVersionMiss(t *testing.T) {
	c := New[int]()
	ctx := context.Background()
	loads := 0
	load := func(context.Context) (int, error) {
		loads++
		return loads * 10, nil
	}

	v, err := c.Get(ctx, "book.xlsx", "v1", load)
	require.NoError(t, err)
	assert.Equal(t, 10, v)

	v, err = c.Get(ctx, "book.xlsx", "v1", load)
	require.NoError(t, err)
	assert.Equal(t, 10, v, "same version is served from cache")
	assert.Equal(t, 1, loads)

	v, err = c.Get(ctx, "book.xlsx", "v2", load)
	require.NoError(t, err)
	assert.Equal(t, 20, v, "a new stamp rebuilds")
	assert.Equal(t, 1, c.Len())
}

func TestCache_ErrorsAreNotCached(t *testing.T) {
	c := New[string]()
	ctx := context.Background()

	_, err := c.Get(ctx, "k", "v", func(context.Context) (string, error) {
		return "", errors.New("locked")
	})
	require.Error(t, err)
	assert.Equal(t, 0, c.Len())

	v, err := c.Get(ctx, "k", "v", func(context.Context) (string, error) { return "ok", nil })
	require.NoError(t, err)
	assert.Equal(t, "ok", v)
}

func TestCache_Invalidate(t *testing.T) {
	c := New[int]()
	ctx := context.Background()
	var loads int
	load := func(context.Context) (int, error) { loads++; return loads, nil }

	_, _ = c.Get(ctx, "a", "v", load)
	_, _ = c.Get(ctx, "b", "v", load)
	c.Invalidate("a")
	assert.Equal(t, 1, c.Len())

	v, _ := c.Get(ctx, "a", "v", load)
	assert.Equal(t, 3, v)

	c.InvalidateAll()
	assert.Equal(t, 0, c.Len())
}

func TestCache_ConcurrentMissesShareOneLoad(t *testing.T) {
	c := New[int]()
	var loads atomic.Int32
	release := make(chan struct{})

	var wg sync.WaitGroup
	results := make([]int, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := c.Get(context.Background(), "k", "v1", func(context.Context) (int, error) {
				loads.Add(1)
				<-release
				return 7, nil
			})
			assert.NoError(t, err)
			results[i] = v
		}(i)
	}

	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), loads.Load())
	for _, v := range results {
		assert.Equal(t, 7, v)
	}
}

func TestWatcher_FiresOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "book.xlsx")
	require.NoError(t, os.WriteFile(path, []byte("v1"), 0o644))

	fired := make(chan struct{}, 4)
	w, err := NewWatcher(path, 20*time.Millisecond, func() { fired <- struct{}{} })
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, w.Start(ctx))
	defer w.Stop()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.txt"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(path, []byte("v2"), 0o644))
	require.NoError(t, os.WriteFile(path, []byte("v3"), 0o644))

	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not fire")
	}
}

func TestWatcher_StopWithoutStart(t *testing.T) {
	w, err := NewWatcher(filepath.Join(t.TempDir(), "book.xlsx"), 0, func() {})
	require.NoError(t, err)
	w.Stop()
}
