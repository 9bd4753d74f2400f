package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lionrepo/internal/logging/loggingtest"
)

func TestWatchDebouncesWrites(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "seed.json")
	require.NoError(t, os.WriteFile(path, []byte("{}"), 0o644))

	var calls atomic.Int32
	w := New(path, func() { calls.Add(1) }).
		WithDebounce(50 * time.Millisecond).
		WithLogger(loggingtest.New(t))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Watch(ctx) }()

	// Give fsnotify time to register the directory.
	time.Sleep(100 * time.Millisecond)
	for i := 0; i < 5; i++ {
		require.NoError(t, os.WriteFile(path, []byte(`{"n":1}`), 0o644))
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.json"), []byte("{}"), 0o644))

	require.Eventually(t, func() bool { return calls.Load() >= 1 }, 2*time.Second, 10*time.Millisecond)
	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, int32(1), calls.Load())

	cancel()
	assert.NoError(t, <-done)
}

func TestWatchMultipleReportsPath(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.yaml")
	b := filepath.Join(dir, "b.yaml")
	require.NoError(t, os.WriteFile(a, nil, 0o644))
	require.NoError(t, os.WriteFile(b, nil, 0o644))

	changed := make(chan string, 4)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go WatchMultiple(ctx, []string{a, b}, 20*time.Millisecond, nil, func(path string) { changed <- path })

	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(b, []byte("x"), 0o644))

	select {
	case path := <-changed:
		assert.Equal(t, b, path)
	case <-time.After(2 * time.Second):
		t.Fatal("no change reported")
	}
}

func TestWatchMissingDirectory(t *testing.T) {
	err := New(filepath.Join(t.TempDir(), "missing", "seed.json"), func() {}).Watch(context.Background())
	assert.Error(t, err)
}
