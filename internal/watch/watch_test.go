package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestWatcher(t *testing.T, dir string, onReady func(ctx context.Context, path string, createdAtMs int64)) *Watcher {
	t.Helper()
	w, err := New(Config{
		Dirs:                  []string{dir},
		DebounceWindow:        20 * time.Millisecond,
		IgnoreTTL:             time.Second,
		StabilizationPolls:    5,
		StabilizationInterval: 5 * time.Millisecond,
		OnReady:               onReady,
	})
	require.NoError(t, err)
	t.Cleanup(func() { w.Close() })
	return w
}

func TestResolveDirsSkipsMissing(t *testing.T) {
	home := t.TempDir()
	existing := filepath.Join(home, "Desktop")
	require.NoError(t, os.Mkdir(existing, 0o755))

	dirs := resolveDirs(home, []string{"Desktop", "Nonexistent"})
	assert.Equal(t, []string{existing}, dirs)
}

func TestResolveDirsAbsolutePassthrough(t *testing.T) {
	abs := t.TempDir()
	dirs := resolveDirs(t.TempDir(), []string{abs})
	assert.Equal(t, []string{abs}, dirs)
}

func TestNewWithEmptyDirsDisablesWatcher(t *testing.T) {
	home := t.TempDir()
	w, err := New(Config{Dirs: []string{filepath.Join(home, "does-not-exist")}})
	require.NoError(t, err)
	defer w.Close()

	assert.Empty(t, w.Dirs())
	assert.NoError(t, w.Start(context.Background()))
}

func TestWatcherFiresOnReadyForNewPNG(t *testing.T) {
	dir := t.TempDir()

	var mu sync.Mutex
	var gotPath string
	done := make(chan struct{}, 1)

	w := newTestWatcher(t, dir, func(_ context.Context, path string, _ int64) {
		mu.Lock()
		gotPath = path
		mu.Unlock()
		done <- struct{}{}
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, w.Start(ctx))

	path := filepath.Join(dir, "shot.png")
	require.NoError(t, os.WriteFile(path, []byte("content"), 0o644))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("OnReady was never called")
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, path, gotPath)
}

func TestWatcherIgnoresNonPNG(t *testing.T) {
	dir := t.TempDir()
	called := make(chan struct{}, 1)
	w := newTestWatcher(t, dir, func(context.Context, string, int64) { called <- struct{}{} })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, w.Start(ctx))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))

	select {
	case <-called:
		t.Fatal("OnReady should not fire for a non-PNG file")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestWatcherSkipsKnownPaths(t *testing.T) {
	dir := t.TempDir()
	called := make(chan struct{}, 1)
	w := newTestWatcher(t, dir, func(context.Context, string, int64) { called <- struct{}{} })

	path := filepath.Join(dir, "shot.png")
	w.MarkKnown(path)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, w.Start(ctx))

	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	select {
	case <-called:
		t.Fatal("OnReady should not fire for a known path")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestWatcherSkipsIgnoredPaths(t *testing.T) {
	dir := t.TempDir()
	called := make(chan struct{}, 1)
	w := newTestWatcher(t, dir, func(context.Context, string, int64) { called <- struct{}{} })

	path := filepath.Join(dir, "shot.png")
	w.MarkIgnored(path)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, w.Start(ctx))

	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	select {
	case <-called:
		t.Fatal("OnReady should not fire for an ignored path")
	case <-time.After(100 * time.Millisecond):
	}
}
