package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chroniclehq/chronicle/internal/store"
)

func TestNewEntryCacheDefaultsBound(t *testing.T) {
	c, err := NewEntryCache(0)
	require.NoError(t, err)
	assert.NotNil(t, c)
}

func TestPutAndGet(t *testing.T) {
	c, err := NewEntryCache(10)
	require.NoError(t, err)

	e := &store.Entry{Path: "/a.png", Text: "hello"}
	c.Put(e)

	got, ok := c.Get("/a.png")
	require.True(t, ok)
	assert.Equal(t, "hello", got.Text)
}

func TestGetMissing(t *testing.T) {
	c, err := NewEntryCache(10)
	require.NoError(t, err)

	_, ok := c.Get("/missing.png")
	assert.False(t, ok)
}

func TestRemove(t *testing.T) {
	c, err := NewEntryCache(10)
	require.NoError(t, err)

	c.Put(&store.Entry{Path: "/a.png", Text: "hello"})
	c.Remove("/a.png")

	_, ok := c.Get("/a.png")
	assert.False(t, ok)
}

func TestRemoveMissingIsNoop(t *testing.T) {
	c, err := NewEntryCache(10)
	require.NoError(t, err)
	assert.NotPanics(t, func() { c.Remove("/never-existed.png") })
}

func TestPutNilIsNoop(t *testing.T) {
	c, err := NewEntryCache(10)
	require.NoError(t, err)
	c.Put(nil)
	assert.Equal(t, 0, c.Len())
}

func TestWarmPopulatesFromSlice(t *testing.T) {
	c, err := NewEntryCache(10)
	require.NoError(t, err)

	c.Warm([]*store.Entry{
		{Path: "/a.png", Text: "a"},
		{Path: "/b.png", Text: "b"},
	})

	assert.Equal(t, 2, c.Len())
	_, ok := c.Get("/b.png")
	assert.True(t, ok)
}

func TestLenReflectsEviction(t *testing.T) {
	c, err := NewEntryCache(1)
	require.NoError(t, err)

	c.Put(&store.Entry{Path: "/a.png"})
	c.Put(&store.Entry{Path: "/b.png"})

	assert.Equal(t, 1, c.Len())
	_, ok := c.Get("/a.png")
	assert.False(t, ok, "oldest entry should have been evicted under bound 1")
}

func TestStartReconcilerStopsOnContextCancel(t *testing.T) {
	c, err := NewEntryCache(10)
	require.NoError(t, err)

	dir := t.TempDir()
	st, err := store.Open(dir + "/test.db")
	require.NoError(t, err)
	defer st.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := c.StartReconciler(ctx, st)
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("reconciler did not stop after context cancellation")
	}
}
