// Package cache provides a bounded in-memory LRU of indexed entries, keyed
// by path. The daemon fills it on every upsert and re-warms it from SQLite
// on a timer, and the host's delete operation evicts from it; the host's
// query operations read SQLite directly and do not consult it.
package cache

import (
	"context"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog/log"

	"github.com/chroniclehq/chronicle/internal/store"
)

// EntryCache is a bounded LRU cache of store.Entry values keyed by path. It
// is invalidated explicitly on Put/Remove by the daemon whenever the
// underlying store changes; it never expires entries on a timer, since
// entries only change when the user's filesystem changes.
type EntryCache struct {
	entries *lru.Cache[string, *store.Entry]
}

// NewEntryCache creates an EntryCache bounded to maxEntries. maxEntries <= 0
// defaults to 2000.
func NewEntryCache(maxEntries int) (*EntryCache, error) {
	if maxEntries <= 0 {
		maxEntries = 2000
	}
	c, err := lru.New[string, *store.Entry](maxEntries)
	if err != nil {
		return nil, err
	}
	return &EntryCache{entries: c}, nil
}

// Get returns the cached entry for path, if present.
func (c *EntryCache) Get(path string) (*store.Entry, bool) {
	return c.entries.Get(path)
}

// Put inserts or refreshes the cached entry for path.
func (c *EntryCache) Put(entry *store.Entry) {
	if entry == nil {
		return
	}
	c.entries.Add(entry.Path, entry)
}

// Remove evicts path from the cache, if present. A no-op if absent.
func (c *EntryCache) Remove(path string) {
	c.entries.Remove(path)
}

// Len returns the number of entries currently cached.
func (c *EntryCache) Len() int {
	return c.entries.Len()
}

// Warm populates the cache from a full store listing, oldest-evicted-first
// under the LRU's own bound. Called once at daemon startup after the batch
// reconciliation pass completes.
func (c *EntryCache) Warm(entries []*store.Entry) {
	for _, e := range entries {
		c.Put(e)
	}
}

// StartReconciler periodically re-warms the cache from the store of record,
// self-healing any drift between the cache and SQLite (e.g. a row changed by
// a concurrent `reprocess_all_tags` command-line invocation while the daemon
// was running). Runs every 5 minutes until ctx is cancelled. The returned
// channel is closed when the goroutine exits.
func (c *EntryCache) StartReconciler(ctx context.Context, st *store.Store) <-chan struct{} {
	done := make(chan struct{})
	ticker := time.NewTicker(5 * time.Minute)
	go func() {
		defer close(done)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				func() {
					defer func() {
						if r := recover(); r != nil {
							log.Error().Interface("panic", r).Msg("cache reconciler: recovered from panic")
						}
					}()
					c.reconcile(st)
				}()
			}
		}
	}()
	return done
}

func (c *EntryCache) reconcile(st *store.Store) {
	entries, err := st.ListAll()
	if err != nil {
		log.Error().Err(err).Msg("cache reconciler: list all failed")
		return
	}
	c.Warm(entries)
}
