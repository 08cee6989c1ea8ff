// Package batch implements the BatchCoordinator: on startup it enumerates
// existing screenshots, reconciles them against the index by rounded
// creation time, feeds the residual through the pipeline serially, and
// emits progress telemetry, per spec.md §4.10.
package batch

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/chroniclehq/chronicle/internal/pathguard"
	"github.com/chroniclehq/chronicle/internal/store"
)

// Progress is the shape emitted after each processed item, per §4.10.
type Progress struct {
	Total      int     `json:"total"`
	Completed  int     `json:"completed"`
	Percent    float64 `json:"percent"`
	ETASeconds float64 `json:"eta_seconds"`
	InProgress bool    `json:"in_progress"`
}

// Marker is the subset of watch.Watcher the coordinator needs: seeding the
// known set before the watcher starts listening.
type Marker interface {
	MarkKnown(path string)
}

// Coordinator drives the startup reconciliation pass.
type Coordinator struct {
	Dirs    []string
	Store   *store.Store
	Marker  Marker
	Process func(ctx context.Context, path string, createdAtMs int64)
	OnProgress func(Progress)
}

// Run enumerates PNGs under Dirs, reconciles against the store by
// rounded-to-second creation time, seeds the Marker with every on-disk path,
// and processes the residual serially, reporting Progress after each item.
// It always emits at least a start and a terminal Progress message, per
// §4.10, even when there is nothing to process.
func (c *Coordinator) Run(ctx context.Context) error {
	onDisk, err := c.enumerate()
	if err != nil {
		return err
	}

	alreadyIndexed, err := c.alreadyIndexedSeconds()
	if err != nil {
		return err
	}

	var residual []string
	for _, path := range onDisk {
		c.Marker.MarkKnown(path)

		createdAtMs, err := pathguard.CreatedAtMillis(path)
		if err != nil {
			log.Warn().Err(err).Str("path", path).Msg("batch: could not read creation time, skipping")
			continue
		}

		rounded := (createdAtMs / 1000) * 1000
		if alreadyIndexed[rounded] {
			continue
		}
		residual = append(residual, path)
	}

	total := len(residual)
	c.emit(Progress{Total: total, Completed: 0, Percent: 0, InProgress: true})

	var elapsed time.Duration
	for i, path := range residual {
		start := time.Now()

		createdAtMs, err := pathguard.CreatedAtMillis(path)
		if err != nil {
			log.Warn().Err(err).Str("path", path).Msg("batch: could not read creation time during processing, skipping")
		} else {
			c.Process(ctx, path, createdAtMs)
		}

		elapsed += time.Since(start)
		completed := i + 1
		meanElapsed := elapsed.Seconds() / float64(completed)
		remaining := total - completed

		c.emit(Progress{
			Total:      total,
			Completed:  completed,
			Percent:    float64(completed) / float64(total) * 100,
			ETASeconds: meanElapsed * float64(remaining),
			InProgress: completed < total,
		})
	}

	if total == 0 {
		c.emit(Progress{Total: 0, Completed: 0, Percent: 100, InProgress: false})
	}

	return nil
}

// enumerate lists every PNG candidate directly under each of Dirs
// (non-recursive, per §4.1).
func (c *Coordinator) enumerate() ([]string, error) {
	var out []string
	for _, dir := range c.Dirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			log.Warn().Err(err).Str("dir", dir).Msg("batch: could not read watch directory")
			continue
		}
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			path := filepath.Join(dir, e.Name())
			if pathguard.IsCandidate(path) {
				out = append(out, path)
			}
		}
	}
	return out, nil
}

// alreadyIndexedSeconds builds the §4.10 reconciliation set: every indexed
// row's created_at, rounded down to the nearest second and re-expressed in
// milliseconds.
func (c *Coordinator) alreadyIndexedSeconds() (map[int64]bool, error) {
	entries, err := c.Store.ListAll()
	if err != nil {
		return nil, err
	}
	set := make(map[int64]bool, len(entries))
	for _, e := range entries {
		set[(e.CreatedAt/1000)*1000] = true
	}
	return set, nil
}

func (c *Coordinator) emit(p Progress) {
	if c.OnProgress != nil {
		c.OnProgress(p)
	}
}
