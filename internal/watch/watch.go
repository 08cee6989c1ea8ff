// Package watch implements the filesystem Watcher+Debouncer: it
// subscribes to non-recursive fsnotify events in a fixed set of
// directories, filters and debounces them per spec.md §4.1, and invokes a
// callback once a candidate PNG has stabilised on disk.
package watch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"

	"github.com/chroniclehq/chronicle/internal/pathguard"
)

// Config controls the watcher's timing and the callback invoked once a
// candidate file has stabilised.
type Config struct {
	Dirs                  []string
	DebounceWindow        time.Duration
	IgnoreTTL             time.Duration
	StabilizationPolls    int
	StabilizationInterval time.Duration

	// OnReady is invoked once per stabilised candidate, off the watcher's
	// event-loop goroutine. createdAtMs is captured before any rename.
	OnReady func(ctx context.Context, path string, createdAtMs int64)
}

// Watcher subscribes to filesystem events in Config.Dirs, non-recursively,
// and dispatches stabilised PNG candidates to Config.OnReady.
type Watcher struct {
	cfg Config
	fsw *fsnotify.Watcher
	dirs []string

	known    *knownSet
	ignore   *ignoreSet
	debounce *debounceMap

	wg        sync.WaitGroup
	closeOnce sync.Once
	done      chan struct{}
}

// New resolves Config.Dirs against the user's home directory (relative
// entries are joined with $HOME; missing directories are skipped with a
// log line, per §4.1) and constructs a Watcher. If the resolved directory
// list is empty, New still returns a Watcher, but Start is a no-op — the
// watcher is disabled, per §4.1's "an empty resolved list disables the
// watcher".
func New(cfg Config) (*Watcher, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("watch: resolving home directory: %w", err)
	}

	dirs := resolveDirs(home, cfg.Dirs)

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch: creating fsnotify watcher: %w", err)
	}

	return &Watcher{
		cfg:      cfg,
		fsw:      fsw,
		dirs:     dirs,
		known:    newKnownSet(),
		ignore:   newIgnoreSet(cfg.IgnoreTTL),
		debounce: newDebounceMap(),
		done:     make(chan struct{}),
	}, nil
}

// resolveDirs joins relative entries with home, skips missing directories
// with a log line, and returns the surviving absolute paths.
func resolveDirs(home string, dirs []string) []string {
	var out []string
	for _, d := range dirs {
		abs := d
		if !filepath.IsAbs(d) {
			abs = filepath.Join(home, d)
		}
		info, err := os.Stat(abs)
		if err != nil || !info.IsDir() {
			log.Warn().Str("dir", abs).Msg("watch: directory missing, skipping")
			continue
		}
		out = append(out, abs)
	}
	return out
}

// Dirs returns the resolved, existing watch directories.
func (w *Watcher) Dirs() []string {
	return w.dirs
}

// MarkKnown adds path to the known set, suppressing future events on it.
// Used by the batch coordinator to seed pre-existing files and by the
// rename stage to suppress the feedback loop (§4.1, §4.11).
func (w *Watcher) MarkKnown(path string) {
	w.known.Add(path)
}

// MarkIgnored adds path to the TTL-bounded ignore set. Used by the rename
// stage alongside MarkKnown, per §4.11's "add both names to both sets
// before issuing the rename".
func (w *Watcher) MarkIgnored(path string) {
	w.ignore.Add(path)
}

// Start adds the resolved directories to the fsnotify watcher and begins
// the event loop in a background goroutine. If no directories resolved,
// Start logs that the watcher is disabled and returns nil without starting
// a loop.
func (w *Watcher) Start(ctx context.Context) error {
	if len(w.dirs) == 0 {
		log.Warn().Msg("watch: no watch directories resolved, watcher disabled")
		return nil
	}

	for _, dir := range w.dirs {
		if err := w.fsw.Add(dir); err != nil {
			return fmt.Errorf("watch: watching %s: %w", dir, err)
		}
	}

	w.wg.Add(1)
	go w.loop(ctx)
	return nil
}

// Close stops the event loop and releases the fsnotify watcher.
func (w *Watcher) Close() error {
	w.closeOnce.Do(func() { close(w.done) })
	err := w.fsw.Close()
	w.wg.Wait()
	return err
}

func (w *Watcher) loop(ctx context.Context) {
	defer w.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handleEvent(ctx, event)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			log.Error().Err(err).Msg("watch: fsnotify error")
		}
	}
}

// handleEvent applies the §4.1 filter chain and, for a surviving event,
// schedules a debounced check.
func (w *Watcher) handleEvent(ctx context.Context, event fsnotify.Event) {
	path := event.Name

	if event.Op&fsnotify.Remove != 0 {
		// A rename-away hint: a later Create on the same path is a
		// self-induced event from our own rename, not a new screenshot.
		w.known.Add(path)
		return
	}

	if event.Op&fsnotify.Create == 0 && event.Op&fsnotify.Write == 0 {
		return
	}

	if !pathguard.IsCandidate(path) {
		return
	}

	if w.ignore.Contains(path) {
		return
	}

	if w.known.Contains(path) {
		return
	}

	now := time.Now()
	w.debounce.Schedule(path, now)

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		timer := time.NewTimer(w.cfg.DebounceWindow)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return
		case <-timer.C:
		}
		w.checkDebounced(ctx, path, now)
	}()
}

func (w *Watcher) checkDebounced(ctx context.Context, path string, scheduledAt time.Time) {
	if !w.debounce.StillCurrent(path, scheduledAt) {
		return // a newer event has superseded this one
	}

	if err := waitForFile(path, w.cfg.StabilizationPolls, w.cfg.StabilizationInterval); err != nil {
		log.Warn().Err(err).Str("path", path).Msg("watch: file never stabilised, skipping")
		return
	}

	createdAtMs, err := pathguard.CreatedAtMillis(path)
	if err != nil {
		log.Warn().Err(err).Str("path", path).Msg("watch: could not read creation time, skipping")
		return
	}

	if w.cfg.OnReady != nil {
		w.cfg.OnReady(ctx, path, createdAtMs)
	}
}
