package watch

import (
	"sync"
	"time"
)

// knownSet is the set of paths the coordinator already considers either
// processed, in progress, or a pre-existing non-candidate (GLOSSARY). It is
// populated by the batch coordinator at startup and by the rename stage,
// and consulted by the watcher's event handler.
type knownSet struct {
	mu    sync.Mutex
	paths map[string]struct{}
}

func newKnownSet() *knownSet {
	return &knownSet{paths: make(map[string]struct{})}
}

func (s *knownSet) Add(path string) {
	s.mu.Lock()
	s.paths[path] = struct{}{}
	s.mu.Unlock()
}

func (s *knownSet) Contains(path string) bool {
	s.mu.Lock()
	_, ok := s.paths[path]
	s.mu.Unlock()
	return ok
}

// ignoreSet is the set of paths the pipeline itself just wrote, retained for
// a short TTL (GLOSSARY: Ignore TTL, 5s) to suppress the Create event on a
// rename target.
type ignoreSet struct {
	mu        sync.Mutex
	writtenAt map[string]time.Time
	ttl       time.Duration
}

func newIgnoreSet(ttl time.Duration) *ignoreSet {
	return &ignoreSet{writtenAt: make(map[string]time.Time), ttl: ttl}
}

func (s *ignoreSet) Add(path string) {
	s.mu.Lock()
	s.writtenAt[path] = time.Now()
	s.mu.Unlock()
}

// Contains reports whether path was added within the TTL window. A stale
// entry is evicted on read.
func (s *ignoreSet) Contains(path string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.writtenAt[path]
	if !ok {
		return false
	}
	if time.Since(t) > s.ttl {
		delete(s.writtenAt, path)
		return false
	}
	return true
}

// debounceMap holds the scheduled-timestamp per path used to collapse
// repeated events on the same path to a single pipeline run (§4.1 step 5).
type debounceMap struct {
	mu        sync.Mutex
	scheduled map[string]time.Time
}

func newDebounceMap() *debounceMap {
	return &debounceMap{scheduled: make(map[string]time.Time)}
}

// Schedule records now as the scheduled timestamp for path.
func (d *debounceMap) Schedule(path string, now time.Time) {
	d.mu.Lock()
	d.scheduled[path] = now
	d.mu.Unlock()
}

// StillCurrent reports whether now is still the scheduled timestamp for
// path, i.e. no newer event has superseded this one.
func (d *debounceMap) StillCurrent(path string, now time.Time) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	t, ok := d.scheduled[path]
	return ok && t.Equal(now)
}
