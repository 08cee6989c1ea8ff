package host

import (
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/chroniclehq/chronicle/internal/cache"
	"github.com/chroniclehq/chronicle/internal/store"
)

// Deps are the collaborators the host handlers need: the index, the
// entry cache evicted alongside it on delete, and the resolved watch
// directories deletion requests must stay inside.
type Deps struct {
	Store       *store.Store
	Cache       *cache.EntryCache
	WatchDirs   []string
	Broadcaster *Broadcaster
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("host: write json response")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// entryResponse is the load_all_entries shape of §6.
type entryResponse struct {
	Path   string   `json:"path"`
	Text   string   `json:"text"`
	At     int64    `json:"at"`
	Tags   []string `json:"tags,omitempty"`
	URLs   []string `json:"urls,omitempty"`
	Emails []string `json:"emails,omitempty"`
}

func toEntryResponse(e *store.Entry) entryResponse {
	return entryResponse{
		Path: e.Path, Text: e.Text, At: e.CreatedAt,
		Tags: e.Tags, URLs: e.URLs, Emails: e.Emails,
	}
}

// handleLoadAllEntries services GET load_all_entries: every indexed row,
// newest first (already the store's native order).
func (d *Deps) handleLoadAllEntries(w http.ResponseWriter, r *http.Request) {
	entries, err := d.Store.ListAll()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	out := make([]entryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, toEntryResponse(e))
	}
	writeJSON(w, http.StatusOK, out)
}

// deleteFilesRequest is the delete_files input, per §6.
type deleteFilesRequest struct {
	Paths []string `json:"paths"`
}

type deleteFilesResponse struct {
	Deleted []string `json:"deleted"`
	Failed  []string `json:"failed"`
}

// UnderWatchDir reports whether path canonicalizes inside one of dirs.
func UnderWatchDir(path string, dirs []string) bool {
	abs, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	abs = filepath.Clean(abs)
	for _, dir := range dirs {
		dirAbs, err := filepath.Abs(dir)
		if err != nil {
			continue
		}
		dirAbs = filepath.Clean(dirAbs)
		if abs == dirAbs || strings.HasPrefix(abs, dirAbs+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

// handleDeleteFiles services POST delete_files: removes the row and the
// on-disk file for every path that canonicalizes inside a watch directory;
// anything outside, or that fails to delete, goes to failed rather than
// aborting the whole batch.
func (d *Deps) handleDeleteFiles(w http.ResponseWriter, r *http.Request) {
	var req deleteFilesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "host: invalid request body")
		return
	}

	resp := deleteFilesResponse{Deleted: []string{}, Failed: []string{}}
	for _, path := range req.Paths {
		if !UnderWatchDir(path, d.WatchDirs) {
			resp.Failed = append(resp.Failed, path)
			continue
		}
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			log.Warn().Err(err).Str("path", path).Msg("host: delete_files: could not remove file")
			resp.Failed = append(resp.Failed, path)
			continue
		}
		if err := d.Store.DeleteByPath(path); err != nil {
			log.Warn().Err(err).Str("path", path).Msg("host: delete_files: could not delete row")
			resp.Failed = append(resp.Failed, path)
			continue
		}
		if d.Cache != nil {
			d.Cache.Remove(path)
		}
		resp.Deleted = append(resp.Deleted, path)
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleFindSimilar services GET find_similar_screenshots?threshold=N.
func (d *Deps) handleFindSimilar(w http.ResponseWriter, r *http.Request) {
	threshold := 0
	if raw := r.URL.Query().Get("threshold"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "host: invalid threshold")
			return
		}
		threshold = parsed
	}
	groups, err := d.Store.FindSimilar(threshold)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, groups)
}

// handleReprocessTags services POST reprocess_all_tags.
func (d *Deps) handleReprocessTags(w http.ResponseWriter, r *http.Request) {
	count, err := d.Store.ReprocessTags()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"count": count})
}

// handleComputeMissingHashes services POST compute_missing_hashes.
// Per-file failures are logged, not raised, per §6.
func (d *Deps) handleComputeMissingHashes(w http.ResponseWriter, r *http.Request) {
	count, err := d.Store.ComputeMissingHashes(func(path string, err error) {
		log.Warn().Err(err).Str("path", path).Msg("host: compute_missing_hashes: skipping file")
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"count": count})
}

// handleCopyToClipboard and handleOpenQuickSearch are the plain command
// entry points §1/§6 require the core to expose; the clipboard side-channel
// and window creation are the desktop shell's job, not this package's.
func (d *Deps) handleCopyToClipboard(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusNotImplemented, "host: copy_image_to_clipboard is provided by the desktop shell")
}

func (d *Deps) handleOpenQuickSearch(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusNotImplemented, "host: open_quick_search is provided by the desktop shell")
}

// handleEvents services GET /events: a long-lived SSE stream of ocr-status
// and batch-progress pushes.
func (d *Deps) handleEvents(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	if d.Broadcaster == nil {
		writeError(w, http.StatusServiceUnavailable, "host: event stream unavailable")
		return
	}

	ch, unsub := d.Broadcaster.Subscribe()
	defer unsub()

	sse := newSSEWriter(w)
	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-ch:
			if !ok {
				return
			}
			if err := sse.writeEvent(evt); err != nil {
				log.Debug().Err(err).Msg("host: sse client disconnected")
				return
			}
		}
	}
}
