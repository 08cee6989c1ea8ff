// Package host exposes the host-invokable operations and pushed events of
// §6 over HTTP: a chi router for request/response operations and a
// Server-Sent Events broadcaster for ocr-status/batch-progress pushes.
package host

import (
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
)

// Event is a single Server-Sent Event pushed to subscribed hosts. Name is
// the SSE "event:" line ("ocr-status" or "batch-progress"); Data is the
// already-JSON-encoded payload written as the "data:" line.
type Event struct {
	Name string
	Data string
}

// Broadcaster fans a stream of Events out to every currently-connected SSE
// subscriber. Subscribers that fall behind are dropped rather than allowed
// to block publishers, since these are status pushes, not a queue that must
// be fully delivered.
type Broadcaster struct {
	mu   sync.Mutex
	subs map[chan Event]struct{}
}

// NewBroadcaster returns an empty Broadcaster.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{subs: make(map[chan Event]struct{})}
}

// Subscribe registers a new subscriber and returns its channel plus an
// unsubscribe func the caller must invoke when done.
func (b *Broadcaster) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, 16)
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()

	unsub := func() {
		b.mu.Lock()
		if _, ok := b.subs[ch]; ok {
			delete(b.subs, ch)
			close(ch)
		}
		b.mu.Unlock()
	}
	return ch, unsub
}

// Publish fans evt out to every current subscriber, non-blocking: a full
// subscriber channel drops the event rather than stalling the publisher.
func (b *Broadcaster) Publish(evt Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subs {
		select {
		case ch <- evt:
		default:
			log.Warn().Str("event", evt.Name).Msg("host: dropping event for slow subscriber")
		}
	}
}

// sseWriter writes Server-Sent Events to an http.ResponseWriter, flushing
// after each event so a connected host sees pushes in real time.
type sseWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

func newSSEWriter(w http.ResponseWriter) *sseWriter {
	flusher, _ := w.(http.Flusher)
	return &sseWriter{w: w, flusher: flusher}
}

func (s *sseWriter) writeEvent(evt Event) error {
	if evt.Name != "" {
		if _, err := fmt.Fprintf(s.w, "event: %s\n", evt.Name); err != nil {
			return fmt.Errorf("host: write sse event type: %w", err)
		}
	}
	for _, line := range strings.Split(evt.Data, "\n") {
		if _, err := fmt.Fprintf(s.w, "data: %s\n", line); err != nil {
			return fmt.Errorf("host: write sse data line: %w", err)
		}
	}
	if _, err := fmt.Fprint(s.w, "\n"); err != nil {
		return fmt.Errorf("host: write sse terminator: %w", err)
	}
	if s.flusher != nil {
		s.flusher.Flush()
	}
	return nil
}

// OCRStatusPayload is the data shape of an "ocr-status" event, per §6.
type OCRStatusPayload struct {
	Status    string `json:"status"`
	Path      string `json:"path,omitempty"`
	Error     string `json:"error,omitempty"`
	Text      string `json:"text,omitempty"`
	CreatedAt int64  `json:"created_at,omitempty"`
	Tags      string `json:"tags,omitempty"`
	URLs      string `json:"urls,omitempty"`
	Emails    string `json:"emails,omitempty"`
}
