package host

import (
	"bufio"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBroadcasterDeliversToSubscriber(t *testing.T) {
	b := NewBroadcaster()
	ch, unsub := b.Subscribe()
	defer unsub()

	b.Publish(Event{Name: "ocr-status", Data: `{"status":"idle"}`})

	select {
	case evt := <-ch:
		assert.Equal(t, "ocr-status", evt.Name)
	case <-time.After(time.Second):
		t.Fatal("event never delivered")
	}
}

func TestBroadcasterDropsForUnsubscribed(t *testing.T) {
	b := NewBroadcaster()
	ch, unsub := b.Subscribe()
	unsub()

	b.Publish(Event{Name: "ocr-status"})
	_, ok := <-ch
	assert.False(t, ok, "channel should be closed after unsubscribe")
}

func TestBroadcasterDoesNotBlockOnFullSubscriber(t *testing.T) {
	b := NewBroadcaster()
	_, unsub := b.Subscribe()
	defer unsub()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			b.Publish(Event{Name: "batch-progress"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked on a slow subscriber")
	}
}

func TestHandleEventsStreamsPublishedEvents(t *testing.T) {
	b := NewBroadcaster()
	deps := &Deps{Broadcaster: b}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rec := httptest.NewRecorder()
	flushRec := &flushRecorder{ResponseRecorder: rec}
	req := httptest.NewRequest(http.MethodGet, "/events", nil).WithContext(ctx)

	go deps.handleEvents(flushRec, req)

	// Give the handler a moment to subscribe before publishing.
	time.Sleep(20 * time.Millisecond)
	b.Publish(Event{Name: "ocr-status", Data: `{"status":"processing"}`})
	time.Sleep(20 * time.Millisecond)
	cancel()
	time.Sleep(20 * time.Millisecond)

	scanner := bufio.NewScanner(strings.NewReader(rec.Body.String()))
	var sawEvent, sawData bool
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "event: ocr-status") {
			sawEvent = true
		}
		if strings.HasPrefix(line, "data: ") {
			sawData = true
		}
	}
	assert.True(t, sawEvent)
	assert.True(t, sawData)
}

// flushRecorder adapts httptest.ResponseRecorder to satisfy http.Flusher,
// since the real server relies on flushing to push SSE data immediately.
type flushRecorder struct {
	*httptest.ResponseRecorder
}

func (f *flushRecorder) Flush() {}

func TestSSEWriterWritesEventAndDataLines(t *testing.T) {
	rec := httptest.NewRecorder()
	w := newSSEWriter(&flushRecorder{ResponseRecorder: rec})
	require.NoError(t, w.writeEvent(Event{Name: "batch-progress", Data: "line1\nline2"}))

	out := rec.Body.String()
	assert.Contains(t, out, "event: batch-progress\n")
	assert.Contains(t, out, "data: line1\n")
	assert.Contains(t, out, "data: line2\n")
	assert.True(t, strings.HasSuffix(out, "\n\n"))
}
