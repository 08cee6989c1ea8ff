package batch

import (
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chroniclehq/chronicle/internal/store"
)

type fakeMarker struct{ known []string }

func (m *fakeMarker) MarkKnown(path string) { m.known = append(m.known, path) }

func writeTestPNG(t *testing.T, path string) {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, 8, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			img.SetGray(x, y, color.Gray{Y: 100})
		}
	}
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
}

func openTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRunProcessesResidualAndMarksAllKnown(t *testing.T) {
	dir := t.TempDir()
	p1 := filepath.Join(dir, "a.png")
	p2 := filepath.Join(dir, "b.png")
	writeTestPNG(t, p1)
	writeTestPNG(t, p2)

	st := openTestStore(t)
	marker := &fakeMarker{}

	var processed []string
	var progresses []Progress

	coord := &Coordinator{
		Dirs:   []string{dir},
		Store:  st,
		Marker: marker,
		Process: func(_ context.Context, path string, createdAtMs int64) {
			processed = append(processed, path)
			_, err := st.Upsert(path, "some long enough sample text", createdAtMs)
			require.NoError(t, err)
		},
		OnProgress: func(p Progress) { progresses = append(progresses, p) },
	}

	require.NoError(t, coord.Run(context.Background()))

	assert.ElementsMatch(t, []string{p1, p2}, processed)
	assert.ElementsMatch(t, []string{p1, p2}, marker.known)

	require.NotEmpty(t, progresses)
	first := progresses[0]
	assert.True(t, first.InProgress)
	assert.Equal(t, 0, first.Completed)

	last := progresses[len(progresses)-1]
	assert.False(t, last.InProgress)
	assert.Equal(t, 100.0, last.Percent)
}

func TestRunSkipsAlreadyIndexedBySecond(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.png")
	writeTestPNG(t, path)

	st := openTestStore(t)
	createdAtMs, err := os.Stat(path)
	require.NoError(t, err)
	ms := createdAtMs.ModTime().UnixMilli()

	_, err = st.Upsert("/some/previous/path.png", "already indexed text content", ms)
	require.NoError(t, err)

	marker := &fakeMarker{}
	var processed []string
	coord := &Coordinator{
		Dirs:   []string{dir},
		Store:  st,
		Marker: marker,
		Process: func(_ context.Context, p string, _ int64) {
			processed = append(processed, p)
		},
		OnProgress: func(Progress) {},
	}

	require.NoError(t, coord.Run(context.Background()))
	assert.Empty(t, processed, "file whose rounded creation second is already indexed must be skipped")
	assert.Contains(t, marker.known, path, "skipped files must still be marked known")
}

func TestRunEmitsTerminalMessageWithNothingToProcess(t *testing.T) {
	st := openTestStore(t)
	marker := &fakeMarker{}

	var progresses []Progress
	coord := &Coordinator{
		Dirs:       []string{t.TempDir()},
		Store:      st,
		Marker:     marker,
		Process:    func(context.Context, string, int64) {},
		OnProgress: func(p Progress) { progresses = append(progresses, p) },
	}

	require.NoError(t, coord.Run(context.Background()))
	require.Len(t, progresses, 2)
	assert.True(t, progresses[0].InProgress)
	assert.False(t, progresses[1].InProgress)
	assert.Equal(t, 0, progresses[1].Total)
}

func TestRunSkipsMissingDirectory(t *testing.T) {
	st := openTestStore(t)
	marker := &fakeMarker{}
	coord := &Coordinator{
		Dirs:       []string{filepath.Join(t.TempDir(), "nonexistent")},
		Store:      st,
		Marker:     marker,
		Process:    func(context.Context, string, int64) {},
		OnProgress: func(Progress) {},
	}
	assert.NoError(t, coord.Run(context.Background()))
}
