package ocr

import (
	"context"
	"errors"
	"runtime"
	"testing"

	"github.com/otiai10/gosseract/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPSMLadderOrderMatchesSpec(t *testing.T) {
	want := []gosseract.PageSegMode{4, 11, 6, 3, 7, 13}
	got := make([]gosseract.PageSegMode, len(psmLadder))
	for i, m := range psmLadder {
		got[i] = m
	}
	assert.Equal(t, want, got)
}

func TestCandidatePaths(t *testing.T) {
	assert.Equal(t, []string{"a.png"}, candidatePaths("a.png", ""))
	assert.Equal(t, []string{"a.png", "b.png"}, candidatePaths("a.png", "b.png"))
}

func TestPlatformVisionUnavailableOnNonDarwin(t *testing.T) {
	if runtime.GOOS == "darwin" {
		t.Skip("only meaningful on non-darwin platforms")
	}
	v := NewPlatformVision()
	_, err := v.Extract(context.Background(), "/tmp/shot.png")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestPlatformVisionUsesRunnerOnDarwin(t *testing.T) {
	v := &PlatformVision{runner: func(ctx context.Context, path string) ([]byte, error) {
		return []byte("recognized text\n"), nil
	}}
	// The runner seam stands in for the real subprocess, but Extract only
	// reaches it on darwin, so other hosts skip this test.
	if runtime.GOOS != "darwin" {
		t.Skip("exercises the darwin-only code path")
	}
	text, err := v.Extract(context.Background(), "/tmp/shot.png")
	require.NoError(t, err)
	assert.Equal(t, "recognized text", text)
}

func TestPlatformVisionPropagatesRunnerError(t *testing.T) {
	if runtime.GOOS != "darwin" {
		t.Skip("exercises the darwin-only code path")
	}
	boom := errors.New("shortcut missing")
	v := &PlatformVision{runner: func(ctx context.Context, path string) ([]byte, error) {
		return nil, boom
	}}
	_, err := v.Extract(context.Background(), "/tmp/shot.png")
	assert.ErrorIs(t, err, boom)
}
