package phash

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTestPNG(t *testing.T, path string, fill color.Color) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 32, 32))
	for y := 0; y < 32; y++ {
		for x := 0; x < 32; x++ {
			if x < 16 {
				img.Set(x, y, fill)
			} else {
				img.Set(x, y, color.Black)
			}
		}
	}
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
}

func TestComputeProducesFixedWidthHash(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.png")
	writeTestPNG(t, path, color.White)

	h, err := Compute(path)
	require.NoError(t, err)
	assert.Len(t, h, Size)
}

func TestHammingSymmetricAndZeroForIdentical(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.png")
	writeTestPNG(t, path, color.White)

	h1, err := Compute(path)
	require.NoError(t, err)
	h2, err := Compute(path)
	require.NoError(t, err)

	assert.Equal(t, 0, Hamming(h1, h2))
	assert.Equal(t, Hamming(h1, h2), Hamming(h2, h1))
}

func TestHammingBounded(t *testing.T) {
	a := Hash(make([]byte, Size))
	b := Hash(make([]byte, Size))
	for i := range b {
		b[i] = 0xFF
	}
	assert.LessOrEqual(t, Hamming(a, b), Size*8)
}

func TestGroupSimilarGroupsWithinThreshold(t *testing.T) {
	entries := []Entry{
		{Key: "a", Hash: Hash{0x00, 0x00}},
		{Key: "b", Hash: Hash{0x01, 0x00}}, // distance 1 from a
		{Key: "c", Hash: Hash{0xFF, 0xFF}}, // far from both
	}
	groups := GroupSimilar(entries, 2)
	require.Len(t, groups, 1)
	assert.Equal(t, []string{"a", "b"}, groups[0])
}

func TestGroupSimilarNoGroupsBelowTwo(t *testing.T) {
	entries := []Entry{
		{Key: "a", Hash: Hash{0x00}},
		{Key: "b", Hash: Hash{0xFF}},
	}
	groups := GroupSimilar(entries, 1)
	assert.Empty(t, groups)
}
