// Package phash computes a gradient-based perceptual hash for near-duplicate
// screenshot detection and groups entries whose hashes are within a Hamming
// distance threshold of one another.
package phash

import (
	"fmt"
	"image"

	"github.com/disintegration/imaging"
)

// side is the resolution the source image is resized to before hashing.
// A 16x16 grid of grayscale pixels yields a 256-bit (32-byte) hash: one
// bit per pixel, comparing it with its right-hand neighbor (the last
// column wraps to the first).
const side = 16

// Size is the fixed byte length of a Hash.
const Size = side * side / 8

// Hash is a fixed-width gradient-based perceptual hash.
type Hash []byte

// Compute loads the image at path, downsizes it to a 16x16 grayscale grid,
// and derives a 256-bit hash: bit i is set when pixel i is brighter than its
// right-hand neighbor (wrapping each row).
func Compute(path string) (Hash, error) {
	img, err := imaging.Open(path)
	if err != nil {
		return nil, fmt.Errorf("phash: open %s: %w", path, err)
	}
	gray := imaging.Grayscale(img)
	small := imaging.Resize(gray, side, side, imaging.Lanczos)

	bounds := small.Bounds()
	if bounds.Dx() != side || bounds.Dy() != side {
		small = imaging.Resize(small, side, side, imaging.NearestNeighbor)
		bounds = small.Bounds()
	}

	bits := make([]bool, side*side)
	idx := 0
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			cur := luminance(small, x, y)
			next := luminance(small, wrap(x+1, bounds.Min.X, bounds.Max.X), y)
			bits[idx] = cur > next
			idx++
		}
	}
	return packBits(bits), nil
}

func wrap(x, min, max int) int {
	if x >= max {
		return min
	}
	return x
}

func luminance(img image.Image, x, y int) uint8 {
	r, g, b, _ := img.At(x, y).RGBA()
	return uint8((r + g + b) / 3 >> 8)
}

func packBits(bits []bool) Hash {
	h := make(Hash, (len(bits)+7)/8)
	for i, b := range bits {
		if b {
			h[i/8] |= 1 << uint(i%8)
		}
	}
	return h
}

// Hamming returns the number of differing bits between two hashes of equal
// length. Hashes of unequal length are treated as maximally distant.
func Hamming(a, b Hash) int {
	if len(a) != len(b) {
		return len(a)*8 + len(b)*8
	}
	dist := 0
	for i := range a {
		dist += popcount(a[i] ^ b[i])
	}
	return dist
}

func popcount(b byte) int {
	n := 0
	for b != 0 {
		n += int(b & 1)
		b >>= 1
	}
	return n
}

// Entry is the minimal shape GroupSimilar needs: an identity (e.g. a file
// path) and its perceptual hash.
type Entry struct {
	Key  string
	Hash Hash
}

// GroupSimilar performs a single-pass union of entries whose hashes are
// within threshold Hamming distance of one another, returning groups of
// size >= 2. Output group order follows first-seen row order; within a
// group, the first path encountered is the seed.
func GroupSimilar(entries []Entry, threshold int) [][]string {
	assigned := make([]bool, len(entries))
	var groups [][]string

	for i := range entries {
		if assigned[i] {
			continue
		}
		var group []string
		for j := i + 1; j < len(entries); j++ {
			if assigned[j] {
				continue
			}
			if Hamming(entries[i].Hash, entries[j].Hash) <= threshold {
				if group == nil {
					group = append(group, entries[i].Key)
					assigned[i] = true
				}
				group = append(group, entries[j].Key)
				assigned[j] = true
			}
		}
		if len(group) >= 2 {
			groups = append(groups, group)
		}
	}
	return groups
}
