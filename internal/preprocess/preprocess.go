// Package preprocess loads a screenshot and writes a grayscale, contrast-
// stretched temp copy used as an alternate input to GenericTesseract.
package preprocess

import (
	"fmt"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"time"

	"github.com/disintegration/imaging"
)

// Preprocess loads the PNG at path, applies a mild grayscale contrast
// stretch to each pixel, and writes the result next to the original under
// ".ocr_temp_<unix-seconds>.png". The caller owns the returned path's
// lifetime and must remove it after use.
func Preprocess(path string) (string, error) {
	img, err := imaging.Open(path)
	if err != nil {
		return "", fmt.Errorf("preprocess: open %s: %w", path, err)
	}

	gray := imaging.Grayscale(img)
	stretched := stretchContrast(gray)

	dir := filepath.Dir(path)
	outPath := filepath.Join(dir, fmt.Sprintf(".ocr_temp_%d.png", time.Now().Unix()))
	if err := imaging.Save(stretched, outPath); err != nil {
		return "", fmt.Errorf("preprocess: save %s: %w", outPath, err)
	}
	return outPath, nil
}

// stretchContrast applies the spec's pixel-wise contrast stretch: values
// below 100 are scaled by 0.9, values above 155 are stretched away from 155
// by 1.1x (clamped to 0-255), and mid-tones are left unchanged.
func stretchContrast(img image.Image) *image.Gray {
	bounds := img.Bounds()
	out := image.NewGray(bounds)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			gr := color.GrayModel.Convert(img.At(x, y)).(color.Gray)
			out.SetGray(x, y, color.Gray{Y: stretchPixel(gr.Y)})
		}
	}
	return out
}

func stretchPixel(v uint8) uint8 {
	switch {
	case v < 100:
		return clamp(float64(v) * 0.9)
	case v > 155:
		return clamp(155 + (float64(v)-155)*1.1)
	default:
		return v
	}
}

func clamp(v float64) uint8 {
	switch {
	case v < 0:
		return 0
	case v > 255:
		return 255
	default:
		return uint8(v)
	}
}

// Remove deletes a temp file produced by Preprocess, ignoring a not-exist
// error since the caller may race with cleanup elsewhere.
func Remove(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("preprocess: remove %s: %w", path, err)
	}
	return nil
}
