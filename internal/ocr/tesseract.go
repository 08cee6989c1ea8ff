package ocr

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/otiai10/gosseract/v2"
)

// psmLadder is the page-segmentation-mode order GenericTesseract walks,
// short-circuiting on the first attempt whose trimmed output exceeds 20
// characters.
var psmLadder = []gosseract.PageSegMode{
	gosseract.PSM_SINGLE_COLUMN,
	gosseract.PSM_SPARSE_TEXT,
	gosseract.PSM_SINGLE_BLOCK,
	gosseract.PSM_AUTO,
	gosseract.PSM_SINGLE_LINE,
	gosseract.PSM_RAW_LINE,
}

// shortCircuitLen is the trimmed-length threshold that stops the PSM ladder
// early, per the spec.
const shortCircuitLen = 20

// GenericTesseract drives libtesseract across the PSM ladder, trying each
// mode first against the original image, then against a preprocessed copy.
type GenericTesseract struct {
	pool *sync.Pool
}

// NewGenericTesseract builds a GenericTesseract engine backed by a client
// pool, following the pack's tesseract-wrapper pooling idiom: gosseract
// clients are not safe to share across concurrent OCR calls, but are
// expensive to construct, so they're recycled via sync.Pool.
func NewGenericTesseract() *GenericTesseract {
	return &GenericTesseract{
		pool: &sync.Pool{
			New: func() interface{} {
				client := gosseract.NewClient()
				client.SetLanguage("eng")
				return client
			},
		},
	}
}

func (t *GenericTesseract) Name() string { return "generic_tesseract" }

// Extract walks the PSM ladder against originalPath; ExtractWithPreprocessed
// additionally tries preprocessedPath for each mode before moving to the
// next. Extract alone is provided to satisfy the Engine interface; the
// pipeline stage calls ExtractWithPreprocessed directly so it can supply
// both images per the spec's two-pass-per-mode contract.
func (t *GenericTesseract) Extract(ctx context.Context, path string) (string, error) {
	return t.ExtractWithPreprocessed(ctx, path, "")
}

// ExtractWithPreprocessed walks the PSM ladder, attempting originalPath then
// preprocessedPath (if non-empty) at each mode, stopping at the first
// result whose trimmed length exceeds 20 characters.
func (t *GenericTesseract) ExtractWithPreprocessed(ctx context.Context, originalPath, preprocessedPath string) (string, error) {
	client := t.pool.Get().(*gosseract.Client)
	defer t.pool.Put(client)

	var best string
	var lastErr error

	for _, mode := range psmLadder {
		for _, candidate := range candidatePaths(originalPath, preprocessedPath) {
			select {
			case <-ctx.Done():
				return best, ctx.Err()
			default:
			}

			text, err := extractOnce(client, candidate, mode)
			if err != nil {
				lastErr = err
				continue
			}
			trimmed := strings.TrimSpace(text)
			if len(trimmed) > len(strings.TrimSpace(best)) {
				best = text
			}
			if len(trimmed) > shortCircuitLen {
				return text, nil
			}
		}
	}

	if best == "" && lastErr != nil {
		return "", fmt.Errorf("ocr: tesseract: %w", lastErr)
	}
	return best, nil
}

func candidatePaths(original, preprocessed string) []string {
	if preprocessed == "" {
		return []string{original}
	}
	return []string{original, preprocessed}
}

// extractOnce applies the mode and the spec's best-effort engine options,
// none of which abort the attempt on failure to set.
func extractOnce(client *gosseract.Client, path string, mode gosseract.PageSegMode) (string, error) {
	if err := client.SetImage(path); err != nil {
		return "", err
	}
	_ = client.SetPageSegMode(mode)
	_ = client.SetVariable("tessedit_ocr_engine_mode", "1") // LSTM only, best-effort
	_ = client.SetVariable("preserve_interword_spaces", "1")
	_ = client.SetVariable("load_freq_dawg", "0")
	_ = client.SetVariable("load_system_dawg", "0")
	_ = client.SetVariable("load_punc_dawg", "0")
	_ = client.SetVariable("load_number_dawg", "0")

	return client.Text()
}

// Close releases the underlying client pool's resources. Clients created by
// gosseract.NewClient hold a tesseract API handle that must be freed; since
// sync.Pool doesn't expose iteration, Close is a best-effort no-op beyond
// letting the pool be garbage collected — matching gosseract's own
// finalizer-based cleanup for clients that are dropped without an explicit
// Close call.
func (t *GenericTesseract) Close() error {
	return nil
}
