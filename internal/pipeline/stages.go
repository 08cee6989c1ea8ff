package pipeline

import (
	"context"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"

	"github.com/chroniclehq/chronicle/internal/compositor"
	"github.com/chroniclehq/chronicle/internal/entity"
	"github.com/chroniclehq/chronicle/internal/ocr"
	"github.com/chroniclehq/chronicle/internal/pathguard"
	"github.com/chroniclehq/chronicle/internal/phash"
	"github.com/chroniclehq/chronicle/internal/preprocess"
	"github.com/chroniclehq/chronicle/internal/textclean"
)

// PreprocessStage writes a grayscale contrast-stretched temp copy of
// work.CurrentPath into work.PreprocessedPath, used as the second input to
// GenericTesseract's PSM ladder. A preprocessing failure degrades the entry
// (OCR proceeds against the original only) rather than aborting the run.
type PreprocessStage struct{}

func (PreprocessStage) Name() string { return "preprocess" }

func (PreprocessStage) Run(_ context.Context, work *Work) error {
	out, err := preprocess.Preprocess(work.CurrentPath)
	if err != nil {
		log.Warn().Err(err).Str("path", work.CurrentPath).Msg("preprocess stage: continuing without preprocessed image")
		return nil
	}
	work.PreprocessedPath = out
	return nil
}

// OCRStage runs the platform Vision engine (if any) and GenericTesseract
// against both the original and preprocessed images, per §4.3. Either
// engine failing is non-fatal: its text pointer is simply left nil, and the
// Compositor is built to tolerate that.
type OCRStage struct {
	Vision    ocr.Engine
	Tesseract *ocr.GenericTesseract
}

func (OCRStage) Name() string { return "ocr" }

func (s OCRStage) Run(ctx context.Context, work *Work) error {
	if s.Vision != nil {
		text, err := s.Vision.Extract(ctx, work.CurrentPath)
		if err != nil {
			log.Debug().Err(err).Str("path", work.CurrentPath).Msg("ocr stage: vision engine unavailable or failed")
		} else {
			work.VisionText = &text
		}
	}

	if s.Tesseract != nil {
		text, err := s.Tesseract.ExtractWithPreprocessed(ctx, work.CurrentPath, work.PreprocessedPath)
		if err != nil {
			log.Warn().Err(err).Str("path", work.CurrentPath).Msg("ocr stage: tesseract engine failed")
		} else {
			work.TesseractText = &text
		}
	}

	if work.PreprocessedPath != "" {
		_ = preprocess.Remove(work.PreprocessedPath)
	}

	return nil
}

// CompositeStage fuses the two engines' outputs and cleans the result.
type CompositeStage struct{}

func (CompositeStage) Name() string { return "composite" }

func (CompositeStage) Run(_ context.Context, work *Work) error {
	composite := compositor.Compose(work.VisionText, work.TesseractText)
	work.Text = textclean.Clean(composite)
	return nil
}

// EnrichStage derives URLs, emails, and the perceptual hash from
// work.Text/work.CurrentPath. Tag derivation happens in the store layer
// (the length-gated "Images" override is a storage concern per §4.9), so
// this stage only extracts entities and the hash.
type EnrichStage struct{}

func (EnrichStage) Name() string { return "enrich" }

func (EnrichStage) Run(_ context.Context, work *Work) error {
	work.URLs = entity.ExtractURLs(work.Text)
	work.Emails = entity.ExtractEmails(work.Text)

	hash, err := phash.Compute(work.CurrentPath)
	if err != nil {
		log.Debug().Err(err).Str("path", work.CurrentPath).Msg("enrich stage: perceptual hash unavailable")
		return nil
	}
	work.PerceptualHash = hash
	return nil
}

// RenameStage builds the human-readable slug filename and renames the file
// in place, per §4.11. A failed rename falls back to the original path and
// continues rather than aborting the run, per original_source's behavior
// (SPEC_FULL §1).
type RenameStage struct {
	// OnRename is invoked with (oldPath, newPath) before the rename so the
	// caller can update its known/ignore sets, per §4.11 and §4.1/§4.9's
	// "add both names to both sets before issuing the rename" guidance.
	OnRename func(oldPath, newPath string)
}

func (RenameStage) Name() string { return "rename" }

func (s RenameStage) Run(_ context.Context, work *Work) error {
	slug := pathguard.Slugify(pathguard.Summarize(work.Text))
	newName := pathguard.RenamedFilename(slug, work.StartedAt.Unix())
	newPath := filepath.Join(filepath.Dir(work.CurrentPath), newName)

	if s.OnRename != nil {
		s.OnRename(work.CurrentPath, newPath)
	}

	if err := os.Rename(work.CurrentPath, newPath); err != nil {
		log.Warn().Err(err).Str("from", work.CurrentPath).Str("to", newPath).Msg("rename stage: falling back to original path")
		return nil
	}
	work.CurrentPath = newPath
	return nil
}
