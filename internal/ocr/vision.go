package ocr

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"runtime"
	"strings"
)

// ErrUnavailable is returned by PlatformVision.Extract when no OS-native OCR
// facility is present on the current platform.
var ErrUnavailable = errors.New("ocr: platform vision unavailable")

// visionShortcutName is the macOS Shortcuts workflow this engine invokes.
// It's expected to accept an image path as input and print recognized text
// to stdout. Users without the shortcut installed simply fall back to
// GenericTesseract, since Vision errors are non-fatal.
const visionShortcutName = "Extract Text From Image"

// PlatformVision shells out to the macOS "shortcuts" CLI to drive Apple's
// Vision text-recognition framework. There is no pure-Go or cgo-free binding
// for Vision in the retrieval pack, so this mirrors the spec's
// "implementation freedom: subprocess" option.
type PlatformVision struct {
	// runner is overridable in tests.
	runner func(ctx context.Context, path string) ([]byte, error)
}

// NewPlatformVision constructs a PlatformVision engine. On non-macOS
// platforms, Extract always returns ErrUnavailable.
func NewPlatformVision() *PlatformVision {
	return &PlatformVision{runner: runShortcut}
}

func (p *PlatformVision) Name() string { return "platform_vision" }

func (p *PlatformVision) Extract(ctx context.Context, path string) (string, error) {
	if runtime.GOOS != "darwin" {
		return "", ErrUnavailable
	}
	out, err := p.runner(ctx, path)
	if err != nil {
		return "", err
	}
	return strings.TrimRight(string(out), "\n"), nil
}

func runShortcut(ctx context.Context, path string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, "shortcuts", "run", visionShortcutName, "-i", path)
	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	if err := cmd.Run(); err != nil {
		return nil, err
	}
	return stdout.Bytes(), nil
}
