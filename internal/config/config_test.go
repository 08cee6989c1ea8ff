package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, DefaultHostPort, cfg.Host.Port)
	assert.Equal(t, DefaultDebounceMS, cfg.Watch.DebounceMS)
	assert.Equal(t, []int{4, 11, 6, 3, 7, 13}, cfg.OCR.TesseractPSMModes)
	assert.NoError(t, validate(cfg))
}

func TestLoad_WithExplicitFile(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "test.toml")

	content := `
[watch]
debounce_ms = 1000
ignore_ttl_seconds = 5
stabilization_polls = 12
stabilization_ms = 200

[ocr]
tesseract_psm_modes = [4, 11, 6]
vision_enabled = false

[index]
data_dir = "` + dir + `"
db_filename = "chronicle.db"
similarity_threshold = 8

[host]
bind_address = "127.0.0.1"
port = 9999

[log]
level = "debug"
`
	require.NoError(t, os.WriteFile(configPath, []byte(content), 0o644))

	cfg, err := Load(configPath)
	require.NoError(t, err)

	assert.Equal(t, 1000, cfg.Watch.DebounceMS)
	assert.Equal(t, []int{4, 11, 6}, cfg.OCR.TesseractPSMModes)
	assert.False(t, cfg.OCR.VisionEnabled)
	assert.Equal(t, 8, cfg.Index.SimilarityThreshold)
	assert.Equal(t, 9999, cfg.Host.Port)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoad_NoFileFallsBackToDefaults(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Load(filepath.Join(dir, "missing.toml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultHostPort, cfg.Host.Port)
}

func TestLoad_InvalidConfigFailsValidation(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "bad.toml")

	content := `
[host]
port = 0
`
	require.NoError(t, os.WriteFile(configPath, []byte(content), 0o644))

	_, err := Load(configPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "host.port")
}

func TestGetReturnsDefaultWhenUnset(t *testing.T) {
	configPtr.Store(nil)
	cfg := Get()
	require.NotNil(t, cfg)
	assert.Equal(t, DefaultHostPort, cfg.Host.Port)
}

func TestDBPathJoinsDataDirAndFilename(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Index.DataDir = "/tmp/chronicle-test"
	cfg.Index.DBFilename = "chronicle.db"
	assert.Equal(t, filepath.Join("/tmp/chronicle-test", "chronicle.db"), cfg.DBPath())
}

func TestInitConfigWritesFileOnce(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("HOME", dir)

	require.NoError(t, InitConfig())
	path := filepath.Join(dir, ".chronicle", DefaultConfigFilename)
	assert.FileExists(t, path)

	info1, err := os.Stat(path)
	require.NoError(t, err)

	// Calling again must not overwrite the existing file.
	require.NoError(t, InitConfig())
	info2, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, info1.ModTime(), info2.ModTime())
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "foo"), expandHome("~/foo"))
	assert.Equal(t, "/abs/path", expandHome("/abs/path"))
}
