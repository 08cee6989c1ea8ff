package config

import (
	"fmt"
	"strings"
)

// ValidLogLevels mirrors the levels zerolog accepts.
var ValidLogLevels = []string{"trace", "debug", "info", "warn", "error", "fatal"}

// validate checks the Config for invalid or out-of-range values. It returns
// a combined error if any checks fail.
func validate(cfg *Config) error {
	var errs []string

	if cfg.Watch.DebounceMS <= 0 {
		errs = append(errs, fmt.Sprintf("watch.debounce_ms must be positive, got %d", cfg.Watch.DebounceMS))
	}
	if cfg.Watch.IgnoreTTLSeconds <= 0 {
		errs = append(errs, fmt.Sprintf("watch.ignore_ttl_seconds must be positive, got %d", cfg.Watch.IgnoreTTLSeconds))
	}
	if cfg.Watch.StabilizationPolls <= 0 {
		errs = append(errs, fmt.Sprintf("watch.stabilization_polls must be positive, got %d", cfg.Watch.StabilizationPolls))
	}
	if cfg.Watch.StabilizationMS <= 0 {
		errs = append(errs, fmt.Sprintf("watch.stabilization_ms must be positive, got %d", cfg.Watch.StabilizationMS))
	}

	if len(cfg.OCR.TesseractPSMModes) == 0 {
		errs = append(errs, "ocr.tesseract_psm_modes must not be empty")
	}
	for _, mode := range cfg.OCR.TesseractPSMModes {
		if mode < 0 || mode > 13 {
			errs = append(errs, fmt.Sprintf("ocr.tesseract_psm_modes contains out-of-range mode %d", mode))
		}
	}

	if cfg.Index.DataDir == "" {
		errs = append(errs, "index.data_dir must not be empty")
	}
	if cfg.Index.DBFilename == "" {
		errs = append(errs, "index.db_filename must not be empty")
	}
	if cfg.Index.SimilarityThreshold < 0 || cfg.Index.SimilarityThreshold > 256 {
		errs = append(errs, fmt.Sprintf("index.similarity_threshold must be between 0 and 256, got %d", cfg.Index.SimilarityThreshold))
	}

	if cfg.Host.Port < 1 || cfg.Host.Port > 65535 {
		errs = append(errs, fmt.Sprintf("host.port must be between 1 and 65535, got %d", cfg.Host.Port))
	}
	if cfg.Host.BindAddress == "" {
		errs = append(errs, "host.bind_address must not be empty")
	}

	if !isValidEnum(cfg.Log.Level, ValidLogLevels) {
		errs = append(errs, fmt.Sprintf("log.level must be one of %v, got %q", ValidLogLevels, cfg.Log.Level))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// isValidEnum returns true if val is in the allowed list (case-insensitive).
func isValidEnum(val string, allowed []string) bool {
	lower := strings.ToLower(val)
	for _, a := range allowed {
		if strings.ToLower(a) == lower {
			return true
		}
	}
	return false
}
