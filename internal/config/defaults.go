package config

// Default* constants mirror the spec's fixed values (§4.1, §4.8, §4.10,
// GLOSSARY) as configurable-but-sensible defaults.
const (
	DefaultBindAddress = "127.0.0.1"
	DefaultHostPort    = 7861

	DefaultLogLevel = "info"
	DefaultDataDir  = "~/.chronicle"

	DefaultConfigFilename = "chronicle.toml"
	DefaultDBFilename     = "chronicle.db"

	// DefaultDebounceMS is the Debounce window from the GLOSSARY.
	DefaultDebounceMS = 750

	// DefaultIgnoreTTLSeconds is the Ignore TTL from the GLOSSARY.
	DefaultIgnoreTTLSeconds = 5

	// DefaultStabilizationPolls/Interval implement wait_for_file (§4.1).
	DefaultStabilizationPolls      = 12
	DefaultStabilizationIntervalMS = 200

	// DefaultSimilarityThreshold is the default Hamming-distance grouping
	// cutoff for find_similar_screenshots (§4.8).
	DefaultSimilarityThreshold = 10
)

// DefaultWatchDirs returns the two spec-mandated watch directories,
// relative to home: resolved at runtime since they depend on $HOME.
func DefaultWatchDirs() []string {
	return []string{"Desktop", "Pictures/Screenshots"}
}

// DefaultPSMModes is the default for OCRConfig.TesseractPSMModes. It lists
// the same order as the fixed ladder GenericTesseract walks (§4.3).
func DefaultPSMModes() []int {
	return []int{4, 11, 6, 3, 7, 13}
}
