// Package pathguard holds the pure predicates and helpers shared by the
// watcher, batch coordinator, and rename stage: extension/hidden checks,
// slugification, and creation-timestamp extraction.
package pathguard

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"unicode"
)

// defaultSlug is used when slugification produces an empty result.
const defaultSlug = "screenshot"

// maxSlugLen is the character cap applied by Slugify.
const maxSlugLen = 60

// IsPNG reports whether path has a PNG extension, case-insensitively.
func IsPNG(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".png")
}

// IsHidden reports whether the basename of path begins with a dot. This
// also excludes the preprocessor's own ".ocr_temp_<secs>.png" outputs.
func IsHidden(path string) bool {
	return strings.HasPrefix(filepath.Base(path), ".")
}

// IsCandidate reports whether path passes the watcher and batch
// coordinator's shared filter: a non-hidden PNG file.
func IsCandidate(path string) bool {
	return IsPNG(path) && !IsHidden(path)
}

// CreatedAtMillis returns the millisecond Unix epoch of path's modification
// time as reported by os.Stat; the file's birth time is not read. It must be
// captured before any rename so the index preserves the original timestamp.
func CreatedAtMillis(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	return info.ModTime().UnixMilli(), nil
}

// isAlnum reports whether r is an ASCII letter or digit.
func isAlnum(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}

func countAlnum(s string) int {
	n := 0
	for _, r := range s {
		if isAlnum(r) {
			n++
		}
	}
	return n
}

// Summarize picks the text line with the most alphanumeric characters, then
// takes up to five whitespace-separated tokens from it whose surrounding
// non-alphanumerics are trimmed and whose lowercased form has length >= 3.
// The tokens are joined with spaces, preserving their original order.
func Summarize(text string) string {
	lines := strings.Split(text, "\n")
	bestLine := ""
	bestCount := -1
	for _, line := range lines {
		if c := countAlnum(line); c > bestCount {
			bestCount = c
			bestLine = line
		}
	}
	if bestCount <= 0 {
		return ""
	}

	var tokens []string
	for _, field := range strings.Fields(bestLine) {
		trimmed := strings.TrimFunc(field, func(r rune) bool { return !isAlnum(r) })
		if len(strings.ToLower(trimmed)) < 3 {
			continue
		}
		tokens = append(tokens, trimmed)
		if len(tokens) == 5 {
			break
		}
	}
	return strings.Join(tokens, " ")
}

// Slugify lowercases s, keeps ASCII alphanumerics, maps runs of whitespace,
// '-', or '_' to a single '-', never starts with '-', caps the result at 60
// characters, drops a trailing '-', and defaults to "screenshot" if empty.
func Slugify(s string) string {
	var b strings.Builder
	lastDash := true // treat start-of-string as already having a dash, to suppress a leading one
	for _, r := range s {
		switch {
		case isAlnum(r):
			b.WriteRune(unicode.ToLower(r))
			lastDash = false
		case unicode.IsSpace(r) || r == '-' || r == '_':
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	out := b.String()
	if len(out) > maxSlugLen {
		out = out[:maxSlugLen]
	}
	out = strings.TrimSuffix(out, "-")
	if out == "" {
		return defaultSlug
	}
	return out
}

// RenamedFilename builds "{slug}-{unixSeconds}.png" for the rename step.
func RenamedFilename(slug string, unixSeconds int64) string {
	return slug + "-" + strconv.FormatInt(unixSeconds, 10) + ".png"
}
