// Package compositor fuses the text produced by the Vision and Tesseract OCR
// engines into a single composite string, per the spec's fusion rules.
package compositor

import "strings"

// Compose fuses optional Vision and Tesseract text into one composite
// string. Either argument may be nil, meaning that engine produced no text.
func Compose(visionText, tesseractText *string) string {
	vision := deref(visionText)
	tesseract := deref(tesseractText)

	visionEmpty := vision == ""
	tesseractEmpty := tesseract == ""

	switch {
	case visionEmpty && tesseractEmpty:
		return ""
	case visionEmpty:
		return tesseract
	case tesseractEmpty:
		return vision
	}

	longer, shorter := vision, tesseract
	if len(tesseract) > len(vision) {
		longer, shorter = tesseract, vision
	}
	if len(longer) > 2*len(shorter) {
		return longer
	}

	return merge(vision, tesseract)
}

// merge tokenizes both strings by whitespace and concatenates the original
// tokens in order, Vision first, skipping any whose normalized form was
// already emitted.
func merge(vision, tesseract string) string {
	seen := make(map[string]bool)
	var out []string

	for _, tok := range strings.Fields(vision) {
		norm := normalize(tok)
		if seen[norm] {
			continue
		}
		seen[norm] = true
		out = append(out, tok)
	}
	for _, tok := range strings.Fields(tesseract) {
		norm := normalize(tok)
		if seen[norm] {
			continue
		}
		seen[norm] = true
		out = append(out, tok)
	}

	return strings.Join(out, " ")
}

// normalize lowercases a token and strips leading/trailing non-alphanumerics.
func normalize(tok string) string {
	lower := strings.ToLower(tok)
	return strings.TrimFunc(lower, func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9')
	})
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
