// Package entity extracts URL and email tokens from cleaned OCR text.
package entity

import "regexp"

var (
	urlPattern   = regexp.MustCompile(`https?://[^\s]+`)
	emailPattern = regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)
)

// ExtractURLs returns every URL-shaped token in text, in order of
// occurrence, with duplicates preserved.
func ExtractURLs(text string) []string {
	return urlPattern.FindAllString(text, -1)
}

// ExtractEmails returns every email-shaped token in text, in order of
// occurrence, with duplicates preserved.
func ExtractEmails(text string) []string {
	return emailPattern.FindAllString(text, -1)
}
