// Package textclean fixes common OCR character confusions and strips
// chrome (timestamps, read receipts, app-UI vocabulary) from composite OCR
// text, with conservative safety rails against over-cleaning.
package textclean

import (
	"regexp"
	"strconv"
	"strings"
)

// Character-fix patterns, compiled once and applied in order.
var (
	lmfaoPattern  = regexp.MustCompile(`Imfao+0?`)
	lmaoPattern   = regexp.MustCompile(`Imao+0?`)
	lolPattern    = regexp.MustCompile(`IOl|IOI|ioI|Iol`)
	leadingIWord  = regexp.MustCompile(`\bI[a-z]{2,}\b`)
	zeroBetween   = regexp.MustCompile(`([A-Za-z])0+([A-Za-z])`)
	fiveBetween   = regexp.MustCompile(`([A-Za-z])5([A-Za-z])`)
	oneBetween    = regexp.MustCompile(`([A-Za-z])1([A-Za-z])`)
)

// Substitution patterns (multi-line, applied to the whole text after the
// character fixes).
var (
	time12h = regexp.MustCompile(`(?m)\b\d{1,2}:\d{2}(:\d{2})?\s*[APap][Mm]\b`)
	time24h = regexp.MustCompile(`(?m)\b([01]?\d|2[0-3]):\d{2}(:\d{2})?\b`)

	datedTimestamp = regexp.MustCompile(`(?m)\b(Mon|Tue|Wed|Thu|Fri|Sat|Sun)[a-z]*\s+\d{1,2}(\s+at)?\s+\d{1,2}:\d{2}(:\d{2})?\s*([APap][Mm])?`)

	relativeTime = regexp.MustCompile(`(?mi)\b(Just now|Today|Yesterday|This Week|This Month|\d+\s*(s|m|h|d)\s*ago|moments ago)\b`)

	shortDuration = regexp.MustCompile(`(?m)\b\d{1,2}[smhd]\b`)

	uiChrome = regexp.MustCompile(`(?mi)\b(Delivered|Read|Seen|Typing\.\.\.|Online|Active now|Tap to (reply|react)|Swipe to reply|Sent|Edited|Reply|Forward|React|More options|Search|Options)\b`)

	punctuationNoise = regexp.MustCompile(`(?m)(^|\s)[^\w\s]{3,}(\s|$)`)

	blankLines = regexp.MustCompile(`(?m)^[ \t]*\n`)
	whitespace = regexp.MustCompile(`\s+`)
)

// Clean applies the deterministic OCR text cleanup pipeline described by the
// spec, returning the pre-cleaning text verbatim whenever either safety rail
// trips.
func Clean(text string) string {
	original := text

	cleaned := fixCharacters(text)
	cleaned = applySubstitutions(cleaned)
	cleaned = filterNoiseTokens(cleaned)

	if shouldRollback(original, cleaned) {
		return original
	}
	return cleaned
}

func fixCharacters(s string) string {
	s = lmfaoPattern.ReplaceAllString(s, "lmfao")
	s = lmaoPattern.ReplaceAllString(s, "lmao")
	s = lolPattern.ReplaceAllString(s, "Lol")
	s = leadingIWord.ReplaceAllStringFunc(s, func(m string) string {
		return "l" + m[1:]
	})
	s = zeroBetween.ReplaceAllString(s, "${1}o${2}")
	s = fiveBetween.ReplaceAllString(s, "${1}s${2}")
	s = oneBetween.ReplaceAllString(s, "${1}l${2}")
	return s
}

func applySubstitutions(s string) string {
	s = time12h.ReplaceAllString(s, " ")
	s = time24h.ReplaceAllString(s, " ")
	s = datedTimestamp.ReplaceAllString(s, "")
	s = relativeTime.ReplaceAllString(s, "")
	s = uiChrome.ReplaceAllString(s, "")
	s = shortDuration.ReplaceAllString(s, "")
	s = blankLines.ReplaceAllString(s, " ")
	s = punctuationNoise.ReplaceAllString(s, " ")
	s = whitespace.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// filterNoiseTokens drops short non-numeric tokens when they are a minority
// signal swamped by noise: if fewer than half the tokens have length >= 2,
// every token shorter than 2 that isn't a parseable integer is dropped.
func filterNoiseTokens(s string) string {
	tokens := strings.Fields(s)
	if len(tokens) == 0 {
		return s
	}

	meaningful := 0
	for _, tok := range tokens {
		if len(tok) >= 2 {
			meaningful++
		}
	}
	if meaningful >= len(tokens)/2 {
		return s
	}

	kept := tokens[:0:0]
	for _, tok := range tokens {
		if len(tok) >= 2 {
			kept = append(kept, tok)
			continue
		}
		if _, err := strconv.Atoi(tok); err == nil {
			kept = append(kept, tok)
		}
	}
	return strings.Join(kept, " ")
}

// shouldRollback reports whether either safety rail requires returning the
// pre-cleaning text verbatim.
func shouldRollback(original, cleaned string) bool {
	if len(original) > 0 && float64(len(cleaned)) < 0.30*float64(len(original)) {
		return true
	}
	if hasRealWord(original) && !hasRealWord(cleaned) {
		return true
	}
	return false
}

// hasRealWord reports whether s contains a token of length >= 3 with at
// least 2 alphabetic characters.
func hasRealWord(s string) bool {
	for _, tok := range strings.Fields(s) {
		if len(tok) < 3 {
			continue
		}
		alpha := 0
		for _, r := range tok {
			if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') {
				alpha++
			}
		}
		if alpha >= 2 {
			return true
		}
	}
	return false
}
