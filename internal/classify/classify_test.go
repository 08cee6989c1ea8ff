package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyMessagesBubble(t *testing.T) {
	text := "Alex: hey\nMe: sup\nAlex: 3:41 PM"
	assert.Equal(t, []Tag{Messages}, Classify(text))
}

func TestClassifyCode(t *testing.T) {
	text := "const x = 42; function f(){ return x }"
	assert.Equal(t, []Tag{Code}, Classify(text))
}

func TestClassifyReceipts(t *testing.T) {
	text := "Total: $12.99  01/02/2024"
	assert.Equal(t, []Tag{Receipts}, Classify(text))
}

func TestClassifyMessagesWinsOverCode(t *testing.T) {
	// Bubble detection must win whenever plausible, even if code-ish tokens
	// also appear somewhere in the text.
	text := "Alex: hey\nMe: check this out\nAlex: const x = 1"
	assert.Equal(t, []Tag{Messages}, Classify(text))
}

func TestClassifyDesign(t *testing.T) {
	text := "Primary color #FF00AA used across this design system, px spacing 8"
	assert.Equal(t, []Tag{Design}, Classify(text))
}

func TestClassifyTerminal(t *testing.T) {
	text := "$ git status\nOn branch main"
	assert.Equal(t, []Tag{Terminal}, Classify(text))
}

func TestClassifyErrors(t *testing.T) {
	text := "Traceback (most recent call last): something fatal happened here in this run"
	got := Classify(text)
	assert.Contains(t, got, Errors)
}

func TestClassifyImagesFallback(t *testing.T) {
	assert.Equal(t, []Tag{Images}, Classify("ok"))
	assert.Equal(t, []Tag{Images}, Classify(""))
}

func TestClassifyDocuments(t *testing.T) {
	text := ""
	for i := 0; i < 60; i++ {
		text += "word "
	}
	text += "\ntherefore this concludes the chapter. however the summary continues on."
	got := Classify(text)
	assert.Equal(t, []Tag{Documents}, got)
}
