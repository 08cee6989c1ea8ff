package compositor

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func strp(s string) *string { return &s }

func TestComposeBothEmpty(t *testing.T) {
	assert.Equal(t, "", Compose(nil, nil))
	assert.Equal(t, "", Compose(strp(""), strp("")))
}

func TestComposeOnlyOnePresent(t *testing.T) {
	assert.Equal(t, "hello", Compose(strp("hello"), nil))
	assert.Equal(t, "world", Compose(nil, strp("world")))
}

func TestComposePrefersMuchLongerSide(t *testing.T) {
	short := "hi"
	long := "this is a much longer piece of extracted text than the other one"
	assert.Equal(t, long, Compose(strp(short), strp(long)))
	assert.Equal(t, long, Compose(strp(long), strp(short)))
}

func TestComposeMergesPreservingVisionOrderAndSurfaceForm(t *testing.T) {
	vision := "Hello World"
	tesseract := "hello there world"
	got := Compose(strp(vision), strp(tesseract))
	assert.Equal(t, "Hello World there", got)
}

func TestComposeSkipsDuplicateNormalizedTokens(t *testing.T) {
	vision := "Total: $12.99"
	tesseract := "total 12.99 today"
	got := Compose(strp(vision), strp(tesseract))
	assert.Contains(t, got, "Total:")
	assert.Contains(t, got, "today")
}
