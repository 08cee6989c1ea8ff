package daemon

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/chroniclehq/chronicle/internal/store"
)

func TestParseLogLevel(t *testing.T) {
	cases := map[string]zerolog.Level{
		"trace":   zerolog.TraceLevel,
		"DEBUG":   zerolog.DebugLevel,
		"info":    zerolog.InfoLevel,
		"warn":    zerolog.WarnLevel,
		"warning": zerolog.WarnLevel,
		"error":   zerolog.ErrorLevel,
		"fatal":   zerolog.FatalLevel,
		"bogus":   zerolog.InfoLevel,
		"":        zerolog.InfoLevel,
	}
	for in, want := range cases {
		assert.Equal(t, want, parseLogLevel(in), in)
	}
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory available")
	}
	assert.Equal(t, filepath.Join(home, "Desktop"), expandHome("~/Desktop"))
	assert.Equal(t, "/absolute/path", expandHome("/absolute/path"))
}

func TestJSONOrEmptyArray(t *testing.T) {
	assert.Equal(t, "[]", jsonOrEmptyArray([]string(nil)))
	assert.Equal(t, `["a","b"]`, jsonOrEmptyArray([]string{"a", "b"}))
}

func TestEntryStatusPayloadDefaultsEmptyCollections(t *testing.T) {
	e := &store.Entry{Path: "/a.png", Text: "hello", CreatedAt: 123}
	p := entryStatusPayload(e)
	assert.Equal(t, "idle", p.Status)
	assert.Equal(t, "/a.png", p.Path)
	assert.Equal(t, "[]", p.Tags)
	assert.Equal(t, "[]", p.URLs)
	assert.Equal(t, "[]", p.Emails)
}
