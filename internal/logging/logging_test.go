package logging

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFormat(t *testing.T) {
	assert.Equal(t, FormatText, ParseFormat("tint"))
	assert.Equal(t, FormatJSON, ParseFormat("JSON"))
	assert.Equal(t, FormatAuto, ParseFormat("whatever"))
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("debug"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("WARN"))
	assert.Equal(t, slog.LevelInfo, ParseLevel(""))
}

func TestHandlerWritesConsoleAndFile(t *testing.T) {
	var console, file bytes.Buffer
	log := slog.New(NewHandler(Options{
		Console: &console,
		Format:  FormatJSON,
		Level:   slog.LevelWarn,
		File:    &file,
	}))

	log.Info("only in file")
	log.Warn("in both")

	assert.NotContains(t, console.String(), "only in file")
	assert.Contains(t, console.String(), `"msg":"in both"`)
	assert.Contains(t, file.String(), "msg=\"only in file\"")
	assert.Contains(t, file.String(), "msg=\"in both\"")
}

func TestHandlerWithoutOutputs(t *testing.T) {
	log := slog.New(NewHandler(Options{}))
	assert.NotPanics(t, func() { log.Error("dropped") })
}

func TestRotatorTruncatesAboveLimit(t *testing.T) {
	fsys := afero.NewMemMapFs()
	const path = "/logs/clipmon.log"
	require.NoError(t, afero.WriteFile(fsys, path, []byte(strings.Repeat("x", 100)), 0o644))

	r := NewRotator(fsys, path, 100)
	cleared, err := r.Check()
	require.NoError(t, err)
	assert.False(t, cleared, "exactly at the limit is kept")

	require.NoError(t, afero.WriteFile(fsys, path, []byte(strings.Repeat("x", 101)), 0o644))
	cleared, err = r.Check()
	require.NoError(t, err)
	assert.True(t, cleared)

	fi, err := fsys.Stat(path)
	require.NoError(t, err)
	assert.Zero(t, fi.Size())
}

func TestRotatorMissingFile(t *testing.T) {
	r := NewRotator(afero.NewMemMapFs(), "/nope.log", 0)
	cleared, err := r.Check()
	require.NoError(t, err)
	assert.False(t, cleared)
	assert.Equal(t, int64(DefaultMaxSize), r.maxSize)
}

func TestOpenFileAppends(t *testing.T) {
	fsys := afero.NewMemMapFs()
	const path = "/a/b/clipmon.log"

	f, err := OpenFile(fsys, path)
	require.NoError(t, err)
	_, _ = f.WriteString("one\n")
	require.NoError(t, f.Close())

	f, err = OpenFile(fsys, path)
	require.NoError(t, err)
	_, _ = f.WriteString("two\n")
	require.NoError(t, f.Close())

	raw, err := afero.ReadFile(fsys, path)
	require.NoError(t, err)
	assert.Equal(t, "one\ntwo\n", string(raw))
}

func TestParseSize(t *testing.T) {
	n, err := ParseSize("2MiB")
	require.NoError(t, err)
	assert.Equal(t, int64(2*1024*1024), n)

	_, err = ParseSize("lots")
	assert.Error(t, err)
}

func TestDefaultMaxSizeSurvivesFormatting(t *testing.T) {
	assert.Equal(t, "2.0 MiB", FormatSize(DefaultMaxSize))
	n, err := ParseSize(FormatSize(DefaultMaxSize))
	require.NoError(t, err)
	assert.Equal(t, int64(DefaultMaxSize), n)
}
