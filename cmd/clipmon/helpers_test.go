package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.klb.dev/clipmon/internal/history"
)

func TestResolvePathsFromDataDir(t *testing.T) {
	v := viper.New()
	v.Set("data-dir", "/data")

	p, err := resolvePaths(v)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/data", "clipboard_history.json"), p.History)
	assert.Equal(t, filepath.Join("/data", "display.json"), p.Display)
	assert.Equal(t, filepath.Join("/data", "clipmon.log"), p.Log)
}

func TestResolvePathsExplicit(t *testing.T) {
	v := viper.New()
	v.Set("data-dir", "/data")
	v.Set("history-file", "/elsewhere/h.json")
	v.Set("log-file", "-")

	p, err := resolvePaths(v)
	require.NoError(t, err)
	assert.Equal(t, "/elsewhere/h.json", p.History)
	assert.Empty(t, p.Log)
}

func TestResolveLoggingDefaults(t *testing.T) {
	assert.Equal(t, "DEBUG", resolveLogging(true, "auto", "").Level.String())
	assert.Equal(t, "INFO", resolveLogging(false, "auto", "").Level.String())
	assert.Equal(t, "WARN", resolveLogging(true, "json", "warn").Level.String())
}

func TestOneLine(t *testing.T) {
	assert.Equal(t, "a b c", oneLine("  a\n\tb   c\n"))
	assert.Equal(t, "", oneLine("\n\n"))
}

func TestConfirm(t *testing.T) {
	for in, want := range map[string]bool{
		"y\n":   true,
		"YES\n": true,
		"n\n":   false,
		"\n":    false,
		"":      false,
	} {
		var out bytes.Buffer
		assert.Equal(t, want, confirm(strings.NewReader(in), &out, "Sure?"), "input %q", in)
		assert.Equal(t, "Sure? [y/N] ", out.String())
	}
}

func TestFmtAge(t *testing.T) {
	assert.Equal(t, "-", fmtAge(time.Time{}))
	assert.Equal(t, "now", fmtAge(time.Now()))
	assert.Equal(t, "2 hours ago", fmtAge(time.Now().Add(-2*time.Hour)))
}

func TestPrintList(t *testing.T) {
	var out bytes.Buffer
	printList(&out, []history.Snapshot{
		{Key: "2024-05-01T10:00:01.000000", Content: "second\nline"},
		{Key: "2024-05-01T10:00:00.000000", Content: strings.Repeat("x", 80)},
	})

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 4)
	assert.Contains(t, lines[2], "second line")
	assert.Contains(t, lines[3], strings.Repeat("x", 50)+"…")

	out.Reset()
	printList(&out, nil)
	assert.Equal(t, "No clipboard history.\n", out.String())
}

func TestHistoryListJSON(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, afero.WriteFile(afero.NewOsFs(), filepath.Join(dir, history.DefaultFile),
		[]byte(`{"2024-05-01T10:00:00.000000": "old", "2024-05-01T11:00:00.000000": "new"}`), 0o644))

	v := viper.New()
	v.Set("data-dir", dir)
	v.Set("log-file", "-")
	v.Set("socket", filepath.Join(dir, "none.sock"))
	v.Set("json", true)
	v.Set("limit", 1)

	var out bytes.Buffer
	require.NoError(t, runHistoryList(&out, v))
	assert.JSONEq(t, `[{"timestamp": "2024-05-01T11:00:00.000000", "content": "new"}]`, out.String())
}

func TestHistoryDeleteByIndex(t *testing.T) {
	dir := t.TempDir()
	fsys := afero.NewOsFs()
	file := filepath.Join(dir, history.DefaultFile)
	require.NoError(t, afero.WriteFile(fsys, file,
		[]byte(`{"2024-05-01T10:00:00.000000": "old", "2024-05-01T11:00:00.000000": "new"}`), 0o644))

	v := viper.New()
	v.Set("data-dir", dir)
	v.Set("log-file", "-")
	v.Set("socket", filepath.Join(dir, "none.sock"))
	v.Set("index", []int{0})

	var out bytes.Buffer
	require.NoError(t, runHistoryDelete(&out, v, nil))
	assert.Equal(t, "Deleted 1 entry.\n", out.String())

	raw, err := afero.ReadFile(fsys, file)
	require.NoError(t, err)
	assert.JSONEq(t, `{"2024-05-01T10:00:00.000000": "old"}`, string(raw))
}

func TestHistoryDeleteNeedsTarget(t *testing.T) {
	v := viper.New()
	v.Set("log-file", "-")
	assert.Error(t, runHistoryDelete(&bytes.Buffer{}, v, nil))
}

func TestHistoryClearDeclined(t *testing.T) {
	dir := t.TempDir()
	fsys := afero.NewOsFs()
	file := filepath.Join(dir, history.DefaultFile)
	require.NoError(t, afero.WriteFile(fsys, file, []byte(`{"2024-05-01T10:00:00.000000": "keep"}`), 0o644))

	v := viper.New()
	v.Set("data-dir", dir)
	v.Set("log-file", "-")
	v.Set("socket", filepath.Join(dir, "none.sock"))

	require.NoError(t, runHistoryClear(strings.NewReader("n\n"), &bytes.Buffer{}, v))
	raw, err := afero.ReadFile(fsys, file)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "keep")

	v.Set("yes", true)
	require.NoError(t, runHistoryClear(strings.NewReader(""), &bytes.Buffer{}, v))
	raw, err = afero.ReadFile(fsys, file)
	require.NoError(t, err)
	assert.JSONEq(t, `{}`, string(raw))
}
