package event

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPreview(t *testing.T) {
	assert.Equal(t, "short", Preview("short", 10))
	assert.Equal(t, "abc…", Preview("abcdef", 3))
	assert.Equal(t, "••…", Preview("••••", 2))
	assert.Equal(t, "", Preview("", 5))
}

func TestWarningCarriesError(t *testing.T) {
	ev := Warning(SourceHistory, "save failed", errors.New("disk full"))
	assert.Equal(t, KindWarning, ev.Kind)
	assert.Equal(t, "disk full", ev.Error)

	assert.Empty(t, Warning(SourceWatcher, "no error", nil).Error)
}

func TestMultiSkipsNil(t *testing.T) {
	var a, b int
	s := Multi(SinkFunc(func(Event) { a++ }), nil, SinkFunc(func(Event) { b++ }))
	s.Notify(Changed("x"))
	assert.Equal(t, 1, a)
	assert.Equal(t, 1, b)
}

func TestStreamRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	enc := NewEncoder(&buf)
	at := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	sent := []Event{
		{Kind: KindChanged, Source: SourceWatcher, Time: at, Text: "line one\nline two"},
		{Kind: KindUsage, Source: SourceSysinfo, Time: at, Usage: &Usage{CPUPercent: 12.5, MemPercent: 40}},
		{Kind: KindHistory, Source: SourceHistory, Time: at, Op: "add", Entries: 3},
	}
	for _, ev := range sent {
		require.NoError(t, enc.Encode(ev))
	}
	assert.Equal(t, len(sent), strings.Count(buf.String(), "\n"))

	dec := NewDecoder(&buf)
	for _, want := range sent {
		got, err := dec.Decode()
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := dec.Decode()
	assert.ErrorIs(t, err, io.EOF)
}

func TestDecoderSkipsBlankLines(t *testing.T) {
	dec := NewDecoder(strings.NewReader("\n\n{\"kind\":\"WARNING\",\"source\":\"display\",\"time\":\"2024-05-01T10:00:00Z\",\"message\":\"m\"}\n\n"))
	ev, err := dec.Decode()
	require.NoError(t, err)
	assert.Equal(t, KindWarning, ev.Kind)
	assert.Equal(t, "m", ev.Message)

	_, err = dec.Decode()
	assert.ErrorIs(t, err, io.EOF)
}

func TestDecoderRejectsGarbage(t *testing.T) {
	_, err := NewDecoder(strings.NewReader("not json\n")).Decode()
	require.Error(t, err)
	assert.NotErrorIs(t, err, io.EOF)
}
