// Package watcher detects clipboard changes and records them in the history.
package watcher

import (
	"context"
	"fmt"
	"log/slog"

	"go.klb.dev/clipmon/internal/clip"
	"go.klb.dev/clipmon/internal/event"
	"go.klb.dev/clipmon/internal/history"
)

// MaskedPassword is the placeholder some password-manager integrations put on
// the clipboard in place of a protected value.
const MaskedPassword = "••••••••••"

// DefaultSentinels is the block-list used when none is configured.
var DefaultSentinels = []string{MaskedPassword}

// Recorder stores genuine clipboard changes. *history.Store satisfies it.
type Recorder interface {
	Add(content string) history.Snapshot
}

// Result reports what a single Poll did.
type Result int

const (
	ResultUnchanged Result = iota
	ResultChanged
	ResultRejected
	ResultFailed
)

func (r Result) String() string {
	switch r {
	case ResultUnchanged:
		return "unchanged"
	case ResultChanged:
		return "changed"
	case ResultRejected:
		return "rejected"
	case ResultFailed:
		return "failed"
	default:
		return fmt.Sprintf("Result(%d)", int(r))
	}
}

// Watcher owns the last-seen clipboard value. Like the history store it is
// driven from a single goroutine.
type Watcher struct {
	backend   clip.Backend
	rec       Recorder
	sink      event.Sink
	sentinels map[string]struct{}
	last      string
}

// New returns a Watcher that reads backend and records changes in rec.
// sentinels replaces DefaultSentinels when non-empty. sink may be nil.
func New(backend clip.Backend, rec Recorder, sink event.Sink, sentinels []string) *Watcher {
	if sink == nil {
		sink = event.Discard
	}
	if len(sentinels) == 0 {
		sentinels = DefaultSentinels
	}
	set := make(map[string]struct{}, len(sentinels))
	for _, s := range sentinels {
		set[s] = struct{}{}
	}
	return &Watcher{
		backend:   backend,
		rec:       rec,
		sink:      sink,
		sentinels: set,
	}
}

// Current returns the last genuine clipboard value seen or copied.
func (w *Watcher) Current() string { return w.last }

// Poll reads the clipboard once and acts on any change. It never panics on
// backend failures; the caller re-arms it whatever the result.
func (w *Watcher) Poll(_ context.Context) Result {
	text, err := w.backend.ReadText()
	if err != nil {
		slog.Error("error accessing clipboard", "backend", w.backend.Name(), "err", err)
		w.sink.Notify(event.Warning(event.SourceWatcher, "clipboard read failed", err))
		return ResultFailed
	}
	if text == w.last || text == "" {
		return ResultUnchanged
	}

	if _, blocked := w.sentinels[text]; blocked {
		w.reject(text)
		return ResultRejected
	}

	w.last = text
	logChange("clipboard changed", text)
	w.sink.Notify(event.Changed(text))
	w.rec.Add(text)
	return ResultChanged
}

// reject undoes a sentinel overwrite by putting the last good value back.
func (w *Watcher) reject(text string) {
	slog.Warn("clipboard contains placeholder text", "text", text)

	if w.last == "" {
		w.sink.Notify(event.Warning(event.SourceWatcher,
			"clipboard placeholder rejected; no previous value to restore", nil))
		return
	}
	if err := w.backend.WriteText(w.last); err != nil {
		slog.Error("failed to restore clipboard", "err", err)
		w.sink.Notify(event.Warning(event.SourceWatcher,
			"clipboard placeholder rejected; restore failed", err))
		return
	}
	slog.Warn("clipboard restored to previous text",
		"preview", event.Preview(w.last, event.PreviewLen))
	w.sink.Notify(event.Warning(event.SourceWatcher,
		"clipboard placeholder rejected; previous value restored", nil))
}

// Copy puts text on the clipboard, e.g. when the user picks a history entry.
// The watcher adopts it as the last-seen value so the next Poll does not
// record it again.
func (w *Watcher) Copy(text string) error {
	if err := w.backend.WriteText(text); err != nil {
		return fmt.Errorf("copy to clipboard: %w", err)
	}
	w.last = text
	logChange("copied record to clipboard", text)
	w.sink.Notify(event.Changed(text))
	return nil
}
