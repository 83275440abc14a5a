// Package event defines the notifications the clipmon core sends to whatever
// host is driving it (the terminal UI, the headless watcher, an external
// process reading the NDJSON stream).
//
// Events are plain values. Sinks must not block: they are called from the
// scheduler goroutine that also polls the clipboard.
package event

import (
	"time"
	"unicode/utf8"
)

// Kind identifies the kind of event.
type Kind string

const (
	KindChanged Kind = "CHANGED"
	KindWarning Kind = "WARNING"
	KindUsage   Kind = "USAGE"
	KindDisplay Kind = "DISPLAY"
	KindHistory Kind = "HISTORY"
)

// Source names the component that raised an event.
type Source string

const (
	SourceWatcher Source = "watcher"
	SourceHistory Source = "history"
	SourceSysinfo Source = "sysinfo"
	SourceDisplay Source = "display"
)

// PreviewLen is the number of runes shown for clipboard text in lists and logs.
const PreviewLen = 50

// Usage is a host resource sample.
type Usage struct {
	CPUPercent float64 `json:"cpu_percent"`
	MemPercent float64 `json:"mem_percent"`
}

// Event is the envelope delivered to sinks and written to the event stream.
type Event struct {
	Kind   Kind      `json:"kind"`
	Source Source    `json:"source"`
	Time   time.Time `json:"time"`

	// CHANGED: the new clipboard text, verbatim.
	Text string `json:"text,omitempty"`

	// WARNING
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`

	// USAGE
	Usage *Usage `json:"usage,omitempty"`

	// HISTORY: the operation that changed the store and its new size.
	Op      string `json:"op,omitempty"`
	Entries int    `json:"entries,omitempty"`

	// DISPLAY: the applied configuration, as its JSON document.
	Display map[string]any `json:"display,omitempty"`
}

// Changed builds a CHANGED event.
func Changed(text string) Event {
	return Event{Kind: KindChanged, Source: SourceWatcher, Time: time.Now(), Text: text}
}

// Warning builds a WARNING event. err may be nil.
func Warning(src Source, msg string, err error) Event {
	ev := Event{Kind: KindWarning, Source: src, Time: time.Now(), Message: msg}
	if err != nil {
		ev.Error = err.Error()
	}
	return ev
}

// Sink receives events. Notify must not block.
type Sink interface {
	Notify(Event)
}

// SinkFunc adapts a function to a Sink.
type SinkFunc func(Event)

func (f SinkFunc) Notify(ev Event) { f(ev) }

// Discard drops every event.
var Discard Sink = SinkFunc(func(Event) {})

// Multi fans an event out to each non-nil sink in order.
func Multi(sinks ...Sink) Sink {
	out := make([]Sink, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			out = append(out, s)
		}
	}
	return SinkFunc(func(ev Event) {
		for _, s := range out {
			s.Notify(ev)
		}
	})
}

// Preview returns at most n runes of s, with an ellipsis when truncated.
func Preview(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos] + "…"
		}
		i++
	}
	return s
}
