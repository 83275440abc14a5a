// Package history implements the clipboard history store: a mapping from
// timestamp key to captured text, persisted as a single JSON document after
// every mutation.
//
// The store is not safe for concurrent use. clipmon only touches it from the
// scheduler goroutine.
package history

import (
	"errors"
	"fmt"
	"io/fs"
	"iter"
	"log/slog"
	"path/filepath"
	"slices"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/afero"

	"go.klb.dev/clipmon/internal/event"
)

// DefaultFile is the history document name inside the data directory.
const DefaultFile = "clipboard_history.json"

// ErrCorrupt is returned by Load when the history document is not valid JSON
// or has neither of the supported shapes.
var ErrCorrupt = errors.New("history document corrupt")

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Snapshot is one recorded clipboard value.
type Snapshot struct {
	Key     string `json:"timestamp"`
	Content string `json:"content"`
}

// Time parses the snapshot key. ok is false for keys not in KeyLayout form.
func (s Snapshot) Time() (t time.Time, ok bool) {
	t, err := time.ParseInLocation("2006-01-02T15:04:05", s.Key, time.Local)
	return t, err == nil
}

// Store is the clipboard history.
type Store struct {
	fs      afero.Fs
	path    string
	sink    event.Sink
	log     *slog.Logger
	keys    keygen
	entries map[string]string
	err     error
}

// New returns an empty store backed by path on fsys. sink receives warnings
// about storage faults and may be nil.
func New(fsys afero.Fs, path string, sink event.Sink) *Store {
	if sink == nil {
		sink = event.Discard
	}
	return &Store{
		fs:      fsys,
		path:    path,
		sink:    sink,
		log:     slog.Default().With("component", "history"),
		keys:    keygen{now: time.Now},
		entries: make(map[string]string),
	}
}

// Path returns the backing document path.
func (s *Store) Path() string { return s.path }

// Load replaces the in-memory history with the persisted document.
//
// A missing document yields an empty store and a nil error. An unreadable or
// corrupt document also yields an empty store; the fault is logged, reported
// to the sink and returned for information only. The store is usable in
// every case.
func (s *Store) Load() error {
	s.entries = make(map[string]string)

	raw, err := afero.ReadFile(s.fs, s.path)
	if errors.Is(err, fs.ErrNotExist) {
		s.log.Info("no history file, starting empty", "path", s.path)
		return nil
	}
	if err != nil {
		err = fmt.Errorf("read history %s: %w", s.path, err)
		s.fault("history file unreadable, starting empty", err)
		return err
	}

	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		err = fmt.Errorf("%w: %s: %v", ErrCorrupt, s.path, err)
		s.fault("failed to decode history file, starting empty", err)
		return err
	}

	switch v := doc.(type) {
	case map[string]any:
		for k, c := range v {
			s.entries[k] = contentOf(c)
			s.keys.seen(k)
		}
		s.log.Info("history loaded", "path", s.path, "entries", len(s.entries))
	case []any:
		s.log.Warn("history file is a list, converting to timestamped entries",
			"path", s.path, "entries", len(v))
		for _, c := range v {
			s.entries[s.newKey()] = contentOf(c)
		}
	default:
		err := fmt.Errorf("%w: %s: top-level %T", ErrCorrupt, s.path, doc)
		s.fault("unexpected history file shape, starting empty", err)
		return err
	}
	return nil
}

// Add records content under a fresh key and persists the store.
func (s *Store) Add(content string) Snapshot {
	snap := Snapshot{Key: s.newKey(), Content: content}
	s.entries[snap.Key] = content
	s.log.Info("adding to clipboard history",
		"key", snap.Key, "preview", event.Preview(content, event.PreviewLen))
	_ = s.Save()
	s.changed("add")
	return snap
}

// Delete removes the given keys and persists the store. Unknown keys are
// logged and skipped. It returns the number of entries removed.
func (s *Store) Delete(keys ...string) int {
	n := 0
	for _, k := range keys {
		if _, ok := s.entries[k]; !ok {
			s.log.Warn("delete: no entry with key", "key", k)
			continue
		}
		delete(s.entries, k)
		s.log.Info("deleted history entry", "key", k)
		n++
	}
	_ = s.Save()
	s.changed("delete")
	return n
}

// DeleteAt removes entries by their position in ListDescending order, the
// way a list selection in a host UI addresses them. Indices that no longer
// match an entry are reported as warnings.
func (s *Store) DeleteAt(indices ...int) int {
	keys := s.sortedKeys()
	var del []string
	for _, i := range indices {
		if i < 0 || i >= len(keys) {
			s.log.Warn("delete: index out of range", "index", i, "entries", len(keys))
			s.sink.Notify(event.Warning(event.SourceHistory,
				fmt.Sprintf("no history entry at index %d", i), nil))
			continue
		}
		del = append(del, keys[i])
	}
	return s.Delete(del...)
}

// Clear removes every entry and persists the empty store.
func (s *Store) Clear() {
	n := len(s.entries)
	clear(s.entries)
	s.log.Info("all clipboard records cleared", "removed", n)
	_ = s.Save()
	s.changed("clear")
}

// Save writes the whole history to the backing document, replacing it
// atomically. A failure is logged, reported and returned; memory stays the
// source of truth and the next mutation tries again.
func (s *Store) Save() error {
	if err := s.write(); err != nil {
		s.err = fmt.Errorf("save history %s: %w", s.path, err)
		s.fault("failed to save clipboard history", s.err)
		return s.err
	}
	s.err = nil
	s.log.Debug("saved clipboard history", "path", s.path, "entries", len(s.entries))
	return nil
}

// Err returns the error from the most recent save, or nil if it succeeded.
func (s *Store) Err() error { return s.err }

func (s *Store) write() error {
	raw, err := json.MarshalIndent(s.entries, "", "    ")
	if err != nil {
		return err
	}
	dir := filepath.Dir(s.path)
	if err := s.fs.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := afero.TempFile(s.fs, dir, ".history-*.tmp")
	if err != nil {
		return err
	}
	name := tmp.Name()
	if _, err := tmp.Write(raw); err != nil {
		_ = tmp.Close()
		_ = s.fs.Remove(name)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = s.fs.Remove(name)
		return err
	}
	if err := s.fs.Rename(name, s.path); err != nil {
		_ = s.fs.Remove(name)
		return err
	}
	return nil
}

// ListDescending yields (key, content) pairs, most recent first. Each range
// over the returned sequence sorts a fresh copy of the keys, so it can be
// reused after the store changes.
func (s *Store) ListDescending() iter.Seq2[string, string] {
	return func(yield func(string, string) bool) {
		for _, k := range s.sortedKeys() {
			c, ok := s.entries[k]
			if !ok {
				// removed by the consumer mid-iteration
				continue
			}
			if !yield(k, c) {
				return
			}
		}
	}
}

// Snapshots returns every entry, most recent first.
func (s *Store) Snapshots() []Snapshot {
	out := make([]Snapshot, 0, len(s.entries))
	for k, c := range s.ListDescending() {
		out = append(out, Snapshot{Key: k, Content: c})
	}
	return out
}

// KeyAt returns the key at position i in ListDescending order.
func (s *Store) KeyAt(i int) (string, bool) {
	keys := s.sortedKeys()
	if i < 0 || i >= len(keys) {
		return "", false
	}
	return keys[i], true
}

// Get returns the content stored under key.
func (s *Store) Get(key string) (string, bool) {
	c, ok := s.entries[key]
	return c, ok
}

// Len returns the number of entries.
func (s *Store) Len() int { return len(s.entries) }

func (s *Store) sortedKeys() []string {
	keys := make([]string, 0, len(s.entries))
	for k := range s.entries {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	slices.Reverse(keys)
	return keys
}

func (s *Store) newKey() string {
	for {
		k := s.keys.next()
		if _, taken := s.entries[k]; !taken {
			return k
		}
	}
}

// changed tells the sink the store was mutated. Hosts re-read the store from
// the same goroutine in response.
func (s *Store) changed(op string) {
	s.sink.Notify(event.Event{
		Kind:    event.KindHistory,
		Source:  event.SourceHistory,
		Time:    time.Now(),
		Op:      op,
		Entries: len(s.entries),
	})
}

func (s *Store) fault(msg string, err error) {
	s.log.Error(msg, "err", err)
	s.sink.Notify(event.Warning(event.SourceHistory, msg, err))
}

// contentOf converts a decoded JSON value to stored text. Strings are kept
// verbatim; anything else keeps its compact JSON form.
func contentOf(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}
