package display

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/afero"

	"go.klb.dev/clipmon/internal/event"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// document is the on-disk shape: a flat object. Missing keys take their
// default. The lable_* keys are the misspelt names older files used.
type document struct {
	Alpha             *float64 `json:"alpha,omitempty"`
	Background        *string  `json:"bg_color,omitempty"`
	LabelFont         *string  `json:"label_font,omitempty"`
	LabelFontSize     *int     `json:"label_font_size,omitempty"`
	LabelFontWeight   *string  `json:"label_font_weight,omitempty"`
	ContentFont       *string  `json:"content_font,omitempty"`
	ContentFontSize   *int     `json:"content_font_size,omitempty"`
	ContentFontWeight *string  `json:"content_font_weight,omitempty"`

	LegacyLabelFont       *string `json:"lable_font,omitempty"`
	LegacyLabelFontSize   *int    `json:"lable_font_size,omitempty"`
	LegacyLabelFontWeight *string `json:"lable_font_weight,omitempty"`
}

func documentOf(c Config) document {
	return document{
		Alpha:             &c.Alpha,
		Background:        &c.Background,
		LabelFont:         &c.Label.Family,
		LabelFontSize:     &c.Label.Size,
		LabelFontWeight:   &c.Label.Weight,
		ContentFont:       &c.Content.Family,
		ContentFontSize:   &c.Content.Size,
		ContentFontWeight: &c.Content.Weight,
	}
}

func (d document) config() Config {
	c := Default()
	set(&c.Alpha, d.Alpha)
	set(&c.Background, d.Background)
	set(&c.Label.Family, d.LegacyLabelFont)
	set(&c.Label.Size, d.LegacyLabelFontSize)
	set(&c.Label.Weight, d.LegacyLabelFontWeight)
	set(&c.Label.Family, d.LabelFont)
	set(&c.Label.Size, d.LabelFontSize)
	set(&c.Label.Weight, d.LabelFontWeight)
	set(&c.Content.Family, d.ContentFont)
	set(&c.Content.Size, d.ContentFontSize)
	set(&c.Content.Weight, d.ContentFontWeight)
	return c
}

func set[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}

// Manager loads, saves and distributes the display configuration. It is safe
// for concurrent use; Watch delivers reloads from its own goroutine.
type Manager struct {
	fs   afero.Fs
	path string
	sink event.Sink

	mu        sync.Mutex
	cfg       Config
	listeners []Listener
}

// NewManager returns a Manager holding Default() until Load is called.
// sink receives DISPLAY and WARNING events and may be nil.
func NewManager(fsys afero.Fs, path string, sink event.Sink) *Manager {
	if sink == nil {
		sink = event.Discard
	}
	return &Manager{fs: fsys, path: path, sink: sink, cfg: Default()}
}

// Subscribe registers l. It is not called until the next applied change.
func (m *Manager) Subscribe(l Listener) {
	m.mu.Lock()
	m.listeners = append(m.listeners, l)
	m.mu.Unlock()
}

// Config returns the current settings.
func (m *Manager) Config() Config {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cfg
}

// Load reads the document and applies it. A missing document applies the
// defaults and writes them out. An unreadable, corrupt or out-of-range
// document applies the defaults and leaves the file alone for the user to
// fix; the fault is returned for information only.
func (m *Manager) Load() error {
	cfg, err := m.read()
	switch {
	case errors.Is(err, fs.ErrNotExist):
		slog.Info("display configuration not found, using defaults", "path", m.path)
		cfg = Default()
		m.apply(cfg)
		return m.save(cfg)
	case err != nil:
		slog.Error("failed to load display configuration, using defaults", "path", m.path, "err", err)
		m.sink.Notify(event.Warning(event.SourceDisplay, "display configuration unusable, using defaults", err))
		m.apply(Default())
		return err
	}
	slog.Info("loaded display configuration", "path", m.path)
	m.apply(cfg)
	return nil
}

// Update applies fn to a copy of the current settings, validates the result,
// saves it and notifies listeners. Invalid results change nothing.
func (m *Manager) Update(fn func(*Config)) error {
	next := m.Config()
	fn(&next)
	if err := next.Validate(); err != nil {
		return err
	}
	m.apply(next)
	return m.save(next)
}

// Watch reloads the document whenever it changes on disk until ctx ends.
// It watches the containing directory so that editors which replace the
// file are seen too. Only meaningful for managers backed by the OS
// filesystem.
func (m *Manager) Watch(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("display watch: %w", err)
	}
	defer w.Close()

	dir := filepath.Dir(m.path)
	if err := w.Add(dir); err != nil {
		return fmt.Errorf("display watch %s: %w", dir, err)
	}

	var debounce <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != filepath.Clean(m.path) {
				continue
			}
			if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename) {
				debounce = time.After(100 * time.Millisecond)
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			slog.Warn("display watch error", "err", err)
		case <-debounce:
			debounce = nil
			m.reload()
		}
	}
}

// reload applies the document if it parses and differs from what is
// current. Our own saves come back through here and are dropped.
func (m *Manager) reload() {
	cfg, err := m.read()
	if err != nil {
		slog.Warn("ignoring display configuration change", "path", m.path, "err", err)
		return
	}
	if cfg == m.Config() {
		return
	}
	slog.Info("display configuration changed on disk", "path", m.path)
	m.apply(cfg)
}

func (m *Manager) read() (Config, error) {
	raw, err := afero.ReadFile(m.fs, m.path)
	if err != nil {
		return Config{}, err
	}
	var d document
	if err := json.Unmarshal(raw, &d); err != nil {
		return Config{}, fmt.Errorf("decode %s: %w", m.path, err)
	}
	cfg := d.config()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (m *Manager) save(c Config) error {
	raw, err := json.MarshalIndent(documentOf(c), "", "    ")
	if err != nil {
		return err
	}
	if err := m.fs.MkdirAll(filepath.Dir(m.path), 0o755); err != nil {
		return fmt.Errorf("save display configuration: %w", err)
	}
	if err := afero.WriteFile(m.fs, m.path, raw, 0o644); err != nil {
		err = fmt.Errorf("save display configuration: %w", err)
		slog.Error("failed to save display configuration", "err", err)
		m.sink.Notify(event.Warning(event.SourceDisplay, "failed to save display configuration", err))
		return err
	}
	slog.Info("saved display configuration", "path", m.path)
	return nil
}

func (m *Manager) apply(c Config) {
	m.mu.Lock()
	m.cfg = c
	ls := append([]Listener(nil), m.listeners...)
	m.mu.Unlock()

	for _, l := range ls {
		l.ApplyDisplay(c)
	}
	m.sink.Notify(event.Event{
		Kind:    event.KindDisplay,
		Source:  event.SourceDisplay,
		Time:    time.Now(),
		Display: c.Map(),
	})
}

// Map returns c as its on-disk key/value form.
func (c Config) Map() map[string]any {
	return map[string]any{
		"alpha":               c.Alpha,
		"bg_color":            c.Background,
		"label_font":          c.Label.Family,
		"label_font_size":     c.Label.Size,
		"label_font_weight":   c.Label.Weight,
		"content_font":        c.Content.Family,
		"content_font_size":   c.Content.Size,
		"content_font_weight": c.Content.Weight,
	}
}
