package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/gdamore/tcell/v2"
	"github.com/spf13/afero"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.klb.dev/clipmon/internal/display"
	"go.klb.dev/clipmon/internal/history"
	"go.klb.dev/clipmon/internal/ipc"
	"go.klb.dev/clipmon/internal/watcher"
)

type memClipboard struct{ text string }

func (*memClipboard) Name() string                { return "memory" }
func (m *memClipboard) ReadText() (string, error) { return m.text, nil }
func (m *memClipboard) WriteText(s string) error  { m.text = s; return nil }
func (*memClipboard) Close()                      {}

// recorder is a core backed by memory, answering on a real control socket.
// No scheduler loop is running; mu stands in for it, so tests read state
// through inspect.
type recorder struct {
	*core
	clipboard *memClipboard
	dir       string
	mu        sync.Mutex
}

func (r *recorder) inspect(fn func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fn()
}

func startRecorder(t *testing.T, contents ...string) *recorder {
	t.Helper()
	dir, err := os.MkdirTemp("", "clipmon")
	require.NoError(t, err)
	t.Cleanup(func() { _ = os.RemoveAll(dir) })

	cb := &memClipboard{}
	store := history.New(afero.NewMemMapFs(), "/h.json", nil)
	for _, c := range contents {
		store.Add(c)
	}
	c := &core{
		paths:   paths{DataDir: dir, Socket: filepath.Join(dir, "c.sock")},
		store:   store,
		backend: cb,
	}
	c.watcher = watcher.New(cb, store, nil, nil)

	r := &recorder{core: c, clipboard: cb, dir: dir}
	ln, err := ipc.Listen(c.paths.Socket)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = ipc.Serve(ctx, ln, func(_ context.Context, req ipc.Request) ipc.Response {
			r.mu.Lock()
			defer r.mu.Unlock()
			return c.apply(req)
		})
	}()
	t.Cleanup(func() { cancel(); <-done })

	return r
}

func (r *recorder) viper() *viper.Viper {
	v := viper.New()
	v.Set("data-dir", r.dir)
	v.Set("log-file", "-")
	v.Set("socket", r.paths.Socket)
	return v
}

func TestHistoryDeleteGoesThroughRecorder(t *testing.T) {
	r := startRecorder(t, "old", "new")
	v := r.viper()
	v.Set("index", []int{0})

	var out bytes.Buffer
	require.NoError(t, runHistoryDelete(&out, v, nil))
	assert.Equal(t, "Deleted 1 entry.\n", out.String())

	var snaps []history.Snapshot
	r.inspect(func() { snaps = r.store.Snapshots() })
	require.Len(t, snaps, 1)
	assert.Equal(t, "old", snaps[0].Content)

	// The recorder's own document was rewritten; nothing was written under
	// the data directory.
	_, err := os.Stat(filepath.Join(r.dir, history.DefaultFile))
	assert.True(t, os.IsNotExist(err))
}

func TestHistoryDeleteUnknownKeyThroughRecorder(t *testing.T) {
	r := startRecorder(t, "keep")
	assert.Error(t, runHistoryDelete(&bytes.Buffer{}, r.viper(), []string{"nope"}))
	r.inspect(func() { assert.Equal(t, 1, r.store.Len()) })
}

func TestHistoryClearGoesThroughRecorder(t *testing.T) {
	r := startRecorder(t, "a", "b")
	v := r.viper()
	v.Set("yes", true)

	require.NoError(t, runHistoryClear(nil, &bytes.Buffer{}, v))
	r.inspect(func() { assert.Equal(t, 0, r.store.Len()) })
}

func TestHistoryCopyGoesThroughRecorder(t *testing.T) {
	r := startRecorder(t, "first", "second")
	v := r.viper()
	v.Set("index", 1)

	var out bytes.Buffer
	require.NoError(t, runHistoryCopy(&out, v, nil))
	assert.Equal(t, "Copied first\n", out.String())

	r.inspect(func() {
		assert.Equal(t, "first", r.clipboard.text)
		// The recorder adopted the value, so its next poll records nothing new.
		assert.Equal(t, watcher.ResultUnchanged, r.watcher.Poll(context.Background()))
		assert.Equal(t, 2, r.store.Len())
	})
}

func TestApplyRejectsUnknownOp(t *testing.T) {
	r := startRecorder(t, "a")
	var resp ipc.Response
	r.inspect(func() { resp = r.apply(ipc.Request{Op: "explode"}) })
	assert.NotEmpty(t, resp.Error)
	assert.Equal(t, 1, resp.Entries)
}

func TestShorthandBackgroundRenders(t *testing.T) {
	c := display.Default()
	c.Background = "#fff"
	require.NoError(t, c.Validate())
	assert.Equal(t, tcell.GetColor("#ffffff"), tcell.GetColor(c.BackgroundHex()))
	assert.NotEqual(t, tcell.ColorDefault, tcell.GetColor(c.BackgroundHex()))
}
