package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"go.klb.dev/clipmon/internal/clip"
	"go.klb.dev/clipmon/internal/display"
	"go.klb.dev/clipmon/internal/event"
	"go.klb.dev/clipmon/internal/history"
	"go.klb.dev/clipmon/internal/ipc"
	"go.klb.dev/clipmon/internal/logging"
	"go.klb.dev/clipmon/internal/scheduler"
	"go.klb.dev/clipmon/internal/sysinfo"
	"go.klb.dev/clipmon/internal/watcher"
)

// addCoreFlags adds the flags of the long-running commands (watch, ui).
func addCoreFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.Duration("poll-interval", 500*time.Millisecond, "clipboard poll interval")
	f.Duration("usage-interval", time.Second, "CPU/memory sample interval")
	f.Duration("rotate-interval", 10*time.Minute, "log size check interval")
	f.String("log-max-size", logging.FormatSize(logging.DefaultMaxSize), "truncate the log file once it grows past this size")
	f.StringSlice("sentinel", watcher.DefaultSentinels, "clipboard values that are never recorded")
	addClipboardFlags(cmd)
	addStorageFlags(cmd)
}

// core is everything a long-running host needs: the history, the watcher
// feeding it, the display settings and the loop that drives them.
type core struct {
	fs      afero.Fs
	paths   paths
	store   *history.Store
	display *display.Manager
	backend clip.Backend
	watcher *watcher.Watcher
	sched   *scheduler.Scheduler
}

// newCore builds and loads the core. Nothing runs until run is called.
func newCore(v *viper.Viper, fsys afero.Fs, p paths, sink event.Sink) (*core, error) {
	kind, err := clip.ParseKind(v.GetString("backend"))
	if err != nil {
		return nil, err
	}
	poll := v.GetDuration("poll-interval")
	usage := v.GetDuration("usage-interval")
	rotate := v.GetDuration("rotate-interval")
	for name, d := range map[string]time.Duration{
		"poll-interval":   poll,
		"usage-interval":  usage,
		"rotate-interval": rotate,
	} {
		if d <= 0 {
			return nil, fmt.Errorf("--%s must be positive, got %v", name, d)
		}
	}
	maxSize, err := logging.ParseSize(v.GetString("log-max-size"))
	if err != nil {
		return nil, fmt.Errorf("--log-max-size: %w", err)
	}

	backend, err := clip.Open(kind)
	if err != nil {
		return nil, err
	}

	c := &core{
		fs:      fsys,
		paths:   p,
		store:   history.New(fsys, p.History, sink),
		display: display.NewManager(fsys, p.Display, sink),
		backend: backend,
		sched:   scheduler.New(16),
	}
	// Faults are already reported through sink; both loaders leave a usable
	// state behind.
	_ = c.store.Load()
	_ = c.display.Load()

	c.watcher = watcher.New(backend, c.store, sink, v.GetStringSlice("sentinel"))

	c.sched.Every("clipboard", poll, func(ctx context.Context) { c.watcher.Poll(ctx) })
	c.sched.Every("usage", usage, sysinfo.New().Task(sink))
	if p.Log != "" {
		c.sched.Every("log-rotate", rotate, logging.NewRotator(fsys, p.Log, maxSize).Task())
	}

	slog.Info("clipmon core ready",
		"backend", backend.Name(),
		"history", p.History,
		"entries", c.store.Len(),
		"display", p.Display,
		"poll", poll,
	)
	return c, nil
}

// run drives the scheduler and the display watch until ctx ends.
func (c *core) run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return c.sched.Run(ctx) })
	g.Go(func() error { return c.serveControl(ctx) })
	g.Go(func() error {
		if _, ok := c.fs.(*afero.OsFs); !ok {
			return nil
		}
		if err := c.display.Watch(ctx); err != nil {
			slog.Warn("display settings will not reload on external edits", "err", err)
		}
		return nil
	})
	return g.Wait()
}

// serveControl answers history commands from other clipmon processes on the
// control socket, so their edits go through this process's store.
func (c *core) serveControl(ctx context.Context) error {
	ln, err := ipc.Listen(c.paths.Socket)
	if err != nil {
		slog.Warn("control socket unavailable, history commands will edit the file directly", "err", err)
		return nil
	}
	slog.Info("control socket listening", "path", c.paths.Socket)
	return ipc.Serve(ctx, ln, c.handle)
}

// handle runs req on the loop goroutine and waits for the answer.
func (c *core) handle(ctx context.Context, req ipc.Request) ipc.Response {
	done := make(chan ipc.Response, 1)
	if !c.sched.Do(ctx, func() { done <- c.apply(req) }) {
		return ipc.Response{Error: "clipmon is shutting down"}
	}
	select {
	case resp := <-done:
		return resp
	case <-ctx.Done():
		return ipc.Response{Error: "clipmon is shutting down"}
	}
}

// apply executes a control request. Loop goroutine only.
func (c *core) apply(req ipc.Request) ipc.Response {
	var resp ipc.Response
	switch req.Op {
	case ipc.OpPing:
	case ipc.OpDelete:
		if len(req.Indices) > 0 {
			resp.Removed += c.store.DeleteAt(req.Indices...)
		}
		if len(req.Keys) > 0 {
			resp.Removed += c.store.Delete(req.Keys...)
		}
		if err := c.store.Err(); err != nil {
			resp.Error = err.Error()
		}
	case ipc.OpClear:
		resp.Removed = c.store.Len()
		c.store.Clear()
		if err := c.store.Err(); err != nil {
			resp.Error = err.Error()
		}
	case ipc.OpCopy:
		text, err := lookupEntry(c.store, req)
		if err == nil {
			err = c.watcher.Copy(text)
		}
		if err != nil {
			resp.Error = err.Error()
		} else {
			resp.Text = text
		}
	default:
		resp.Error = fmt.Sprintf("unknown operation %q", req.Op)
	}
	resp.Entries = c.store.Len()
	return resp
}

// lookupEntry returns the text of the one entry req names by key or index.
func lookupEntry(store *history.Store, req ipc.Request) (string, error) {
	var key string
	switch {
	case len(req.Keys) == 1 && len(req.Indices) == 0:
		key = req.Keys[0]
	case len(req.Indices) == 1 && len(req.Keys) == 0:
		var ok bool
		if key, ok = store.KeyAt(req.Indices[0]); !ok {
			return "", fmt.Errorf("no history entry at index %d", req.Indices[0])
		}
	default:
		return "", errors.New("name exactly one entry")
	}
	text, ok := store.Get(key)
	if !ok {
		return "", fmt.Errorf("no history entry with key %q", key)
	}
	return text, nil
}

// do queues fn for the loop goroutine without blocking the caller. Actions
// from one caller run in order; when the queue is full fn is dropped and
// do reports false.
func (c *core) do(fn func()) bool {
	if !c.sched.TryDo(fn) {
		slog.Warn("clipmon busy, action dropped")
		return false
	}
	return true
}

func (c *core) Close() error {
	c.backend.Close()
	return nil
}

// openStore loads the history for the one-shot commands. A corrupt document
// is logged by the store and leaves it empty, as in the long-running hosts.
func openStore(fsys afero.Fs, p paths) *history.Store {
	s := history.New(fsys, p.History, nil)
	_ = s.Load()
	return s
}
