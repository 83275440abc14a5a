package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"go.klb.dev/clipmon/internal/display"
	"go.klb.dev/clipmon/internal/event"
	"go.klb.dev/clipmon/internal/history"
	"go.klb.dev/clipmon/internal/sysinfo"
)

func newUICmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "ui",
		Short: "Show the clipboard history in a terminal window",
		Long: `Records clipboard history like "watch" and shows it in the terminal.

  Enter  copy the selected entry back to the clipboard
  d      delete the selected entry
  c      clear the whole history (asks first)
  t      show or hide entry timestamps
  q      quit

Logs go to the log file only. The background colour and label weight follow
the display settings and change as soon as the settings file does.`,
		Args:    cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error { return bindViper(cmd, v) },
		RunE:    func(cmd *cobra.Command, _ []string) error { return runUI(cmd.Context(), v) },
	}

	addCoreFlags(cmd)
	addLoggingFlags(cmd)
	addConfigFlag(cmd)

	return cmd
}

func runUI(ctx context.Context, v *viper.Viper) error {
	fsys := afero.NewOsFs()
	p, err := resolvePaths(v)
	if err != nil {
		return err
	}
	logFile, err := setupLogging(v, fsys, p, nil)
	if err != nil {
		return err
	}
	defer logFile.Close()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	u := newView()
	c, err := newCore(v, fsys, p, u)
	if err != nil {
		return err
	}
	defer c.Close()
	u.attach(c)

	slog.Info("clipmon ui starting", "version", Version)

	go u.forward(ctx)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return c.run(gctx) })
	g.Go(func() error {
		<-gctx.Done()
		u.app.Stop()
		return nil
	})
	g.Go(func() error {
		defer cancel()
		return u.app.Run()
	})
	err = g.Wait()
	slog.Info("clipmon ui stopped")
	return err
}

// view is the terminal window. Widgets and the fields marked below are only
// touched on the tview goroutine; the core reaches them through schedule.
type view struct {
	app     *tview.Application
	pages   *tview.Pages
	layout  *tview.Flex
	label   *tview.TextView
	current *tview.TextView
	usage   *tview.TextView
	list    *tview.List
	notice  *tview.TextView
	footer  *tview.TextView

	core *core

	// tview goroutine only
	snaps     []history.Snapshot
	showTimes bool

	mu      sync.Mutex
	pending map[string]func()
	wake    chan struct{}
}

func newView() *view {
	u := &view{
		app:     tview.NewApplication(),
		pages:   tview.NewPages(),
		label:   tview.NewTextView().SetDynamicColors(true),
		current: tview.NewTextView().SetDynamicColors(true).SetWrap(true),
		usage:   tview.NewTextView(),
		list:    tview.NewList().ShowSecondaryText(false).SetHighlightFullLine(true),
		notice:  tview.NewTextView().SetDynamicColors(true),
		footer:  tview.NewTextView().SetDynamicColors(true),
		pending: make(map[string]func()),
		wake:    make(chan struct{}, 1),
	}

	u.footer.SetText("[::d]Enter[::-] copy  [::d]d[::-] delete  [::d]c[::-] clear  [::d]t[::-] timestamps  [::d]q[::-] quit")
	u.list.SetBorder(true).SetTitle(" History ")
	u.list.SetSelectedFunc(func(i int, _, _ string, _ rune) { u.copyAt(i) })
	u.list.SetInputCapture(u.listKeys)

	u.layout = tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(u.label, 1, 0, false).
		AddItem(u.current, 5, 0, false).
		AddItem(u.usage, 1, 0, false).
		AddItem(u.list, 0, 1, true).
		AddItem(u.notice, 1, 0, false).
		AddItem(u.footer, 1, 0, false)

	modal := tview.NewModal().
		SetText("Clear all clipboard history?").
		AddButtons([]string{"Clear", "Cancel"})
	modal.SetDoneFunc(func(_ int, label string) {
		u.pages.HidePage("confirm")
		u.app.SetFocus(u.list)
		if label == "Clear" {
			u.clearAll()
		}
	})

	u.pages.AddPage("main", u.layout, true, true)
	u.pages.AddPage("confirm", modal, true, false)
	u.app.SetRoot(u.pages, true)
	return u
}

// attach connects the view to a loaded core and shows its current state.
// It must be called before the application runs.
func (u *view) attach(c *core) {
	u.core = c
	u.applyDisplay(c.display.Config())
	c.display.Subscribe(u)
	u.current.SetText(tview.Escape(c.watcher.Current()))
	u.setHistory(c.store.Snapshots())
}

// Notify runs on the scheduler goroutine, so reading the store here is safe.
func (u *view) Notify(ev event.Event) {
	switch ev.Kind {
	case event.KindChanged:
		text := ev.Text
		u.schedule("current", func() { u.current.SetText(tview.Escape(text)) })
	case event.KindHistory:
		if u.core == nil {
			return
		}
		snaps := u.core.store.Snapshots()
		u.schedule("history", func() { u.setHistory(snaps) })
	case event.KindUsage:
		if ev.Usage == nil {
			return
		}
		line := sysinfo.Format(*ev.Usage)
		u.schedule("usage", func() { u.usage.SetText(line) })
	case event.KindWarning:
		msg := ev.Message
		if ev.Error != "" {
			msg += ": " + ev.Error
		}
		u.schedule("notice", func() { u.notice.SetText("[yellow]" + tview.Escape(msg)) })
	}
}

// ApplyDisplay may be called from the display watch goroutine.
func (u *view) ApplyDisplay(c display.Config) {
	u.schedule("display", func() { u.applyDisplay(c) })
}

// schedule records fn as the latest update for id and wakes forward. Later
// updates for the same id replace earlier ones that have not been drawn yet.
func (u *view) schedule(id string, fn func()) {
	u.mu.Lock()
	u.pending[id] = fn
	u.mu.Unlock()
	select {
	case u.wake <- struct{}{}:
	default:
	}
}

// forward hands pending updates to the tview goroutine until ctx ends.
// QueueUpdateDraw waits for the draw, so this runs outside the errgroup.
func (u *view) forward(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-u.wake:
		}
		u.mu.Lock()
		batch := u.pending
		u.pending = make(map[string]func())
		u.mu.Unlock()

		u.app.QueueUpdateDraw(func() {
			for _, fn := range batch {
				fn()
			}
		})
	}
}

func (u *view) applyDisplay(c display.Config) {
	bg := tcell.GetColor(c.BackgroundHex())
	u.layout.SetBackgroundColor(bg)
	u.label.SetBackgroundColor(bg)
	u.current.SetBackgroundColor(bg)
	u.usage.SetBackgroundColor(bg)
	u.list.SetBackgroundColor(bg)
	u.notice.SetBackgroundColor(bg)
	u.footer.SetBackgroundColor(bg)
	if c.Label.Weight == display.WeightBold {
		u.label.SetText("[::b]Current Clipboard:")
	} else {
		u.label.SetText("Current Clipboard:")
	}
}

func (u *view) setHistory(snaps []history.Snapshot) {
	u.snaps = snaps
	cur := u.list.GetCurrentItem()
	u.list.Clear()
	for _, s := range snaps {
		u.list.AddItem(u.row(s), "", 0, nil)
	}
	if cur >= len(snaps) {
		cur = len(snaps) - 1
	}
	if cur >= 0 {
		u.list.SetCurrentItem(cur)
	}
	u.list.SetTitle(fmt.Sprintf(" History (%d) ", len(snaps)))
}

func (u *view) row(s history.Snapshot) string {
	text := tview.Escape(event.Preview(oneLine(s.Content), event.PreviewLen))
	if !u.showTimes {
		return text
	}
	stamp := s.Key
	if t, ok := s.Time(); ok {
		stamp = t.Format("2006-01-02 15:04:05")
	}
	return fmt.Sprintf("[gray]%s[-]  %s", stamp, text)
}

func (u *view) listKeys(ev *tcell.EventKey) *tcell.EventKey {
	if ev.Key() != tcell.KeyRune {
		return ev
	}
	switch ev.Rune() {
	case 'd':
		u.deleteAt(u.list.GetCurrentItem())
	case 'c':
		if len(u.snaps) > 0 {
			u.pages.ShowPage("confirm")
		}
	case 't':
		u.showTimes = !u.showTimes
		u.setHistory(u.snaps)
	case 'q':
		u.app.Stop()
	default:
		return ev
	}
	return nil
}

// The actions below capture the entry itself rather than its index: the
// history may change before the loop gets to them.

// act queues fn on the core loop, telling the user when it is too busy.
func (u *view) act(fn func()) {
	if !u.core.do(fn) {
		u.notice.SetText("[yellow]Busy, please try again")
	}
}

func (u *view) copyAt(i int) {
	if i < 0 || i >= len(u.snaps) {
		return
	}
	s := u.snaps[i]
	u.act(func() {
		if err := u.core.watcher.Copy(s.Content); err != nil {
			slog.Error("failed to copy history entry", "key", s.Key, "err", err)
			u.Notify(event.Warning(event.SourceWatcher, "failed to copy history entry", err))
		}
	})
}

func (u *view) deleteAt(i int) {
	if i < 0 || i >= len(u.snaps) {
		return
	}
	key := u.snaps[i].Key
	u.act(func() { u.core.store.Delete(key) })
}

func (u *view) clearAll() {
	u.act(func() { u.core.store.Clear() })
}
