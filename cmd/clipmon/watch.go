package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"go.klb.dev/clipmon/internal/event"
	"go.klb.dev/clipmon/internal/sysinfo"
)

func newWatchCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Record clipboard history in the foreground (no UI)",
		Long: `Polls the clipboard and records every new text value to the history
document until interrupted. Sentinel values are rejected and the previous
clipboard text is restored.

With --events, every core event (clipboard changes, warnings, usage samples,
history and display changes) is written to stdout as one JSON object per line.

Precedence (lowest → highest): defaults → config file → CLIPMON_* env vars → flags`,
		Args:    cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error { return bindViper(cmd, v) },
		RunE:    func(cmd *cobra.Command, _ []string) error { return runWatch(cmd.Context(), v) },
	}

	cmd.Flags().Bool("events", false, "write core events to stdout as NDJSON")
	addCoreFlags(cmd)
	addLoggingFlags(cmd)
	addConfigFlag(cmd)

	return cmd
}

func runWatch(ctx context.Context, v *viper.Viper) error {
	fsys := afero.NewOsFs()
	p, err := resolvePaths(v)
	if err != nil {
		return err
	}
	logFile, err := setupLogging(v, fsys, p, os.Stderr)
	if err != nil {
		return err
	}
	defer logFile.Close()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	sinks := []event.Sink{event.SinkFunc(logEvent)}
	if v.GetBool("events") {
		// A closed stdout turns into write errors instead of killing the
		// process; the queue keeps a slow reader off the poll loop.
		signal.Ignore(syscall.SIGPIPE)
		q := event.NewQueue(event.NewEncoder(os.Stdout), 256)
		go q.Run(ctx)
		sinks = append(sinks, q)
	}

	c, err := newCore(v, fsys, p, event.Multi(sinks...))
	if err != nil {
		return err
	}
	defer c.Close()

	slog.Info("clipmon watching clipboard", "version", Version)
	err = c.run(ctx)
	slog.Info("clipmon stopped")
	return err
}

// logEvent surfaces events that the core does not log itself.
func logEvent(ev event.Event) {
	switch ev.Kind {
	case event.KindWarning:
		slog.Debug("warning reported", "source", ev.Source, "msg", ev.Message)
	case event.KindUsage:
		if ev.Usage != nil {
			slog.Debug(sysinfo.Format(*ev.Usage))
		}
	}
}
