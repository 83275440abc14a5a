package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"go.klb.dev/clipmon/internal/clip"
	"go.klb.dev/clipmon/internal/event"
	"go.klb.dev/clipmon/internal/history"
	"go.klb.dev/clipmon/internal/ipc"
	"go.klb.dev/clipmon/internal/sysinfo"
)

func newStatusCmd() *cobra.Command {
	v := viper.New()

	cmd := oneShotCmd(&cobra.Command{
		Use:   "status",
		Short: "Show clipboard, history and resource usage",
		Long: `Takes one CPU and memory sample and reports it together with the current
clipboard text, the size of the history and where clipmon keeps its files.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runStatus(cmd.Context(), cmd.OutOrStdout(), v)
		},
	}, v)

	cmd.Flags().Bool("json", false, "output JSON")
	addClipboardFlags(cmd)

	return cmd
}

type status struct {
	Backend   string       `json:"backend,omitempty"`
	Clipboard string       `json:"clipboard"`
	Entries   int          `json:"entries"`
	Newest    string       `json:"newest,omitempty"`
	LogSize   int64        `json:"log_size"`
	Recorder  bool         `json:"recorder_running"`
	Usage     *event.Usage `json:"usage,omitempty"`
	Paths     paths        `json:"paths"`
}

func runStatus(ctx context.Context, w io.Writer, v *viper.Viper) error {
	kind, err := clip.ParseKind(v.GetString("backend"))
	if err != nil {
		return err
	}
	fsys, p, logFile, err := setupOneShot(v)
	if err != nil {
		return err
	}
	defer logFile.Close()

	st := status{Paths: p, Recorder: ipc.IsRunning(p.Socket)}

	store := openStore(fsys, p)
	st.Entries = store.Len()
	if k, ok := store.KeyAt(0); ok {
		st.Newest = k
	}

	if backend, err := clip.Open(kind); err != nil {
		slog.Warn("clipboard unavailable", "err", err)
	} else {
		st.Backend = backend.Name()
		if text, err := backend.ReadText(); err == nil {
			st.Clipboard = text
		}
		backend.Close()
	}

	if u, err := sysinfo.New().Sample(ctx); err != nil {
		slog.Warn("failed to get system info", "err", err)
	} else {
		st.Usage = &u
	}

	if p.Log != "" {
		if fi, err := fsys.Stat(p.Log); err == nil {
			st.LogSize = fi.Size()
		}
	}

	if v.GetBool("json") {
		return printJSON(w, st)
	}
	printStatus(w, st)
	return nil
}

func printStatus(w io.Writer, st status) {
	tw := tabwriter.NewWriter(w, 1, 0, 2, ' ', 0)

	backend := st.Backend
	if backend == "" {
		backend = "unavailable"
	}
	fmt.Fprintf(tw, "Backend:\t%s\n", backend)
	recorder := "not running"
	if st.Recorder {
		recorder = "running (" + st.Paths.Socket + ")"
	}
	fmt.Fprintf(tw, "Recorder:\t%s\n", recorder)
	fmt.Fprintf(tw, "Clipboard:\t%s\n", event.Preview(oneLine(st.Clipboard), event.PreviewLen))
	if st.Usage != nil {
		fmt.Fprintf(tw, "Usage:\t%s\n", sysinfo.Format(*st.Usage))
	}
	fmt.Fprintf(tw, "History:\t%d %s\n", st.Entries, plural(st.Entries, "entry", "entries"))
	if st.Newest != "" {
		fmt.Fprintf(tw, "Newest:\t%s (%s)\n", st.Newest, snapAge(history.Snapshot{Key: st.Newest}))
	}
	fmt.Fprintln(tw)
	fmt.Fprintf(tw, "History file:\t%s\n", st.Paths.History)
	fmt.Fprintf(tw, "Display file:\t%s\n", st.Paths.Display)
	if st.Paths.Log != "" {
		fmt.Fprintf(tw, "Log file:\t%s (%s)\n", st.Paths.Log, humanize.IBytes(uint64(st.LogSize)))
	}
	_ = tw.Flush()
}
