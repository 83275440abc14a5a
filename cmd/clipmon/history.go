package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"go.klb.dev/clipmon/internal/clip"
	"go.klb.dev/clipmon/internal/event"
	"go.klb.dev/clipmon/internal/history"
	"go.klb.dev/clipmon/internal/ipc"
)

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List, delete and restore recorded clipboard entries",
		Long: `When a "watch" or "ui" is running, delete, clear and copy are sent to it over
its control socket so that its in-memory history stays in step. Otherwise they
edit the history document directly.`,
	}
	cmd.AddCommand(
		newHistoryListCmd(),
		newHistoryDeleteCmd(),
		newHistoryClearCmd(),
		newHistoryCopyCmd(),
	)
	return cmd
}

// oneShotCmd wires the flags and viper binding every history and display
// subcommand shares.
func oneShotCmd(cmd *cobra.Command, v *viper.Viper) *cobra.Command {
	cmd.PreRunE = func(cmd *cobra.Command, _ []string) error { return bindViper(cmd, v) }
	addStorageFlags(cmd)
	addLoggingFlags(cmd)
	addConfigFlag(cmd)
	return cmd
}

func newHistoryListCmd() *cobra.Command {
	v := viper.New()
	cmd := oneShotCmd(&cobra.Command{
		Use:   "list",
		Short: "List entries, most recent first",
		Args:  cobra.NoArgs,
		RunE:  func(cmd *cobra.Command, _ []string) error { return runHistoryList(cmd.OutOrStdout(), v) },
	}, v)

	f := cmd.Flags()
	f.Int("limit", 0, "show at most this many entries (0 = all)")
	f.Bool("full", false, "print complete entry text instead of a one-line preview")
	f.Bool("json", false, "output JSON")
	return cmd
}

func runHistoryList(w io.Writer, v *viper.Viper) error {
	fsys, p, logFile, err := setupOneShot(v)
	if err != nil {
		return err
	}
	defer logFile.Close()

	snaps := openStore(fsys, p).Snapshots()
	if n := v.GetInt("limit"); n > 0 && n < len(snaps) {
		snaps = snaps[:n]
	}

	switch {
	case v.GetBool("json"):
		if snaps == nil {
			snaps = []history.Snapshot{}
		}
		return printJSON(w, snaps)
	case v.GetBool("full"):
		printFull(w, snaps)
	default:
		printList(w, snaps)
	}
	return nil
}

func printList(w io.Writer, snaps []history.Snapshot) {
	if len(snaps) == 0 {
		fmt.Fprintln(w, "No clipboard history.")
		return
	}
	tw := tabwriter.NewWriter(w, 1, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(tw, "INDEX\tAGE\tKEY\tPREVIEW\n")
	_, _ = fmt.Fprintf(tw, "-----\t---\t---\t-------\n")
	for i, s := range snaps {
		_, _ = fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n",
			i, snapAge(s), s.Key, event.Preview(oneLine(s.Content), event.PreviewLen))
	}
	_ = tw.Flush()
}

func printFull(w io.Writer, snaps []history.Snapshot) {
	for i, s := range snaps {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, "[%d] %s (%s)\n%s\n", i, s.Key, snapAge(s), s.Content)
	}
}

func snapAge(s history.Snapshot) string {
	t, ok := s.Time()
	if !ok {
		return "-"
	}
	return fmtAge(t)
}

func newHistoryDeleteCmd() *cobra.Command {
	v := viper.New()
	cmd := oneShotCmd(&cobra.Command{
		Use:   "delete [KEY...]",
		Short: "Delete entries by key or by list index",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistoryDelete(cmd.ErrOrStderr(), v, args)
		},
	}, v)
	cmd.Flags().IntSlice("index", nil, `entry positions as shown by "history list"`)
	return cmd
}

func runHistoryDelete(w io.Writer, v *viper.Viper, keys []string) error {
	indices := v.GetIntSlice("index")
	if len(keys) == 0 && len(indices) == 0 {
		return errors.New("give at least one KEY or --index")
	}

	fsys, p, logFile, err := setupOneShot(v)
	if err != nil {
		return err
	}
	defer logFile.Close()

	req := ipc.Request{Op: ipc.OpDelete, Keys: keys, Indices: indices}
	if resp, ok, err := viaRecorder(p, req); ok {
		if err != nil && resp.Removed == 0 {
			return err
		}
		return reportDeleted(w, resp.Removed, err)
	}

	store := openStore(fsys, p)
	n := 0
	if len(indices) > 0 {
		n += store.DeleteAt(indices...)
	}
	if len(keys) > 0 {
		n += store.Delete(keys...)
	}
	return reportDeleted(w, n, store.Err())
}

func reportDeleted(w io.Writer, n int, err error) error {
	if n == 0 {
		return errors.New("no matching history entries")
	}
	fmt.Fprintf(w, "Deleted %d %s.\n", n, plural(n, "entry", "entries"))
	return err
}

func newHistoryClearCmd() *cobra.Command {
	v := viper.New()
	cmd := oneShotCmd(&cobra.Command{
		Use:   "clear",
		Short: "Delete every entry",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runHistoryClear(cmd.InOrStdin(), cmd.ErrOrStderr(), v)
		},
	}, v)
	cmd.Flags().BoolP("yes", "y", false, "do not ask for confirmation")
	return cmd
}

func runHistoryClear(r io.Reader, w io.Writer, v *viper.Viper) error {
	fsys, p, logFile, err := setupOneShot(v)
	if err != nil {
		return err
	}
	defer logFile.Close()

	ping, running, err := viaRecorder(p, ipc.Request{Op: ipc.OpPing})
	if err != nil {
		return err
	}
	var store *history.Store
	entries := ping.Entries
	if !running {
		store = openStore(fsys, p)
		entries = store.Len()
	}

	if entries == 0 {
		fmt.Fprintln(w, "No clipboard history.")
		return nil
	}
	q := fmt.Sprintf("Clear all %d clipboard records?", entries)
	if !v.GetBool("yes") && !confirm(r, w, q) {
		return nil
	}
	if running {
		_, _, err := viaRecorder(p, ipc.Request{Op: ipc.OpClear})
		return err
	}
	store.Clear()
	return store.Err()
}

func newHistoryCopyCmd() *cobra.Command {
	v := viper.New()
	cmd := oneShotCmd(&cobra.Command{
		Use:   "copy [KEY]",
		Short: "Put an entry back on the clipboard",
		Long: `Writes the entry to the system clipboard. A running "watch" or "ui" does the
write itself and does not record the entry again; without one, the next
recorder to start sees it as a new clipboard value.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistoryCopy(cmd.ErrOrStderr(), v, args)
		},
	}, v)
	cmd.Flags().Int("index", -1, `entry position as shown by "history list"`)
	addClipboardFlags(cmd)
	return cmd
}

func runHistoryCopy(w io.Writer, v *viper.Viper, args []string) error {
	index := v.GetInt("index")
	if (len(args) == 1) == (index >= 0) {
		return errors.New("give exactly one of KEY or --index")
	}
	kind, err := clip.ParseKind(v.GetString("backend"))
	if err != nil {
		return err
	}

	fsys, p, logFile, err := setupOneShot(v)
	if err != nil {
		return err
	}
	defer logFile.Close()

	req := ipc.Request{Op: ipc.OpCopy, Keys: args}
	if len(args) == 0 {
		req.Indices = []int{index}
	}
	if resp, ok, err := viaRecorder(p, req); ok {
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "Copied %s\n", event.Preview(oneLine(resp.Text), event.PreviewLen))
		return nil
	}

	text, err := lookupEntry(openStore(fsys, p), req)
	if err != nil {
		return err
	}
	backend, err := clip.Open(kind)
	if err != nil {
		return err
	}
	defer backend.Close()
	if err := backend.WriteText(text); err != nil {
		return fmt.Errorf("copy to clipboard: %w", err)
	}
	fmt.Fprintf(w, "Copied %s\n", event.Preview(oneLine(text), event.PreviewLen))
	return nil
}

// viaRecorder sends req to a running recorder. ok is false when none is
// listening and the caller should edit the document itself.
func viaRecorder(p paths, req ipc.Request) (resp ipc.Response, ok bool, err error) {
	if !ipc.IsRunning(p.Socket) {
		return ipc.Response{}, false, nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	resp, err = ipc.Call(ctx, p.Socket, req)
	return resp, true, err
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
