// clipmon: clipboard history recorder.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version is set at build time via -ldflags "-X main.Version=x.y.z".
var Version = "dev"

func main() {
	root := &cobra.Command{
		Use:   "clipmon",
		Short: "Clipboard history recorder",
		Long: `clipmon watches the system clipboard, keeps a timestamped history of
the text copied to it, and shows that history next to live CPU and memory usage.

Run "clipmon ui" for the terminal window or "clipmon watch" to record in the
background. "clipmon history" lists, deletes and restores entries.

Placeholder values that password managers put on the clipboard (by default
"••••••••••") are never recorded; the previous clipboard text is put back.

Config file search order (first found wins):
  /etc/clipmon/clipmon.toml
  $HOME/.config/clipmon/clipmon.toml
  path supplied via --config

All flags can be set via CLIPMON_<FLAG> env vars or config-file keys.`,
		SilenceUsage: true,
	}

	root.AddCommand(
		newWatchCmd(),
		newUICmd(),
		newHistoryCmd(),
		newDisplayCmd(),
		newStatusCmd(),
		newVersionCmd(),
	)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Printf("clipmon %s\n", Version)
		},
	}
}
