package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"go.klb.dev/clipmon/internal/display"
)

func newDisplayCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "display",
		Short: "Show or change the display settings",
		Long: `Display settings live in their own JSON document next to the history.
A running "ui" picks up changes made here immediately.`,
	}
	cmd.AddCommand(newDisplayShowCmd(), newDisplaySetCmd())
	return cmd
}

func newDisplayShowCmd() *cobra.Command {
	v := viper.New()
	cmd := oneShotCmd(&cobra.Command{
		Use:   "show",
		Short: "Print the current display settings",
		Args:  cobra.NoArgs,
		RunE:  func(cmd *cobra.Command, _ []string) error { return runDisplayShow(cmd.OutOrStdout(), v) },
	}, v)
	cmd.Flags().Bool("json", false, "output JSON")
	return cmd
}

func runDisplayShow(w io.Writer, v *viper.Viper) error {
	fsys, p, logFile, err := setupOneShot(v)
	if err != nil {
		return err
	}
	defer logFile.Close()

	m := display.NewManager(fsys, p.Display, nil)
	_ = m.Load()
	return printDisplay(w, p, m.Config(), v.GetBool("json"))
}

func printDisplay(w io.Writer, p paths, c display.Config, asJSON bool) error {
	if asJSON {
		return printJSON(w, c.Map())
	}
	tw := tabwriter.NewWriter(w, 1, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "File:\t%s\n", p.Display)
	fmt.Fprintf(tw, "Alpha:\t%.1f\n", c.Alpha)
	fmt.Fprintf(tw, "Background:\t%s\n", c.Background)
	fmt.Fprintf(tw, "Label font:\t%s %d %s\n", c.Label.Family, c.Label.Size, c.Label.Weight)
	fmt.Fprintf(tw, "Content font:\t%s %d %s\n", c.Content.Family, c.Content.Size, c.Content.Weight)
	return tw.Flush()
}

func newDisplaySetCmd() *cobra.Command {
	v := viper.New()
	cmd := oneShotCmd(&cobra.Command{
		Use:   "set",
		Short: "Change display settings",
		Long: `Changes only the settings given as flags and saves the result. Values are
validated first; nothing is written if any is out of range.

Alpha menu values: 0.1 to 1.0. Common font sizes: 8 to 72.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error { return runDisplaySet(cmd, v) },
	}, v)

	f := cmd.Flags()
	f.Float64("alpha", 0, "window opacity, 0 to 1")
	f.String("bg-color", "", "background colour, #rgb or #rrggbb")
	f.String("label-font", "", "label font family")
	f.Int("label-size", 0, "label font size")
	f.String("label-weight", "", "label font weight: normal|bold")
	f.String("content-font", "", "content font family")
	f.Int("content-size", 0, "content font size")
	f.String("content-weight", "", "content font weight: normal|bold")
	return cmd
}

func runDisplaySet(cmd *cobra.Command, v *viper.Viper) error {
	fsys, p, logFile, err := setupOneShot(v)
	if err != nil {
		return err
	}
	defer logFile.Close()

	// Only flags given on this command line apply; config and env keys with
	// these names would otherwise reset every setting on each call.
	changed := cmd.Flags().Changed
	f := cmd.Flags()

	m := display.NewManager(fsys, p.Display, nil)
	_ = m.Load()
	if err := m.Update(func(c *display.Config) {
		if changed("alpha") {
			c.Alpha, _ = f.GetFloat64("alpha")
		}
		if changed("bg-color") {
			c.Background, _ = f.GetString("bg-color")
		}
		if changed("label-font") {
			c.Label.Family, _ = f.GetString("label-font")
		}
		if changed("label-size") {
			c.Label.Size, _ = f.GetInt("label-size")
		}
		if changed("label-weight") {
			c.Label.Weight, _ = f.GetString("label-weight")
		}
		if changed("content-font") {
			c.Content.Family, _ = f.GetString("content-font")
		}
		if changed("content-size") {
			c.Content.Size, _ = f.GetInt("content-size")
		}
		if changed("content-weight") {
			c.Content.Weight, _ = f.GetString("content-weight")
		}
	}); err != nil {
		return err
	}
	return printDisplay(cmd.OutOrStdout(), p, m.Config(), false)
}
