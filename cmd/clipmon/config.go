package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"go.klb.dev/clipmon/internal/display"
	"go.klb.dev/clipmon/internal/history"
	"go.klb.dev/clipmon/internal/ipc"
	"go.klb.dev/clipmon/internal/logging"
)

// bindViper wires a command's flags into a viper instance with the standard
// config file search order and CLIPMON_* env var prefix.
//
// Precedence (lowest → highest): defaults → config file → CLIPMON_* env vars → flags
func bindViper(cmd *cobra.Command, v *viper.Viper) error {
	configFlag, _ := cmd.Flags().GetString("config")
	if configFlag != "" {
		v.SetConfigFile(configFlag)
	} else {
		v.SetConfigName("clipmon")
		v.SetConfigType("toml")
		v.AddConfigPath("/etc/clipmon/")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(fmt.Sprintf("%s/.config/clipmon", home))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("config: %w", err)
		}
	}

	v.SetEnvPrefix("CLIPMON")
	v.SetEnvKeyReplacer(envKeys)
	v.AutomaticEnv()

	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return fmt.Errorf("binding flags: %w", err)
	}
	return nil
}

// addLoggingFlags adds the standard logging flags to a command.
func addLoggingFlags(cmd *cobra.Command) {
	cmd.Flags().Bool("no-background", false, "run interactively: tinter logs + debug level")
	cmd.Flags().String("log-format", "auto", "log format: auto|text|json")
	cmd.Flags().String("log-level", "", "log level: debug|info|warn|error (default: info for service, debug for interactive)")
	cmd.Flags().String("log-file", "", "log file (default: <data-dir>/"+logging.DefaultFile+", \"-\" disables)")
}

// addConfigFlag adds the --config flag to a command.
func addConfigFlag(cmd *cobra.Command) {
	cmd.Flags().String("config", "", "path to config file (overrides auto-discovery)")
}

// addStorageFlags adds the flags locating the history and display documents.
func addStorageFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("data-dir", "", "directory holding history, display settings and log (default: user config dir/clipmon)")
	f.String("history-file", "", "history document (default: <data-dir>/"+history.DefaultFile+")")
	f.String("display-file", "", "display settings document (default: <data-dir>/"+display.DefaultFile+")")
	f.String("socket", "", "control socket of a running recorder (default: "+ipc.SocketPath()+")")
}

// addClipboardFlags adds the clipboard backend selection flag.
func addClipboardFlags(cmd *cobra.Command) {
	cmd.Flags().String("backend", "auto", "clipboard backend: auto|native|command")
}

// paths are the resolved document locations for one invocation.
type paths struct {
	DataDir string `json:"data_dir"`
	History string `json:"history"`
	Display string `json:"display"`
	Log     string `json:"log"`
	Socket  string `json:"socket"`
}

// resolvePaths fills in every path not given explicitly from the data
// directory.
func resolvePaths(v *viper.Viper) (paths, error) {
	dir := v.GetString("data-dir")
	if dir == "" {
		base, err := os.UserConfigDir()
		if err != nil {
			return paths{}, fmt.Errorf("no --data-dir and no user config dir: %w", err)
		}
		dir = filepath.Join(base, "clipmon")
	}
	p := paths{
		DataDir: dir,
		History: v.GetString("history-file"),
		Display: v.GetString("display-file"),
		Log:     v.GetString("log-file"),
		Socket:  v.GetString("socket"),
	}
	if p.Socket == "" {
		p.Socket = ipc.SocketPath()
	}
	if p.History == "" {
		p.History = filepath.Join(dir, history.DefaultFile)
	}
	if p.Display == "" {
		p.Display = filepath.Join(dir, display.DefaultFile)
	}
	switch p.Log {
	case "":
		p.Log = filepath.Join(dir, logging.DefaultFile)
	case "-":
		p.Log = ""
	}
	return p, nil
}

// setupLogging reads logging flags from viper and configures slog. Records go
// to console (nil for none) and to the log file at p.Log. The returned closer
// releases the log file.
func setupLogging(v *viper.Viper, fsys afero.Fs, p paths, console io.Writer) (io.Closer, error) {
	interactive := v.GetBool("no-background") || logging.IsTTY(os.Stderr)
	opts := resolveLogging(interactive, v.GetString("log-format"), v.GetString("log-level"))
	opts.Console = console

	var closer io.Closer = nopCloser{}
	if p.Log != "" {
		f, err := logging.OpenFile(fsys, p.Log)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		opts.File = f
		closer = f
	}
	logging.Setup(opts)
	return closer, nil
}

// setupOneShot prepares a short-lived command: console logging defaults to
// warnings so that routine store messages only reach the log file.
func setupOneShot(v *viper.Viper) (afero.Fs, paths, io.Closer, error) {
	fsys := afero.NewOsFs()
	p, err := resolvePaths(v)
	if err != nil {
		return nil, paths{}, nil, err
	}
	v.SetDefault("log-level", "warn")
	closer, err := setupLogging(v, fsys, p, os.Stderr)
	if err != nil {
		return nil, paths{}, nil, err
	}
	return fsys, p, closer, nil
}

func resolveLogging(interactive bool, formatStr, levelStr string) logging.Options {
	format := logging.ParseFormat(formatStr)
	level := logging.ParseLevel(levelStr)
	if levelStr == "" {
		if interactive {
			level = logging.ParseLevel("debug")
		} else {
			level = logging.ParseLevel("info")
		}
	}
	return logging.Options{Format: format, Level: level}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
