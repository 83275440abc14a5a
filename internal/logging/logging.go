// Package logging configures the global slog logger for clipmon binaries and
// keeps the log document from growing without bound.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/pwntr/tinter"
	slogmulti "github.com/samber/slog-multi"
)

// Format selects the console log output format.
type Format string

const (
	FormatAuto Format = "auto"
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// ParseFormat converts a string to a Format, returning FormatAuto for unknown values.
func ParseFormat(s string) Format {
	switch strings.ToLower(s) {
	case "text", "tint", "human":
		return FormatText
	case "json":
		return FormatJSON
	default:
		return FormatAuto
	}
}

// ParseLevel converts a string to a slog.Level, defaulting to Info.
func ParseLevel(s string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return l
}

// IsTTY reports whether w is a terminal.
func IsTTY(w io.Writer) bool {
	if f, ok := w.(*os.File); ok {
		return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return false
}

// Options selects where log records go.
type Options struct {
	// Console receives human or JSON output. Nil disables console logging,
	// which the terminal UI needs.
	Console io.Writer
	Format  Format
	Level   slog.Level

	// File receives the line-oriented log document. Nil disables it.
	File io.Writer
}

// Setup configures the global slog logger. Call once after flag/viper parsing.
func Setup(opts Options) {
	slog.SetDefault(slog.New(NewHandler(opts)))
}

// NewHandler builds the handler Setup installs.
func NewHandler(opts Options) slog.Handler {
	var handlers []slog.Handler

	if w := opts.Console; w != nil {
		useTint := opts.Format == FormatText || (opts.Format == FormatAuto && IsTTY(w))
		if useTint {
			handlers = append(handlers, tinter.NewHandler(w, &tinter.Options{
				Level:      opts.Level,
				TimeFormat: "15:04:05.000",
			}))
		} else {
			handlers = append(handlers, slog.NewJSONHandler(w, &slog.HandlerOptions{
				Level: opts.Level,
			}))
		}
	}

	if opts.File != nil {
		handlers = append(handlers, slog.NewTextHandler(opts.File, &slog.HandlerOptions{
			Level: min(opts.Level, slog.LevelInfo),
		}))
	}

	switch len(handlers) {
	case 0:
		return slog.DiscardHandler
	case 1:
		return handlers[0]
	default:
		return slogmulti.Fanout(handlers...)
	}
}
