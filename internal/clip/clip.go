// Package clip provides plain-text access to the system clipboard.
//
// Two backends exist:
//
//	native  -- golang.design/x/clipboard (X11, macOS NSPasteboard, Win32)
//	command -- github.com/atotto/clipboard (xclip/xsel/wl-clipboard, pbcopy, Win32)
//
// Open("auto") tries native first and falls back to command, which is what
// keeps clipmon working on Wayland-only desktops.
package clip

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// ErrUnavailable is returned when no clipboard backend can be used on this
// host.
var ErrUnavailable = errors.New("clipboard unavailable")

// Backend is the interface that all clipboard implementations satisfy.
type Backend interface {
	// Name returns a human-readable name for the backend.
	Name() string

	// ReadText returns the current clipboard text. An empty string means the
	// clipboard is empty or holds no text.
	ReadText() (string, error)

	// WriteText replaces the clipboard contents with text.
	WriteText(text string) error

	// Close releases any resources held by the backend.
	Close()
}

// Kind selects a backend in Open.
type Kind string

const (
	KindAuto    Kind = "auto"
	KindNative  Kind = "native"
	KindCommand Kind = "command"
)

// ParseKind converts a string to a Kind.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(s)); k {
	case "", KindAuto:
		return KindAuto, nil
	case KindNative, KindCommand:
		return k, nil
	default:
		return "", fmt.Errorf("unknown clipboard backend %q (want auto|native|command)", s)
	}
}

// Open returns the requested backend. Initialisation is done here rather than
// in init() so that sub-commands which never touch the clipboard don't fail
// on headless hosts.
func Open(kind Kind) (Backend, error) {
	switch kind {
	case KindNative:
		return newNative()
	case KindCommand:
		return newCommand()
	}

	b, err := newNative()
	if err == nil {
		return b, nil
	}
	slog.Debug("native clipboard unavailable, trying command backend", "err", err)
	b, cerr := newCommand()
	if cerr != nil {
		return nil, fmt.Errorf("%w: native: %v; command: %v", ErrUnavailable, err, cerr)
	}
	return b, nil
}
