//go:build darwin || linux || windows

package clip

import (
	"fmt"

	"golang.design/x/clipboard"
)

type nativeBackend struct{}

func newNative() (Backend, error) {
	if err := clipboard.Init(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nativeBackend{}, nil
}

func (nativeBackend) Name() string { return "native (golang.design/x/clipboard)" }

func (nativeBackend) ReadText() (string, error) {
	return string(clipboard.Read(clipboard.FmtText)), nil
}

func (nativeBackend) WriteText(text string) error {
	// The returned channel fires when another program takes ownership; we
	// have nothing to do at that point.
	_ = clipboard.Write(clipboard.FmtText, []byte(text))
	return nil
}

func (nativeBackend) Close() {}
