package logging

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/spf13/afero"
)

// DefaultFile is the log document name inside the data directory.
const DefaultFile = "clipmon.log"

// DefaultMaxSize is the size above which the log document is cleared.
const DefaultMaxSize = 2 * humanize.MiByte

// OpenFile opens path for appending, creating it and its directory if needed.
func OpenFile(fsys afero.Fs, path string) (afero.File, error) {
	if err := fsys.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("log dir: %w", err)
	}
	f, err := fsys.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log: %w", err)
	}
	return f, nil
}

// Rotator truncates the log document once it grows past a size threshold.
// The writer opened by OpenFile appends, so it keeps working after a
// truncation.
type Rotator struct {
	fs      afero.Fs
	path    string
	maxSize int64
}

// NewRotator returns a Rotator for path. maxSize <= 0 selects DefaultMaxSize.
func NewRotator(fsys afero.Fs, path string, maxSize int64) *Rotator {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	return &Rotator{fs: fsys, path: path, maxSize: maxSize}
}

// ParseSize parses a human size such as "2MB" or "512KiB".
func ParseSize(s string) (int64, error) {
	n, err := humanize.ParseBytes(s)
	if err != nil {
		return 0, fmt.Errorf("log size %q: %w", s, err)
	}
	return int64(n), nil
}

// FormatSize renders n the way ParseSize reads it back, e.g. "2.0 MiB".
func FormatSize(n int64) string {
	return humanize.IBytes(uint64(n))
}

// Check clears the log document if it is larger than the threshold. It
// reports whether it did.
func (r *Rotator) Check() (bool, error) {
	fi, err := r.fs.Stat(r.path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("stat log: %w", err)
	}
	if fi.Size() <= r.maxSize {
		return false, nil
	}

	f, err := r.fs.OpenFile(r.path, os.O_WRONLY, 0)
	if err != nil {
		return false, fmt.Errorf("open log: %w", err)
	}
	defer f.Close()
	if err := f.Truncate(0); err != nil {
		return false, fmt.Errorf("truncate log: %w", err)
	}

	slog.Info("log file exceeded size limit, cleared",
		"path", r.path,
		"size", humanize.IBytes(uint64(fi.Size())),
		"limit", humanize.IBytes(uint64(r.maxSize)),
	)
	return true, nil
}

// Task adapts Check to a scheduler task body.
func (r *Rotator) Task() func(ctx context.Context) {
	return func(context.Context) {
		if _, err := r.Check(); err != nil {
			slog.Error("log rotation check failed", "err", err)
		}
	}
}
