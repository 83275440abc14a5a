// Package display holds the user-adjustable presentation settings (opacity,
// colours, fonts). The core never renders anything; it owns the settings
// document and tells registered listeners when a new configuration applies.
package display

import (
	"errors"
	"fmt"
	"regexp"
	"slices"
)

// DefaultFile is the display document name inside the data directory.
const DefaultFile = "display.json"

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid display setting")

// Font weights accepted by Validate.
const (
	WeightNormal = "normal"
	WeightBold   = "bold"
)

// Alphas and FontSizes are the choices a host menu offers. Validate does not
// restrict values to them.
var (
	Alphas    = []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1.0}
	FontSizes = []int{8, 9, 10, 11, 12, 13, 14, 16, 18, 20, 22, 24, 26, 28, 36, 48, 72}
)

var hexColor = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

// Font describes one text role.
type Font struct {
	Family string `json:"family"`
	Size   int    `json:"size"`
	Weight string `json:"weight"`
}

// Config is the full set of display settings.
type Config struct {
	Alpha      float64 `json:"alpha"`
	Background string  `json:"bg_color"`
	Label      Font    `json:"label"`
	Content    Font    `json:"content"`
}

// Default returns the settings used when nothing is stored.
func Default() Config {
	return Config{
		Alpha:      0.7,
		Background: "#333333",
		Label:      Font{Family: "Arial", Size: 11, Weight: WeightNormal},
		Content:    Font{Family: "Arial", Size: 11, Weight: WeightNormal},
	}
}

// Validate reports the first setting out of range.
func (c Config) Validate() error {
	if c.Alpha < 0 || c.Alpha > 1 {
		return fmt.Errorf("%w: alpha %v not in [0, 1]", ErrInvalid, c.Alpha)
	}
	if !hexColor.MatchString(c.Background) {
		return fmt.Errorf("%w: bg_color %q is not #rgb or #rrggbb", ErrInvalid, c.Background)
	}
	for _, r := range []struct {
		role string
		f    Font
	}{{"label", c.Label}, {"content", c.Content}} {
		role, f := r.role, r.f
		if f.Family == "" {
			return fmt.Errorf("%w: %s font family is empty", ErrInvalid, role)
		}
		if f.Size <= 0 {
			return fmt.Errorf("%w: %s font size %d", ErrInvalid, role, f.Size)
		}
		if !slices.Contains([]string{WeightNormal, WeightBold}, f.Weight) {
			return fmt.Errorf("%w: %s font weight %q (want normal|bold)", ErrInvalid, role, f.Weight)
		}
	}
	return nil
}

// BackgroundHex returns the background colour in #rrggbb form, expanding the
// #rgb shorthand. Renderers that only parse six digits should use it.
func (c Config) BackgroundHex() string {
	b := c.Background
	if len(b) != 4 || b[0] != '#' {
		return b
	}
	return string([]byte{'#', b[1], b[1], b[2], b[2], b[3], b[3]})
}

// Listener is told about every configuration that takes effect: the one
// loaded at startup, each Update, and external edits picked up by Watch.
type Listener interface {
	ApplyDisplay(Config)
}

// ListenerFunc adapts a function to a Listener.
type ListenerFunc func(Config)

func (f ListenerFunc) ApplyDisplay(c Config) { f(c) }
