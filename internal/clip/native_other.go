//go:build !darwin && !linux && !windows

package clip

import "fmt"

func newNative() (Backend, error) {
	return nil, fmt.Errorf("%w: no native clipboard on this platform", ErrUnavailable)
}
