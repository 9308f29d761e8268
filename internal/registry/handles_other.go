//go:build !unix

package registry

import (
	"runtime"

	"github.com/keventdir/keventdir/internal/errors"
)

// SystemHandles is unavailable outside unix platforms.
type SystemHandles struct{}

// Open always fails.
func (SystemHandles) Open(_ string) (int, error) {
	return -1, errors.Unsupported(runtime.GOOS)
}

// Close always fails.
func (SystemHandles) Close(_ int) error {
	return errors.Unsupported(runtime.GOOS)
}
