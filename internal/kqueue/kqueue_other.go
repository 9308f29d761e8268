//go:build !(darwin || dragonfly || freebsd || netbsd || openbsd)

package kqueue

import (
	"log/slog"
	"runtime"
	"time"

	"github.com/keventdir/keventdir/internal/errors"
)

// Queue is a placeholder on platforms without kqueue.
// Every operation fails with an UNSUPPORTED error.
type Queue struct{}

// New always fails outside the BSD family.
func New(_ *slog.Logger) (*Queue, error) {
	return nil, errors.Unsupported(runtime.GOOS)
}

// Register always fails outside the BSD family.
func (q *Queue) Register(_ []int) error {
	return errors.Unsupported(runtime.GOOS)
}

// Poll always fails outside the BSD family.
func (q *Queue) Poll(_ time.Time) (Record, bool, error) {
	return Record{}, false, errors.Unsupported(runtime.GOOS)
}

// Close is a no-op.
func (q *Queue) Close() error {
	return nil
}
