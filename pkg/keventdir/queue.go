package keventdir

import (
	"iter"
	"time"

	"github.com/keventdir/keventdir/internal/kqueue"
)

// queue is the kernel event queue a Watcher drains.
type queue interface {
	// Register adds interest for a batch of descriptors in one call.
	Register(fds []int) error

	// Poll waits for one record until deadline; a zero deadline waits
	// forever. ok is false only when the deadline passed with no record.
	Poll(deadline time.Time) (rec kqueue.Record, ok bool, err error)

	// Close releases the queue.
	Close() error
}

// pathScanner produces a fresh walk of the tree under root, root first.
type pathScanner interface {
	Scan(root string) iter.Seq[string]
}
