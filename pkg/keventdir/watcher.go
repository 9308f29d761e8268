package keventdir

import (
	"fmt"
	"io"
	"iter"
	"log/slog"
	"path/filepath"
	"slices"
	"time"

	"golang.org/x/time/rate"

	"github.com/keventdir/keventdir/internal/errors"
	"github.com/keventdir/keventdir/internal/kqueue"
	"github.com/keventdir/keventdir/internal/metrics"
	"github.com/keventdir/keventdir/internal/registry"
	"github.com/keventdir/keventdir/internal/scanner"
)

// Watcher keeps one kqueue interest per watched path and reconciles its
// registry with every record the kernel delivers.
type Watcher struct {
	logger   *slog.Logger
	queue    queue
	registry *registry.Registry
	scanner  pathScanner
	metrics  *metrics.Metrics

	// roots are rescanned after every rename, in insertion order.
	roots []string

	dropLog rate.Sometimes

	// err is the first fatal error seen by the loop. Once set, every
	// subsequent poll returns it.
	err    error
	closed bool
}

// New creates a Watcher with an empty registry and a fresh kernel queue.
// It fails with ErrUnsupported on platforms without kqueue.
func New(logger *slog.Logger, opts Options) (*Watcher, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	opts.setDefaults()

	sc := opts.scanner
	if sc == nil {
		walker, err := scanner.NewWalker(logger, opts.IgnorePatterns)
		if err != nil {
			return nil, fmt.Errorf("invalid ignore pattern: %w", err)
		}
		sc = walker
	}

	q := opts.queue
	if q == nil {
		kq, err := kqueue.New(logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create event queue: %w", err)
		}
		q = kq
	}

	return &Watcher{
		logger:   logger,
		queue:    q,
		registry: registry.New(logger, opts.handles, q, opts.ChunkSize),
		scanner:  sc,
		metrics:  metrics.New(opts.Registerer),
		dropLog:  rate.Sometimes{First: 10, Interval: time.Second},
	}, nil
}

// AddRecursiveRescan records root as a scan root, resolved to an absolute
// path. Nothing is registered until the next Rescan. It returns false if root
// was already a scan root.
func (w *Watcher) AddRecursiveRescan(root string) bool {
	root = absPath(root)
	if slices.Contains(w.roots, root) {
		return false
	}
	w.roots = append(w.roots, root)
	return true
}

// Roots returns the scan roots in the order they were added.
func (w *Watcher) Roots() []string {
	return slices.Clone(w.roots)
}

// Rescan walks every scan root and registers the paths that are not yet
// watched. It keeps going after a failed root and returns the total added
// together with the joined errors.
func (w *Watcher) Rescan() (int, error) {
	if w.closed {
		return 0, errors.Closed()
	}
	w.metrics.Rescan()

	added := 0
	var errs []error
	for _, root := range w.roots {
		n, err := w.AddRecursive(root)
		added += n
		if err != nil {
			errs = append(errs, err)
		}
	}

	w.logger.Debug("rescan complete", "roots", len(w.roots), "added", added)
	return added, errors.Join(errs...)
}

// Add registers a single path. It returns false without error if the path
// is already watched.
func (w *Watcher) Add(path string) (bool, error) {
	if w.closed {
		return false, errors.Closed()
	}
	added, err := w.registry.Add(absPath(path))
	w.metrics.SetHandles(w.registry.Len())
	return added, err
}

// Remove stops watching path. Paths below it are left alone.
func (w *Watcher) Remove(path string) bool {
	if w.closed {
		return false
	}
	removed := w.registry.Remove(absPath(path))
	w.metrics.SetHandles(w.registry.Len())
	return removed
}

// AddRecursive walks the tree under path and registers everything that is
// not yet watched, root first. Unreadable entries are skipped. It returns the
// number of paths added.
func (w *Watcher) AddRecursive(path string) (int, error) {
	if w.closed {
		return 0, errors.Closed()
	}
	added, err := w.registry.AddSeq(w.scanner.Scan(absPath(path)))
	w.metrics.SetHandles(w.registry.Len())
	return added, err
}

// RemoveRecursive stops watching path and every registered path below it.
// It returns the number of paths removed.
func (w *Watcher) RemoveRecursive(path string) int {
	if w.closed {
		return 0
	}
	removed := w.registry.RemoveSubtree(absPath(path))
	w.metrics.SetHandles(w.registry.Len())
	return removed
}

// Len returns the number of watched paths.
func (w *Watcher) Len() int {
	return w.registry.Len()
}

// Contains reports whether path is watched.
func (w *Watcher) Contains(path string) bool {
	return w.registry.Contains(absPath(path))
}

// Paths yields a snapshot of the watched paths, each directory followed by
// its descendants.
func (w *Watcher) Paths() iter.Seq[string] {
	return w.registry.Paths()
}

// Close releases every watched descriptor and then the kernel queue.
// Calling Close more than once is a no-op.
func (w *Watcher) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true

	err := errors.Join(w.registry.Close(), w.queue.Close())
	w.metrics.SetHandles(0)
	w.logger.Debug("watcher closed")
	return err
}

// absPath resolves path against the working directory so that watched paths
// and the ones derived from them by a walk share one form.
func absPath(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return filepath.Clean(path)
	}
	return abs
}
