// Package registry owns the descriptors opened for watched paths and keeps
// the path <-> descriptor mapping used to resolve kernel records.
package registry

import (
	"cmp"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"path/filepath"
	"slices"
	"strings"

	"github.com/google/btree"

	"github.com/keventdir/keventdir/internal/errors"
)

// DefaultChunkSize caps the number of interest records submitted in one
// kevent call.
const DefaultChunkSize = 4096

const separator = filepath.Separator

// Handles opens and closes the descriptors the registry owns. Closing a
// descriptor also drops any kernel interest registered on it.
type Handles interface {
	Open(path string) (int, error)
	Close(fd int) error
}

// Interest registers kernel change interest for a batch of descriptors.
type Interest interface {
	Register(fds []int) error
}

type entry struct {
	path string
	fd   int
}

// Registry is the bidirectional path <-> descriptor index.
// Every entry has a live descriptor with interest registered on it.
// It is not safe for concurrent use.
type Registry struct {
	logger   *slog.Logger
	handles  Handles
	interest Interest
	chunk    int

	byPath *btree.BTreeG[entry]
	byFD   map[int]string
}

// New creates an empty registry. A chunkSize <= 0 selects DefaultChunkSize.
func New(logger *slog.Logger, handles Handles, interest Interest, chunkSize int) *Registry {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}

	return &Registry{
		logger:   logger,
		handles:  handles,
		interest: interest,
		chunk:    chunkSize,
		byPath: btree.NewG(32, func(a, b entry) bool {
			return comparePaths(a.path, b.path) < 0
		}),
		byFD: make(map[int]string),
	}
}

// Add opens path and registers interest on it. It returns false without
// touching the filesystem if path is already registered.
func (r *Registry) Add(path string) (bool, error) {
	path = filepath.Clean(path)
	if r.Contains(path) {
		return false, nil
	}

	fd, err := r.handles.Open(path)
	if err != nil {
		return false, errors.Open(path, err)
	}

	if err := r.interest.Register([]int{fd}); err != nil {
		if cerr := r.handles.Close(fd); cerr != nil {
			r.logger.Warn("failed to close handle after rejected registration", "path", path, "error", cerr)
		}
		return false, errors.Register(path, err)
	}

	r.insert(entry{path: path, fd: fd})
	r.logger.Debug("added watch", "path", path, "fd", fd)
	return true, nil
}

// AddBatch registers every path in paths. See AddSeq.
func (r *Registry) AddBatch(paths []string) (int, error) {
	return r.AddSeq(slices.Values(paths))
}

// AddSeq registers paths in chunks of at most the configured chunk size,
// one kevent call per chunk. Paths that are already registered or cannot be
// opened are skipped. If a chunk is rejected by the kernel, every handle
// opened for that chunk is closed and AddSeq stops; chunks registered before
// it stay registered and are counted.
func (r *Registry) AddSeq(paths iter.Seq[string]) (int, error) {
	added := 0
	batch := make([]string, 0, r.chunk)

	for path := range paths {
		batch = append(batch, path)
		if len(batch) < r.chunk {
			continue
		}
		n, err := r.addChunk(batch)
		added += n
		if err != nil {
			return added, err
		}
		batch = batch[:0]
	}

	if len(batch) > 0 {
		n, err := r.addChunk(batch)
		added += n
		if err != nil {
			return added, err
		}
	}
	return added, nil
}

func (r *Registry) addChunk(paths []string) (int, error) {
	opened := make([]entry, 0, len(paths))
	fds := make([]int, 0, len(paths))
	seen := make(map[string]struct{}, len(paths))

	for _, path := range paths {
		path = filepath.Clean(path)
		if _, dup := seen[path]; dup || r.Contains(path) {
			continue
		}
		seen[path] = struct{}{}

		fd, err := r.handles.Open(path)
		if err != nil {
			r.logger.Debug("skipping path that cannot be opened", "path", path, "error", err)
			continue
		}
		opened = append(opened, entry{path: path, fd: fd})
		fds = append(fds, fd)
	}

	if len(fds) == 0 {
		return 0, nil
	}

	if err := r.interest.Register(fds); err != nil {
		for _, e := range opened {
			if cerr := r.handles.Close(e.fd); cerr != nil {
				r.logger.Warn("failed to close handle after rejected batch", "path", e.path, "error", cerr)
			}
		}
		return 0, errors.Register("", fmt.Errorf("batch of %d: %w", len(fds), err))
	}

	for _, e := range opened {
		r.insert(e)
	}
	r.logger.Debug("added watch batch", "count", len(opened))
	return len(opened), nil
}

// Remove drops path and closes its handle.
func (r *Registry) Remove(path string) bool {
	e, ok := r.byPath.Delete(entry{path: filepath.Clean(path)})
	if !ok {
		return false
	}
	delete(r.byFD, e.fd)

	if err := r.handles.Close(e.fd); err != nil {
		r.logger.Warn("failed to close handle", "path", e.path, "fd", e.fd, "error", err)
	}
	r.logger.Debug("removed watch", "path", e.path, "fd", e.fd)
	return true
}

// RemoveSubtree drops prefix and every registered path below it.
// Containment is decided per path component, so /tmp/foo never covers
// /tmp/foobar.
func (r *Registry) RemoveSubtree(prefix string) int {
	prefix = filepath.Clean(prefix)

	var doomed []string
	if prefix == "." {
		// Relative descendants of "." carry no "./" prefix and may sort
		// before it, so the whole tree is filtered.
		r.byPath.Ascend(func(e entry) bool {
			if within(prefix, e.path) {
				doomed = append(doomed, e.path)
			}
			return true
		})
	} else {
		// Descendants sort directly after prefix, so the scan stops at the
		// first path outside the subtree.
		r.byPath.AscendGreaterOrEqual(entry{path: prefix}, func(e entry) bool {
			if !within(prefix, e.path) {
				return false
			}
			doomed = append(doomed, e.path)
			return true
		})
	}

	removed := 0
	for _, path := range doomed {
		if r.Remove(path) {
			removed++
		}
	}
	return removed
}

// Path resolves a kernel record identity to its registered path.
func (r *Registry) Path(ident uint64) (string, bool) {
	path, ok := r.byFD[int(ident)]
	return path, ok
}

// Contains reports whether path is registered.
func (r *Registry) Contains(path string) bool {
	_, ok := r.byPath.Get(entry{path: filepath.Clean(path)})
	return ok
}

// Len returns the number of registered paths.
func (r *Registry) Len() int {
	return r.byPath.Len()
}

// Paths yields a snapshot of the registered paths in component order.
func (r *Registry) Paths() iter.Seq[string] {
	paths := make([]string, 0, r.byPath.Len())
	r.byPath.Ascend(func(e entry) bool {
		paths = append(paths, e.path)
		return true
	})
	return slices.Values(paths)
}

// Close closes every remaining handle and empties the registry.
func (r *Registry) Close() error {
	var errs []error
	r.byPath.Ascend(func(e entry) bool {
		if err := r.handles.Close(e.fd); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", e.path, err))
		}
		return true
	})
	r.byPath.Clear(false)
	clear(r.byFD)
	return errors.Join(errs...)
}

func (r *Registry) insert(e entry) {
	r.byPath.ReplaceOrInsert(e)
	r.byFD[e.fd] = e.path
}

// within reports whether child is parent or lies below it, comparing whole
// path components. Both paths are expected to be cleaned.
func within(parent, child string) bool {
	if parent == "." {
		return !filepath.IsAbs(child) && child != ".." &&
			!strings.HasPrefix(child, ".."+string(separator))
	}
	if !strings.HasPrefix(child, parent) {
		return false
	}
	if len(child) == len(parent) {
		return true
	}
	if strings.HasSuffix(parent, string(separator)) {
		return true
	}
	return child[len(parent)] == separator
}

// comparePaths orders paths component by component: the separator sorts
// before every other byte, so a directory's descendants are contiguous and
// immediately follow it.
func comparePaths(a, b string) int {
	n := min(len(a), len(b))
	for i := range n {
		ca, cb := a[i], b[i]
		if ca == cb {
			continue
		}
		if ca == separator {
			return -1
		}
		if cb == separator {
			return 1
		}
		return cmp.Compare(ca, cb)
	}
	return cmp.Compare(len(a), len(b))
}
