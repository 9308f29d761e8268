package keventdir

import (
	"fmt"
	"iter"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/keventdir/keventdir/internal/kqueue"
)

// fakeQueue replays scripted poll results.
type fakeQueue struct {
	script    []pollResult
	registers [][]int
	failNext  error
	closes    int
}

type pollResult struct {
	rec kqueue.Record
	err error
}

var errScriptExhausted = fmt.Errorf("fake queue: script exhausted")

func (q *fakeQueue) push(fd int, notes kqueue.Note) {
	q.script = append(q.script, pollResult{rec: kqueue.Record{Ident: uint64(fd), Notes: notes}})
}

func (q *fakeQueue) pushErr(err error) {
	q.script = append(q.script, pollResult{err: err})
}

func (q *fakeQueue) Register(fds []int) error {
	if q.failNext != nil {
		err := q.failNext
		q.failNext = nil
		return err
	}
	q.registers = append(q.registers, slices.Clone(fds))
	return nil
}

func (q *fakeQueue) Poll(deadline time.Time) (kqueue.Record, bool, error) {
	if len(q.script) == 0 {
		if deadline.IsZero() {
			return kqueue.Record{}, false, errScriptExhausted
		}
		return kqueue.Record{}, false, nil
	}
	next := q.script[0]
	q.script = q.script[1:]
	if next.err != nil {
		return kqueue.Record{}, false, next.err
	}
	return next.rec, true, nil
}

func (q *fakeQueue) Close() error {
	q.closes++
	return nil
}

// fakeHandles hands out increasing descriptors and remembers which are open.
type fakeHandles struct {
	next     int
	open     map[int]string
	byPath   map[string]int
	failOpen map[string]error
}

func newFakeHandles() *fakeHandles {
	return &fakeHandles{
		next:     100,
		open:     make(map[int]string),
		byPath:   make(map[string]int),
		failOpen: make(map[string]error),
	}
}

func (h *fakeHandles) Open(path string) (int, error) {
	if err := h.failOpen[path]; err != nil {
		return -1, err
	}
	h.next++
	h.open[h.next] = path
	h.byPath[path] = h.next
	return h.next, nil
}

func (h *fakeHandles) Close(fd int) error {
	if _, ok := h.open[fd]; !ok {
		return fmt.Errorf("fake handles: double close of %d", fd)
	}
	delete(h.byPath, h.open[fd])
	delete(h.open, fd)
	return nil
}

func (h *fakeHandles) fd(t *testing.T, path string) int {
	t.Helper()
	fd, ok := h.byPath[path]
	require.True(t, ok, "no open handle for %s", path)
	return fd
}

// fakeTree is an in-memory directory tree walked in sorted order.
type fakeTree map[string]struct{}

func newFakeTree(paths ...string) fakeTree {
	tree := make(fakeTree)
	for _, p := range paths {
		tree[p] = struct{}{}
	}
	return tree
}

func (t fakeTree) Scan(root string) iter.Seq[string] {
	return func(yield func(string) bool) {
		if _, ok := t[root]; !ok {
			return
		}
		if !yield(root) {
			return
		}
		var below []string
		for p := range t {
			if strings.HasPrefix(p, root+"/") {
				below = append(below, p)
			}
		}
		slices.Sort(below)
		for _, p := range below {
			if !yield(p) {
				return
			}
		}
	}
}

func (t fakeTree) rename(from, to string) {
	for p := range t {
		if p == from || strings.HasPrefix(p, from+"/") {
			delete(t, p)
			t[to+strings.TrimPrefix(p, from)] = struct{}{}
		}
	}
}

type fixture struct {
	w       *Watcher
	queue   *fakeQueue
	handles *fakeHandles
	tree    fakeTree
}

func newFixture(t *testing.T, opts Options, paths ...string) *fixture {
	t.Helper()
	f := &fixture{
		queue:   &fakeQueue{},
		handles: newFakeHandles(),
		tree:    newFakeTree(paths...),
	}
	opts.queue = f.queue
	opts.handles = f.handles
	opts.scanner = f.tree

	w, err := New(nil, opts)
	require.NoError(t, err)
	f.w = w
	t.Cleanup(func() { _ = w.Close() })
	return f
}

// assertMirrors checks that the watched set is exactly the set of open handles.
func (f *fixture) assertMirrors(t *testing.T) {
	t.Helper()
	var open []string
	for _, p := range f.handles.open {
		open = append(open, p)
	}
	require.ElementsMatch(t, open, slices.Collect(f.w.Paths()))
}
