package registry

import (
	"fmt"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
)

// fakeHandles hands out increasing descriptors and tracks which are open.
type fakeHandles struct {
	next     int
	open     map[int]string
	failOpen map[string]error
	opens    int
}

func newFakeHandles() *fakeHandles {
	return &fakeHandles{
		open:     make(map[int]string),
		failOpen: make(map[string]error),
	}
}

func (f *fakeHandles) Open(path string) (int, error) {
	f.opens++
	if err, ok := f.failOpen[path]; ok {
		return -1, err
	}
	f.next++
	f.open[f.next] = path
	return f.next, nil
}

func (f *fakeHandles) Close(fd int) error {
	if _, ok := f.open[fd]; !ok {
		return fmt.Errorf("close of unknown descriptor %d", fd)
	}
	delete(f.open, fd)
	return nil
}

// fakeInterest records every Register call and can reject chosen calls.
type fakeInterest struct {
	calls    [][]int
	failCall map[int]error
}

func newFakeInterest() *fakeInterest {
	return &fakeInterest{failCall: make(map[int]error)}
}

func (f *fakeInterest) Register(fds []int) error {
	idx := len(f.calls)
	f.calls = append(f.calls, slices.Clone(fds))
	return f.failCall[idx]
}

// assertConsistent checks that registry entries and open descriptors agree.
func assertConsistent(t *testing.T, r *Registry, h *fakeHandles) {
	t.Helper()
	assert.Equal(t, len(h.open), r.Len(), "registry size must match open handles")
	assert.Equal(t, len(r.byFD), r.Len(), "both index directions must have the same size")
	for fd, path := range h.open {
		got, ok := r.Path(uint64(fd))
		assert.True(t, ok, "fd %d not resolvable", fd)
		assert.Equal(t, path, got)
		assert.True(t, r.Contains(path), "path %s missing", path)
	}
}
