//go:build darwin || dragonfly || freebsd || netbsd || openbsd

package kqueue

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"github.com/keventdir/keventdir/internal/errors"
)

func openForEvents(t *testing.T, path string) int {
	t.Helper()
	fd, err := unix.Open(path, unix.O_RDONLY|unix.O_NONBLOCK|unix.O_CLOEXEC, 0)
	require.NoError(t, err)
	t.Cleanup(func() { _ = unix.Close(fd) })
	return fd
}

func TestQueue_WriteIsReported(t *testing.T) {
	q, err := New(nil)
	require.NoError(t, err)
	defer q.Close()

	file := filepath.Join(t.TempDir(), "a.txt")
	require.NoError(t, os.WriteFile(file, []byte("one"), 0o644))
	fd := openForEvents(t, file)

	require.NoError(t, q.Register([]int{fd}))

	f, err := os.OpenFile(file, os.O_APPEND|os.O_WRONLY, 0)
	require.NoError(t, err)
	_, err = f.WriteString("two")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	rec, ok, err := q.Poll(time.Now().Add(2 * time.Second))
	require.NoError(t, err)
	require.True(t, ok, "expected a record before the deadline")
	assert.Equal(t, uint64(fd), rec.Ident)
	assert.True(t, rec.Notes.Has(NoteWrite), "notes: %s", rec.Notes)
	assert.NoError(t, rec.Err)
}

func TestQueue_PollTimesOut(t *testing.T) {
	q, err := New(nil)
	require.NoError(t, err)
	defer q.Close()

	start := time.Now()
	_, ok, err := q.Poll(start.Add(50 * time.Millisecond))
	require.NoError(t, err)
	assert.False(t, ok)
	assert.GreaterOrEqual(t, time.Since(start), 40*time.Millisecond)
}

func TestQueue_RegisterBadDescriptor(t *testing.T) {
	q, err := New(nil)
	require.NoError(t, err)
	defer q.Close()

	err = q.Register([]int{-1})
	assert.Error(t, err)
}

func TestQueue_Close(t *testing.T) {
	q, err := New(nil)
	require.NoError(t, err)

	require.NoError(t, q.Close())
	assert.NoError(t, q.Close(), "second close is a no-op")

	_, _, err = q.Poll(time.Now())
	assert.ErrorIs(t, err, errors.ErrClosed)
	assert.ErrorIs(t, q.Register([]int{0}), errors.ErrClosed)
}
