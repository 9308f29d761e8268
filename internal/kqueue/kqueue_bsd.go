//go:build darwin || dragonfly || freebsd || netbsd || openbsd

package kqueue

import (
	"fmt"
	"io"
	"log/slog"
	"time"

	"golang.org/x/sys/unix"

	"github.com/keventdir/keventdir/internal/errors"
)

// nativeInterest mirrors Interest in platform fflags.
const nativeInterest = unix.NOTE_DELETE | unix.NOTE_WRITE | unix.NOTE_EXTEND |
	unix.NOTE_LINK | unix.NOTE_RENAME | unix.NOTE_REVOKE

var nativeNotes = []struct {
	native uint32
	note   Note
}{
	{unix.NOTE_DELETE, NoteDelete},
	{unix.NOTE_WRITE, NoteWrite},
	{unix.NOTE_EXTEND, NoteExtend},
	{unix.NOTE_LINK, NoteLink},
	{unix.NOTE_RENAME, NoteRename},
	{unix.NOTE_REVOKE, NoteRevoke},
}

// Queue owns one kqueue descriptor.
// It is not safe for concurrent use.
type Queue struct {
	logger *slog.Logger
	fd     int
	closed bool
}

// New creates a kernel event queue.
func New(logger *slog.Logger) (*Queue, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	fd, err := unix.Kqueue()
	if err != nil {
		return nil, fmt.Errorf("failed to create kqueue: %w", err)
	}
	unix.CloseOnExec(fd)

	return &Queue{logger: logger, fd: fd}, nil
}

// Register adds vnode interest for every descriptor in fds with a single
// kevent call. An EINTR result is not an error: the kernel applies the
// changelist before it starts waiting, so the interest is already in place.
func (q *Queue) Register(fds []int) error {
	if q.closed {
		return errors.Closed()
	}
	if len(fds) == 0 {
		return nil
	}

	changes := make([]unix.Kevent_t, len(fds))
	for i, fd := range fds {
		unix.SetKevent(&changes[i], fd, unix.EVFILT_VNODE, unix.EV_ADD|unix.EV_CLEAR)
		changes[i].Fflags = nativeInterest
	}

	_, err := unix.Kevent(q.fd, changes, nil, nil)
	if err == nil {
		return nil
	}
	if err == unix.EINTR {
		q.logger.Warn("kevent registration interrupted, changelist already applied", "count", len(fds))
		return nil
	}
	return err
}

// Poll waits for a single record. A zero deadline waits forever.
// It returns ok == false only when the deadline passes with nothing queued.
func (q *Queue) Poll(deadline time.Time) (Record, bool, error) {
	if q.closed {
		return Record{}, false, errors.Closed()
	}

	var events [1]unix.Kevent_t
	for {
		var timeout *unix.Timespec
		if !deadline.IsZero() {
			ts := unix.NsecToTimespec(max(time.Until(deadline), 0).Nanoseconds())
			timeout = &ts
		}

		n, err := unix.Kevent(q.fd, nil, events[:], timeout)
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			return Record{}, false, errors.Poll(err)
		}

		switch n {
		case 0:
			return Record{}, false, nil
		case 1:
		default:
			return Record{}, false, errors.Contractf("kevent returned %d records for a buffer of 1", n)
		}

		ev := events[0]
		rec := Record{
			Ident: uint64(ev.Ident),
			Notes: fromNative(uint32(ev.Fflags)),
		}
		if ev.Flags&unix.EV_ERROR != 0 {
			rec.Err = unix.Errno(ev.Data)
		}
		return rec, true, nil
	}
}

// Close releases the kqueue descriptor. Interest registered on it goes away
// with it. Calling Close more than once is a no-op.
func (q *Queue) Close() error {
	if q.closed {
		return nil
	}
	q.closed = true
	return unix.Close(q.fd)
}

func fromNative(fflags uint32) Note {
	var n Note
	for _, nn := range nativeNotes {
		if fflags&nn.native != 0 {
			n |= nn.note
		}
	}
	return n
}
