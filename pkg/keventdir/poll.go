package keventdir

import (
	"iter"
	"time"

	"github.com/keventdir/keventdir/internal/errors"
)

// Next blocks until the kernel delivers a record for a watched path and
// returns the reconciled event.
//
// Records for descriptors that are no longer registered are dropped and the
// wait continues. A record flagged by the kernel yields an ErrRecord error
// and no event. If the registry update for an event fails, the event is still
// returned together with the error.
func (w *Watcher) Next() (Event, error) {
	ev, _, err := w.poll(time.Time{})
	return ev, err
}

// Poll is Next with a bound. It returns ok == false and a nil error when
// timeout elapses without an event for a watched path. The bound covers the
// whole call, including time spent on dropped records.
func (w *Watcher) Poll(timeout time.Duration) (Event, bool, error) {
	return w.poll(time.Now().Add(timeout))
}

// Events yields events until a poll failure, a fatal error, or the caller
// stops. ErrRecord errors and failed registry updates are yielded and
// iteration continues.
func (w *Watcher) Events() iter.Seq2[Event, error] {
	return func(yield func(Event, error) bool) {
		for {
			ev, err := w.Next()
			if !yield(ev, err) {
				return
			}
			if err != nil && !recoverable(err) {
				return
			}
		}
	}
}

func (w *Watcher) poll(deadline time.Time) (Event, bool, error) {
	if w.closed {
		return Event{}, false, errors.Closed()
	}
	if w.err != nil {
		return Event{}, false, w.err
	}

	for {
		rec, ok, err := w.queue.Poll(deadline)
		if err != nil {
			if fatal(err) {
				w.err = err
			}
			return Event{}, false, err
		}
		if !ok {
			if deadline.IsZero() {
				continue
			}
			return Event{}, false, nil
		}

		path, known := w.registry.Path(rec.Ident)
		if rec.Err != nil {
			w.metrics.RecordError()
			return Event{}, false, errors.Record(path, rec.Err)
		}
		if !known {
			w.metrics.DroppedRecord()
			w.dropLog.Do(func() {
				w.logger.Debug("dropping record for unwatched descriptor", "ident", rec.Ident, "notes", rec.Notes)
			})
			continue
		}

		ev := Event{Path: path, Kind: classify(rec.Notes)}
		w.metrics.Event(ev.Kind.String())

		if err := w.reconcile(ev); err != nil {
			w.metrics.SideEffectError(ev.Kind.String())
			w.logger.Warn("failed to update watches", "path", ev.Path, "kind", ev.Kind, "error", err)
			return ev, true, err
		}
		return ev, true, nil
	}
}

// reconcile applies the registry update implied by ev.
func (w *Watcher) reconcile(ev Event) error {
	var err error
	switch ev.Kind {
	case EventDelete:
		w.registry.Remove(ev.Path)
	case EventRevoke:
		w.registry.RemoveSubtree(ev.Path)
	case EventRename:
		// The kernel does not say where the path went; rediscover it.
		w.registry.RemoveSubtree(ev.Path)
		_, err = w.Rescan()
	case EventLink, EventWrite:
		_, err = w.registry.AddSeq(w.scanner.Scan(ev.Path))
	}
	w.metrics.SetHandles(w.registry.Len())
	return err
}

func fatal(err error) bool {
	var werr *errors.Error
	return errors.As(err, &werr) && werr.Code.Fatal()
}

func recoverable(err error) bool {
	var werr *errors.Error
	if !errors.As(err, &werr) {
		return false
	}
	switch werr.Code {
	case errors.CodeRecord, errors.CodeOpen, errors.CodeRegister:
		return true
	default:
		return false
	}
}
