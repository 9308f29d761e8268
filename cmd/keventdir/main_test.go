package main

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keventdir/keventdir/internal/config"
	"github.com/keventdir/keventdir/internal/errors"
	"github.com/keventdir/keventdir/pkg/keventdir"
)

type pollStep struct {
	ev  keventdir.Event
	ok  bool
	err error
}

type scriptedPoller struct {
	steps []pollStep
	calls int
}

func (p *scriptedPoller) Poll(time.Duration) (keventdir.Event, bool, error) {
	p.calls++
	if len(p.steps) == 0 {
		return keventdir.Event{}, false, nil
	}
	s := p.steps[0]
	p.steps = p.steps[1:]
	return s.ev, s.ok, s.err
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func event(path string, kind keventdir.EventKind) pollStep {
	return pollStep{ev: keventdir.Event{Path: path, Kind: kind}, ok: true}
}

func TestWatchLoop_StopsAtMaxEvents(t *testing.T) {
	p := &scriptedPoller{steps: []pollStep{
		event("/d", keventdir.EventWrite),
		{}, // timeout
		event("/d/x", keventdir.EventDelete),
		event("/d/y", keventdir.EventRename),
	}}
	var out bytes.Buffer

	err := watchLoop(context.Background(), p, config.WatchConfig{MaxEvents: 2, PollTimeout: time.Millisecond}, &out, discard())
	require.NoError(t, err)

	assert.Equal(t, "/d: Write\n/d/x: Delete\n", out.String())
	assert.Equal(t, 3, p.calls)
}

func TestWatchLoop_RecordErrorsAreSkipped(t *testing.T) {
	p := &scriptedPoller{steps: []pollStep{
		{err: errors.Record("/d", syscall.EBADF)},
		event("/d", keventdir.EventLink),
	}}
	var out bytes.Buffer

	err := watchLoop(context.Background(), p, config.WatchConfig{MaxEvents: 1, PollTimeout: time.Millisecond}, &out, discard())
	require.NoError(t, err)
	assert.Equal(t, "/d: Link\n", out.String())
}

func TestWatchLoop_SideEffectErrorStillPrints(t *testing.T) {
	p := &scriptedPoller{steps: []pollStep{
		{ev: keventdir.Event{Path: "/d", Kind: keventdir.EventWrite}, ok: true, err: errors.Register("", syscall.ENOMEM)},
	}}
	var out bytes.Buffer

	err := watchLoop(context.Background(), p, config.WatchConfig{MaxEvents: 1, PollTimeout: time.Millisecond}, &out, discard())
	require.NoError(t, err)
	assert.Equal(t, "/d: Write\n", out.String())
}

func TestWatchLoop_FatalErrorStops(t *testing.T) {
	p := &scriptedPoller{steps: []pollStep{
		event("/d", keventdir.EventWrite),
		{err: errors.Contractf("kevent returned %d records for a buffer of 1", 2)},
		event("/d", keventdir.EventWrite),
	}}
	var out bytes.Buffer

	err := watchLoop(context.Background(), p, config.WatchConfig{MaxEvents: 0, PollTimeout: time.Millisecond}, &out, discard())
	require.ErrorIs(t, err, keventdir.ErrContract)
	assert.Equal(t, "/d: Write\n", out.String())
}

func TestWatchLoop_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p := &scriptedPoller{}

	err := watchLoop(ctx, p, config.WatchConfig{MaxEvents: 0, PollTimeout: time.Millisecond}, io.Discard, discard())
	require.NoError(t, err)
	assert.Zero(t, p.calls)
}

func TestWatchLoop_UnboundedRunsUntilCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := &scriptedPoller{}
	for range 50 {
		p.steps = append(p.steps, event("/d", keventdir.EventExtend))
	}
	var out countingWriter
	out.after = 50
	out.cancel = cancel

	err := watchLoop(ctx, p, config.WatchConfig{MaxEvents: 0, PollTimeout: time.Millisecond}, &out, discard())
	require.NoError(t, err)
	assert.Equal(t, 50, out.lines)
}

// countingWriter cancels once it has seen the given number of lines.
type countingWriter struct {
	lines  int
	after  int
	cancel context.CancelFunc
}

func (w *countingWriter) Write(p []byte) (int, error) {
	w.lines += bytes.Count(p, []byte("\n"))
	if w.lines >= w.after {
		w.cancel()
	}
	return len(p), nil
}

func TestRun_ConfigError(t *testing.T) {
	err := run([]string{"--max-events=-5", t.TempDir()}, io.Discard)
	assert.Error(t, err)
}
