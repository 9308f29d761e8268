package keventdir

import "github.com/keventdir/keventdir/internal/errors"

// Error is the coded error returned by Watcher operations. Unwrap yields the
// underlying OS error when there is one.
type Error = errors.Error

// Code categorizes an Error.
type Code = errors.Code

// Error categories, usable with errors.Is.
var (
	ErrOpen        = errors.ErrOpen
	ErrRegister    = errors.ErrRegister
	ErrPoll        = errors.ErrPoll
	ErrRecord      = errors.ErrRecord
	ErrContract    = errors.ErrContract
	ErrClosed      = errors.ErrClosed
	ErrUnsupported = errors.ErrUnsupported
)
