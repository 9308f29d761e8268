// Package errors provides coded errors for the watch registry, the kernel
// event queue and the reconciliation loop.
//
// Usage:
//
//	// Check the category with errors.Is
//	if errors.Is(err, errors.ErrOpen) {
//	    // path could not be opened
//	}
//
//	// The OS error is still reachable through the chain
//	if errors.Is(err, unix.EACCES) {
//	    // permission denied
//	}
//
//	// Or switch on the code directly
//	var watchErr *errors.Error
//	if errors.As(err, &watchErr) && watchErr.Code.Fatal() {
//	    return err
//	}
package errors

import (
	"errors"
	"fmt"
)

// Re-export standard library functions for convenience.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	Join   = errors.Join
)

// Code represents a machine-readable error category.
type Code string

// Error codes used throughout the module.
const (
	CodeOpen        Code = "OPEN"
	CodeRegister    Code = "REGISTER"
	CodePoll        Code = "POLL"
	CodeRecord      Code = "RECORD"
	CodeContract    Code = "CONTRACT"
	CodeClosed      Code = "CLOSED"
	CodeUnsupported Code = "UNSUPPORTED"
)

// Fatal reports whether an error with this code leaves the watcher unusable.
func (c Code) Fatal() bool {
	switch c {
	case CodeContract, CodeClosed, CodeUnsupported:
		return true
	default:
		return false
	}
}

// Error is a coded error with the operation and path it concerns.
type Error struct {
	Code  Code
	Op    string
	Path  string
	cause error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Op
	if msg == "" {
		msg = string(e.Code)
	}
	if e.Path != "" {
		msg += " " + e.Path
	}
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", msg, e.cause)
	}
	return msg
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.cause
}

// Is reports whether target matches this error.
// Matches if target is an *Error with the same Code.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

// Sentinel errors for use with errors.Is().
var (
	ErrOpen        = &Error{Code: CodeOpen, Op: "open"}
	ErrRegister    = &Error{Code: CodeRegister, Op: "register"}
	ErrPoll        = &Error{Code: CodePoll, Op: "poll"}
	ErrRecord      = &Error{Code: CodeRecord, Op: "event record"}
	ErrContract    = &Error{Code: CodeContract, Op: "kevent contract violated"}
	ErrClosed      = &Error{Code: CodeClosed, Op: "watcher is closed"}
	ErrUnsupported = &Error{Code: CodeUnsupported, Op: "kqueue is not available on this platform"}
)

// Open wraps a failure to open path.
func Open(path string, cause error) *Error {
	return &Error{Code: CodeOpen, Op: "open", Path: path, cause: cause}
}

// Register wraps a rejected interest registration. Path may be empty when a
// whole batch was rejected.
func Register(path string, cause error) *Error {
	return &Error{Code: CodeRegister, Op: "register", Path: path, cause: cause}
}

// Poll wraps an OS-level failure while waiting for events.
func Poll(cause error) *Error {
	return &Error{Code: CodePoll, Op: "poll", cause: cause}
}

// Record wraps an error flagged on a single delivered record.
func Record(path string, cause error) *Error {
	return &Error{Code: CodeRecord, Op: "event record", Path: path, cause: cause}
}

// Contractf reports an unrecoverable violation of the kevent return contract.
func Contractf(format string, args ...any) *Error {
	return &Error{Code: CodeContract, Op: "kevent contract violated", cause: fmt.Errorf(format, args...)}
}

// Closed reports use of a closed watcher or queue.
func Closed() *Error {
	return ErrClosed
}

// Unsupported reports that the kernel facility is missing on this platform.
func Unsupported(goos string) *Error {
	return &Error{Code: CodeUnsupported, Op: "kqueue is not available on " + goos}
}
