package cbor

import (
	"fmt"
	"runtime/debug"
)

// CaptureStacks controls whether DecodeError records a stack trace at
// construction time. Disabled by default: malformed input is raised on
// hot decode paths and the trace buys nothing there. Internal
// consistency violations in the tag logic capture a trace regardless.
var CaptureStacks = false

// Error is the interface satisfied by all of the errors that originate
// from this package.
type Error interface {
	error

	// Resumable returns whether or not the error means that the stream
	// of data is malformed and the information is unrecoverable.
	Resumable() bool
}

// DecodeError is the single error kind raised for malformed CBOR input.
// A DecodeError invalidates the whole parse: there is no partial-result
// or retry path.
type DecodeError struct {
	msg   string
	stack []byte
}

// Error implements the error interface
func (e *DecodeError) Error() string { return "cbor: " + e.msg }

// Resumable is always 'false' for DecodeErrors
func (e *DecodeError) Resumable() bool { return false }

// Stack returns the stack trace captured at construction, or nil when
// capture was skipped.
func (e *DecodeError) Stack() []byte { return e.stack }

// malformed raises a malformed-input error. Stack capture is skipped
// unless CaptureStacks is set.
func malformed(msg string) error {
	e := &DecodeError{msg: msg}
	if CaptureStacks {
		e.stack = debug.Stack()
	}
	return e
}

// malformedf is malformed with formatting.
func malformedf(format string, args ...any) error {
	return malformed(fmt.Sprintf(format, args...))
}

// malformedStack raises a malformed-input error and always captures a
// trace. Reserved for conditions that indicate an internal consistency
// violation rather than ordinary bad input.
func malformedStack(msg string) error {
	return &DecodeError{msg: msg, stack: debug.Stack()}
}

// Resumable returns whether or not the error means that the stream of
// data is malformed and the information is unrecoverable.
func Resumable(e error) bool {
	if e, ok := e.(Error); ok {
		return e.Resumable()
	}
	return false
}
