// Package swarmerr defines the closed error taxonomy shared by the graph
// loader and the scheduler's node executors. Errors are tagged with a Kind
// rather than distinguished by Go type, so callers can switch on a stable
// value and the CLI can map a Kind to an exit code without type assertions
// up and down the call stack.
package swarmerr

import (
	"errors"
	"fmt"
)

// Kind identifies one of the taxonomy's fixed error categories.
type Kind string

const (
	FileNotFound  Kind = "FILE_NOT_FOUND"
	InvalidSchema Kind = "INVALID_SCHEMA"
	InvalidEdge   Kind = "INVALID_EDGE"
	CycleDetected Kind = "CYCLE_DETECTED"
	UnknownType   Kind = "UNKNOWN_TYPE"
	InvalidParams Kind = "INVALID_PARAMS"
	Timeout       Kind = "TIMEOUT"
	CommandFailed Kind = "COMMAND_FAILED"
	CommandError  Kind = "COMMAND_ERROR"
	Deadlock      Kind = "DEADLOCK"
	PackageFailed Kind = "PACKAGE_FAILED"
	ReportFailed  Kind = "REPORT_FAILED"
	AuthFailed    Kind = "AUTH_FAILED"
	Forbidden     Kind = "FORBIDDEN"
)

// Error is the concrete error type carried through the graph and engine
// packages. COMMAND_FAILED errors built by Subprocess populate
// Stdout/Stderr/ExitCode; errors built by New, Newf, or Wrap (including
// COMMAND_ERROR) leave them zero.
type Error struct {
	Kind     Kind
	Message  string
	Stdout   string
	Stderr   string
	ExitCode int

	Cause error
}

// New constructs an Error of the given kind with no subprocess detail.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Newf constructs an Error of the given kind with a formatted message.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap constructs an Error of the given kind that preserves cause for
// errors.Is/errors.As chains.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// Subprocess constructs a COMMAND_FAILED error carrying the exit detail
// described in the subprocess contract.
func Subprocess(message, stdout, stderr string, exitCode int) *Error {
	return &Error{Kind: CommandFailed, Message: message, Stdout: stdout, Stderr: stderr, ExitCode: exitCode}
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap exposes the wrapped cause, if any, to errors.Is/errors.As.
func (e *Error) Unwrap() error { return e.Cause }

// Is reports whether target is an *Error with the same Kind, so callers can
// write errors.Is(err, swarmerr.New(swarmerr.Timeout, "")) style checks, or
// more idiomatically use Is(err, kind) below.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// Is reports whether err is a *swarmerr.Error of the given kind, anywhere in
// its error chain.
func Is(err error, kind Kind) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Kind == kind
}

// As extracts the first *Error in err's chain, mirroring errors.As.
func As(err error) (*Error, bool) {
	var e *Error
	ok := errors.As(err, &e)
	return e, ok
}

// ExitCode maps a Kind to the CLI exit code named in the external interface
// contract. Kinds with no dedicated exit code (INVALID_PARAMS, UNKNOWN_TYPE,
// TIMEOUT, COMMAND_FAILED, COMMAND_ERROR, DEADLOCK) surface through the
// node's failure and the run's overall 204, not a distinct process exit.
func ExitCode(kind Kind) int {
	switch kind {
	case FileNotFound, InvalidSchema, InvalidEdge:
		return 202
	case CycleDetected:
		return 203
	case PackageFailed:
		return 401
	case ReportFailed:
		return 402
	case AuthFailed:
		return 405
	case Forbidden:
		return 403
	default:
		return 204
	}
}
