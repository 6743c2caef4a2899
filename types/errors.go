package types

import (
	"errors"
	"strings"
)

// ErrorKind classifies failures by how the workflow reacts to them.
type ErrorKind int

const (
	// KindSoft failures are logged as warnings and the run continues.
	KindSoft ErrorKind = iota
	// KindTransient failures were retried and then handed to the user.
	KindTransient
	// KindInput failures come from malformed user input.
	KindInput
	// KindInconsistent failures need explicit confirmation before proceeding.
	KindInconsistent
	// KindFatal failures terminate the process with exit code 1.
	KindFatal
)

func (k ErrorKind) String() string {
	switch k {
	case KindSoft:
		return "soft"
	case KindTransient:
		return "transient"
	case KindInput:
		return "input"
	case KindInconsistent:
		return "inconsistent"
	case KindFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// Error carries a failure together with the action an operator can take next.
type Error struct {
	Kind   ErrorKind
	Op     string
	Err    error
	Remedy string
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	if e.Err != nil {
		b.WriteString(e.Err.Error())
	} else {
		b.WriteString(e.Kind.String() + " failure")
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Fatal wraps err as a fatal failure.
func Fatal(op string, err error, remedy string) error {
	return &Error{Kind: KindFatal, Op: op, Err: err, Remedy: remedy}
}

// Soft wraps err as a non-critical failure.
func Soft(op string, err error, remedy string) error {
	return &Error{Kind: KindSoft, Op: op, Err: err, Remedy: remedy}
}

// Transient wraps err as a failure that survived its retries.
func Transient(op string, err error, remedy string) error {
	return &Error{Kind: KindTransient, Op: op, Err: err, Remedy: remedy}
}

// IsFatal reports whether err (or anything it wraps) is fatal.
func IsFatal(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == KindFatal
}

// RemedyOf returns the remedy attached to err, if any.
func RemedyOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Remedy
	}
	return ""
}

var (
	// ErrNoExistingInstallation is returned when update or repair is requested
	// on a host with no detected flavor.
	ErrNoExistingInstallation = errors.New("no existing installation found")
	// ErrAborted is returned when the user chooses to abort the run.
	ErrAborted = errors.New("aborted by user")
	// ErrCancelled is returned when the user backs out of a selection.
	ErrCancelled = errors.New("cancelled")
)
