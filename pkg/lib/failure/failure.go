// Package failure defines the error kinds shared by the hash construction
// packages. Every error returned across a package boundary either is, or wraps,
// one of these kinds so that callers can tell a malformed input from a problem
// that simply has no solution.
package failure

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind classifies an error.
type Kind int

const (
	KindUnknown Kind = iota
	// KindFormat is a malformed literal, duplicate key or overlapping key group.
	KindFormat
	// KindConstraint is a violated precondition, such as reading an unbound
	// LUT entry where a concrete value is required.
	KindConstraint
	// KindUnsatisfiable means the exact solver proved there is no assignment.
	KindUnsatisfiable
	// KindResourceExhausted covers memory exhaustion, time limits and
	// cancellation of the SAT engine.
	KindResourceExhausted
	// KindBudgetExhausted means a search ran out of tries or time.
	KindBudgetExhausted
)

func (k Kind) String() string {
	switch k {
	case KindFormat:
		return "FormatError"
	case KindConstraint:
		return "ConstraintError"
	case KindUnsatisfiable:
		return "Unsatisfiable"
	case KindResourceExhausted:
		return "ResourceExhausted"
	case KindBudgetExhausted:
		return "SearchBudgetExhausted"
	}
	return "Unknown"
}

// Sentinels usable with errors.Is.
var (
	ErrFormat            = &Error{kind: KindFormat, msg: "format error"}
	ErrConstraint        = &Error{kind: KindConstraint, msg: "constraint violated"}
	ErrUnsatisfiable     = &Error{kind: KindUnsatisfiable, msg: "no solution for this structure"}
	ErrResourceExhausted = &Error{kind: KindResourceExhausted, msg: "resource exhausted"}
	ErrBudgetExhausted   = &Error{kind: KindBudgetExhausted, msg: "search budget exhausted"}
)

// Error is a classified error with an optional cause.
type Error struct {
	kind  Kind
	msg   string
	cause error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.msg, e.cause)
	}
	return e.msg
}

// Kind returns the classification of e.
func (e *Error) Kind() Kind {
	return e.kind
}

// Unwrap returns the underlying cause, if any.
func (e *Error) Unwrap() error {
	return e.cause
}

// Is reports whether target is a failure of the same kind, so that
// errors.Is(err, failure.ErrUnsatisfiable) works for any unsatisfiable error.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.kind == e.kind
}

// Formatf returns a FormatError.
func Formatf(format string, args ...interface{}) error {
	return &Error{kind: KindFormat, msg: fmt.Sprintf(format, args...)}
}

// Constraintf returns a ConstraintError.
func Constraintf(format string, args ...interface{}) error {
	return &Error{kind: KindConstraint, msg: fmt.Sprintf(format, args...)}
}

// Unsatisfiable returns an Unsatisfiable error with the given reason.
func Unsatisfiable(reason string) error {
	return &Error{kind: KindUnsatisfiable, msg: reason}
}

// ResourceExhausted classifies cause as resource exhaustion.
func ResourceExhausted(cause error, msg string) error {
	return &Error{kind: KindResourceExhausted, msg: msg, cause: cause}
}

// NoScore marks a BudgetExhausted from a method that never scores a
// candidate.
const NoScore = -1

// BudgetExhausted is returned by searches that stop without reaching a zero
// score. It carries the best score found.
type BudgetExhausted struct {
	BestScore int
	Tries     int
}

func (e *BudgetExhausted) Error() string {
	if e.BestScore == NoScore {
		return fmt.Sprintf("search budget exhausted after %d tries", e.Tries)
	}
	return fmt.Sprintf("search budget exhausted after %d tries, best score %d", e.Tries, e.BestScore)
}

// Is matches ErrBudgetExhausted.
func (e *BudgetExhausted) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.kind == KindBudgetExhausted
}

// KindOf returns the classification of err, looking through wrapping.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	var b *BudgetExhausted
	if errors.As(err, &b) {
		return KindBudgetExhausted
	}
	var f *Error
	if errors.As(err, &f) {
		return f.kind
	}
	return KindUnknown
}

// IsUnsatisfiable reports whether err is, or wraps, an Unsatisfiable error.
func IsUnsatisfiable(err error) bool {
	return errors.Is(err, ErrUnsatisfiable)
}

// IsResourceExhausted reports whether err is, or wraps, resource exhaustion.
func IsResourceExhausted(err error) bool {
	return errors.Is(err, ErrResourceExhausted)
}

// Exit codes used by the command line driver.
const (
	ExitOK                = 0
	ExitError             = 1
	ExitNoSolution        = 2
	ExitResourceExhausted = 3
)

// ExitCode maps err to a process exit status. Unsatisfiable and budget
// outcomes share a status; resource exhaustion is kept distinct from both.
func ExitCode(err error) int {
	switch KindOf(err) {
	case KindUnknown:
		if err == nil {
			return ExitOK
		}
		return ExitError
	case KindUnsatisfiable, KindBudgetExhausted:
		return ExitNoSolution
	case KindResourceExhausted:
		return ExitResourceExhausted
	}
	return ExitError
}
