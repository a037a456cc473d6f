// Package errors defines the tagged error kinds surfaced by every tier of
// the execution core, per spec §7.
package errors

import (
	"fmt"

	pkgerrors "github.com/pkg/errors"
)

// Position locates a span in source text. The execution core never reads
// source text itself; positions are threaded through from the (external)
// parser so that runtime errors can report a useful stack.
type Position struct {
	Line     int // 1-based line number
	Column   int // 1-based column number
	StartPos int // 0-based byte offset, inclusive
	EndPos   int // 0-based byte offset, exclusive
	File     string
}

func (p Position) String() string {
	if p.File == "" {
		return fmt.Sprintf("%d:%d", p.Line, p.Column)
	}
	return fmt.Sprintf("%s:%d:%d", p.File, p.Line, p.Column)
}

// Kind enumerates the error categories from spec §7.
type Kind string

const (
	// Compile-time (bytecode/IR)
	KindInvalidOpcode       Kind = "InvalidOpcode"
	KindInvalidOperandCount Kind = "InvalidOperandCount"
	KindInvalidRegister     Kind = "InvalidRegister"
	KindUndefinedRegister   Kind = "UndefinedRegister"
	KindUndefinedLabel      Kind = "UndefinedLabel"
	KindDuplicateLabel      Kind = "DuplicateLabel"
	KindUnreachableCode     Kind = "UnreachableCode" // warning, not an abort
	KindStackImbalance      Kind = "StackImbalance"
	KindMaxRegistersExceed  Kind = "MaxRegistersExceeded"
	KindCyclicDependency    Kind = "CyclicDependency"
	KindInvalidBytecode     Kind = "InvalidBytecode"
	KindTruncated           Kind = "Truncated"

	// Runtime (from generated code)
	KindTypeError      Kind = "TypeError"
	KindRangeError     Kind = "RangeError"
	KindReferenceError Kind = "ReferenceError"
	KindUncaughtThrow  Kind = "UncaughtThrow"
	KindOutOfRange     Kind = "OutOfRange"

	// JIT internal — never surfaced to user code.
	KindTraceTooLong         Kind = "TraceTooLong"
	KindTooManyGuardFailures Kind = "TooManyGuardFailures"
	KindTooManySideExits     Kind = "TooManySideExits"
	KindTimeout              Kind = "Timeout"
	KindOther                Kind = "Other"
)

// IsWarning reports whether a Kind should be collected but never abort a
// compile (spec §4.4: "reported as warnings, not errors").
func (k Kind) IsWarning() bool {
	return k == KindUnreachableCode
}

// AeroError is the interface every error kind in this module implements.
// It mirrors the teacher's PaseratiError shape (Pos/Kind/Message) widened
// to the execution core's full error-kind enumeration.
type AeroError interface {
	error
	Pos() Position
	Kind() Kind
	Message() string
}

type baseError struct {
	kind Kind
	pos  Position
	msg  string
	// cause carries a stack-trace-bearing wrapped error when one is
	// available, so a multi-stage compile failure can be traced back to
	// its origin without losing the tagged Kind.
	cause error
}

func (e *baseError) Error() string {
	if e.pos.Line == 0 && e.pos.Column == 0 {
		return fmt.Sprintf("%s: %s", e.kind, e.msg)
	}
	return fmt.Sprintf("%s error at %s: %s", e.kind, e.pos, e.msg)
}

func (e *baseError) Pos() Position   { return e.pos }
func (e *baseError) Kind() Kind      { return e.kind }
func (e *baseError) Message() string { return e.msg }
func (e *baseError) Unwrap() error   { return e.cause }

// New constructs an AeroError of the given kind at the given position.
func New(kind Kind, pos Position, format string, args ...any) AeroError {
	return &baseError{kind: kind, pos: pos, msg: fmt.Sprintf(format, args...)}
}

// Wrap attaches a stack trace (via github.com/pkg/errors) to an
// underlying cause while preserving the tagged Kind/Position, used when a
// lower layer (e.g. a decoder) fails and a higher layer (e.g. the
// baseline compiler) needs to report it without losing provenance.
func Wrap(kind Kind, pos Position, cause error, format string, args ...any) AeroError {
	return &baseError{
		kind:  kind,
		pos:   pos,
		msg:   fmt.Sprintf(format, args...),
		cause: pkgerrors.WithStack(cause),
	}
}

// Cause unwraps to the deepest non-AeroError cause, delegating to
// github.com/pkg/errors so callers can recover the original stack trace.
func Cause(err error) error {
	for {
		err = pkgerrors.Cause(err)
		be, ok := err.(*baseError)
		if !ok || be.cause == nil {
			return err
		}
		err = be.cause
	}
}

// List collects multiple AeroErrors, used wherever a compile stage
// gathers every problem instead of aborting on the first (spec §4.4,
// §7 "the caller chooses abort-on-first vs. collect-all").
type List struct {
	Errors []AeroError
}

func (l *List) Add(err AeroError) {
	l.Errors = append(l.Errors, err)
}

// Fatal reports whether the list contains at least one non-warning error.
func (l *List) Fatal() bool {
	for _, e := range l.Errors {
		if !e.Kind().IsWarning() {
			return true
		}
	}
	return false
}

func (l *List) Error() string {
	if len(l.Errors) == 0 {
		return "no errors"
	}
	s := fmt.Sprintf("%d error(s):", len(l.Errors))
	for _, e := range l.Errors {
		s += "\n  " + e.Error()
	}
	return s
}
