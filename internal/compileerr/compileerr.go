// Package compileerr defines the single error type surfaced at the
// compiler's API boundary. All lowering errors — syntax rejections,
// invalid l-values, malformed retry policies, internal invariant
// violations — carry the same shape: a kind, a human-readable message,
// and a source location, with a one-line constructor per kind.
package compileerr

import (
	"fmt"

	"github.com/ts2wf/compiler/surface"
)

// Kind classifies a compile error by what the input got wrong.
type Kind string

const (
	Unsupported          Kind = "Unsupported"
	InvalidMapKey        Kind = "InvalidMapKey"
	InvalidLValue        Kind = "InvalidLValue"
	InvalidParallel      Kind = "InvalidParallel"
	InvalidRetryPolicy   Kind = "InvalidRetryPolicy"
	InvalidDestructuring Kind = "InvalidDestructuring"
	ControlFlow          Kind = "ControlFlow"
	Internal             Kind = "Internal"
)

// Error is the single error type returned by every package in this module.
type Error struct {
	Kind    Kind
	Message string
	Loc     surface.Loc
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s at %d:%d: %s", e.Kind, e.Loc.Start.Line, e.Loc.Start.Column, e.Message)
}

// New constructs an Error of the given kind at the given location.
func New(kind Kind, loc surface.Loc, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Loc: loc}
}

// Unsupportedf reports an unsupported AST node kind or operator.
func Unsupportedf(loc surface.Loc, format string, args ...interface{}) *Error {
	return New(Unsupported, loc, format, args...)
}

// InvalidMapKeyf reports a non-string, non-identifier object-literal key.
func InvalidMapKeyf(loc surface.Loc, format string, args ...interface{}) *Error {
	return New(InvalidMapKey, loc, format, args...)
}

// InvalidLValuef reports an assignment target that is not a fully-qualified
// name or a pattern.
func InvalidLValuef(loc surface.Loc, format string, args ...interface{}) *Error {
	return New(InvalidLValue, loc, format, args...)
}

// InvalidParallelf reports malformed arguments to parallel(...).
func InvalidParallelf(loc surface.Loc, format string, args ...interface{}) *Error {
	return New(InvalidParallel, loc, format, args...)
}

// InvalidRetryPolicyf reports a malformed retry_policy(...) call.
func InvalidRetryPolicyf(loc surface.Loc, format string, args ...interface{}) *Error {
	return New(InvalidRetryPolicy, loc, format, args...)
}

// InvalidDestructuringf reports an invalid destructuring pattern.
func InvalidDestructuringf(loc surface.Loc, format string, args ...interface{}) *Error {
	return New(InvalidDestructuring, loc, format, args...)
}

// ControlFlowf reports break/continue across try-finally, or a function
// declaration not at top level.
func ControlFlowf(loc surface.Loc, format string, args ...interface{}) *Error {
	return New(ControlFlow, loc, format, args...)
}

// Internalf reports an invariant violation that should never fire on
// well-typed input. It never panics.
func Internalf(loc surface.Loc, format string, args ...interface{}) *Error {
	return New(Internal, loc, format, args...)
}
