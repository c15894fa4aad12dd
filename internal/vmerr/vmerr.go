// Package vmerr implements the Slate error taxonomy of spec §4.5/§7: a
// single RuntimeError type covering both compile-time (Syntax, Type) and
// run-time (Type, Reference, Range, Arithmetic, Argument, State, Assert,
// IO, Import, User) diagnostics, with source-location attribution and a
// programmatic stack trace.
//
// The teacher (kristofer/smog) hand-rolls RuntimeError.StackTrace as a
// []StackFrame slice appended to manually at every call site
// (pkg/vm/errors.go). This package keeps that same user-facing shape but
// captures the stack with github.com/pkg/errors so a RuntimeError always
// carries a trace back to where it was raised, not just to wherever the
// caller happened to be recording frames.
package vmerr

import (
	"fmt"
	"strings"

	"github.com/go-stack/stack"
	"github.com/pkg/errors"
)

// Kind is the error taxonomy of spec §4.5.
type Kind string

const (
	Syntax     Kind = "Syntax"
	Type       Kind = "Type"
	Reference  Kind = "Reference"
	Range      Kind = "Range"
	Arithmetic Kind = "Arithmetic"
	Argument   Kind = "Argument"
	State      Kind = "State"
	Assert     Kind = "Assert"
	IO         Kind = "IO"
	Import     Kind = "Import"
	User       Kind = "User"
)

// Location mirrors value.Location without importing pkg/value, keeping
// this package dependency-free at the bottom of the stack.
type Location struct {
	File   string
	Line   int
	Column int
}

// RuntimeError is the typed error carried across the boundary described
// in spec §4.5: kind, message, optional source location, and optionally
// the opcode name if raised from inside dispatch.
type RuntimeError struct {
	Kind     Kind
	Message  string
	Loc      *Location
	Opcode   string
	// NativeTrace is a lightweight Go call-stack snippet (captured with
	// go-stack/stack rather than runtime.Callers directly) identifying
	// which native/Go function raised the error, distinct from cause's
	// full programmatic trace — useful when a native built-in errors out
	// several Go frames below the opcode dispatch loop.
	NativeTrace string
	cause       error // errors.WithStack-wrapped, carries the programmatic trace
}

func (e *RuntimeError) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Kind))
	b.WriteString(" error: ")
	b.WriteString(e.Message)
	if e.Loc != nil {
		fmt.Fprintf(&b, " (at %s:%d:%d)", e.Loc.File, e.Loc.Line, e.Loc.Column)
	}
	if e.Opcode != "" {
		fmt.Fprintf(&b, " [opcode %s]", e.Opcode)
	}
	return b.String()
}

// Unwrap exposes the pkg/errors-captured stack trace to errors.Is/As and
// to fmt's %+v verb.
func (e *RuntimeError) Unwrap() error { return e.cause }

// New constructs a RuntimeError of the given kind, capturing a stack
// trace at the call site via github.com/pkg/errors.
func New(kind Kind, loc *Location, format string, args ...interface{}) *RuntimeError {
	msg := fmt.Sprintf(format, args...)
	return &RuntimeError{
		Kind:        kind,
		Message:     msg,
		Loc:         loc,
		NativeTrace: stack.Caller(1).String(),
		cause:       errors.WithStack(errors.New(msg)),
	}
}

// WithOpcode returns a copy of e annotated with the opcode name that
// raised it (spec §4.5: "the opcode name if raised from inside
// dispatch").
func (e *RuntimeError) WithOpcode(op string) *RuntimeError {
	cp := *e
	cp.Opcode = op
	return &cp
}
