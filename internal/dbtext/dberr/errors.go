// Package dberr implements the engine's error taxonomy (spec.md §7),
// adapted from the teacher repo's err package: a single wrapped error
// type carrying a Kind, severity, and optional context, instead of a
// distinct Go type per error kind.
package dberr

import (
	"errors"
	"fmt"
)

// Kind enumerates the error taxonomy of spec.md §7.
type Kind string

const (
	LexError        Kind = "LexError"
	ParseError      Kind = "ParseError"
	NameError       Kind = "NameError"
	SchemaError     Kind = "SchemaError"
	ConstraintError Kind = "ConstraintError"
	OptionError     Kind = "OptionError"
	StorageError    Kind = "StorageError"
	InternalError   Kind = "InternalError"
)

// Severity ranks how serious an error is, independent of its Kind.
type Severity int

const (
	SeverityLow Severity = iota
	SeverityMedium
	SeverityHigh
	SeverityCritical
)

// Error is the engine's error type. It wraps an optional underlying
// cause and carries structured context for logging.
type Error struct {
	Kind     Kind
	Message  string
	Cause    error
	Severity Severity
	Context  map[string]interface{}
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// New builds an Error of the given kind with medium severity.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message, Severity: SeverityMedium}
}

// Newf is New with fmt.Sprintf-style formatting.
func Newf(kind Kind, format string, args ...interface{}) *Error {
	return New(kind, fmt.Sprintf(format, args...))
}

// Wrap attaches kind/message to an existing cause.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause, Severity: SeverityHigh}
}

// WithContext returns a copy of e with k:v merged into its context map.
func (e *Error) WithContext(k string, v interface{}) *Error {
	cp := *e
	cp.Context = make(map[string]interface{}, len(e.Context)+1)
	for ck, cv := range e.Context {
		cp.Context[ck] = cv
	}
	cp.Context[k] = v
	return &cp
}

// KindOf extracts the Kind of err if it is (or wraps) a *Error, otherwise
// InternalError.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return InternalError
}
