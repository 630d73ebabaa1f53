package model

import (
	"errors"
	"fmt"
)

// ErrorKind classifies failures so callers can decide whether a run can continue.
type ErrorKind string

const (
	// KindInput marks malformed or inconsistent inputs. Fatal before any solve.
	KindInput ErrorKind = "input"
	// KindNumeric marks numeric edge cases that were recovered with a fallback.
	KindNumeric ErrorKind = "numeric"
	// KindSolver marks a solve that ended without an optimal solution.
	KindSolver ErrorKind = "solver"
	// KindConsistency marks a post-solve cross-check that exceeded its tolerance.
	KindConsistency ErrorKind = "consistency"
)

// Error carries an ErrorKind alongside the failing operation.
type Error struct {
	Kind ErrorKind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("%s error: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s error in %s: %v", e.Kind, e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// InputError builds a KindInput error with a formatted message.
func InputError(op, format string, args ...any) error {
	return &Error{Kind: KindInput, Op: op, Err: fmt.Errorf(format, args...)}
}

// IsKind reports whether err (or anything it wraps) is an *Error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// Diagnostic is a non-fatal note emitted when a documented fallback was applied.
type Diagnostic struct {
	Kind    ErrorKind `json:"kind"`
	Source  string    `json:"source"`
	Message string    `json:"message"`
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("[%s] %s: %s", d.Kind, d.Source, d.Message)
}
