// Package apperr classifies errors by a short machine-readable kind.
// Domain packages declare their errors with New; transports map kinds
// to responses without importing every domain package.
package apperr

import (
	"context"
	"errors"
)

// Error is a classified domain error.
type Error struct {
	kind string
	msg  string
}

// New returns an error with the given kind and message.
func New(kind, msg string) *Error {
	return &Error{kind: kind, msg: msg}
}

func (e *Error) Error() string { return e.msg }

// Kind returns the classification of the error.
func (e *Error) Kind() string { return e.kind }

// kinder is satisfied by any error that carries a classification kind,
// including ones not built with New.
type kinder interface {
	Kind() string
}

// Kind returns the kind of err, looking through wrapped errors.
// Context errors map to "timeout" and "canceled"; anything else
// unclassified is "internal".
func Kind(err error) string {
	if err == nil {
		return ""
	}
	var k kinder
	if errors.As(err, &k) {
		return k.Kind()
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "internal"
	}
}
