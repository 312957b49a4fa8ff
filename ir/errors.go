package ir

import (
	"tlog.app/go/errors"
)

var (
	// ErrWidthMismatch is returned when operands or branches of
	// incompatible bit widths meet. It is never silently coerced.
	ErrWidthMismatch = errors.New("width mismatch")

	// ErrDivisionByZero marks the analyzed program's own undefined behavior.
	ErrDivisionByZero = errors.New("division by zero")

	// ErrConstruction is returned for malformed nodes: invalid sub-register
	// bounds, duplicate Tids and the like.
	ErrConstruction = errors.New("invalid construction")

	// ErrLookup is returned when a Tid does not resolve in the expected scope.
	ErrLookup = errors.New("tid not found")
)
