// Package tsdberrors defines the error taxonomy shared by the storage and
// exec layers: Io, Corrupt, and Unsupported.
package tsdberrors

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind classifies an Error.
type Kind int

const (
	// KindIO wraps an underlying OS/file I/O failure, surfaced unchanged.
	KindIO Kind = iota
	// KindCorrupt marks a data-integrity violation: bad magic, CRC
	// mismatch, length mismatches, out-of-bounds ranges, and so on.
	KindCorrupt
	// KindUnsupported marks well-formed input this engine doesn't handle:
	// an unknown format version, a non-zero column encoding, a zero batch
	// size, a non-positive aggregation window, row counts that overflow
	// u32, or a counter overflow during aggregation.
	KindUnsupported
)

func (k Kind) String() string {
	switch k {
	case KindIO:
		return "io"
	case KindCorrupt:
		return "corrupt"
	case KindUnsupported:
		return "unsupported"
	default:
		return "unknown"
	}
}

// Error is the single error sum type used across the engine.
type Error struct {
	Kind   Kind
	Reason string
	cause  error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Reason, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Reason)
}

// Unwrap exposes the wrapped cause, if any, for errors.Is/errors.As.
func (e *Error) Unwrap() error {
	return e.cause
}

// IO wraps an underlying I/O error unchanged, per spec.
func IO(err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: KindIO, Reason: "io error", cause: errors.WithStack(err)}
}

// Corrupt builds a Corrupt error with a descriptive reason.
func Corrupt(format string, args ...interface{}) error {
	return &Error{Kind: KindCorrupt, Reason: fmt.Sprintf(format, args...)}
}

// Unsupported builds an Unsupported error with a descriptive reason.
func Unsupported(format string, args ...interface{}) error {
	return &Error{Kind: KindUnsupported, Reason: fmt.Sprintf(format, args...)}
}

// Is reports whether err is a *Error of the given kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Kind == kind
}
