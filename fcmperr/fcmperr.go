// Package fcmperr defines the single error taxonomy shared by the coder,
// the container format, extraction, and the search engine.
package fcmperr

import (
	stderrors "errors"
	"fmt"

	"github.com/pkg/errors"
)

// Kind identifies which of the three error categories a CodecError belongs
// to.
type Kind int

// Error kinds.
const (
	// InputTooLarge: payload bit length or model count exceeds its field width.
	InputTooLarge Kind = iota
	// Corrupt: the decoder detected an inconsistency in the input.
	Corrupt
	// Internal: a self-check failed; indicates a bug, never a bad input.
	Internal
)

func (k Kind) String() string {
	switch k {
	case InputTooLarge:
		return "input too large"
	case Corrupt:
		return "corrupt"
	case Internal:
		return "internal"
	default:
		return "unknown"
	}
}

// CodecError is the error type returned for size-limit, corrupt-input and
// internal failures of the codec; file I/O errors are returned unwrapped.
// cause is the original error passed to Wrap, kept raw so Unwrap can
// see through it; pkg/errors v0.8.0 predates stdlib error chains, so its own
// wrapped value (held in display) only carries a Cause(), not an Unwrap().
type CodecError struct {
	Kind    Kind
	cause   error
	display error
}

func (e *CodecError) Error() string {
	if e.display != nil {
		return fmt.Sprintf("fcmp: %s: %v", e.Kind, e.display)
	}
	return fmt.Sprintf("fcmp: %s", e.Kind)
}

// Unwrap allows errors.Is/errors.As to see through to the original cause.
func (e *CodecError) Unwrap() error {
	return e.cause
}

// New returns a CodecError of the given kind with a formatted message.
func New(kind Kind, format string, args ...interface{}) *CodecError {
	return &CodecError{Kind: kind, display: errors.Errorf(format, args...)}
}

// Wrap returns a CodecError of the given kind wrapping cause, or nil if
// cause is nil.
func Wrap(kind Kind, cause error, format string, args ...interface{}) *CodecError {
	if cause == nil {
		return nil
	}
	return &CodecError{Kind: kind, cause: cause, display: errors.Wrapf(cause, format, args...)}
}

// Is reports whether err is a CodecError of the given kind.
func Is(err error, kind Kind) bool {
	var ce *CodecError
	if !stderrors.As(err, &ce) {
		return false
	}
	return ce.Kind == kind
}
