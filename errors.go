package bitvec

import (
	"errors"
	"fmt"
)

var (
	// ErrNullArgument is returned when a required argument is absent, e.g. a nil
	// vector or a nil/short serialized payload.
	ErrNullArgument = errors.New("bitvec: null argument")

	// ErrInvalidArgument is returned when a value argument violates a precondition.
	ErrInvalidArgument = errors.New("bitvec: invalid argument")

	// ErrEmpty is returned for zero-capacity construction requests.
	// It satisfies errors.Is(err, ErrInvalidArgument).
	ErrEmpty = fmt.Errorf("%w: zero capacity", ErrInvalidArgument)

	// ErrNotInitialized is returned when the vector has no backing buffer
	// (released, or a zero value that was never created).
	ErrNotInitialized = errors.New("bitvec: not initialized")

	// ErrIndexOutOfBounds is returned when a bit index is >= Len().
	ErrIndexOutOfBounds = errors.New("bitvec: index out of bounds")

	// ErrOutOfMemory is returned when the backing buffer cannot be allocated
	// within the configured memory budget.
	ErrOutOfMemory = errors.New("bitvec: out of memory")
)

// IndexError reports an out-of-range bit index.
//
// errors.Is(err, ErrIndexOutOfBounds) holds for every IndexError.
type IndexError struct {
	Index uint32
	Len   uint32
}

func (e *IndexError) Error() string {
	return fmt.Sprintf("bitvec: index %d out of bounds [0, %d)", e.Index, e.Len)
}

func (e *IndexError) Unwrap() error { return ErrIndexOutOfBounds }

// FormatError reports a malformed serialized payload.
//
// The error class (ErrNullArgument for absent or truncated input,
// ErrInvalidArgument for inconsistent headers) can be matched via errors.Is.
type FormatError struct {
	Reason string
	cause  error
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("%v: %s", e.cause, e.Reason)
}

func (e *FormatError) Unwrap() error { return e.cause }

func formatErr(cause error, format string, args ...any) error {
	return &FormatError{Reason: fmt.Sprintf(format, args...), cause: cause}
}
