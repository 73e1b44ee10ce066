package bmff

import (
	"errors"
	"fmt"
)

var (
	// ErrTruncatedBox is returned when the buffer ends inside a box header or before
	// the box's declared extent.
	ErrTruncatedBox = errors.New("truncated box")

	// ErrMalformedTree is returned for boxes whose sizes or offsets are inconsistent
	// with their surroundings.
	ErrMalformedTree = errors.New("malformed box tree")
)

// BoxError carries the box type and offset of a structural failure. Use errors.Is
// with ErrTruncatedBox or ErrMalformedTree to classify it.
type BoxError struct {
	Kind   error
	Type   BoxType
	Offset int
	Reason string
}

// NewBoxError builds a BoxError.
func NewBoxError(kind error, t BoxType, offset int, reason string) *BoxError {
	return &BoxError{Kind: kind, Type: t, Offset: offset, Reason: reason}
}

// Error implements the error interface.
func (e *BoxError) Error() string {
	return fmt.Sprintf("%v: box %q at offset %d: %s", e.Kind, e.Type.String(), e.Offset, e.Reason)
}

// Unwrap returns the error kind.
func (e *BoxError) Unwrap() error {
	return e.Kind
}
