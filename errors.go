package netorder

import (
	"errors"
	"fmt"
	"io"
)

// Runtime errors. A failing field aborts the whole call and the error
// is returned as is, without naming the field.
var (
	ErrUnexpectedEOF       = fmt.Errorf("netorder: %w", io.ErrUnexpectedEOF)
	ErrInvalidScalar       = errors.New("netorder: invalid scalar value")
	ErrUnknownDiscriminant = errors.New("netorder: unknown enum discriminant")
	ErrNilPointer          = errors.New("netorder: nil value cannot be serialized")
	ErrNoConcreteTarget    = errors.New("netorder: boxed field needs a concrete target before decoding")
	ErrSerializeOnly       = errors.New("netorder: type can only be serialized")
)

// Schema errors, reported when a type's descriptor is built.
var (
	ErrNotPointer      = errors.New("netorder: expected non-nil pointer")
	ErrUnsupported     = errors.New("netorder: unsupported type")
	ErrBadDirective    = errors.New("netorder: malformed field directive")
	ErrSequenceNotLast = errors.New("netorder: unbounded field must be the last wire field")
)
