package bakers

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	ErrMissingAttribute     = errors.New("missing attribute")
	ErrAccessorTypeMismatch = errors.New("accessor type mismatch")
	ErrComponentMismatch    = errors.New("component type mismatch")
	ErrCountMismatch        = errors.New("accessor count mismatch")
	ErrAccessorOutOfRange   = errors.New("accessor out of range")
	ErrUnsupportedIndexType = errors.New("unsupported index component type")
	ErrTooManyVertices      = errors.New("too many vertices for 16-bit indices")
)

// AttributeError reports why one attribute channel of a primitive could not
// be extracted.
type AttributeError struct {
	Attribute string
	Err       error
}

func (e *AttributeError) Error() string {
	return fmt.Sprintf("%s: %v", e.Attribute, e.Err)
}

func (e *AttributeError) Unwrap() error {
	return e.Err
}

// PrimitiveError reports a primitive that was skipped.
type PrimitiveError struct {
	Name      string
	Mesh      int
	Primitive int
	Err       error
}

func (e *PrimitiveError) Error() string {
	return fmt.Sprintf("%s (mesh %d, primitive %d): %v", e.Name, e.Mesh, e.Primitive, e.Err)
}

func (e *PrimitiveError) Unwrap() error {
	return e.Err
}
