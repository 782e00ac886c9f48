package types

import (
	"fmt"
	"io"

	"storemy/pkg/primitives"
)

// Field is a single typed value stored in a tuple. Implementations must be
// safe to serialize and compare byte-for-byte: two fields that Equals reports
// equal must also Serialize to identical bytes, since recovery relies on
// before-images being exact byte copies.
type Field interface {
	// GetType reports the concrete type of this field.
	GetType() Type
	// Serialize writes the field's fixed-width on-disk representation to w.
	Serialize(w io.Writer) error
	// Compare evaluates this field op other, where this field is the left
	// operand, e.g. Compare(LessThan, other) means "this < other".
	Compare(op primitives.Predicate, other Field) (bool, error)
	// Equals reports value equality, not merely Compare(Equals, ...), so it
	// can be used in contexts (e.g. map keys) that must not return an error.
	Equals(other Field) bool
	// Hash returns a stable hash of the field's value.
	Hash() uint32
	// String renders the field for diagnostics.
	String() string
}

// ErrTypeMismatch is returned when Compare is asked to compare fields of
// different types.
type ErrTypeMismatch struct {
	Left, Right Type
}

func (e *ErrTypeMismatch) Error() string {
	return fmt.Sprintf("type mismatch: cannot compare %s with %s", e.Left, e.Right)
}
