package types

import (
	"encoding/binary"
	"fmt"
	"hash/fnv"
	"io"

	"storemy/pkg/primitives"
)

// IntField is a 4-byte big-endian signed integer value.
type IntField struct {
	Value int32
}

// NewIntField constructs an IntField wrapping v.
func NewIntField(v int32) *IntField {
	return &IntField{Value: v}
}

func (f *IntField) GetType() Type {
	return IntType
}

func (f *IntField) Serialize(w io.Writer) error {
	var buf [IntLength]byte
	binary.BigEndian.PutUint32(buf[:], uint32(f.Value))
	_, err := w.Write(buf[:])
	return err
}

// ParseIntField reads a 4-byte big-endian signed integer from r.
func ParseIntField(r io.Reader) (*IntField, error) {
	var buf [IntLength]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return nil, err
	}
	return &IntField{Value: int32(binary.BigEndian.Uint32(buf[:]))}, nil
}

func (f *IntField) Compare(op primitives.Predicate, other Field) (bool, error) {
	o, ok := other.(*IntField)
	if !ok {
		return false, &ErrTypeMismatch{Left: IntType, Right: other.GetType()}
	}
	switch op {
	case primitives.Equals:
		return f.Value == o.Value, nil
	case primitives.NotEqual:
		return f.Value != o.Value, nil
	case primitives.LessThan:
		return f.Value < o.Value, nil
	case primitives.LessThanOrEqual:
		return f.Value <= o.Value, nil
	case primitives.GreaterThan:
		return f.Value > o.Value, nil
	case primitives.GreaterThanOrEqual:
		return f.Value >= o.Value, nil
	default:
		return false, fmt.Errorf("unsupported predicate %s for INT", op)
	}
}

func (f *IntField) Equals(other Field) bool {
	o, ok := other.(*IntField)
	return ok && f.Value == o.Value
}

func (f *IntField) Hash() uint32 {
	h := fnv.New32a()
	var buf [IntLength]byte
	binary.BigEndian.PutUint32(buf[:], uint32(f.Value))
	_, _ = h.Write(buf[:])
	return h.Sum32()
}

func (f *IntField) String() string {
	return fmt.Sprintf("%d", f.Value)
}
