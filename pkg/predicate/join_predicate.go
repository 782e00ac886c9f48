package predicate

import (
	"fmt"

	"storemy/pkg/primitives"
	"storemy/pkg/tuple"
)

// JoinPredicate compares a field of the left tuple against a field of the
// right tuple during a join.
type JoinPredicate struct {
	Field1 int
	Op     primitives.Predicate
	Field2 int
}

// NewJoinPredicate builds a JoinPredicate over the given field indices.
func NewJoinPredicate(field1 int, op primitives.Predicate, field2 int) (*JoinPredicate, error) {
	if field1 < 0 {
		return nil, fmt.Errorf("field1 index cannot be negative: %d", field1)
	}
	if field2 < 0 {
		return nil, fmt.Errorf("field2 index cannot be negative: %d", field2)
	}
	return &JoinPredicate{Field1: field1, Op: op, Field2: field2}, nil
}

// Filter reports whether the pair (left, right) satisfies the predicate.
func (jp *JoinPredicate) Filter(left, right *tuple.Tuple) (bool, error) {
	f1, err := left.GetField(jp.Field1)
	if err != nil {
		return false, fmt.Errorf("left field %d: %w", jp.Field1, err)
	}
	f2, err := right.GetField(jp.Field2)
	if err != nil {
		return false, fmt.Errorf("right field %d: %w", jp.Field2, err)
	}
	return f1.Compare(jp.Op, f2)
}

func (jp *JoinPredicate) String() string {
	return fmt.Sprintf("field1[%d] %s field2[%d]", jp.Field1, jp.Op, jp.Field2)
}
