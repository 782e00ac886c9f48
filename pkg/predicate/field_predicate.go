// Package predicate implements the scalar and join predicates evaluated by
// the execution operators, plus the equi-width histograms used to estimate
// their selectivity for join ordering.
package predicate

import (
	"fmt"

	"storemy/pkg/primitives"
	"storemy/pkg/tuple"
	"storemy/pkg/types"
)

// FieldPredicate compares one field of a tuple against a constant operand.
type FieldPredicate struct {
	FieldIndex int
	Op         primitives.Predicate
	Operand    types.Field
}

// NewFieldPredicate builds a FieldPredicate over the field at fieldIndex.
func NewFieldPredicate(fieldIndex int, op primitives.Predicate, operand types.Field) (*FieldPredicate, error) {
	if fieldIndex < 0 {
		return nil, fmt.Errorf("field index cannot be negative: %d", fieldIndex)
	}
	return &FieldPredicate{FieldIndex: fieldIndex, Op: op, Operand: operand}, nil
}

// Filter reports whether t satisfies the predicate.
func (p *FieldPredicate) Filter(t *tuple.Tuple) (bool, error) {
	field, err := t.GetField(p.FieldIndex)
	if err != nil {
		return false, err
	}
	return field.Compare(p.Op, p.Operand)
}

func (p *FieldPredicate) String() string {
	return fmt.Sprintf("field[%d] %s %s", p.FieldIndex, p.Op, p.Operand.String())
}
