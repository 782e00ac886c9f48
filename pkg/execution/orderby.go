package execution

import (
	"fmt"
	"sort"

	"storemy/pkg/primitives"
	"storemy/pkg/tuple"
)

// OrderBy fully materializes its child and yields its tuples sorted by a
// single field, in the configured direction.
type OrderBy struct {
	base      *baseIterator
	child     Operator
	field     int
	ascending bool
	rows      []*tuple.Tuple
	idx       int
}

// NewOrderBy builds an OrderBy over child, sorted on field.
func NewOrderBy(field int, ascending bool, child Operator) (*OrderBy, error) {
	if child == nil {
		return nil, fmt.Errorf("child operator cannot be nil")
	}
	if field < 0 || field >= child.GetTupleDesc().NumFields() {
		return nil, fmt.Errorf("sort field index %d out of range", field)
	}
	o := &OrderBy{child: child, field: field, ascending: ascending}
	o.base = newBaseIterator(o.readNext)
	return o, nil
}

func (o *OrderBy) Open() error {
	if err := o.child.Open(); err != nil {
		return err
	}

	o.rows = nil
	for {
		has, err := o.child.HasNext()
		if err != nil {
			return err
		}
		if !has {
			break
		}
		t, err := o.child.Next()
		if err != nil {
			return err
		}
		o.rows = append(o.rows, t)
	}

	var sortErr error
	sort.SliceStable(o.rows, func(i, j int) bool {
		if sortErr != nil {
			return false
		}
		fi, err := o.rows[i].GetField(o.field)
		if err != nil {
			sortErr = err
			return false
		}
		fj, err := o.rows[j].GetField(o.field)
		if err != nil {
			sortErr = err
			return false
		}
		op := primitives.LessThan
		if !o.ascending {
			op = primitives.GreaterThan
		}
		less, err := fi.Compare(op, fj)
		if err != nil {
			sortErr = err
			return false
		}
		return less
	})
	if sortErr != nil {
		return sortErr
	}

	o.idx = 0
	o.base.markOpened()
	return nil
}

func (o *OrderBy) readNext() (*tuple.Tuple, error) {
	if o.idx >= len(o.rows) {
		return nil, nil
	}
	t := o.rows[o.idx]
	o.idx++
	return t, nil
}

func (o *OrderBy) HasNext() (bool, error)      { return o.base.HasNext() }
func (o *OrderBy) Next() (*tuple.Tuple, error) { return o.base.Next() }

func (o *OrderBy) GetTupleDesc() *tuple.TupleDescription {
	return o.child.GetTupleDesc()
}

func (o *OrderBy) Rewind() error {
	o.idx = 0
	o.base.clearCache()
	return nil
}

func (o *OrderBy) Close() error {
	o.child.Close()
	o.rows = nil
	o.base.close()
	return nil
}

// SetChildren replaces the sorted child. Exactly one child is required.
func (o *OrderBy) SetChildren(children []Operator) error {
	if len(children) != 1 {
		return fmt.Errorf("order by takes exactly one child, got %d", len(children))
	}
	o.child = children[0]
	return nil
}
