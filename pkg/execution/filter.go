package execution

import (
	"fmt"

	"storemy/pkg/predicate"
	"storemy/pkg/tuple"
)

// Filter yields the tuples of its child that satisfy pred.
type Filter struct {
	base  *baseIterator
	pred  *predicate.FieldPredicate
	child Operator
}

// NewFilter builds a Filter over child, evaluated with pred.
func NewFilter(pred *predicate.FieldPredicate, child Operator) (*Filter, error) {
	if pred == nil {
		return nil, fmt.Errorf("predicate cannot be nil")
	}
	if child == nil {
		return nil, fmt.Errorf("child operator cannot be nil")
	}
	f := &Filter{pred: pred, child: child}
	f.base = newBaseIterator(f.readNext)
	return f, nil
}

func (f *Filter) Open() error {
	if err := f.child.Open(); err != nil {
		return err
	}
	f.base.markOpened()
	return nil
}

func (f *Filter) readNext() (*tuple.Tuple, error) {
	for {
		has, err := f.child.HasNext()
		if err != nil {
			return nil, err
		}
		if !has {
			return nil, nil
		}
		t, err := f.child.Next()
		if err != nil {
			return nil, err
		}
		passes, err := f.pred.Filter(t)
		if err != nil {
			return nil, err
		}
		if passes {
			return t, nil
		}
	}
}

func (f *Filter) HasNext() (bool, error)     { return f.base.HasNext() }
func (f *Filter) Next() (*tuple.Tuple, error) { return f.base.Next() }

func (f *Filter) GetTupleDesc() *tuple.TupleDescription {
	return f.child.GetTupleDesc()
}

func (f *Filter) Rewind() error {
	if err := f.child.Rewind(); err != nil {
		return err
	}
	f.base.clearCache()
	return nil
}

func (f *Filter) Close() error {
	f.child.Close()
	f.base.close()
	return nil
}

// SetChildren replaces the filtered child. Exactly one child is required.
func (f *Filter) SetChildren(children []Operator) error {
	if len(children) != 1 {
		return fmt.Errorf("filter takes exactly one child, got %d", len(children))
	}
	f.child = children[0]
	return nil
}
