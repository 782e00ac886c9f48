package execution

import (
	"fmt"

	"storemy/pkg/predicate"
	"storemy/pkg/tuple"
)

// Join is a tuple-nested-loops equi/theta join: for each left tuple, every
// right tuple is tried in turn, emitting left-fields ⊕ right-fields for
// each pair satisfying jp. Output order is stable left-outer order.
type Join struct {
	base      *baseIterator
	pred      *predicate.JoinPredicate
	left      Operator
	right     Operator
	tupleDesc *tuple.TupleDescription
	cur       *tuple.Tuple
	started   bool
}

// NewJoin builds a Join of left and right, matched by pred.
func NewJoin(pred *predicate.JoinPredicate, left, right Operator) (*Join, error) {
	if pred == nil {
		return nil, fmt.Errorf("join predicate cannot be nil")
	}
	if left == nil || right == nil {
		return nil, fmt.Errorf("join requires both children")
	}
	merged, err := tuple.Merge(left.GetTupleDesc(), right.GetTupleDesc())
	if err != nil {
		return nil, err
	}
	j := &Join{pred: pred, left: left, right: right, tupleDesc: merged}
	j.base = newBaseIterator(j.readNext)
	return j, nil
}

func (j *Join) Open() error {
	if err := j.left.Open(); err != nil {
		return err
	}
	if err := j.right.Open(); err != nil {
		return err
	}
	j.started = false
	j.cur = nil
	j.base.markOpened()
	return nil
}

func (j *Join) advanceLeft() (bool, error) {
	has, err := j.left.HasNext()
	if err != nil || !has {
		return false, err
	}
	j.cur, err = j.left.Next()
	if err != nil {
		return false, err
	}
	return true, j.right.Rewind()
}

func (j *Join) readNext() (*tuple.Tuple, error) {
	if !j.started {
		ok, err := j.advanceLeft()
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, nil
		}
		j.started = true
	}

	for {
		hasRight, err := j.right.HasNext()
		if err != nil {
			return nil, err
		}
		for hasRight {
			rt, err := j.right.Next()
			if err != nil {
				return nil, err
			}
			matched, err := j.pred.Filter(j.cur, rt)
			if err != nil {
				return nil, err
			}
			if matched {
				return combine(j.cur, rt, j.tupleDesc), nil
			}
			hasRight, err = j.right.HasNext()
			if err != nil {
				return nil, err
			}
		}

		ok, err := j.advanceLeft()
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, nil
		}
	}
}

func combine(left, right *tuple.Tuple, desc *tuple.TupleDescription) *tuple.Tuple {
	out := tuple.NewTuple(desc)
	n := left.GetTupleDesc().NumFields()
	for i := 0; i < n; i++ {
		f, _ := left.GetField(i)
		_ = out.SetField(i, f)
	}
	m := right.GetTupleDesc().NumFields()
	for i := 0; i < m; i++ {
		f, _ := right.GetField(i)
		_ = out.SetField(n+i, f)
	}
	return out
}

func (j *Join) HasNext() (bool, error)      { return j.base.HasNext() }
func (j *Join) Next() (*tuple.Tuple, error) { return j.base.Next() }

func (j *Join) GetTupleDesc() *tuple.TupleDescription {
	return j.tupleDesc
}

func (j *Join) Rewind() error {
	if err := j.left.Rewind(); err != nil {
		return err
	}
	if err := j.right.Rewind(); err != nil {
		return err
	}
	j.started = false
	j.cur = nil
	j.base.clearCache()
	return nil
}

func (j *Join) Close() error {
	j.left.Close()
	j.right.Close()
	j.base.close()
	return nil
}

// SetChildren replaces [left, right]. Exactly two children are required.
func (j *Join) SetChildren(children []Operator) error {
	if len(children) != 2 {
		return fmt.Errorf("join takes exactly two children, got %d", len(children))
	}
	j.left, j.right = children[0], children[1]
	return nil
}
