package execution

import (
	"fmt"

	"storemy/pkg/concurrency/transaction"
	"storemy/pkg/tuple"
	"storemy/pkg/types"
)

var deleteResultDesc = mustCountDesc("deleted")

// Delete drains its child on the first pull, deleting each tuple via the
// buffer pool, then yields a single 1-field INT tuple holding the number
// of rows deleted. Every subsequent pull is exhausted.
type Delete struct {
	base  *baseIterator
	tid   *transaction.ID
	child Operator
	bp    Mutator
	done  bool
}

// NewDelete builds a Delete of child's tuples under tid.
func NewDelete(tid *transaction.ID, child Operator, bp Mutator) (*Delete, error) {
	if child == nil {
		return nil, fmt.Errorf("child operator cannot be nil")
	}
	if bp == nil {
		return nil, fmt.Errorf("buffer pool cannot be nil")
	}
	d := &Delete{tid: tid, child: child, bp: bp}
	d.base = newBaseIterator(d.readNext)
	return d, nil
}

func (d *Delete) Open() error {
	if err := d.child.Open(); err != nil {
		return err
	}
	d.done = false
	d.base.markOpened()
	return nil
}

func (d *Delete) readNext() (*tuple.Tuple, error) {
	if d.done {
		return nil, nil
	}
	d.done = true

	var count int32
	for {
		has, err := d.child.HasNext()
		if err != nil {
			return nil, err
		}
		if !has {
			break
		}
		t, err := d.child.Next()
		if err != nil {
			return nil, err
		}
		if err := d.bp.DeleteTuple(d.tid, t); err != nil {
			return nil, err
		}
		count++
	}

	out := tuple.NewTuple(deleteResultDesc)
	if err := out.SetField(0, types.NewIntField(count)); err != nil {
		return nil, err
	}
	return out, nil
}

func (d *Delete) HasNext() (bool, error)      { return d.base.HasNext() }
func (d *Delete) Next() (*tuple.Tuple, error) { return d.base.Next() }

func (d *Delete) GetTupleDesc() *tuple.TupleDescription {
	return deleteResultDesc
}

func (d *Delete) Rewind() error {
	return fmt.Errorf("delete cannot be rewound")
}

func (d *Delete) Close() error {
	d.child.Close()
	d.base.close()
	return nil
}

// SetChildren replaces the child whose tuples are deleted. Exactly one
// child is required.
func (d *Delete) SetChildren(children []Operator) error {
	if len(children) != 1 {
		return fmt.Errorf("delete takes exactly one child, got %d", len(children))
	}
	d.child = children[0]
	return nil
}
