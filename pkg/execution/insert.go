package execution

import (
	"fmt"

	"storemy/pkg/concurrency/transaction"
	"storemy/pkg/primitives"
	"storemy/pkg/tuple"
	"storemy/pkg/types"
)

var insertResultDesc = mustCountDesc("inserted")

func mustCountDesc(name string) *tuple.TupleDescription {
	td, err := tuple.NewTupleDescription([]types.Type{types.IntType}, []string{name}, 0)
	if err != nil {
		panic(err)
	}
	return td
}

// Insert drains its child on the first pull, inserting each tuple into
// tableID via the buffer pool, then yields a single 1-field INT tuple
// holding the number of rows inserted. Every subsequent pull is exhausted.
type Insert struct {
	base    *baseIterator
	tid     *transaction.ID
	child   Operator
	tableID primitives.TableID
	bp      Mutator
	done    bool
}

// NewInsert builds an Insert of child's tuples into tableID under tid.
func NewInsert(tid *transaction.ID, child Operator, tableID primitives.TableID, bp Mutator) (*Insert, error) {
	if child == nil {
		return nil, fmt.Errorf("child operator cannot be nil")
	}
	if bp == nil {
		return nil, fmt.Errorf("buffer pool cannot be nil")
	}
	ins := &Insert{tid: tid, child: child, tableID: tableID, bp: bp}
	ins.base = newBaseIterator(ins.readNext)
	return ins, nil
}

func (i *Insert) Open() error {
	if err := i.child.Open(); err != nil {
		return err
	}
	i.done = false
	i.base.markOpened()
	return nil
}

func (i *Insert) readNext() (*tuple.Tuple, error) {
	if i.done {
		return nil, nil
	}
	i.done = true

	var count int32
	for {
		has, err := i.child.HasNext()
		if err != nil {
			return nil, err
		}
		if !has {
			break
		}
		t, err := i.child.Next()
		if err != nil {
			return nil, err
		}
		if err := i.bp.InsertTuple(i.tid, i.tableID, t); err != nil {
			return nil, err
		}
		count++
	}

	out := tuple.NewTuple(insertResultDesc)
	if err := out.SetField(0, types.NewIntField(count)); err != nil {
		return nil, err
	}
	return out, nil
}

func (i *Insert) HasNext() (bool, error)      { return i.base.HasNext() }
func (i *Insert) Next() (*tuple.Tuple, error) { return i.base.Next() }

func (i *Insert) GetTupleDesc() *tuple.TupleDescription {
	return insertResultDesc
}

func (i *Insert) Rewind() error {
	return fmt.Errorf("insert cannot be rewound")
}

func (i *Insert) Close() error {
	i.child.Close()
	i.base.close()
	return nil
}

// SetChildren replaces the child whose tuples are inserted. Exactly one
// child is required.
func (i *Insert) SetChildren(children []Operator) error {
	if len(children) != 1 {
		return fmt.Errorf("insert takes exactly one child, got %d", len(children))
	}
	i.child = children[0]
	return nil
}
