package execution

import (
	"fmt"

	"storemy/pkg/tuple"
	"storemy/pkg/types"
)

// Project narrows its child's tuples down to a chosen subset of fields, in
// the declared order (which may repeat or reorder the child's fields).
type Project struct {
	base      *baseIterator
	fieldList []int
	child     Operator
	tupleDesc *tuple.TupleDescription
}

// NewProject builds a Project selecting fieldList (with matching typesList)
// from child.
func NewProject(fieldList []int, typesList []types.Type, child Operator) (*Project, error) {
	if child == nil {
		return nil, fmt.Errorf("child operator cannot be nil")
	}
	if len(fieldList) != len(typesList) {
		return nil, fmt.Errorf("field list length (%d) must match types list length (%d)", len(fieldList), len(typesList))
	}
	if len(fieldList) == 0 {
		return nil, fmt.Errorf("must project at least one field")
	}

	childDesc := child.GetTupleDesc()
	names := make([]string, len(fieldList))
	for i, idx := range fieldList {
		if idx < 0 || idx >= childDesc.NumFields() {
			return nil, fmt.Errorf("field index %d out of bounds (child has %d fields)", idx, childDesc.NumFields())
		}
		name, err := childDesc.GetFieldName(idx)
		if err != nil {
			return nil, err
		}
		names[i] = name

		childType, err := childDesc.TypeAtIndex(idx)
		if err != nil {
			return nil, err
		}
		if childType != typesList[i] {
			return nil, fmt.Errorf("type mismatch for field %d: child has %s, requested %s", idx, childType, typesList[i])
		}
	}

	outDesc, err := tuple.NewTupleDescription(typesList, names, childDesc.StringMaxLen)
	if err != nil {
		return nil, err
	}

	p := &Project{fieldList: fieldList, child: child, tupleDesc: outDesc}
	p.base = newBaseIterator(p.readNext)
	return p, nil
}

func (p *Project) Open() error {
	if err := p.child.Open(); err != nil {
		return err
	}
	p.base.markOpened()
	return nil
}

func (p *Project) readNext() (*tuple.Tuple, error) {
	has, err := p.child.HasNext()
	if err != nil {
		return nil, err
	}
	if !has {
		return nil, nil
	}
	childTuple, err := p.child.Next()
	if err != nil {
		return nil, err
	}

	out := tuple.NewTuple(p.tupleDesc)
	for i, idx := range p.fieldList {
		f, err := childTuple.GetField(idx)
		if err != nil {
			return nil, err
		}
		if err := out.SetField(i, f); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (p *Project) HasNext() (bool, error)      { return p.base.HasNext() }
func (p *Project) Next() (*tuple.Tuple, error) { return p.base.Next() }

func (p *Project) GetTupleDesc() *tuple.TupleDescription {
	return p.tupleDesc
}

func (p *Project) Rewind() error {
	if err := p.child.Rewind(); err != nil {
		return err
	}
	p.base.clearCache()
	return nil
}

func (p *Project) Close() error {
	p.child.Close()
	p.base.close()
	return nil
}

// SetChildren replaces the projected child. Exactly one child is required.
func (p *Project) SetChildren(children []Operator) error {
	if len(children) != 1 {
		return fmt.Errorf("project takes exactly one child, got %d", len(children))
	}
	p.child = children[0]
	return nil
}
