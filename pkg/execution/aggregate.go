package execution

import (
	"fmt"

	"storemy/pkg/dberrors"
	"storemy/pkg/tuple"
	"storemy/pkg/types"
)

// AggregateOp is an aggregate function applied to one field across a group
// of tuples.
type AggregateOp int

const (
	Min AggregateOp = iota
	Max
	Sum
	Avg
	Count
)

func (op AggregateOp) String() string {
	switch op {
	case Min:
		return "MIN"
	case Max:
		return "MAX"
	case Sum:
		return "SUM"
	case Avg:
		return "AVG"
	case Count:
		return "COUNT"
	default:
		return "UNKNOWN"
	}
}

// NoGrouping is passed as groupField when the aggregate has no GROUP BY
// clause: every tuple belongs to a single implicit group.
const NoGrouping = -1

// aggState accumulates one group's running aggregate.
type aggState struct {
	count int64
	sum   int32
	min   int32
	max   int32
	seen  bool
}

func (s *aggState) add(v int32) {
	if !s.seen {
		s.min, s.max = v, v
		s.seen = true
	} else {
		if v < s.min {
			s.min = v
		}
		if v > s.max {
			s.max = v
		}
	}
	s.sum += v
	s.count++
}

func (s *aggState) result(op AggregateOp) int32 {
	switch op {
	case Min:
		return s.min
	case Max:
		return s.max
	case Sum:
		return s.sum
	case Avg:
		if s.count == 0 {
			return 0
		}
		return s.sum / int32(s.count)
	case Count:
		return int32(s.count)
	default:
		return 0
	}
}

// Aggregate computes a single-pass group-by aggregate over one field. On
// Open it fully consumes its child into a map keyed by the group-by value
// (or a single key, when there is no grouping), then yields one result
// tuple per group. AVG keeps sum and count separately and divides with
// integer division when producing its result.
type Aggregate struct {
	base        *baseIterator
	child       Operator
	aggField    int
	groupField  int
	op          AggregateOp
	tupleDesc   *tuple.TupleDescription
	groupKeys   []string
	groupLabels map[string]types.Field
	groups      map[string]*aggState
	stringCount map[string]int64
	resultIdx   int
	stringAgg   bool
}

// NewAggregate builds an Aggregate over child's aggField, grouped by
// groupField (or NoGrouping). COUNT is the only aggregate supported over a
// STRING field; any other op over a STRING field fails at construction.
func NewAggregate(aggField, groupField int, op AggregateOp, child Operator) (*Aggregate, error) {
	if child == nil {
		return nil, fmt.Errorf("child operator cannot be nil")
	}
	childDesc := child.GetTupleDesc()
	if aggField < 0 || aggField >= childDesc.NumFields() {
		return nil, fmt.Errorf("aggregate field index %d out of range", aggField)
	}
	if groupField != NoGrouping && (groupField < 0 || groupField >= childDesc.NumFields()) {
		return nil, fmt.Errorf("group field index %d out of range", groupField)
	}

	aggType, err := childDesc.TypeAtIndex(aggField)
	if err != nil {
		return nil, err
	}
	stringAgg := aggType == types.StringType
	if stringAgg && op != Count {
		return nil, dberrors.Newf(dberrors.Unsupported, "only COUNT is supported over a STRING field, got %s", op)
	}
	if !stringAgg && aggType != types.IntType {
		return nil, dberrors.Newf(dberrors.Unsupported, "unsupported aggregate field type: %s", aggType)
	}

	var outTypes []types.Type
	var outNames []string
	if groupField != NoGrouping {
		gType, err := childDesc.TypeAtIndex(groupField)
		if err != nil {
			return nil, err
		}
		gName, _ := childDesc.GetFieldName(groupField)
		outTypes = []types.Type{gType, types.IntType}
		outNames = []string{gName, op.String()}
	} else {
		outTypes = []types.Type{types.IntType}
		outNames = []string{op.String()}
	}
	outDesc, err := tuple.NewTupleDescription(outTypes, outNames, childDesc.StringMaxLen)
	if err != nil {
		return nil, err
	}

	a := &Aggregate{
		child:      child,
		aggField:   aggField,
		groupField: groupField,
		op:         op,
		tupleDesc:  outDesc,
		stringAgg:  stringAgg,
	}
	a.base = newBaseIterator(a.readNext)
	return a, nil
}

func (a *Aggregate) groupKey(t *tuple.Tuple) (string, types.Field, error) {
	if a.groupField == NoGrouping {
		return "", nil, nil
	}
	f, err := t.GetField(a.groupField)
	if err != nil {
		return "", nil, err
	}
	return f.String(), f, nil
}

func (a *Aggregate) Open() error {
	if err := a.child.Open(); err != nil {
		return err
	}

	a.groupKeys = nil
	a.groupLabels = make(map[string]types.Field)
	a.groups = make(map[string]*aggState)
	a.stringCount = make(map[string]int64)
	a.resultIdx = 0

	for {
		has, err := a.child.HasNext()
		if err != nil {
			return err
		}
		if !has {
			break
		}
		t, err := a.child.Next()
		if err != nil {
			return err
		}

		key, label, err := a.groupKey(t)
		if err != nil {
			return err
		}
		if _, ok := a.groups[key]; !ok {
			a.groups[key] = &aggState{}
			a.stringCount[key] = 0
			a.groupLabels[key] = label
			a.groupKeys = append(a.groupKeys, key)
		}

		if a.stringAgg {
			a.stringCount[key]++
			continue
		}
		f, err := t.GetField(a.aggField)
		if err != nil {
			return err
		}
		iv, ok := f.(*types.IntField)
		if !ok {
			return fmt.Errorf("expected INT field at index %d", a.aggField)
		}
		a.groups[key].add(iv.Value)
	}

	a.base.markOpened()
	return nil
}

func (a *Aggregate) readNext() (*tuple.Tuple, error) {
	if a.resultIdx >= len(a.groupKeys) {
		return nil, nil
	}
	key := a.groupKeys[a.resultIdx]
	a.resultIdx++

	var value int32
	if a.stringAgg {
		value = int32(a.stringCount[key])
	} else {
		value = a.groups[key].result(a.op)
	}

	out := tuple.NewTuple(a.tupleDesc)
	if a.groupField != NoGrouping {
		if err := out.SetField(0, a.groupLabels[key]); err != nil {
			return nil, err
		}
		if err := out.SetField(1, types.NewIntField(value)); err != nil {
			return nil, err
		}
	} else {
		if err := out.SetField(0, types.NewIntField(value)); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (a *Aggregate) HasNext() (bool, error)      { return a.base.HasNext() }
func (a *Aggregate) Next() (*tuple.Tuple, error) { return a.base.Next() }

func (a *Aggregate) GetTupleDesc() *tuple.TupleDescription {
	return a.tupleDesc
}

func (a *Aggregate) Rewind() error {
	a.resultIdx = 0
	a.base.clearCache()
	return nil
}

func (a *Aggregate) Close() error {
	a.child.Close()
	a.base.close()
	return nil
}

// SetChildren replaces the aggregated child. Exactly one child is required.
func (a *Aggregate) SetChildren(children []Operator) error {
	if len(children) != 1 {
		return fmt.Errorf("aggregate takes exactly one child, got %d", len(children))
	}
	a.child = children[0]
	return nil
}
