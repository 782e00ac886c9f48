package predicate

import (
	"testing"

	"storemy/pkg/primitives"
	"storemy/pkg/tuple"
	"storemy/pkg/types"
)

func schemaIntString(t *testing.T) *tuple.TupleDescription {
	t.Helper()
	td, err := tuple.NewTupleDescription(
		[]types.Type{types.IntType, types.StringType},
		[]string{"id", "name"},
		0,
	)
	if err != nil {
		t.Fatalf("new schema: %v", err)
	}
	return td
}

func rowIntString(t *testing.T, td *tuple.TupleDescription, id int32, name string) *tuple.Tuple {
	t.Helper()
	row := tuple.NewTuple(td)
	if err := row.SetField(0, types.NewIntField(id)); err != nil {
		t.Fatalf("set field 0: %v", err)
	}
	if err := row.SetField(1, types.NewStringField(name, td.StringMaxLen)); err != nil {
		t.Fatalf("set field 1: %v", err)
	}
	return row
}

func TestFieldPredicateFiltersByIndexAndOp(t *testing.T) {
	td := schemaIntString(t)
	p, err := NewFieldPredicate(0, primitives.GreaterThan, types.NewIntField(10))
	if err != nil {
		t.Fatalf("new predicate: %v", err)
	}

	match, err := p.Filter(rowIntString(t, td, 20, "a"))
	if err != nil || !match {
		t.Fatalf("expected tuple with id=20 to satisfy > 10, got match=%v err=%v", match, err)
	}
	match, err = p.Filter(rowIntString(t, td, 5, "b"))
	if err != nil || match {
		t.Fatalf("expected tuple with id=5 to not satisfy > 10, got match=%v err=%v", match, err)
	}
}

func TestFieldPredicateRejectsNegativeIndex(t *testing.T) {
	if _, err := NewFieldPredicate(-1, primitives.Equals, types.NewIntField(1)); err == nil {
		t.Fatal("expected negative field index to be rejected")
	}
}

func TestJoinPredicateComparesAcrossTuples(t *testing.T) {
	td := schemaIntString(t)
	jp, err := NewJoinPredicate(0, primitives.Equals, 0)
	if err != nil {
		t.Fatalf("new join predicate: %v", err)
	}

	left := rowIntString(t, td, 7, "a")
	rightMatch := rowIntString(t, td, 7, "b")
	rightNoMatch := rowIntString(t, td, 8, "c")

	match, err := jp.Filter(left, rightMatch)
	if err != nil || !match {
		t.Fatalf("expected equal ids to match, got match=%v err=%v", match, err)
	}
	match, err = jp.Filter(left, rightNoMatch)
	if err != nil || match {
		t.Fatalf("expected differing ids to not match, got match=%v err=%v", match, err)
	}
}
