package execution

import (
	"path/filepath"
	"testing"

	"storemy/pkg/catalog"
	"storemy/pkg/concurrency/transaction"
	"storemy/pkg/memory"
	"storemy/pkg/predicate"
	"storemy/pkg/primitives"
	"storemy/pkg/storage/heap"
	"storemy/pkg/tuple"
	"storemy/pkg/types"
)

func newTestTable(t *testing.T, name string, fieldNames []string, fieldTypes []types.Type) (*memory.BufferPool, *catalog.Catalog, *tuple.TupleDescription, primitives.TableID) {
	t.Helper()
	td, err := tuple.NewTupleDescription(fieldTypes, fieldNames, 0)
	if err != nil {
		t.Fatalf("new schema: %v", err)
	}
	f, err := heap.Open(filepath.Join(t.TempDir(), name+".dat"), td)
	if err != nil {
		t.Fatalf("open heap file: %v", err)
	}
	cat := catalog.New()
	cat.AddTable(f, name, "")
	bp := memory.New(10, cat)
	return bp, cat, td, f.GetID()
}

func insertRows(t *testing.T, bp *memory.BufferPool, td *tuple.TupleDescription, tableID primitives.TableID, rows [][2]any) {
	t.Helper()
	tid := transaction.New()
	bp.Begin(tid)
	for _, row := range rows {
		tp := tuple.NewTuple(td)
		if id, ok := row[0].(int32); ok {
			if err := tp.SetField(0, types.NewIntField(id)); err != nil {
				t.Fatalf("set field 0: %v", err)
			}
		}
		if name, ok := row[1].(string); ok {
			if err := tp.SetField(1, types.NewStringField(name, td.StringMaxLen)); err != nil {
				t.Fatalf("set field 1: %v", err)
			}
		} else if v, ok := row[1].(int32); ok {
			if err := tp.SetField(1, types.NewIntField(v)); err != nil {
				t.Fatalf("set field 1: %v", err)
			}
		}
		if err := bp.InsertTuple(tid, tableID, tp); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}
	if err := bp.TransactionComplete(tid, true); err != nil {
		t.Fatalf("commit: %v", err)
	}
}

func drain(t *testing.T, op Operator) []*tuple.Tuple {
	t.Helper()
	if err := op.Open(); err != nil {
		t.Fatalf("open: %v", err)
	}
	defer op.Close()

	var rows []*tuple.Tuple
	for {
		has, err := op.HasNext()
		if err != nil {
			t.Fatalf("has next: %v", err)
		}
		if !has {
			break
		}
		row, err := op.Next()
		if err != nil {
			t.Fatalf("next: %v", err)
		}
		rows = append(rows, row)
	}
	return rows
}

func TestSeqScanYieldsAllInsertedRows(t *testing.T) {
	bp, cat, td, tableID := newTestTable(t, "people", []string{"id", "name"}, []types.Type{types.IntType, types.StringType})
	insertRows(t, bp, td, tableID, [][2]any{{int32(1), "a"}, {int32(2), "b"}, {int32(3), "c"}})

	tid := transaction.New()
	bp.Begin(tid)
	scan, err := NewSeqScan(tid, tableID, "", cat, bp)
	if err != nil {
		t.Fatalf("new seq scan: %v", err)
	}
	rows := drain(t, scan)
	bp.TransactionComplete(tid, true)

	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}
}

func TestFilterKeepsMatchingRowsOnly(t *testing.T) {
	bp, cat, td, tableID := newTestTable(t, "nums", []string{"id", "name"}, []types.Type{types.IntType, types.StringType})
	insertRows(t, bp, td, tableID, [][2]any{{int32(1), "a"}, {int32(5), "b"}, {int32(10), "c"}})

	tid := transaction.New()
	bp.Begin(tid)
	scan, err := NewSeqScan(tid, tableID, "", cat, bp)
	if err != nil {
		t.Fatalf("new seq scan: %v", err)
	}
	pred, err := predicate.NewFieldPredicate(0, primitives.GreaterThan, types.NewIntField(4))
	if err != nil {
		t.Fatalf("new predicate: %v", err)
	}
	filt, err := NewFilter(pred, scan)
	if err != nil {
		t.Fatalf("new filter: %v", err)
	}
	rows := drain(t, filt)
	bp.TransactionComplete(tid, true)

	if len(rows) != 2 {
		t.Fatalf("expected 2 rows > 4, got %d", len(rows))
	}
}

func TestProjectSelectsRequestedFields(t *testing.T) {
	bp, cat, td, tableID := newTestTable(t, "people", []string{"id", "name"}, []types.Type{types.IntType, types.StringType})
	insertRows(t, bp, td, tableID, [][2]any{{int32(1), "a"}})

	tid := transaction.New()
	bp.Begin(tid)
	scan, err := NewSeqScan(tid, tableID, "", cat, bp)
	if err != nil {
		t.Fatalf("new seq scan: %v", err)
	}
	proj, err := NewProject([]int{1}, []types.Type{types.StringType}, scan)
	if err != nil {
		t.Fatalf("new project: %v", err)
	}
	rows := drain(t, proj)
	bp.TransactionComplete(tid, true)

	if len(rows) != 1 || rows[0].GetTupleDesc().NumFields() != 1 {
		t.Fatalf("expected a single 1-field row, got %+v", rows)
	}
	f, _ := rows[0].GetField(0)
	if f.String() != "a" {
		t.Fatalf("expected projected field 'a', got %s", f.String())
	}
}

// TestAggregateAvgByGroup exercises grouped AVG with integer division.
func TestAggregateAvgByGroup(t *testing.T) {
	bp, cat, td, tableID := newTestTable(t, "scores", []string{"team", "score"}, []types.Type{types.StringType, types.IntType})
	tid := transaction.New()
	bp.Begin(tid)
	rows := []struct {
		team  string
		score int32
	}{
		{"red", 10}, {"red", 11}, {"blue", 4}, {"blue", 6},
	}
	for _, r := range rows {
		tp := tuple.NewTuple(td)
		if err := tp.SetField(0, types.NewStringField(r.team, td.StringMaxLen)); err != nil {
			t.Fatalf("set field 0: %v", err)
		}
		if err := tp.SetField(1, types.NewIntField(r.score)); err != nil {
			t.Fatalf("set field 1: %v", err)
		}
		if err := bp.InsertTuple(tid, tableID, tp); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}
	bp.TransactionComplete(tid, true)

	tid2 := transaction.New()
	bp.Begin(tid2)
	scan, err := NewSeqScan(tid2, tableID, "", cat, bp)
	if err != nil {
		t.Fatalf("new seq scan: %v", err)
	}
	agg, err := NewAggregate(1, 0, Avg, scan)
	if err != nil {
		t.Fatalf("new aggregate: %v", err)
	}
	results := drain(t, agg)
	bp.TransactionComplete(tid2, true)

	if len(results) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(results))
	}
	byGroup := map[string]int32{}
	for _, row := range results {
		group, _ := row.GetField(0)
		val, _ := row.GetField(1)
		byGroup[group.String()] = val.(*types.IntField).Value
	}
	if byGroup["red"] != 10 { // (10+11)/2 = 10 under integer division
		t.Fatalf("expected red avg 10, got %d", byGroup["red"])
	}
	if byGroup["blue"] != 5 {
		t.Fatalf("expected blue avg 5, got %d", byGroup["blue"])
	}
}

// TestJoinEqualityMultiset exercises an equi-join producing a multiset of
// matching left/right pairs.
func TestJoinEqualityMultiset(t *testing.T) {
	bpL, catL, tdL, tableL := newTestTable(t, "orders", []string{"custID", "amount"}, []types.Type{types.IntType, types.IntType})
	insertRows(t, bpL, tdL, tableL, [][2]any{{int32(1), int32(100)}, {int32(1), int32(200)}, {int32(2), int32(50)}})

	bpR, catR, tdR, tableR := newTestTable(t, "customers", []string{"id", "name"}, []types.Type{types.IntType, types.StringType})
	insertRows(t, bpR, tdR, tableR, [][2]any{{int32(1), "alice"}, {int32(2), "bob"}})

	tid := transaction.New()
	bpL.Begin(tid)
	bpR.Begin(tid)

	left, err := NewSeqScan(tid, tableL, "", catL, bpL)
	if err != nil {
		t.Fatalf("left scan: %v", err)
	}
	right, err := NewSeqScan(tid, tableR, "", catR, bpR)
	if err != nil {
		t.Fatalf("right scan: %v", err)
	}
	jp, err := predicate.NewJoinPredicate(0, primitives.Equals, 0)
	if err != nil {
		t.Fatalf("new join predicate: %v", err)
	}
	join, err := NewJoin(jp, left, right)
	if err != nil {
		t.Fatalf("new join: %v", err)
	}
	rows := drain(t, join)
	bpL.TransactionComplete(tid, true)
	bpR.TransactionComplete(tid, true)

	if len(rows) != 3 {
		t.Fatalf("expected 3 matching pairs (2 for custID=1, 1 for custID=2), got %d", len(rows))
	}
	if rows[0].GetTupleDesc().NumFields() != 4 {
		t.Fatalf("expected merged 4-field schema, got %d", rows[0].GetTupleDesc().NumFields())
	}
}

func TestInsertDrainsAndCounts(t *testing.T) {
	src, srcCat, srcTD, srcTableID := newTestTable(t, "src", []string{"id", "name"}, []types.Type{types.IntType, types.StringType})
	insertRows(t, src, srcTD, srcTableID, [][2]any{{int32(1), "a"}, {int32(2), "b"}})

	dst, _, dstTD, dstTableID := newTestTable(t, "dst", []string{"id", "name"}, []types.Type{types.IntType, types.StringType})
	_ = dstTD

	tid := transaction.New()
	src.Begin(tid)
	dst.Begin(tid)
	scan, err := NewSeqScan(tid, srcTableID, "", srcCat, src)
	if err != nil {
		t.Fatalf("new seq scan: %v", err)
	}
	ins, err := NewInsert(tid, scan, dstTableID, dst)
	if err != nil {
		t.Fatalf("new insert: %v", err)
	}
	results := drain(t, ins)
	src.TransactionComplete(tid, true)

	if len(results) != 1 {
		t.Fatalf("expected exactly one result tuple, got %d", len(results))
	}
	count, _ := results[0].GetField(0)
	if count.(*types.IntField).Value != 2 {
		t.Fatalf("expected inserted count 2, got %d", count.(*types.IntField).Value)
	}

	if err := ins.Rewind(); err == nil {
		t.Fatal("expected insert to reject rewind")
	}
}

func TestOrderBySortsAscending(t *testing.T) {
	bp, cat, td, tableID := newTestTable(t, "nums", []string{"id", "name"}, []types.Type{types.IntType, types.StringType})
	insertRows(t, bp, td, tableID, [][2]any{{int32(3), "c"}, {int32(1), "a"}, {int32(2), "b"}})

	tid := transaction.New()
	bp.Begin(tid)
	scan, err := NewSeqScan(tid, tableID, "", cat, bp)
	if err != nil {
		t.Fatalf("new seq scan: %v", err)
	}
	ordered, err := NewOrderBy(0, true, scan)
	if err != nil {
		t.Fatalf("new order by: %v", err)
	}
	rows := drain(t, ordered)
	bp.TransactionComplete(tid, true)

	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}
	prev := int32(-1)
	for _, row := range rows {
		f, _ := row.GetField(0)
		v := f.(*types.IntField).Value
		if v < prev {
			t.Fatalf("expected ascending order, got %d after %d", v, prev)
		}
		prev = v
	}
}
