package memory

import (
	"path/filepath"
	"sync"
	"testing"
	"time"

	"storemy/pkg/catalog"
	"storemy/pkg/concurrency/lock"
	"storemy/pkg/concurrency/transaction"
	"storemy/pkg/dberrors"
	"storemy/pkg/storage/heap"
	"storemy/pkg/tuple"
	"storemy/pkg/types"
)

func newTestBufferPool(t *testing.T, capacity int) (*BufferPool, *catalog.Catalog, *tuple.TupleDescription, primitiveFile) {
	t.Helper()
	td, err := tuple.NewTupleDescription([]types.Type{types.IntType, types.StringType}, []string{"id", "name"}, 128)
	if err != nil {
		t.Fatalf("new tuple description: %v", err)
	}
	f, err := heap.Open(filepath.Join(t.TempDir(), "t.dat"), td)
	if err != nil {
		t.Fatalf("open heap file: %v", err)
	}
	cat := catalog.New()
	cat.AddTable(f, "t", "id")
	bp := New(capacity, cat)
	return bp, cat, td, primitiveFile{f}
}

// primitiveFile exposes only what these tests need from *heap.File without
// importing its concrete type everywhere.
type primitiveFile struct {
	f *heap.File
}

func makeTestTuple(t *testing.T, td *tuple.TupleDescription, id int32, name string) *tuple.Tuple {
	t.Helper()
	tp := tuple.NewTuple(td)
	if err := tp.SetField(0, types.NewIntField(id)); err != nil {
		t.Fatalf("set field 0: %v", err)
	}
	if err := tp.SetField(1, types.NewStringField(name, td.StringMaxLen)); err != nil {
		t.Fatalf("set field 1: %v", err)
	}
	return tp
}

func TestSingleTupleRoundTrip(t *testing.T) {
	bp, cat, td, pf := newTestBufferPool(t, 10)
	tableID := pf.f.GetID()

	t1 := transaction.New()
	bp.Begin(t1)
	tp := makeTestTuple(t, td, 42, "hi")
	if err := bp.InsertTuple(t1, tableID, tp); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := bp.TransactionComplete(t1, true); err != nil {
		t.Fatalf("commit: %v", err)
	}

	t2 := transaction.New()
	bp.Begin(t2)
	file, _ := cat.GetDatabaseFile(tableID)
	it := file.Iterator(t2, bp)
	if err := it.Open(); err != nil {
		t.Fatalf("open iterator: %v", err)
	}
	var seen []*tuple.Tuple
	for {
		has, err := it.HasNext()
		if err != nil {
			t.Fatalf("has next: %v", err)
		}
		if !has {
			break
		}
		tup, err := it.Next()
		if err != nil {
			t.Fatalf("next: %v", err)
		}
		seen = append(seen, tup)
	}
	if len(seen) != 1 {
		t.Fatalf("expected exactly 1 tuple, got %d", len(seen))
	}
	f0, _ := seen[0].GetField(0)
	f1, _ := seen[0].GetField(1)
	if f0.String() != "42" || f1.String() != "hi" {
		t.Fatalf("got (%s, %s), want (42, hi)", f0, f1)
	}
	bp.TransactionComplete(t2, true)
}

func TestAbortRollsBack(t *testing.T) {
	bp, cat, td, pf := newTestBufferPool(t, 10)
	tableID := pf.f.GetID()

	t0 := transaction.New()
	bp.Begin(t0)
	if err := bp.InsertTuple(t0, tableID, makeTestTuple(t, td, 1, "one")); err != nil {
		t.Fatalf("pre-populate insert: %v", err)
	}
	if err := bp.TransactionComplete(t0, true); err != nil {
		t.Fatalf("pre-populate commit: %v", err)
	}

	t1 := transaction.New()
	bp.Begin(t1)
	if err := bp.InsertTuple(t1, tableID, makeTestTuple(t, td, 2, "two")); err != nil {
		t.Fatalf("t1 insert: %v", err)
	}
	if err := bp.TransactionComplete(t1, false); err != nil {
		t.Fatalf("t1 abort: %v", err)
	}

	t2 := transaction.New()
	bp.Begin(t2)
	file, _ := cat.GetDatabaseFile(tableID)
	it := file.Iterator(t2, bp)
	it.Open()
	count := 0
	var last *tuple.Tuple
	for {
		has, _ := it.HasNext()
		if !has {
			break
		}
		last, _ = it.Next()
		count++
	}
	if count != 1 {
		t.Fatalf("expected only the pre-populated tuple to survive abort, got %d tuples", count)
	}
	f0, _ := last.GetField(0)
	if f0.String() != "1" {
		t.Fatalf("expected surviving tuple id=1, got %s", f0.String())
	}
	bp.TransactionComplete(t2, true)
}

func TestReaderWriterExclusion(t *testing.T) {
	bp, cat, td, pf := newTestBufferPool(t, 10)
	tableID := pf.f.GetID()

	setup := transaction.New()
	bp.Begin(setup)
	if err := bp.InsertTuple(setup, tableID, makeTestTuple(t, td, 1, "x")); err != nil {
		t.Fatalf("setup insert: %v", err)
	}
	if err := bp.TransactionComplete(setup, true); err != nil {
		t.Fatalf("setup commit: %v", err)
	}

	file, _ := cat.GetDatabaseFile(tableID)
	pid := tuple.NewPageID(tableID, 0)

	t1 := transaction.New()
	bp.Begin(t1)
	if _, err := bp.GetPage(t1, pid, lock.ReadOnly); err != nil {
		t.Fatalf("t1 read: %v", err)
	}

	t2 := transaction.New()
	bp.Begin(t2)

	var order []string
	var mu sync.Mutex
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if _, err := bp.GetPage(t2, pid, lock.ReadWrite); err != nil {
			return
		}
		mu.Lock()
		order = append(order, "t2")
		mu.Unlock()
	}()

	time.Sleep(50 * time.Millisecond)
	mu.Lock()
	order = append(order, "t1-commit")
	mu.Unlock()
	bp.TransactionComplete(t1, true)

	wg.Wait()
	bp.TransactionComplete(t2, true)

	_ = file
	if len(order) != 2 || order[0] != "t1-commit" || order[1] != "t2" {
		t.Fatalf("expected t1 to commit before t2 acquired WRITE, got %v", order)
	}
}

func TestDeadlockResolvesWithExactlyOneAbort(t *testing.T) {
	bp, cat, td, pf := newTestBufferPool(t, 10)
	tableID := pf.f.GetID()

	setup := transaction.New()
	bp.Begin(setup)
	if err := bp.InsertTuple(setup, tableID, makeTestTuple(t, td, 1, "x")); err != nil {
		t.Fatalf("setup insert: %v", err)
	}
	if err := bp.InsertTuple(setup, tableID, makeTestTuple(t, td, 2, "y")); err != nil {
		t.Fatalf("setup insert 2: %v", err)
	}
	if err := bp.TransactionComplete(setup, true); err != nil {
		t.Fatalf("setup commit: %v", err)
	}

	file, _ := cat.GetDatabaseFile(tableID)
	_ = file
	// Force two distinct pages by capacity-1 cache plus a second table would
	// be more realistic, but a single page's two slots already give us two
	// independent record locations to deadlock on in spirit: exercise the
	// policy directly against two PageLocks instead, which is what the
	// buffer pool's GetPage ultimately serializes through.
	p1 := tuple.NewPageID(tableID, 0)
	p2 := tuple.NewPageID(99, 0) // distinct synthetic page id, same lock table

	t1 := transaction.New()
	bp.Begin(t1)
	t2 := transaction.New()
	bp.Begin(t2)

	l1 := bp.lockFor(p1)
	l2 := bp.lockFor(p2)

	if !l1.TryAcquire(t1, lock.ReadOnly) {
		t.Fatal("t1 should acquire READ on p1 uncontended")
	}
	if !l2.TryAcquire(t2, lock.ReadOnly) {
		t.Fatal("t2 should acquire READ on p2 uncontended")
	}

	results := make(chan error, 2)
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		err := lock.Acquire(l2, t1, lock.ReadWrite, bp.registry)
		results <- err
		// Simulate the buffer pool's transactionComplete releasing every
		// lock the transaction held, whether it committed or aborted.
		l1.ReleaseAll(t1)
		if err == nil {
			l2.ReleaseAll(t1)
		}
	}()
	go func() {
		defer wg.Done()
		err := lock.Acquire(l1, t2, lock.ReadWrite, bp.registry)
		results <- err
		l2.ReleaseAll(t2)
		if err == nil {
			l1.ReleaseAll(t2)
		}
	}()
	wg.Wait()
	close(results)

	aborted, succeeded := 0, 0
	for err := range results {
		if err != nil {
			if !dberrors.IsAborted(err) {
				t.Fatalf("expected TransactionAborted, got %v", err)
			}
			aborted++
		} else {
			succeeded++
		}
	}
	if aborted != 1 || succeeded != 1 {
		t.Fatalf("expected exactly one abort and one success, got aborted=%d succeeded=%d", aborted, succeeded)
	}
}

func TestEvictionFailsWhenAllPagesDirty(t *testing.T) {
	bp, _, td, pf := newTestBufferPool(t, 1)
	tableID := pf.f.GetID()

	t1 := transaction.New()
	bp.Begin(t1)
	if err := bp.InsertTuple(t1, tableID, makeTestTuple(t, td, 1, "x")); err != nil {
		t.Fatalf("insert into page 0: %v", err)
	}
	if bp.CachedPageCount() != 1 {
		t.Fatalf("expected 1 cached page, got %d", bp.CachedPageCount())
	}

	// Force a second, distinct page to require eviction while page 0 is
	// still dirty under t1: fill page 0 completely so the next insert must
	// allocate page 1.
	capacityPerPage := numSlotsForTest(td)
	for i := 1; i < capacityPerPage; i++ {
		if err := bp.InsertTuple(t1, tableID, makeTestTuple(t, td, int32(i+1), "x")); err != nil {
			t.Fatalf("fill page 0: %v", err)
		}
	}
	if err := bp.InsertTuple(t1, tableID, makeTestTuple(t, td, 999, "overflow")); err == nil {
		t.Fatal("expected CacheExhausted when capacity=1 and the only cached page is dirty")
	}
}

// numSlotsForTest mirrors heap.numSlotsFor without exporting it; duplicated
// here since the formula is part of the on-disk contract tests pin down
// independently.
func numSlotsForTest(td *tuple.TupleDescription) int {
	tupleSize := td.GetSize()
	const pageSize = 4096
	return (pageSize * 8) / (tupleSize*8 + 1)
}
