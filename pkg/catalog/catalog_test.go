package catalog

import (
	"path/filepath"
	"testing"

	"storemy/pkg/storage/heap"
	"storemy/pkg/tuple"
	"storemy/pkg/types"
)

func newTestFile(t *testing.T, name string) *heap.File {
	t.Helper()
	td, err := tuple.NewTupleDescription([]types.Type{types.IntType}, []string{"id"}, 128)
	if err != nil {
		t.Fatalf("new tuple description: %v", err)
	}
	f, err := heap.Open(filepath.Join(t.TempDir(), name+".dat"), td)
	if err != nil {
		t.Fatalf("open heap file: %v", err)
	}
	return f
}

func TestAddTableAndLookup(t *testing.T) {
	c := New()
	f := newTestFile(t, "widgets")
	c.AddTable(f, "widgets", "id")

	id, err := c.GetTableID("widgets")
	if err != nil {
		t.Fatalf("get table id: %v", err)
	}
	if id != f.GetID() {
		t.Fatalf("got id %d, want %d", id, f.GetID())
	}
	pk, err := c.GetPrimaryKey(id)
	if err != nil || pk != "id" {
		t.Fatalf("got pk (%q, %v), want (\"id\", nil)", pk, err)
	}
}

func TestAddTableNameCollisionOverwrites(t *testing.T) {
	c := New()
	first := newTestFile(t, "a")
	second := newTestFile(t, "b")
	c.AddTable(first, "widgets", "")
	c.AddTable(second, "widgets", "")

	id, err := c.GetTableID("widgets")
	if err != nil {
		t.Fatalf("get table id: %v", err)
	}
	if id != second.GetID() {
		t.Fatal("expected later AddTable to overwrite the earlier binding")
	}
}

func TestGetTableIDFailsWhenAbsent(t *testing.T) {
	c := New()
	if _, err := c.GetTableID("missing"); err == nil {
		t.Fatal("expected lookup of unregistered table to fail")
	}
}

func TestClearRemovesAllTables(t *testing.T) {
	c := New()
	c.AddTable(newTestFile(t, "a"), "a", "")
	c.Clear()
	if _, err := c.GetTableID("a"); err == nil {
		t.Fatal("expected lookup after clear to fail")
	}
}
