// Package primitives defines the small value types shared across the storage
// engine: table and page identifiers and the scalar comparison
// operators used by predicates.
package primitives

import "hash/fnv"

// TableID is a stable identifier for a heap file, derived from hashing its
// file path. Two HeapFiles opened on the same path always produce the same
// TableID.
type TableID uint64

// PageNumber is the zero-based offset of a page within its table's file.
type PageNumber uint64

// SlotID is the zero-based index of a slot within a page.
type SlotID uint32

// ColumnID identifies a field within a TupleDesc.
type ColumnID uint32

// HashFilePath computes a stable TableID from a file path.
func HashFilePath(path string) TableID {
	h := fnv.New64a()
	_, _ = h.Write([]byte(path))
	return TableID(h.Sum64())
}
