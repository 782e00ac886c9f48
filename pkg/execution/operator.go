// Package execution implements the pull-based (volcano-style) query
// operators: every operator is opened, pulled tuple-by-tuple via
// HasNext/Next, and closed, mirroring how a single query plan is driven to
// completion one row at a time. OrderBy and Aggregate read their whole
// child into memory before producing their first row.
package execution

import (
	"storemy/pkg/dberrors"
	"storemy/pkg/tuple"
)

// Operator is the uniform contract every pull-based query operator
// implements. A tree of Operators forms a query plan; calling Next on the
// root pulls one row at a time through the whole pipeline.
type Operator interface {
	// Open prepares the operator (and its children) for iteration.
	// Operators may be re-Open'd after Close.
	Open() error
	// HasNext reports whether another tuple is available, without
	// consuming it.
	HasNext() (bool, error)
	// Next returns the next tuple, or fails with NoSuchElement once the
	// operator is exhausted.
	Next() (*tuple.Tuple, error)
	// Rewind resets the operator to its first tuple.
	Rewind() error
	// Close releases resources held by the operator and its children.
	Close() error
	// GetTupleDesc returns the schema of tuples this operator produces.
	GetTupleDesc() *tuple.TupleDescription
	// SetChildren replaces this operator's child operators.
	SetChildren(children []Operator) error
}

// readNextFunc produces the next tuple of a stream, or nil once exhausted.
type readNextFunc func() (*tuple.Tuple, error)

// baseIterator implements the HasNext/Next lookahead caching shared by
// every operator in this package, so each operator only has to implement
// readNext.
type baseIterator struct {
	cached   *tuple.Tuple
	opened   bool
	readNext readNextFunc
}

func newBaseIterator(readNext readNextFunc) *baseIterator {
	return &baseIterator{readNext: readNext}
}

func (b *baseIterator) markOpened() {
	b.opened = true
	b.cached = nil
}

func (b *baseIterator) clearCache() {
	b.cached = nil
}

func (b *baseIterator) HasNext() (bool, error) {
	if !b.opened {
		return false, dberrors.New(dberrors.DbException, "operator not opened")
	}
	if b.cached == nil {
		t, err := b.readNext()
		if err != nil {
			return false, err
		}
		b.cached = t
	}
	return b.cached != nil, nil
}

func (b *baseIterator) Next() (*tuple.Tuple, error) {
	has, err := b.HasNext()
	if err != nil {
		return nil, err
	}
	if !has {
		return nil, dberrors.NewNoSuchElement("operator exhausted")
	}
	t := b.cached
	b.cached = nil
	return t, nil
}

func (b *baseIterator) close() {
	b.cached = nil
	b.opened = false
}
