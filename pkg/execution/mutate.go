package execution

import (
	"storemy/pkg/concurrency/transaction"
	"storemy/pkg/primitives"
	"storemy/pkg/tuple"
)

// Mutator is the buffer-pool surface Insert and Delete write through.
// Implemented by *storemy/pkg/memory.BufferPool.
type Mutator interface {
	InsertTuple(tid *transaction.ID, tableID primitives.TableID, t *tuple.Tuple) error
	DeleteTuple(tid *transaction.ID, t *tuple.Tuple) error
}
