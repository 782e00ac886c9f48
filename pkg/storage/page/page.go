// Package page defines the Page and DbFile abstractions shared by every
// on-disk storage layout.
package page

import (
	"storemy/pkg/concurrency/lock"
	"storemy/pkg/concurrency/transaction"
	"storemy/pkg/primitives"
	"storemy/pkg/tuple"
)

// Size is the fixed byte width of every page in every heap file.
const Size = 4096

// Page is a single fixed-size unit of storage, cached by the buffer pool and
// read/written wholesale by its owning DbFile.
type Page interface {
	// GetID returns the page's identity.
	GetID() tuple.PageID
	// IsDirty reports the transaction that last modified this cached copy,
	// or nil if the page matches what is on disk.
	IsDirty() *transaction.ID
	// MarkDirty records (or clears, if dirty is false) the transaction that
	// modified this cached copy.
	MarkDirty(dirty bool, tid *transaction.ID)
	// GetPageData serializes the page to exactly Size bytes.
	GetPageData() ([]byte, error)
	// GetBeforeImage returns a snapshot of the page as of the last time
	// SetBeforeImage was called, used to roll back an aborted transaction.
	GetBeforeImage() (Page, error)
	// SetBeforeImage captures the page's current bytes as its new
	// before-image, called after a successful commit.
	SetBeforeImage()
}

// DbFile is a single table's on-disk storage: a sequence of fixed-size
// pages in one regular file.
type DbFile interface {
	// ReadPage reads and parses the page identified by pid.
	ReadPage(pid tuple.PageID) (Page, error)
	// WritePage writes p's current bytes to its slot in the file.
	WritePage(p Page) error
	// GetID returns the stable table identifier for this file.
	GetID() primitives.TableID
	// GetTupleDesc returns the schema of tuples stored in this file.
	GetTupleDesc() *tuple.TupleDescription
	// NumPages returns the number of pages currently in the file.
	NumPages() int
	// InsertTuple stores t somewhere in the file, fetching and modifying
	// pages through fetcher (normally the buffer pool) so that locking and
	// caching stay centralized. Returns the pages that were modified.
	InsertTuple(tid *transaction.ID, fetcher PageFetcher, t *tuple.Tuple) ([]Page, error)
	// DeleteTuple removes t (located via its RecordID) from the file,
	// fetching the owning page through fetcher. Returns the pages that
	// were modified.
	DeleteTuple(tid *transaction.ID, fetcher PageFetcher, t *tuple.Tuple) ([]Page, error)
	// Iterator returns a DbFileIterator over every live tuple in the file,
	// fetching pages through fetcher as it advances.
	Iterator(tid *transaction.ID, fetcher PageFetcher) DbFileIterator
	// Close releases the underlying file handle.
	Close() error
}

// PageFetcher loads a page under a given lock permission, with caching and
// locking handled centrally. Implemented by the buffer pool.
type PageFetcher interface {
	GetPage(tid *transaction.ID, pid tuple.PageID, perm lock.Permission) (Page, error)
	ReleasePage(tid *transaction.ID, pid tuple.PageID)
}

// DbFileIterator is the pull-based iterator contract every DbFile's
// Iterator method returns.
type DbFileIterator interface {
	Open() error
	HasNext() (bool, error)
	Next() (*tuple.Tuple, error)
	Rewind() error
	Close()
}
