package heap

import (
	"fmt"

	"storemy/pkg/concurrency/lock"
	"storemy/pkg/concurrency/transaction"
	"storemy/pkg/primitives"
	"storemy/pkg/storage/page"
	"storemy/pkg/tuple"
)

// File is a heap file: an unordered collection of tuples backed by a
// sequence of fixed-size Pages in a single regular file.
type File struct {
	base    *page.BaseFile
	tableID primitives.TableID
	td      *tuple.TupleDescription
}

// Open opens (or creates) the heap file at path.
func Open(path string, td *tuple.TupleDescription) (*File, error) {
	base, err := page.OpenBaseFile(path)
	if err != nil {
		return nil, err
	}
	return &File{
		base:    base,
		tableID: primitives.HashFilePath(path),
		td:      td,
	}, nil
}

func (f *File) GetID() primitives.TableID {
	return f.tableID
}

func (f *File) GetTupleDesc() *tuple.TupleDescription {
	return f.td
}

func (f *File) NumPages() int {
	return f.base.NumPages()
}

func (f *File) Close() error {
	return f.base.Close()
}

// ReadPage reads and parses the page identified by pid.
func (f *File) ReadPage(pid tuple.PageID) (page.Page, error) {
	if pid.TableID != f.tableID {
		return nil, fmt.Errorf("heap file %d: page %s belongs to a different table", f.tableID, pid)
	}
	data, err := f.base.ReadPageData(int(pid.PageNumber))
	if err != nil {
		return nil, err
	}
	return NewPage(pid, f.td, data)
}

// WritePage writes p's current bytes to its slot in the file.
func (f *File) WritePage(p page.Page) error {
	if p.GetID().TableID != f.tableID {
		return fmt.Errorf("heap file %d: cannot write page belonging to table %d", f.tableID, p.GetID().TableID)
	}
	data, err := p.GetPageData()
	if err != nil {
		return err
	}
	return f.base.WritePageData(int(p.GetID().PageNumber), data)
}

// InsertTuple scans existing pages for free space under READ, upgrading to
// WRITE on the first page with room; if none has room, it allocates a new
// blank page on disk and inserts into that one under WRITE. Returns the
// pages that were modified, for the caller to mark dirty.
//
// A failed READ probe (page is full) releases its reader lock before
// moving on to the next page, so insert never leaks a lock on a page it
// decides not to use.
func (f *File) InsertTuple(tid *transaction.ID, bp page.PageFetcher, t *tuple.Tuple) ([]page.Page, error) {
	numPages := f.NumPages()
	for i := 0; i < numPages; i++ {
		pid := tuple.NewPageID(f.tableID, primitives.PageNumber(i))
		p, err := bp.GetPage(tid, pid, lock.ReadOnly)
		if err != nil {
			return nil, err
		}
		hp := p.(*Page)
		if hp.EmptySlotCount() == 0 {
			bp.ReleasePage(tid, pid)
			continue
		}
		wp, err := bp.GetPage(tid, pid, lock.ReadWrite)
		if err != nil {
			return nil, err
		}
		whp := wp.(*Page)
		if err := whp.InsertTuple(t); err != nil {
			return nil, err
		}
		return []page.Page{whp}, nil
	}

	blank := make([]byte, page.Size)
	newPageNum, err := f.base.AllocateNewPage(blank)
	if err != nil {
		return nil, err
	}
	pid := tuple.NewPageID(f.tableID, primitives.PageNumber(newPageNum))
	wp, err := bp.GetPage(tid, pid, lock.ReadWrite)
	if err != nil {
		return nil, err
	}
	whp := wp.(*Page)
	if err := whp.InsertTuple(t); err != nil {
		return nil, err
	}
	return []page.Page{whp}, nil
}

// DeleteTuple loads the page named by t's RecordID under WRITE and removes
// t from it.
func (f *File) DeleteTuple(tid *transaction.ID, bp page.PageFetcher, t *tuple.Tuple) ([]page.Page, error) {
	rid := t.GetRecordID()
	if rid == nil {
		return nil, fmt.Errorf("heap file %d: tuple has no record id", f.tableID)
	}
	p, err := bp.GetPage(tid, rid.PageID, lock.ReadWrite)
	if err != nil {
		return nil, err
	}
	hp := p.(*Page)
	if err := hp.DeleteTuple(t); err != nil {
		return nil, err
	}
	return []page.Page{hp}, nil
}

// Iterator yields every live tuple in the file, fetching pages from bp
// under READ one at a time as it advances, in ascending page number then
// ascending slot order.
func (f *File) Iterator(tid *transaction.ID, bp page.PageFetcher) page.DbFileIterator {
	return &FileIterator{file: f, tid: tid, bp: bp, pageNum: -1}
}

// FileIterator is the DbFileIterator for heap files.
type FileIterator struct {
	file    *File
	tid     *transaction.ID
	bp      page.PageFetcher
	pageNum int
	tuples  []*tuple.Tuple
	idx     int
	opened  bool
}

// Open positions the iterator before the first tuple of page 0.
func (it *FileIterator) Open() error {
	it.opened = true
	it.pageNum = -1
	it.tuples = nil
	it.idx = 0
	return it.advancePage()
}

func (it *FileIterator) advancePage() error {
	for {
		it.pageNum++
		if it.pageNum >= it.file.NumPages() {
			it.tuples = nil
			return nil
		}
		pid := tuple.NewPageID(it.file.tableID, primitives.PageNumber(it.pageNum))
		p, err := it.bp.GetPage(it.tid, pid, lock.ReadOnly)
		if err != nil {
			return err
		}
		hp := p.(*Page)
		it.tuples = hp.Tuples()
		it.idx = 0
		if len(it.tuples) > 0 {
			return nil
		}
	}
}

// HasNext reports whether Next would succeed.
func (it *FileIterator) HasNext() (bool, error) {
	if !it.opened {
		return false, fmt.Errorf("heap file iterator: not open")
	}
	if it.idx < len(it.tuples) {
		return true, nil
	}
	if it.pageNum >= it.file.NumPages()-1 {
		return false, nil
	}
	if err := it.advancePage(); err != nil {
		return false, err
	}
	return it.idx < len(it.tuples), nil
}

// Next returns the next live tuple.
func (it *FileIterator) Next() (*tuple.Tuple, error) {
	has, err := it.HasNext()
	if err != nil {
		return nil, err
	}
	if !has {
		return nil, fmt.Errorf("heap file iterator: exhausted")
	}
	t := it.tuples[it.idx]
	it.idx++
	return t, nil
}

// Rewind repositions the iterator at the first tuple of page 0.
func (it *FileIterator) Rewind() error {
	return it.Open()
}

// Close marks the iterator unusable until reopened.
func (it *FileIterator) Close() {
	it.opened = false
	it.tuples = nil
}

var (
	_ page.DbFile        = (*File)(nil)
	_ page.DbFileIterator = (*FileIterator)(nil)
)
