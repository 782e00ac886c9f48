package execution

import (
	"fmt"

	"storemy/pkg/catalog"
	"storemy/pkg/concurrency/transaction"
	"storemy/pkg/dberrors"
	"storemy/pkg/primitives"
	"storemy/pkg/storage/page"
	"storemy/pkg/tuple"
	"storemy/pkg/types"
)

// SeqScan reads every live tuple of a table in heap-file order. When alias
// is non-empty, every field name in the exposed schema is prefixed with
// "alias.", matching how a query plan disambiguates repeated table names in
// a self-join.
type SeqScan struct {
	base      *baseIterator
	tid       *transaction.ID
	tableID   primitives.TableID
	alias     string
	cat       *catalog.Catalog
	fetcher   page.PageFetcher
	file      page.DbFile
	fileIter  page.DbFileIterator
	tupleDesc *tuple.TupleDescription
}

// NewSeqScan builds a scan of tableID under tid, fetching pages through
// fetcher (normally the buffer pool).
func NewSeqScan(tid *transaction.ID, tableID primitives.TableID, alias string, cat *catalog.Catalog, fetcher page.PageFetcher) (*SeqScan, error) {
	file, err := cat.GetDatabaseFile(tableID)
	if err != nil {
		return nil, err
	}
	td := file.GetTupleDesc()
	if alias != "" {
		td = aliasTupleDesc(td, alias)
	}

	ss := &SeqScan{
		tid:       tid,
		tableID:   tableID,
		alias:     alias,
		cat:       cat,
		fetcher:   fetcher,
		file:      file,
		tupleDesc: td,
	}
	ss.base = newBaseIterator(ss.readNext)
	return ss, nil
}

func aliasTupleDesc(td *tuple.TupleDescription, alias string) *tuple.TupleDescription {
	names := make([]string, td.NumFields())
	for i := range names {
		name, _ := td.GetFieldName(i)
		if name == "" {
			names[i] = ""
			continue
		}
		names[i] = fmt.Sprintf("%s.%s", alias, name)
	}
	aliased, _ := tuple.NewTupleDescription(append([]types.Type(nil), td.Types...), names, td.StringMaxLen)
	return aliased
}

func (ss *SeqScan) Open() error {
	ss.fileIter = ss.file.Iterator(ss.tid, ss.fetcher)
	if err := ss.fileIter.Open(); err != nil {
		return err
	}
	ss.base.markOpened()
	return nil
}

func (ss *SeqScan) readNext() (*tuple.Tuple, error) {
	has, err := ss.fileIter.HasNext()
	if err != nil {
		return nil, err
	}
	if !has {
		return nil, nil
	}
	t, err := ss.fileIter.Next()
	if err != nil {
		return nil, err
	}
	if ss.alias == "" {
		return t, nil
	}
	return rebindSchema(t, ss.tupleDesc), nil
}

// rebindSchema copies t's fields into a new tuple carrying desc, used to
// attach an aliased schema without mutating the original.
func rebindSchema(t *tuple.Tuple, desc *tuple.TupleDescription) *tuple.Tuple {
	out := tuple.NewTuple(desc)
	for i := 0; i < desc.NumFields(); i++ {
		f, err := t.GetField(i)
		if err != nil {
			continue
		}
		_ = out.SetField(i, f)
	}
	if rid := t.GetRecordID(); rid != nil {
		out.SetRecordID(*rid)
	}
	return out
}

func (ss *SeqScan) HasNext() (bool, error)              { return ss.base.HasNext() }
func (ss *SeqScan) Next() (*tuple.Tuple, error)          { return ss.base.Next() }
func (ss *SeqScan) GetTupleDesc() *tuple.TupleDescription { return ss.tupleDesc }

func (ss *SeqScan) Rewind() error {
	if ss.fileIter == nil {
		return dberrors.New(dberrors.DbException, "scan not opened")
	}
	if err := ss.fileIter.Rewind(); err != nil {
		return err
	}
	ss.base.clearCache()
	return nil
}

func (ss *SeqScan) Close() error {
	if ss.fileIter != nil {
		ss.fileIter.Close()
		ss.fileIter = nil
	}
	ss.base.close()
	return nil
}

// SetChildren fails when given any children: a scan is a leaf operator.
func (ss *SeqScan) SetChildren(children []Operator) error {
	if len(children) != 0 {
		return fmt.Errorf("seq scan takes no children")
	}
	return nil
}
