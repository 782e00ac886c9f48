// Package tuple implements row schemas, row values, and the identifiers
// that locate a row's physical storage.
package tuple

import (
	"fmt"

	"storemy/pkg/primitives"
)

// PageID identifies a single page within a single table's heap file.
type PageID struct {
	TableID    primitives.TableID
	PageNumber primitives.PageNumber
}

// NewPageID constructs a PageID for the given table and page number.
func NewPageID(tableID primitives.TableID, pageNumber primitives.PageNumber) PageID {
	return PageID{TableID: tableID, PageNumber: pageNumber}
}

// Equals reports whether p and other name the same page.
func (p PageID) Equals(other PageID) bool {
	return p.TableID == other.TableID && p.PageNumber == other.PageNumber
}

// Hash combines the table id and page number into a single value suitable
// for use as a map key component or cache bucket.
func (p PageID) Hash() uint64 {
	return uint64(p.TableID)*31 + uint64(p.PageNumber)
}

func (p PageID) String() string {
	return fmt.Sprintf("page(table=%d, num=%d)", p.TableID, p.PageNumber)
}

// RecordID locates a tuple's physical storage: the page holding it and its
// slot index within that page.
type RecordID struct {
	PageID PageID
	SlotID primitives.SlotID
}

// NewRecordID constructs a RecordID.
func NewRecordID(pid PageID, slot primitives.SlotID) RecordID {
	return RecordID{PageID: pid, SlotID: slot}
}

// Equals reports whether r and other name the same slot.
func (r RecordID) Equals(other RecordID) bool {
	return r.PageID.Equals(other.PageID) && r.SlotID == other.SlotID
}

func (r RecordID) String() string {
	return fmt.Sprintf("record(%s, slot=%d)", r.PageID, r.SlotID)
}
