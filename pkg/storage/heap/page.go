// Package heap implements the slotted-page heap file storage layout: a
// fixed-size page holds a bitmap occupancy header followed by fixed-width
// tuple slots.
package heap

import (
	"bytes"
	"fmt"

	"storemy/pkg/concurrency/transaction"
	"storemy/pkg/dberrors"
	"storemy/pkg/primitives"
	"storemy/pkg/storage/page"
	"storemy/pkg/tuple"
	"storemy/pkg/types"
)

// Page is a slotted page: a bitmap occupancy header (one bit per slot,
// LSB-first within each byte) followed by N fixed-width tuple slots, padded
// with zero bytes to page.Size.
type Page struct {
	id  tuple.PageID
	td  *tuple.TupleDescription
	// numSlots = floor((Size*8) / (td.GetSize()*8 + 1)), per-page capacity.
	numSlots int
	// header holds one bit per slot; bit set means occupied.
	header []byte
	// slots holds a tuple pointer per slot index; nil means empty.
	slots []*tuple.Tuple

	dirtyBy      *transaction.ID
	beforeImage  []byte
}

// headerBytes returns the number of bytes needed to store numSlots bits.
func headerBytes(numSlots int) int {
	return (numSlots + 7) / 8
}

// numSlotsFor computes N = floor((P*8) / (tupleSize*8 + 1)).
func numSlotsFor(tupleSize int) int {
	if tupleSize <= 0 {
		return 0
	}
	return (page.Size * 8) / (tupleSize*8 + 1)
}

// NewEmptyPage constructs a page with no tuples, ready to be inserted into.
func NewEmptyPage(id tuple.PageID, td *tuple.TupleDescription) *Page {
	n := numSlotsFor(td.GetSize())
	p := &Page{
		id:       id,
		td:       td,
		numSlots: n,
		header:   make([]byte, headerBytes(n)),
		slots:    make([]*tuple.Tuple, n),
	}
	data, _ := p.GetPageData()
	p.beforeImage = data
	return p
}

// NewPage parses data (which must be exactly page.Size bytes) into a Page.
func NewPage(id tuple.PageID, td *tuple.TupleDescription, data []byte) (*Page, error) {
	if len(data) != page.Size {
		return nil, fmt.Errorf("heap page %s: expected %d bytes, got %d", id, page.Size, len(data))
	}
	tupleSize := td.GetSize()
	n := numSlotsFor(tupleSize)
	hb := headerBytes(n)

	p := &Page{
		id:       id,
		td:       td,
		numSlots: n,
		header:   append([]byte(nil), data[:hb]...),
		slots:    make([]*tuple.Tuple, n),
	}

	offset := hb
	for i := 0; i < n; i++ {
		slotBytes := data[offset : offset+tupleSize]
		if p.slotOccupied(i) {
			t, err := parseTupleSlot(td, slotBytes)
			if err != nil {
				return nil, fmt.Errorf("heap page %s slot %d: %w", id, i, err)
			}
			t.SetRecordID(tuple.NewRecordID(id, primitives.SlotID(i)))
			p.slots[i] = t
		}
		offset += tupleSize
	}

	p.beforeImage = append([]byte(nil), data...)
	return p, nil
}

func (p *Page) slotOccupied(i int) bool {
	byteIdx, bit := i/8, uint(i%8)
	return p.header[byteIdx]&(1<<bit) != 0
}

func (p *Page) setSlotOccupied(i int, occupied bool) {
	byteIdx, bit := i/8, uint(i%8)
	if occupied {
		p.header[byteIdx] |= 1 << bit
	} else {
		p.header[byteIdx] &^= 1 << bit
	}
}

func parseTupleSlot(td *tuple.TupleDescription, slotBytes []byte) (*tuple.Tuple, error) {
	r := bytes.NewReader(slotBytes)
	t := tuple.NewTuple(td)
	for i := 0; i < td.NumFields(); i++ {
		ft, err := td.TypeAtIndex(i)
		if err != nil {
			return nil, err
		}
		var f types.Field
		switch ft {
		case types.IntType:
			f, err = types.ParseIntField(r)
		case types.StringType:
			f, err = types.ParseStringField(r, td.StringMaxLen)
		default:
			return nil, fmt.Errorf("unsupported field type %s", ft)
		}
		if err != nil {
			return nil, err
		}
		if err := t.SetField(i, f); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// GetID returns the page's identity.
func (p *Page) GetID() tuple.PageID {
	return p.id
}

// NumSlots returns the page's fixed tuple capacity.
func (p *Page) NumSlots() int {
	return p.numSlots
}

// EmptySlotCount returns the number of unoccupied slots, ignoring any
// trailing header bits beyond numSlots.
func (p *Page) EmptySlotCount() int {
	count := 0
	for i := 0; i < p.numSlots; i++ {
		if !p.slotOccupied(i) {
			count++
		}
	}
	return count
}

// InsertTuple stores t in the lowest-index empty slot, failing if the page
// is full or t's schema does not match the page's schema.
func (p *Page) InsertTuple(t *tuple.Tuple) error {
	if !t.GetTupleDesc().Equals(p.td) {
		return dberrors.Newf(dberrors.DbException, "heap page %s: tuple schema does not match page schema", p.id)
	}
	for i := 0; i < p.numSlots; i++ {
		if !p.slotOccupied(i) {
			p.setSlotOccupied(i, true)
			p.slots[i] = t
			t.SetRecordID(tuple.NewRecordID(p.id, primitives.SlotID(i)))
			return nil
		}
	}
	return dberrors.Newf(dberrors.DbException, "heap page %s: no empty slot", p.id)
}

// DeleteTuple removes t, identified by its RecordID, from the page.
func (p *Page) DeleteTuple(t *tuple.Tuple) error {
	rid := t.GetRecordID()
	if rid == nil {
		return dberrors.Newf(dberrors.DbException, "heap page %s: tuple has no record id", p.id)
	}
	if !rid.PageID.Equals(p.id) {
		return dberrors.Newf(dberrors.DbException, "heap page %s: tuple belongs to page %s", p.id, rid.PageID)
	}
	slot := int(rid.SlotID)
	if slot < 0 || slot >= p.numSlots {
		return dberrors.Newf(dberrors.DbException, "heap page %s: slot %d out of range", p.id, slot)
	}
	if !p.slotOccupied(slot) {
		return dberrors.Newf(dberrors.DbException, "heap page %s: slot %d is already empty", p.id, slot)
	}
	if p.slots[slot] != t {
		return dberrors.Newf(dberrors.DbException, "heap page %s: slot %d holds a different tuple", p.id, slot)
	}
	p.setSlotOccupied(slot, false)
	p.slots[slot] = nil
	t.ClearRecordID()
	return nil
}

// Tuples returns the occupied tuples in ascending slot order.
func (p *Page) Tuples() []*tuple.Tuple {
	out := make([]*tuple.Tuple, 0, p.numSlots-p.EmptySlotCount())
	for i := 0; i < p.numSlots; i++ {
		if p.slotOccupied(i) {
			out = append(out, p.slots[i])
		}
	}
	return out
}

// GetPageData serializes the page: header, then each slot (occupied:
// concatenated field bytes; empty: td.GetSize() zero bytes), padded to
// page.Size.
func (p *Page) GetPageData() ([]byte, error) {
	buf := bytes.NewBuffer(make([]byte, 0, page.Size))
	buf.Write(p.header)

	tupleSize := p.td.GetSize()
	for i := 0; i < p.numSlots; i++ {
		if p.slotOccupied(i) {
			start := buf.Len()
			for f := 0; f < p.td.NumFields(); f++ {
				field, err := p.slots[i].GetField(f)
				if err != nil {
					return nil, err
				}
				if err := field.Serialize(buf); err != nil {
					return nil, err
				}
			}
			if buf.Len()-start != tupleSize {
				return nil, fmt.Errorf("heap page %s slot %d: serialized to %d bytes, want %d", p.id, i, buf.Len()-start, tupleSize)
			}
		} else {
			buf.Write(make([]byte, tupleSize))
		}
	}

	out := buf.Bytes()
	if len(out) > page.Size {
		return nil, fmt.Errorf("heap page %s: serialized size %d exceeds page size %d", p.id, len(out), page.Size)
	}
	padded := make([]byte, page.Size)
	copy(padded, out)
	return padded, nil
}

// IsDirty returns the transaction that last dirtied this cached copy.
func (p *Page) IsDirty() *transaction.ID {
	return p.dirtyBy
}

// MarkDirty records or clears the dirtying transaction.
func (p *Page) MarkDirty(dirty bool, tid *transaction.ID) {
	if dirty {
		p.dirtyBy = tid
	} else {
		p.dirtyBy = nil
	}
}

// GetBeforeImage returns a Page parsed from the last captured before-image
// bytes.
func (p *Page) GetBeforeImage() (page.Page, error) {
	return NewPage(p.id, p.td, p.beforeImage)
}

// SetBeforeImage captures the page's current bytes as its new before-image.
func (p *Page) SetBeforeImage() {
	data, err := p.GetPageData()
	if err != nil {
		return
	}
	p.beforeImage = data
}

var _ page.Page = (*Page)(nil)
