package tuple

import (
	"fmt"

	"storemy/pkg/types"
)

// Tuple is a row value: a schema plus a field slice of matching length, plus
// an optional physical location assigned once the tuple is stored.
type Tuple struct {
	desc     *TupleDescription
	fields   []types.Field
	recordID *RecordID
}

// NewTuple creates an empty tuple conforming to desc; all fields are
// initially unset (nil) and must be populated via SetField before the
// tuple is serialized.
func NewTuple(desc *TupleDescription) *Tuple {
	return &Tuple{
		desc:   desc,
		fields: make([]types.Field, desc.NumFields()),
	}
}

// GetTupleDesc returns the tuple's schema.
func (t *Tuple) GetTupleDesc() *TupleDescription {
	return t.desc
}

// SetField sets the field at index i. It fails if i is out of range or the
// field's type does not match the schema.
func (t *Tuple) SetField(i int, f types.Field) error {
	if i < 0 || i >= len(t.fields) {
		return fmt.Errorf("field index %d out of range [0, %d)", i, len(t.fields))
	}
	want, err := t.desc.TypeAtIndex(i)
	if err != nil {
		return err
	}
	if f.GetType() != want {
		return fmt.Errorf("field %d type mismatch: schema wants %s, got %s", i, want, f.GetType())
	}
	t.fields[i] = f
	return nil
}

// GetField returns the field at index i.
func (t *Tuple) GetField(i int) (types.Field, error) {
	if i < 0 || i >= len(t.fields) {
		return nil, fmt.Errorf("field index %d out of range [0, %d)", i, len(t.fields))
	}
	return t.fields[i], nil
}

// GetRecordID returns the tuple's physical location, or nil if it has not
// been stored.
func (t *Tuple) GetRecordID() *RecordID {
	return t.recordID
}

// SetRecordID assigns the tuple's physical location.
func (t *Tuple) SetRecordID(rid RecordID) {
	t.recordID = &rid
}

// ClearRecordID removes the tuple's physical location, e.g. after a delete.
func (t *Tuple) ClearRecordID() {
	t.recordID = nil
}

// ResetSchema swaps the tuple's schema, discarding all field values.
func (t *Tuple) ResetSchema(desc *TupleDescription) {
	t.desc = desc
	t.fields = make([]types.Field, desc.NumFields())
	t.recordID = nil
}

func (t *Tuple) String() string {
	s := ""
	for i, f := range t.fields {
		if i > 0 {
			s += "\t"
		}
		if f == nil {
			s += "<nil>"
		} else {
			s += f.String()
		}
	}
	return s
}
