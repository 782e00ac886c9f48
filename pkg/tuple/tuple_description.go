package tuple

import (
	"fmt"

	"storemy/pkg/types"
)

// TupleDescription is the ordered schema of a row: a sequence of (type,
// optional field name) pairs. It is immutable after construction.
type TupleDescription struct {
	Types []types.Type
	Names []string
	// StringMaxLen is the fixed content width used for every STRING field
	// in this schema. It has no effect on INT fields.
	StringMaxLen int
}

// NewTupleDescription builds a schema from parallel type/name slices. names
// may be shorter than types or contain empty strings for unnamed fields;
// missing entries are treated as unnamed. At least one field is required.
func NewTupleDescription(fieldTypes []types.Type, names []string, stringMaxLen int) (*TupleDescription, error) {
	if len(fieldTypes) == 0 {
		return nil, fmt.Errorf("tuple description requires at least one field")
	}
	padded := make([]string, len(fieldTypes))
	copy(padded, names)
	if stringMaxLen <= 0 {
		stringMaxLen = types.DefaultMaxStringLen
	}
	return &TupleDescription{
		Types:        append([]types.Type(nil), fieldTypes...),
		Names:        padded,
		StringMaxLen: stringMaxLen,
	}, nil
}

// NumFields returns the number of fields in the schema.
func (td *TupleDescription) NumFields() int {
	return len(td.Types)
}

// TypeAtIndex returns the type of the field at i.
func (td *TupleDescription) TypeAtIndex(i int) (types.Type, error) {
	if i < 0 || i >= len(td.Types) {
		return 0, fmt.Errorf("field index %d out of range [0, %d)", i, len(td.Types))
	}
	return td.Types[i], nil
}

// GetFieldName returns the name of the field at i, which may be empty.
func (td *TupleDescription) GetFieldName(i int) (string, error) {
	if i < 0 || i >= len(td.Names) {
		return "", fmt.Errorf("field index %d out of range [0, %d)", i, len(td.Names))
	}
	return td.Names[i], nil
}

// FieldLength returns the on-disk byte width of the field at i.
func (td *TupleDescription) FieldLength(i int) (int, error) {
	t, err := td.TypeAtIndex(i)
	if err != nil {
		return 0, err
	}
	return t.Length(td.StringMaxLen), nil
}

// GetSize returns the total on-disk byte width of a tuple with this schema.
func (td *TupleDescription) GetSize() int {
	size := 0
	for _, t := range td.Types {
		size += t.Length(td.StringMaxLen)
	}
	return size
}

// FieldNameToIndex returns the index of the field named name. Matching uses
// value equality, not the reference equality of the original Java
// implementation. An empty or absent name never matches, even against an
// unnamed field, since both are represented as "".
func (td *TupleDescription) FieldNameToIndex(name string) (int, error) {
	if name == "" {
		return 0, fmt.Errorf("no field named %q", name)
	}
	for i, n := range td.Names {
		if n == name {
			return i, nil
		}
	}
	return 0, fmt.Errorf("no field named %q", name)
}

// Equals reports schema equality: same length, pairwise equal types. Field
// names are ignored.
func (td *TupleDescription) Equals(other *TupleDescription) bool {
	if other == nil || len(td.Types) != len(other.Types) {
		return false
	}
	for i, t := range td.Types {
		if t != other.Types[i] {
			return false
		}
	}
	return true
}

// Merge concatenates two schemas, preserving field order: all of a's fields
// followed by all of b's fields. The merged schema's StringMaxLen is taken
// from a if a has any STRING field, else from b.
func Merge(a, b *TupleDescription) (*TupleDescription, error) {
	mergedTypes := append(append([]types.Type(nil), a.Types...), b.Types...)
	mergedNames := append(append([]string(nil), a.Names...), b.Names...)
	maxLen := b.StringMaxLen
	for _, t := range a.Types {
		if t == types.StringType {
			maxLen = a.StringMaxLen
			break
		}
	}
	return NewTupleDescription(mergedTypes, mergedNames, maxLen)
}

func (td *TupleDescription) String() string {
	s := ""
	for i, t := range td.Types {
		if i > 0 {
			s += ", "
		}
		s += fmt.Sprintf("%s(%s)", t, td.Names[i])
	}
	return s
}
