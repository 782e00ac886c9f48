package types

import (
	"encoding/binary"
	"fmt"
	"hash/fnv"
	"io"

	"storemy/pkg/primitives"
)

// DefaultMaxStringLen is the STRING content length used when a schema does
// not specify one explicitly.
const DefaultMaxStringLen = 128

// StringField is a bounded UTF-8/ASCII string value. MaxLen is fixed by the
// owning schema and determines the on-disk width of every STRING field in
// that schema, not just this one.
type StringField struct {
	Value  string
	MaxLen int
}

// NewStringField constructs a StringField, truncating value if it exceeds
// maxLen bytes.
func NewStringField(value string, maxLen int) *StringField {
	if len(value) > maxLen {
		value = value[:maxLen]
	}
	return &StringField{Value: value, MaxLen: maxLen}
}

func (f *StringField) GetType() Type {
	return StringType
}

func (f *StringField) Serialize(w io.Writer) error {
	content := []byte(f.Value)
	if len(content) > f.MaxLen {
		return fmt.Errorf("string field value length %d exceeds max %d", len(content), f.MaxLen)
	}
	var lenBuf [StringLengthPrefixBytes]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(content)))
	if _, err := w.Write(lenBuf[:]); err != nil {
		return err
	}
	padded := make([]byte, f.MaxLen)
	copy(padded, content)
	_, err := w.Write(padded)
	return err
}

// ParseStringField reads a length-prefixed, zero-padded STRING field of
// width maxLen from r.
func ParseStringField(r io.Reader, maxLen int) (*StringField, error) {
	var lenBuf [StringLengthPrefixBytes]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return nil, err
	}
	length := binary.BigEndian.Uint32(lenBuf[:])
	content := make([]byte, maxLen)
	if _, err := io.ReadFull(r, content); err != nil {
		return nil, err
	}
	if int(length) > maxLen {
		return nil, fmt.Errorf("string field declares length %d exceeding max %d", length, maxLen)
	}
	return &StringField{Value: string(content[:length]), MaxLen: maxLen}, nil
}

func (f *StringField) Compare(op primitives.Predicate, other Field) (bool, error) {
	o, ok := other.(*StringField)
	if !ok {
		return false, &ErrTypeMismatch{Left: StringType, Right: other.GetType()}
	}
	switch op {
	case primitives.Equals:
		return f.Value == o.Value, nil
	case primitives.NotEqual:
		return f.Value != o.Value, nil
	case primitives.LessThan:
		return f.Value < o.Value, nil
	case primitives.LessThanOrEqual:
		return f.Value <= o.Value, nil
	case primitives.GreaterThan:
		return f.Value > o.Value, nil
	case primitives.GreaterThanOrEqual:
		return f.Value >= o.Value, nil
	default:
		return false, fmt.Errorf("unsupported predicate %s for STRING", op)
	}
}

func (f *StringField) Equals(other Field) bool {
	o, ok := other.(*StringField)
	return ok && f.Value == o.Value
}

func (f *StringField) Hash() uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(f.Value))
	return h.Sum32()
}

func (f *StringField) String() string {
	return f.Value
}
