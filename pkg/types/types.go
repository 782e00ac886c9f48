// Package types implements the closed set of primitive field types the
// storage engine supports: fixed-width signed integers and bounded byte
// strings.
package types

// Type identifies the wire/storage representation of a Field.
type Type int

const (
	IntType Type = iota
	StringType
)

func (t Type) String() string {
	switch t {
	case IntType:
		return "INT"
	case StringType:
		return "STRING"
	default:
		return "UNKNOWN"
	}
}

// Length returns the fixed on-disk byte length for a field of this type.
// STRING's length depends on the schema's configured maximum string length,
// which the caller passes as maxStringLen; it is ignored for INT.
func (t Type) Length(maxStringLen int) int {
	switch t {
	case IntType:
		return IntLength
	case StringType:
		return StringLengthPrefixBytes + maxStringLen
	default:
		return 0
	}
}

const (
	// IntLength is the on-disk size of an INT field: a 4-byte big-endian
	// signed integer.
	IntLength = 4
	// StringLengthPrefixBytes is the size of the length prefix preceding a
	// STRING field's content bytes.
	StringLengthPrefixBytes = 4
)
