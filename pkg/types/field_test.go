package types

import (
	"bytes"
	"testing"

	"storemy/pkg/primitives"
)

func TestIntFieldRoundTrip(t *testing.T) {
	f := NewIntField(-42)
	var buf bytes.Buffer
	if err := f.Serialize(&buf); err != nil {
		t.Fatalf("serialize: %v", err)
	}
	if buf.Len() != IntLength {
		t.Fatalf("expected %d bytes, got %d", IntLength, buf.Len())
	}
	got, err := ParseIntField(&buf)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !got.Equals(f) {
		t.Fatalf("round trip mismatch: got %v, want %v", got, f)
	}
}

func TestIntFieldCompare(t *testing.T) {
	a, b := NewIntField(3), NewIntField(5)
	cases := []struct {
		op   primitives.Predicate
		want bool
	}{
		{primitives.LessThan, true},
		{primitives.LessThanOrEqual, true},
		{primitives.GreaterThan, false},
		{primitives.Equals, false},
		{primitives.NotEqual, true},
	}
	for _, c := range cases {
		got, err := a.Compare(c.op, b)
		if err != nil {
			t.Fatalf("compare %s: %v", c.op, err)
		}
		if got != c.want {
			t.Errorf("3 %s 5: got %v, want %v", c.op, got, c.want)
		}
	}
}

func TestStringFieldRoundTrip(t *testing.T) {
	f := NewStringField("hi", 128)
	var buf bytes.Buffer
	if err := f.Serialize(&buf); err != nil {
		t.Fatalf("serialize: %v", err)
	}
	if buf.Len() != StringLengthPrefixBytes+128 {
		t.Fatalf("expected %d bytes, got %d", StringLengthPrefixBytes+128, buf.Len())
	}
	got, err := ParseStringField(&buf, 128)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got.Value != "hi" {
		t.Fatalf("round trip mismatch: got %q, want %q", got.Value, "hi")
	}
}

func TestStringFieldPaddingIsZeroFilled(t *testing.T) {
	f := NewStringField("ab", 8)
	var buf bytes.Buffer
	if err := f.Serialize(&buf); err != nil {
		t.Fatalf("serialize: %v", err)
	}
	raw := buf.Bytes()
	content := raw[StringLengthPrefixBytes:]
	for i := 2; i < len(content); i++ {
		if content[i] != 0 {
			t.Fatalf("expected zero padding at byte %d, got %d", i, content[i])
		}
	}
}

func TestTypeMismatchCompare(t *testing.T) {
	i := NewIntField(1)
	s := NewStringField("x", 8)
	if _, err := i.Compare(primitives.Equals, s); err == nil {
		t.Fatal("expected type mismatch error")
	}
}
