package page

import (
	"bytes"
	"path/filepath"
	"testing"
)

func TestAllocateNewPageReturnsSequentialIndices(t *testing.T) {
	f, err := OpenBaseFile(filepath.Join(t.TempDir(), "t.dat"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()

	blank := make([]byte, Size)
	first, err := f.AllocateNewPage(blank)
	if err != nil {
		t.Fatalf("allocate: %v", err)
	}
	second, err := f.AllocateNewPage(blank)
	if err != nil {
		t.Fatalf("allocate: %v", err)
	}
	if first != 0 || second != 1 {
		t.Fatalf("expected indices 0, 1, got %d, %d", first, second)
	}
	if f.NumPages() != 2 {
		t.Fatalf("expected 2 pages, got %d", f.NumPages())
	}
}

func TestWriteThenReadPageDataRoundTrips(t *testing.T) {
	f, err := OpenBaseFile(filepath.Join(t.TempDir(), "t.dat"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()

	blank := make([]byte, Size)
	if _, err := f.AllocateNewPage(blank); err != nil {
		t.Fatalf("allocate: %v", err)
	}

	payload := bytes.Repeat([]byte{0xAB}, Size)
	if err := f.WritePageData(0, payload); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, err := f.ReadPageData(0)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatal("read data did not match written data")
	}
}

func TestReadPageDataPastEOFFails(t *testing.T) {
	f, err := OpenBaseFile(filepath.Join(t.TempDir(), "t.dat"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()
	if _, err := f.ReadPageData(0); err == nil {
		t.Fatal("expected reading past EOF to fail")
	}
}
