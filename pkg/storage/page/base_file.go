package page

import (
	"fmt"
	"io"
	"os"
	"sync"
)

// BaseFile is a thread-safe fixed-page-size file, shared by every concrete
// DbFile implementation. Reads and writes are offset-addressed so concurrent
// callers never need to serialize on a shared file cursor.
type BaseFile struct {
	mu   sync.RWMutex
	file *os.File
	path string
}

// OpenBaseFile opens (creating if necessary) the file at path.
func OpenBaseFile(path string) (*BaseFile, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, fmt.Errorf("open base file %q: %w", path, err)
	}
	return &BaseFile{file: f, path: path}, nil
}

// FilePath returns the path this file was opened from.
func (b *BaseFile) FilePath() string {
	return b.path
}

// NumPages returns the number of pages currently stored, counting a partial
// trailing page as a whole one.
func (b *BaseFile) NumPages() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	info, err := b.file.Stat()
	if err != nil {
		return 0
	}
	return int((info.Size() + Size - 1) / Size)
}

// ReadPageData reads exactly Size bytes starting at pageNum*Size. A short
// read (including hitting EOF before filling the buffer) is an error: every
// page slot that num_pages() reports must be a full page on disk.
func (b *BaseFile) ReadPageData(pageNum int) ([]byte, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	buf := make([]byte, Size)
	off := int64(pageNum) * Size
	if _, err := b.file.ReadAt(buf, off); err != nil {
		if err == io.EOF {
			return nil, fmt.Errorf("read page %d of %q: unexpected short read: %w", pageNum, b.path, err)
		}
		return nil, fmt.Errorf("read page %d of %q: %w", pageNum, b.path, err)
	}
	return buf, nil
}

// WritePageData writes exactly len(data) bytes (must equal Size) at
// pageNum*Size.
func (b *BaseFile) WritePageData(pageNum int, data []byte) error {
	if len(data) != Size {
		return fmt.Errorf("write page %d: expected %d bytes, got %d", pageNum, Size, len(data))
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	off := int64(pageNum) * Size
	if _, err := b.file.WriteAt(data, off); err != nil {
		return fmt.Errorf("write page %d of %q: %w", pageNum, b.path, err)
	}
	return nil
}

// AllocateNewPage appends a page's worth of zero bytes to the file and
// returns the new page's index.
func (b *BaseFile) AllocateNewPage(blank []byte) (int, error) {
	if len(blank) != Size {
		return 0, fmt.Errorf("allocate page: expected %d zero bytes, got %d", Size, len(blank))
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	info, err := b.file.Stat()
	if err != nil {
		return 0, fmt.Errorf("allocate page: stat %q: %w", b.path, err)
	}
	pageNum := int(info.Size() / Size)
	off := int64(pageNum) * Size
	if _, err := b.file.WriteAt(blank, off); err != nil {
		return 0, fmt.Errorf("allocate page: write %q: %w", b.path, err)
	}
	return pageNum, nil
}

// Close releases the underlying OS file handle.
func (b *BaseFile) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.file.Close()
}
