package stabledb

import (
	"errors"
	"fmt"
)

// PageSize is the unit in which memories grow.
const PageSize = 65536

// ErrGrowFailed is returned by Memory.Grow when the memory cannot be extended.
var ErrGrowFailed = errors.New("memory cannot grow")

// Memory is a growable, byte-addressable store measured in pages.
//
// Reads and writes outside of Size()*PageSize bytes are programming errors
// and panic.
type Memory interface {
	// Size returns the current size in pages.
	Size() uint64

	// Grow extends the memory by the given number of zero-filled pages and
	// returns the previous size in pages.
	Grow(pages uint64) (prev uint64, err error)

	// ReadAt fills p with the bytes starting at off.
	ReadAt(p []byte, off uint64)

	// WriteAt copies p into the memory starting at off.
	WriteAt(p []byte, off uint64)
}

// Syncer is implemented by memories that can durably flush their contents.
type Syncer interface {
	Sync() error
}

func checkBounds(m Memory, off uint64, n int) {
	size := m.Size() * PageSize
	end := off + uint64(n)
	if end < off || end > size {
		panic(fmt.Errorf("memory access out of bounds: off=%d len=%d size=%d", off, n, size))
	}
}

func growErrf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrGrowFailed, fmt.Sprintf(format, args...))
}

// HeapMemory is a volatile Memory backed by a Go byte slice.
//
// Snapshot and LoadHeapMemory let a host persist the whole memory as an
// opaque blob and restore it on the next start.
type HeapMemory struct {
	buf      []byte
	maxPages uint64
}

// NewHeapMemory returns an empty heap memory. maxPages == 0 means unlimited.
func NewHeapMemory(maxPages uint64) *HeapMemory {
	return &HeapMemory{maxPages: maxPages}
}

// LoadHeapMemory returns a heap memory holding a copy of blob, which must
// be a whole number of pages (as returned by Snapshot).
func LoadHeapMemory(blob []byte, maxPages uint64) (*HeapMemory, error) {
	if len(blob)%PageSize != 0 {
		return nil, fmt.Errorf("heap memory blob: %d bytes is not a multiple of page size", len(blob))
	}
	if maxPages != 0 && uint64(len(blob)/PageSize) > maxPages {
		return nil, fmt.Errorf("heap memory blob: %d pages exceed the limit of %d", len(blob)/PageSize, maxPages)
	}
	return &HeapMemory{
		buf:      append([]byte(nil), blob...),
		maxPages: maxPages,
	}, nil
}

func (m *HeapMemory) Size() uint64 {
	return uint64(len(m.buf)) / PageSize
}

func (m *HeapMemory) Grow(pages uint64) (uint64, error) {
	prev := m.Size()
	if pages == 0 {
		return prev, nil
	}
	if m.maxPages != 0 && prev+pages > m.maxPages {
		return prev, growErrf("heap memory limited to %d pages, have %d, wanted %d more", m.maxPages, prev, pages)
	}
	m.buf = append(m.buf, make([]byte, pages*PageSize)...)
	return prev, nil
}

func (m *HeapMemory) ReadAt(p []byte, off uint64) {
	checkBounds(m, off, len(p))
	copy(p, m.buf[off:])
}

func (m *HeapMemory) WriteAt(p []byte, off uint64) {
	checkBounds(m, off, len(p))
	copy(m.buf[off:], p)
}

// Snapshot returns a copy of the whole memory.
func (m *HeapMemory) Snapshot() []byte {
	return append([]byte(nil), m.buf...)
}
