package stabledb

import (
	"fmt"
	"os"

	"github.com/andreyvit/stabledb/mmap"
)

type FileOptions struct {
	// MaxPages limits growth; 0 means unlimited.
	MaxPages uint64

	// Prefault loads the whole file into memory when mapping it.
	Prefault bool
}

// FileMemory is a Memory backed by a memory-mapped file. The file is remapped
// on every Grow, and Sync flushes the mapping to disk.
type FileMemory struct {
	f        *os.File
	data     []byte
	mopt     mmap.Options
	maxPages uint64
}

var (
	_ Memory = (*FileMemory)(nil)
	_ Syncer = (*FileMemory)(nil)
)

func OpenFileMemory(path string, opt FileOptions) (*FileMemory, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0666)
	if err != nil {
		return nil, fmt.Errorf("stabledb: %w", err)
	}
	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stabledb: %w", err)
	}
	size := fi.Size()
	if size%PageSize != 0 {
		f.Close()
		return nil, fmt.Errorf("stabledb: %s: size %d is not a multiple of page size", path, size)
	}

	m := &FileMemory{
		f:        f,
		mopt:     mmap.Writable | mmap.RandomAccess,
		maxPages: opt.MaxPages,
	}
	if opt.Prefault {
		m.mopt |= mmap.Prefault
	}
	if size > 0 {
		m.data, err = mmap.Map(f, int(size), m.mopt)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("stabledb: mmap %s: %w", path, err)
		}
	}
	return m, nil
}

func (m *FileMemory) Size() uint64 {
	return uint64(len(m.data)) / PageSize
}

func (m *FileMemory) Grow(pages uint64) (uint64, error) {
	prev := m.Size()
	if pages == 0 {
		return prev, nil
	}
	if m.maxPages != 0 && prev+pages > m.maxPages {
		return prev, growErrf("file memory limited to %d pages, have %d, wanted %d more", m.maxPages, prev, pages)
	}
	newSize := (prev + pages) * PageSize
	if newSize > mmap.MaxSize {
		return prev, growErrf("%d bytes exceed the largest supported mapping", newSize)
	}

	data, err := mmap.Remap(m.f, m.data, int(newSize), m.mopt)
	if err != nil {
		m.data = nil
		if prev > 0 {
			// the old mapping is gone; restore it at the old size or give up
			m.data = must(mmap.Map(m.f, int(prev*PageSize), m.mopt))
		}
		return prev, growErrf("%v", err)
	}
	m.data = data
	return prev, nil
}

func (m *FileMemory) ReadAt(p []byte, off uint64) {
	checkBounds(m, off, len(p))
	copy(p, m.data[off:])
}

func (m *FileMemory) WriteAt(p []byte, off uint64) {
	checkBounds(m, off, len(p))
	copy(m.data[off:], p)
}

func (m *FileMemory) Sync() error {
	if m.data == nil {
		return nil
	}
	return mmap.Fdatasync(m.f, m.data)
}

func (m *FileMemory) Close() error {
	err := mmap.Unmap(m.data)
	m.data = nil
	if cerr := m.f.Close(); err == nil {
		err = cerr
	}
	return err
}
