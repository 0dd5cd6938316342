// Package mmap maps files into memory and flushes the mappings to disk.
package mmap

import (
	"errors"
	"fmt"
	"os"
)

// ErrUnsupported is returned on platforms without memory mapping support.
var ErrUnsupported = errors.New("mmap not supported on this platform")

type Options uint

const (
	// Writable maps the file for writing (otherwise, it's mapped read-only).
	Writable Options = 1 << 0

	// SequentialAccess is a hint requesting aggressive read-ahead.
	// Incompatible with RandomAccess. Maps to MADV_SEQUENTIAL on Unix.
	SequentialAccess Options = 1 << 1

	// RandomAccess is a hint that read ahead is less useful than normally.
	// Incompatible with SequentialAccess. Maps to MADV_RANDOM on Unix.
	RandomAccess Options = 1 << 2

	// Prefault is a hint requesting the entire file to be loaded in memory
	// for fastest access. Maps to MAP_POPULATE on Linux.
	Prefault Options = 1 << 3
)

func (o Options) Has(v Options) bool {
	return o&v != 0
}

// Map memory maps the first size bytes of the given file.
func Map(f *os.File, size int, opt Options) ([]byte, error) {
	if size <= 0 || size > MaxSize {
		return nil, fmt.Errorf("mmap: invalid size %d", size)
	}
	return mmap(f, size, opt)
}

// Unmap unmaps the given slice from memory. The slice must have been returned
// by Map or Remap.
func Unmap(b []byte) error {
	if b == nil {
		return nil
	}
	return munmap(b)
}

// Remap extends the file to size bytes and maps it again, unmapping the old
// mapping b (which may be nil). The contents of b must not be used afterwards.
func Remap(f *os.File, b []byte, size int, opt Options) ([]byte, error) {
	if err := Unmap(b); err != nil {
		return nil, fmt.Errorf("munmap: %w", err)
	}
	fi, err := f.Stat()
	if err != nil {
		return nil, err
	}
	if fi.Size() < int64(size) {
		if err := f.Truncate(int64(size)); err != nil {
			return nil, fmt.Errorf("truncate: %w", err)
		}
	}
	return Map(f, size, opt)
}
