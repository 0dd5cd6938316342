package stabledb

import (
	"encoding/binary"
	"fmt"
)

const (
	cellMagic      = "CEL"
	cellVersion    = 1
	cellHeaderSize = 8
)

// Cell is a single persisted value stored in its own memory.
//
// Layout: magic:"CEL" version:8 len:32 value:len
type Cell[T any] struct {
	mem   Memory
	codec Codec[T]
	value T
	buf   []byte
}

// NewCell loads the value stored in mem, or initializes an empty mem with def.
func NewCell[T any](mem Memory, def T, codec Codec[T]) (*Cell[T], error) {
	c := &Cell[T]{
		mem:   mem,
		codec: codec,
	}
	if mem.Size() == 0 {
		if err := c.Set(def); err != nil {
			return nil, err
		}
		return c, nil
	}

	var header [cellHeaderSize]byte
	mem.ReadAt(header[:], 0)
	if string(header[:3]) != cellMagic {
		return nil, dataErrf(header[:], 0, nil, "cell: bad magic")
	}
	if header[3] != cellVersion {
		return nil, dataErrf(header[:], 3, nil, "cell: unsupported version %d", header[3])
	}
	n := uint64(binary.LittleEndian.Uint32(header[4:]))
	if cellHeaderSize+n > mem.Size()*PageSize {
		return nil, dataErrf(header[:], 4, nil, "cell: value length %d exceeds memory", n)
	}
	data := make([]byte, n)
	mem.ReadAt(data, cellHeaderSize)
	if err := codec.Decode(data, &c.value); err != nil {
		return nil, fmt.Errorf("cell: %w", err)
	}
	return c, nil
}

// Get returns the last value passed to Set, or the default if Set was never
// called on this memory.
func (c *Cell[T]) Get() T {
	return c.value
}

// Set persists v. On error, the stored value is left unchanged.
func (c *Cell[T]) Set(v T) error {
	buf := c.buf[:0]
	buf = append(buf, cellMagic...)
	buf = append(buf, cellVersion, 0, 0, 0, 0)
	buf, err := c.codec.Encode(buf, &v)
	if err != nil {
		return &CellError{Size: len(buf) - cellHeaderSize, Err: err}
	}
	n := len(buf) - cellHeaderSize
	if uint64(n) > 0xFFFFFFFF {
		return &CellError{Size: n, Err: fmt.Errorf("value exceeds 4 GiB")}
	}
	binary.LittleEndian.PutUint32(buf[4:], uint32(n))
	if err := ensureMemory(c.mem, uint64(len(buf))); err != nil {
		return &CellError{Size: n, Err: err}
	}
	c.mem.WriteAt(buf, 0)
	c.value = v
	c.buf = buf
	return nil
}
