package stabledb

import (
	"io"
)

func ensureCapacity(buf []byte, minCap int) []byte {
	c := cap(buf)
	if minCap > c {
		if c < 16 {
			c = 16
		}
		for minCap > c {
			c <<= 1
		}
		old := buf
		buf = make([]byte, len(old), c)
		copy(buf, old)
	}
	return buf
}

func grow(buf []byte, n int) (int, []byte) {
	off := len(buf)
	newLen := off + n
	buf = ensureCapacity(buf, newLen)
	return off, buf[:newLen]
}

func appendRaw(buf []byte, chunk []byte) []byte {
	n := len(chunk)
	off, buf := grow(buf, n)
	copy(buf[off:], chunk)
	return buf
}

type bytesBuilder struct {
	Buf []byte
}

var _ io.Writer = (*bytesBuilder)(nil)

func (bb *bytesBuilder) Write(b []byte) (int, error) {
	bb.Buf = appendRaw(bb.Buf, b)
	return len(b), nil
}

func (bb *bytesBuilder) WriteByte(v byte) error {
	var off int
	off, bb.Buf = grow(bb.Buf, 1)
	bb.Buf[off] = v
	return nil
}

// moveWithin copies n bytes from src to dst inside mem, handling overlapping
// ranges in either direction.
func moveWithin(mem Memory, dst, src, n uint64, scratch []byte) {
	if n == 0 || dst == src {
		return
	}
	chunk := uint64(len(scratch))
	if dst < src {
		for done := uint64(0); done < n; {
			c := min(chunk, n-done)
			mem.ReadAt(scratch[:c], src+done)
			mem.WriteAt(scratch[:c], dst+done)
			done += c
		}
	} else {
		for left := n; left > 0; {
			c := min(chunk, left)
			left -= c
			mem.ReadAt(scratch[:c], src+left)
			mem.WriteAt(scratch[:c], dst+left)
		}
	}
}

// ensureMemory grows mem so that it holds at least size bytes.
func ensureMemory(mem Memory, size uint64) error {
	have := mem.Size() * PageSize
	if size <= have {
		return nil
	}
	need := (size - have + PageSize - 1) / PageSize
	_, err := mem.Grow(need)
	return err
}
