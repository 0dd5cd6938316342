package stabledb

import (
	"encoding/binary"
	"fmt"
	"iter"
	"math"
)

// DefaultMaxRecordSize is the declared maximum encoded size of a record.
const DefaultMaxRecordSize = 1024

const (
	omMagic        = "OMP"
	omVersion      = 1
	omOffMaxSize   = 4
	omOffCount     = 8
	omHeaderSize   = 32
	omSlotOverhead = 12
	omScratchSize  = 64 * 1024
)

// OrderedMap is a persisted map from uint64 keys to values, kept sorted by key.
//
// Layout: a header (magic:"OMP" version:8 maxSize:32 count:64 pad) followed by
// count fixed-size slots in ascending key order, each holding
// key:64be len:32 value:maxSize. Lookups binary-search the slots; insertions
// and removals shift the slots after the affected position, so appending keys
// in increasing order never moves existing data.
//
// Values are encoded with a Codec and must fit into maxSize bytes.
type OrderedMap[V any] struct {
	mem      Memory
	codec    Codec[V]
	maxSize  uint32
	slotSize uint64
	count    uint64

	encBuf  []byte
	slotBuf []byte
	scratch []byte
}

// NewOrderedMap opens the map stored in mem, or initializes an empty one.
// Reopening a map with a different maxValueSize fails, because the slot
// layout depends on it.
func NewOrderedMap[V any](mem Memory, maxValueSize int, codec Codec[V]) (*OrderedMap[V], error) {
	if maxValueSize <= 0 || uint64(maxValueSize) > math.MaxUint32 {
		return nil, fmt.Errorf("invalid max value size %d", maxValueSize)
	}
	om := &OrderedMap[V]{
		mem:      mem,
		codec:    codec,
		maxSize:  uint32(maxValueSize),
		slotSize: omSlotOverhead + uint64(maxValueSize),
	}

	var header [omHeaderSize]byte
	if mem.Size() == 0 {
		if err := ensureMemory(mem, omHeaderSize); err != nil {
			return nil, fmt.Errorf("ordered map: %w", err)
		}
		copy(header[:], omMagic)
		header[3] = omVersion
		binary.LittleEndian.PutUint32(header[omOffMaxSize:], om.maxSize)
		mem.WriteAt(header[:], 0)
		return om, nil
	}

	mem.ReadAt(header[:], 0)
	if string(header[:3]) != omMagic {
		return nil, dataErrf(header[:], 0, nil, "ordered map: bad magic")
	}
	if header[3] != omVersion {
		return nil, dataErrf(header[:], 3, nil, "ordered map: unsupported version %d", header[3])
	}
	if stored := binary.LittleEndian.Uint32(header[omOffMaxSize:]); stored != om.maxSize {
		return nil, fmt.Errorf("ordered map: created with max value size %d, opened with %d; the data needs a migration", stored, om.maxSize)
	}
	om.count = binary.LittleEndian.Uint64(header[omOffCount:])
	if om.slotOff(om.count) > mem.Size()*PageSize {
		return nil, dataErrf(header[:], omOffCount, nil, "ordered map: %d entries do not fit into %d pages", om.count, mem.Size())
	}
	return om, nil
}

// Len returns the number of entries.
func (om *OrderedMap[V]) Len() int {
	return int(om.count)
}

// MaxValueSize returns the declared maximum encoded value size.
func (om *OrderedMap[V]) MaxValueSize() int {
	return int(om.maxSize)
}

// Get returns the value stored under key.
func (om *OrderedMap[V]) Get(key uint64) (V, bool) {
	i, found := om.search(key)
	if !found {
		var zero V
		return zero, false
	}
	return om.valueAt(i), true
}

// Insert stores v under key, returning the value it replaced, if any.
// A value whose encoding exceeds MaxValueSize is rejected with
// *RecordTooLargeError and nothing is written.
func (om *OrderedMap[V]) Insert(key uint64, v V) (prev V, replaced bool, err error) {
	data, err := om.codec.Encode(om.encBuf[:0], &v)
	if err != nil {
		return prev, false, err
	}
	om.encBuf = data
	if len(data) > int(om.maxSize) {
		return prev, false, &RecordTooLargeError{Key: key, Size: len(data), Max: int(om.maxSize)}
	}

	i, found := om.search(key)
	if found {
		prev, replaced = om.valueAt(i), true
	} else {
		if err := ensureMemory(om.mem, om.slotOff(om.count+1)); err != nil {
			return prev, false, err
		}
		if i < om.count {
			moveWithin(om.mem, om.slotOff(i+1), om.slotOff(i), (om.count-i)*om.slotSize, om.scratchBuf())
		}
	}
	om.writeSlot(i, key, data)
	if !found {
		om.setCount(om.count + 1)
	}
	return prev, replaced, nil
}

// Remove deletes the entry stored under key, returning its value.
func (om *OrderedMap[V]) Remove(key uint64) (prev V, removed bool) {
	i, found := om.search(key)
	if !found {
		return prev, false
	}
	prev = om.valueAt(i)
	last := om.count - 1
	if i < last {
		moveWithin(om.mem, om.slotOff(i), om.slotOff(i+1), (last-i)*om.slotSize, om.scratchBuf())
	}
	om.mem.WriteAt(make([]byte, om.slotSize), om.slotOff(last))
	om.setCount(last)
	return prev, true
}

// All iterates over the entries in ascending key order. The map must not be
// modified during iteration.
func (om *OrderedMap[V]) All() iter.Seq2[uint64, V] {
	return func(yield func(uint64, V) bool) {
		for i := uint64(0); i < om.count; i++ {
			if !yield(om.keyAt(i), om.valueAt(i)) {
				return
			}
		}
	}
}

// Keys iterates over the keys in ascending order.
func (om *OrderedMap[V]) Keys() iter.Seq[uint64] {
	return func(yield func(uint64) bool) {
		for i := uint64(0); i < om.count; i++ {
			if !yield(om.keyAt(i)) {
				return
			}
		}
	}
}

func (om *OrderedMap[V]) slotOff(i uint64) uint64 {
	return omHeaderSize + i*om.slotSize
}

func (om *OrderedMap[V]) keyAt(i uint64) uint64 {
	var raw [8]byte
	om.mem.ReadAt(raw[:], om.slotOff(i))
	return binary.BigEndian.Uint64(raw[:])
}

func (om *OrderedMap[V]) search(key uint64) (uint64, bool) {
	lo, hi := uint64(0), om.count
	for lo < hi {
		mid := lo + (hi-lo)/2
		if om.keyAt(mid) < key {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo, lo < om.count && om.keyAt(lo) == key
}

func (om *OrderedMap[V]) valueAt(i uint64) V {
	off := om.slotOff(i)
	var raw [4]byte
	om.mem.ReadAt(raw[:], off+8)
	n := binary.LittleEndian.Uint32(raw[:])
	if n > om.maxSize {
		panic(dataErrf(raw[:], 0, nil, "ordered map: slot %d has length %d over the maximum of %d", i, n, om.maxSize))
	}
	data := make([]byte, n)
	om.mem.ReadAt(data, off+omSlotOverhead)

	var v V
	if err := om.codec.Decode(data, &v); err != nil {
		panic(fmt.Errorf("ordered map: slot %d: %w", i, err))
	}
	return v
}

func (om *OrderedMap[V]) writeSlot(i uint64, key uint64, data []byte) {
	buf := om.slotBuf[:0]
	buf = binary.BigEndian.AppendUint64(buf, key)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(data)))
	buf = append(buf, data...)
	om.slotBuf = buf
	om.mem.WriteAt(buf, om.slotOff(i))
}

func (om *OrderedMap[V]) setCount(n uint64) {
	var raw [8]byte
	binary.LittleEndian.PutUint64(raw[:], n)
	om.mem.WriteAt(raw[:], omOffCount)
	om.count = n
}

func (om *OrderedMap[V]) scratchBuf() []byte {
	if om.scratch == nil {
		om.scratch = make([]byte, omScratchSize)
	}
	return om.scratch
}
