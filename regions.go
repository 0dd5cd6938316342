package stabledb

import (
	"encoding/binary"
	"fmt"

	"github.com/cespare/xxhash/v2"
)

// RegionID identifies a region. Valid handles are 0..MaxRegions-1.
type RegionID uint8

const (
	MaxRegions         = 255
	DefaultBucketPages = 128

	maxBuckets        = 32768
	unallocatedBucket = 0xFF
	headerPages       = 1

	rmMagic   = "RGM"
	rmVersion = 1

	rmOffMagic       = 0
	rmOffVersion     = 3
	rmOffBuckets     = 4
	rmOffBucketPages = 6
	rmOffChecksum    = 8
	rmOffRegionSizes = 32
	rmOffOwners      = rmOffRegionSizes + MaxRegions*8
	rmHeaderSize     = rmOffOwners + maxBuckets
)

// ErrRegionsExhausted is returned when every bucket of the physical memory is
// already owned by some region.
var ErrRegionsExhausted = fmt.Errorf("%w: all %d region buckets are allocated", ErrGrowFailed, maxBuckets)

// RegionManager splits a single Memory into independently growable regions.
//
// Page 0 of the physical memory holds the manager header; the rest is cut
// into buckets of a fixed number of pages. Buckets are handed to regions on
// demand and never returned. A region's address space is the concatenation of
// its buckets in allocation order, so the handle-to-bytes mapping is stable
// for as long as the physical memory is.
//
// Header layout:
//
//	magic:"RGM" version:8 buckets:16 bucketPages:16 checksum:64 pad
//	regionSizes:64*255 (pages)
//	bucketOwners:8*32768 (region id, 0xFF = free)
//
// The checksum is xxhash64 of the header with the checksum field zeroed.
type RegionManager struct {
	mem         Memory
	header      []byte
	bucketPages uint64
	allocated   uint64
	sizes       [MaxRegions]uint64
	buckets     [MaxRegions][]uint16
	views       map[RegionID]*VirtualMemory
}

// NewRegionManager initializes a manager over an empty memory, or loads the
// existing layout of a non-empty one. bucketPages only applies to a fresh
// memory (0 selects DefaultBucketPages); a loaded memory keeps the bucket size
// it was created with.
func NewRegionManager(mem Memory, bucketPages int) (*RegionManager, error) {
	m := &RegionManager{
		mem:    mem,
		header: make([]byte, rmHeaderSize),
		views:  make(map[RegionID]*VirtualMemory),
	}
	if mem.Size() == 0 {
		if bucketPages == 0 {
			bucketPages = DefaultBucketPages
		}
		if bucketPages < 0 || bucketPages > 0xFFFF {
			return nil, fmt.Errorf("invalid bucket size of %d pages", bucketPages)
		}
		if _, err := mem.Grow(headerPages); err != nil {
			return nil, fmt.Errorf("region manager: allocating header: %w", err)
		}
		m.bucketPages = uint64(bucketPages)
		copy(m.header[rmOffMagic:], rmMagic)
		m.header[rmOffVersion] = rmVersion
		binary.LittleEndian.PutUint16(m.header[rmOffBucketPages:], uint16(bucketPages))
		for i := range maxBuckets {
			m.header[rmOffOwners+i] = unallocatedBucket
		}
		m.saveHeader()
		return m, nil
	}

	mem.ReadAt(m.header, 0)
	if err := m.parseHeader(); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *RegionManager) parseHeader() error {
	h := m.header
	if string(h[rmOffMagic:rmOffMagic+3]) != rmMagic {
		return dataErrf(h[:rmOffRegionSizes], rmOffMagic, nil, "region manager: bad magic")
	}
	if h[rmOffVersion] != rmVersion {
		return dataErrf(h[:rmOffRegionSizes], rmOffVersion, nil, "region manager: unsupported layout version %d", h[rmOffVersion])
	}
	stored := binary.LittleEndian.Uint64(h[rmOffChecksum:])
	if actual := m.checksum(); actual != stored {
		return dataErrf(h[:rmOffRegionSizes], rmOffChecksum, nil, "region manager: header checksum %016x, expected %016x", actual, stored)
	}

	m.allocated = uint64(binary.LittleEndian.Uint16(h[rmOffBuckets:]))
	m.bucketPages = uint64(binary.LittleEndian.Uint16(h[rmOffBucketPages:]))
	if m.bucketPages == 0 || m.allocated > maxBuckets {
		return dataErrf(h[:rmOffRegionSizes], rmOffBuckets, nil, "region manager: invalid bucket geometry")
	}
	if need := headerPages + m.allocated*m.bucketPages; m.mem.Size() < need {
		return fmt.Errorf("region manager: memory has %d pages, layout needs %d", m.mem.Size(), need)
	}

	for b := range uint64(maxBuckets) {
		owner := h[rmOffOwners+b]
		if b >= m.allocated {
			if owner != unallocatedBucket {
				return dataErrf(nil, int(rmOffOwners+b), nil, "region manager: bucket %d is beyond the allocated %d but owned by region %d", b, m.allocated, owner)
			}
			continue
		}
		if owner == unallocatedBucket {
			return dataErrf(nil, int(rmOffOwners+b), nil, "region manager: allocated bucket %d has no owner", b)
		}
		m.buckets[owner] = append(m.buckets[owner], uint16(b))
	}
	for id := range m.sizes {
		size := binary.LittleEndian.Uint64(h[rmOffRegionSizes+id*8:])
		if size > uint64(len(m.buckets[id]))*m.bucketPages {
			return dataErrf(nil, rmOffRegionSizes+id*8, nil, "region manager: region %d claims %d pages but owns %d buckets", id, size, len(m.buckets[id]))
		}
		m.sizes[id] = size
	}
	return nil
}

func (m *RegionManager) checksum() uint64 {
	var saved [8]byte
	copy(saved[:], m.header[rmOffChecksum:])
	clear(m.header[rmOffChecksum : rmOffChecksum+8])
	sum := xxhash.Sum64(m.header)
	copy(m.header[rmOffChecksum:], saved[:])
	return sum
}

func (m *RegionManager) saveHeader() {
	binary.LittleEndian.PutUint16(m.header[rmOffBuckets:], uint16(m.allocated))
	binary.LittleEndian.PutUint64(m.header[rmOffChecksum:], m.checksum())
	m.mem.WriteAt(m.header, 0)
}

// Region returns the view of the given region. The same handle always yields
// the same view.
func (m *RegionManager) Region(id RegionID) *VirtualMemory {
	if id >= MaxRegions {
		panic(fmt.Errorf("invalid region id %d", id))
	}
	vm := m.views[id]
	if vm == nil {
		vm = &VirtualMemory{m: m, id: id}
		m.views[id] = vm
	}
	return vm
}

// RegionSize returns the size of the given region in pages.
func (m *RegionManager) RegionSize(id RegionID) uint64 {
	if id >= MaxRegions {
		return 0
	}
	return m.sizes[id]
}

// BucketPages returns the bucket size in pages.
func (m *RegionManager) BucketPages() int {
	return int(m.bucketPages)
}

// AllocatedBuckets returns the number of buckets owned by any region.
func (m *RegionManager) AllocatedBuckets() int {
	return int(m.allocated)
}

func (m *RegionManager) grow(id RegionID, pages uint64) (uint64, error) {
	prev := m.sizes[id]
	if pages == 0 {
		return prev, nil
	}
	newSize := prev + pages
	have := uint64(len(m.buckets[id]))
	need := (newSize + m.bucketPages - 1) / m.bucketPages
	if need > have {
		extra := need - have
		if m.allocated+extra > maxBuckets {
			return prev, ErrRegionsExhausted
		}
		physNeed := headerPages + (m.allocated+extra)*m.bucketPages
		if cur := m.mem.Size(); cur < physNeed {
			if _, err := m.mem.Grow(physNeed - cur); err != nil {
				return prev, err
			}
		}
		for range extra {
			b := m.allocated
			m.allocated++
			m.buckets[id] = append(m.buckets[id], uint16(b))
			m.header[rmOffOwners+b] = byte(id)
		}
	}
	m.sizes[id] = newSize
	binary.LittleEndian.PutUint64(m.header[rmOffRegionSizes+int(id)*8:], newSize)
	m.saveHeader()
	return prev, nil
}

func (m *RegionManager) access(id RegionID, p []byte, off uint64, write bool) {
	size := m.sizes[id] * PageSize
	end := off + uint64(len(p))
	if end < off || end > size {
		panic(fmt.Errorf("region %d: access out of bounds: off=%d len=%d size=%d", id, off, len(p), size))
	}
	bucketBytes := m.bucketPages * PageSize
	for len(p) > 0 {
		inner := off % bucketBytes
		n := min(uint64(len(p)), bucketBytes-inner)
		bucket := uint64(m.buckets[id][off/bucketBytes])
		phys := (headerPages+bucket*m.bucketPages)*PageSize + inner
		if write {
			m.mem.WriteAt(p[:n], phys)
		} else {
			m.mem.ReadAt(p[:n], phys)
		}
		p = p[n:]
		off += n
	}
}

// VirtualMemory is a Memory view of a single region.
type VirtualMemory struct {
	m  *RegionManager
	id RegionID
}

var _ Memory = (*VirtualMemory)(nil)

func (vm *VirtualMemory) ID() RegionID {
	return vm.id
}

func (vm *VirtualMemory) Size() uint64 {
	return vm.m.sizes[vm.id]
}

func (vm *VirtualMemory) Grow(pages uint64) (uint64, error) {
	return vm.m.grow(vm.id, pages)
}

func (vm *VirtualMemory) ReadAt(p []byte, off uint64) {
	vm.m.access(vm.id, p, off, false)
}

func (vm *VirtualMemory) WriteAt(p []byte, off uint64) {
	vm.m.access(vm.id, p, off, true)
}

func (vm *VirtualMemory) String() string {
	return fmt.Sprintf("region#%d", vm.id)
}
