package stabledb

import (
	"encoding/binary"
	"fmt"
	"slices"
	"time"

	"go.etcd.io/bbolt"
)

var (
	boltMetaBucket  = []byte("meta")
	boltPagesBucket = []byte("pages")
	boltSizeKey     = []byte("size")
)

type BoltOptions struct {
	// MaxPages limits growth; 0 means unlimited.
	MaxPages uint64

	// IsTesting trades durability for speed.
	IsTesting bool

	// MmapSize overrides Bolt's initial mmap size.
	MmapSize int
}

// BoltMemory is a Memory whose pages are persisted in a Bolt database.
//
// The whole memory is held in RAM. Writes mark pages dirty, and Sync stores
// the memory size and all dirty pages in a single Bolt transaction, so the
// durable image only ever moves from one synced state to the next. Pages that
// were never written are not stored and read back as zeros.
type BoltMemory struct {
	bdb       *bbolt.DB
	buf       []byte
	dirty     map[uint64]struct{}
	sizeDirty bool
	maxPages  uint64
}

var (
	_ Memory = (*BoltMemory)(nil)
	_ Syncer = (*BoltMemory)(nil)
)

func OpenBoltMemory(path string, opt BoltOptions) (*BoltMemory, error) {
	bopt := *bbolt.DefaultOptions
	bopt.Timeout = 10 * time.Second
	if opt.IsTesting {
		bopt.NoSync = true
		bopt.NoFreelistSync = true
		bopt.InitialMmapSize = 1024 * 1024 * 5
	} else {
		bopt.FreelistType = bbolt.FreelistMapType
	}
	if opt.MmapSize != 0 {
		bopt.InitialMmapSize = opt.MmapSize
	}

	bdb, err := bbolt.Open(path, 0666, &bopt)
	if err != nil {
		return nil, fmt.Errorf("stabledb: %w", err)
	}

	m := &BoltMemory{
		bdb:      bdb,
		dirty:    make(map[uint64]struct{}),
		maxPages: opt.MaxPages,
	}
	err = bdb.Update(m.load)
	if err != nil {
		bdb.Close()
		return nil, fmt.Errorf("stabledb: loading %s: %w", path, err)
	}
	return m, nil
}

func (m *BoltMemory) load(btx *bbolt.Tx) error {
	meta, err := btx.CreateBucketIfNotExists(boltMetaBucket)
	if err != nil {
		return err
	}
	pages, err := btx.CreateBucketIfNotExists(boltPagesBucket)
	if err != nil {
		return err
	}

	var size uint64
	if raw := meta.Get(boltSizeKey); raw != nil {
		if len(raw) != 8 {
			return dataErrf(raw, 0, nil, "invalid memory size record")
		}
		size = binary.BigEndian.Uint64(raw)
	}
	m.buf = make([]byte, size*PageSize)

	return pages.ForEach(func(k, v []byte) error {
		if len(k) != 8 {
			return dataErrf(k, 0, nil, "invalid page key")
		}
		page := binary.BigEndian.Uint64(k)
		if page >= size {
			return dataErrf(k, 0, nil, "page %d is beyond memory size of %d pages", page, size)
		}
		if len(v) != PageSize {
			return dataErrf(k, 0, nil, "page %d has %d bytes", page, len(v))
		}
		copy(m.buf[page*PageSize:], v)
		return nil
	})
}

// Bolt returns the underlying database.
func (m *BoltMemory) Bolt() *bbolt.DB {
	return m.bdb
}

func (m *BoltMemory) Size() uint64 {
	return uint64(len(m.buf)) / PageSize
}

func (m *BoltMemory) Grow(pages uint64) (uint64, error) {
	prev := m.Size()
	if pages == 0 {
		return prev, nil
	}
	if m.maxPages != 0 && prev+pages > m.maxPages {
		return prev, growErrf("bolt memory limited to %d pages, have %d, wanted %d more", m.maxPages, prev, pages)
	}
	m.buf = append(m.buf, make([]byte, pages*PageSize)...)
	m.sizeDirty = true
	return prev, nil
}

func (m *BoltMemory) ReadAt(p []byte, off uint64) {
	checkBounds(m, off, len(p))
	copy(p, m.buf[off:])
}

func (m *BoltMemory) WriteAt(p []byte, off uint64) {
	checkBounds(m, off, len(p))
	if len(p) == 0 {
		return
	}
	copy(m.buf[off:], p)
	last := (off + uint64(len(p)) - 1) / PageSize
	for page := off / PageSize; page <= last; page++ {
		m.dirty[page] = struct{}{}
	}
}

// DirtyPages returns the number of pages modified since the last Sync.
func (m *BoltMemory) DirtyPages() int {
	return len(m.dirty)
}

func (m *BoltMemory) Sync() error {
	if len(m.dirty) == 0 && !m.sizeDirty {
		return nil
	}
	pageNums := make([]uint64, 0, len(m.dirty))
	for page := range m.dirty {
		pageNums = append(pageNums, page)
	}
	slices.Sort(pageNums)

	err := m.bdb.Update(func(btx *bbolt.Tx) error {
		var sizeRaw [8]byte
		binary.BigEndian.PutUint64(sizeRaw[:], m.Size())
		if err := btx.Bucket(boltMetaBucket).Put(boltSizeKey, sizeRaw[:]); err != nil {
			return err
		}
		pages := btx.Bucket(boltPagesBucket)
		for _, page := range pageNums {
			var k [8]byte
			binary.BigEndian.PutUint64(k[:], page)
			if err := pages.Put(k[:], m.buf[page*PageSize:(page+1)*PageSize]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("stabledb: syncing %d pages: %w", len(pageNums), err)
	}
	clear(m.dirty)
	m.sizeDirty = false
	return nil
}

// Close closes the database. Changes made since the last Sync are lost.
func (m *BoltMemory) Close() error {
	return m.bdb.Close()
}
