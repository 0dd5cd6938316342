package stabledb

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
)

type Options struct {
	// Logger defaults to slog.Default().
	Logger *slog.Logger

	// Verbose logs every mutation at debug level.
	Verbose bool

	// BucketPages sets the region bucket size when initializing an empty
	// memory. Ignored for existing memories.
	BucketPages int
}

// DB ties a Memory, its RegionManager, the identifier counter and one
// OrderedMap per schema kind together.
//
// Calls are executed one at a time. After every mutating call, a Memory that
// implements Syncer is flushed. If a call panics (a corrupted or unwritable
// memory), the DB logs the failure and rejects all further calls with
// ErrDBFailed, since the in-memory state can no longer be trusted.
type DB struct {
	mem     Memory
	schema  *Schema
	regions *RegionManager
	ids     *IDGenerator
	stores  []store
	logger  *slog.Logger
	verbose bool

	mu     sync.Mutex
	failed error
	closed bool

	ReadCount  atomic.Uint64
	WriteCount atomic.Uint64
}

func Open(mem Memory, schema *Schema, opt Options) (*DB, error) {
	if opt.Logger == nil {
		opt.Logger = slog.Default()
	}
	fresh := mem.Size() == 0

	regions, err := NewRegionManager(mem, opt.BucketPages)
	if err != nil {
		return nil, fmt.Errorf("stabledb: %w", err)
	}
	if !fresh && opt.BucketPages != 0 && opt.BucketPages != regions.BucketPages() {
		opt.Logger.Warn("stabledb: ignoring bucket size option for existing memory", "requested", opt.BucketPages, "actual", regions.BucketPages())
	}

	ids, err := NewIDGenerator(regions.Region(CounterRegion))
	if err != nil {
		return nil, fmt.Errorf("stabledb: %w", err)
	}

	schema.frozen = true
	db := &DB{
		mem:     mem,
		schema:  schema,
		regions: regions,
		ids:     ids,
		stores:  make([]store, len(schema.kinds)),
		logger:  opt.Logger,
		verbose: opt.Verbose,
	}
	for i, k := range schema.kinds {
		db.stores[i], err = k.openStore(regions.Region(k.Region()))
		if err != nil {
			return nil, fmt.Errorf("stabledb: %w", err)
		}
	}
	if err := db.sync(); err != nil {
		return nil, err
	}

	db.logger.Info("stabledb: opened", "fresh", fresh, "pages", mem.Size(), "kinds", len(schema.kinds), "next_id", ids.Peek())
	return db, nil
}

func (db *DB) Schema() *Schema {
	return db.schema
}

// Regions returns the region manager. Regions used by the schema must not be
// modified through it.
func (db *DB) Regions() *RegionManager {
	return db.regions
}

// NextID returns the identifier the next created record will receive.
func (db *DB) NextID() uint64 {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.ids.Peek()
}

func (db *DB) read(f func() error) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if err := db.usable(); err != nil {
		return err
	}
	db.ReadCount.Add(1)
	return db.fail(safelyCall(f))
}

func (db *DB) write(f func() error) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if err := db.usable(); err != nil {
		return err
	}
	db.WriteCount.Add(1)
	err := db.fail(safelyCall(f))
	if db.failed != nil {
		return err
	}
	if serr := db.sync(); serr != nil {
		db.failed = serr
		db.logger.Error("stabledb: sync failed", "err", serr)
		return serr
	}
	return err
}

func (db *DB) usable() error {
	if db.closed {
		return fmt.Errorf("stabledb: closed")
	}
	if db.failed != nil {
		return fmt.Errorf("%w: %v", ErrDBFailed, db.failed)
	}
	return nil
}

func (db *DB) fail(err error) error {
	var p panicked
	if errors.As(err, &p) {
		db.failed = err
		db.logger.Error("stabledb: call failed", "err", p.reason, "stack", p.stack)
	}
	return err
}

func (db *DB) sync() error {
	if s, ok := db.mem.(Syncer); ok {
		if err := s.Sync(); err != nil {
			return fmt.Errorf("stabledb: sync: %w", err)
		}
	}
	return nil
}

func (db *DB) isVerboseLoggingEnabled() bool {
	return db.verbose
}

// Close flushes the memory and closes it if it implements io.Closer.
func (db *DB) Close() error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.closed {
		return nil
	}
	db.closed = true
	var err error
	if db.failed == nil {
		err = db.sync()
	}
	if c, ok := db.mem.(io.Closer); ok {
		if cerr := c.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
