package stabledb

import (
	"encoding/json"
)

type Stats struct {
	PhysicalPages    uint64
	BucketPages      int
	AllocatedBuckets int
	NextID           uint64
	Regions          []RegionStats
	Kinds            []KindStats
	Reads            uint64
	Writes           uint64
}

type RegionStats struct {
	ID    RegionID
	Pages uint64
}

type KindStats struct {
	Name          string
	Region        RegionID
	MaxRecordSize int
	Records       int
}

// Stats describes the memory usage of the database. Only regions that have
// been allocated are listed.
func (db *DB) Stats() Stats {
	db.mu.Lock()
	defer db.mu.Unlock()

	st := Stats{
		PhysicalPages:    db.mem.Size(),
		BucketPages:      db.regions.BucketPages(),
		AllocatedBuckets: db.regions.AllocatedBuckets(),
		NextID:           db.ids.Peek(),
		Reads:            db.ReadCount.Load(),
		Writes:           db.WriteCount.Load(),
	}
	for id := range RegionID(MaxRegions) {
		if pages := db.regions.RegionSize(id); pages > 0 {
			st.Regions = append(st.Regions, RegionStats{ID: id, Pages: pages})
		}
	}
	for i, k := range db.schema.kinds {
		st.Kinds = append(st.Kinds, KindStats{
			Name:          k.Name(),
			Region:        k.Region(),
			MaxRecordSize: db.stores[i].MaxValueSize(),
			Records:       db.stores[i].Len(),
		})
	}
	return st
}

func loggableRow[Row, Payload any](k *Kind[Row, Payload], row *Row) string {
	if row == nil {
		return "<none>"
	}
	if k.suppressContent {
		return "<suppressed>"
	}
	return string(must(json.Marshal(row)))
}
