package stabledb

import (
	"fmt"
	"strings"
)

// CounterRegion holds the identifier counter. Record kinds use the other
// regions, one each.
const CounterRegion RegionID = 0

// Schema lists the record kinds of a database and the regions they live in.
// Region assignments are part of the persisted layout and must never be
// renumbered without migrating the data. Kinds must all be added before the
// schema is passed to Open.
type Schema struct {
	kinds            []kindImpl
	kindsByLowerName map[string]kindImpl
	kindsByRegion    map[RegionID]kindImpl
	frozen           bool
}

func NewSchema() *Schema {
	scm := &Schema{}
	scm.init()
	return scm
}

func (scm *Schema) init() {
	if scm.kindsByLowerName == nil {
		scm.kindsByLowerName = make(map[string]kindImpl)
		scm.kindsByRegion = make(map[RegionID]kindImpl)
	}
}

// KindNamed returns the kind with the given case-insensitive name, or nil.
func (scm *Schema) KindNamed(name string) KindInfo {
	k := scm.kindsByLowerName[strings.ToLower(name)]
	if k == nil {
		return nil
	}
	return k
}

// Kinds returns the kinds in definition order.
func (scm *Schema) Kinds() []KindInfo {
	result := make([]KindInfo, len(scm.kinds))
	for i, k := range scm.kinds {
		result[i] = k
	}
	return result
}

func (scm *Schema) addKind(k kindImpl) int {
	scm.init()
	if scm.frozen {
		panic(fmt.Errorf("kind %s: schema already used to open a database", k.Name()))
	}
	if k.Region() == CounterRegion {
		panic(fmt.Errorf("kind %s: region %d is reserved for the id counter", k.Name(), CounterRegion))
	}
	if k.Region() >= MaxRegions {
		panic(fmt.Errorf("kind %s: invalid region %d", k.Name(), k.Region()))
	}
	if other := scm.kindsByRegion[k.Region()]; other != nil {
		panic(fmt.Errorf("kind %s: region %d is already used by kind %s", k.Name(), k.Region(), other.Name()))
	}
	lower := strings.ToLower(k.Name())
	if scm.kindsByLowerName[lower] != nil {
		panic(fmt.Errorf("duplicate kind %s", k.Name()))
	}
	scm.kindsByLowerName[lower] = k
	scm.kindsByRegion[k.Region()] = k
	scm.kinds = append(scm.kinds, k)
	return len(scm.kinds) - 1
}

// KindInfo describes a record kind independently of its Go types.
type KindInfo interface {
	Name() string
	Region() RegionID
	MaxRecordSize() int
}

type kindImpl interface {
	KindInfo
	openStore(mem Memory) (store, error)
}

// store is the type-erased view of a kind's OrderedMap.
type store interface {
	Len() int
	MaxValueSize() int
}

// MaxRecordSize overrides DefaultMaxRecordSize for a kind.
type MaxRecordSize int

type kindOpt int

const (
	// SuppressContentWhenLogging keeps record contents out of verbose logs.
	SuppressContentWhenLogging = kindOpt(1)
)

// Kind is a record type stored in its own region, keyed by an identifier from
// the database's IDGenerator.
type Kind[Row, Payload any] struct {
	schema          *Schema
	name            string
	region          RegionID
	pos             int
	maxSize         int
	build           func(id uint64, p *Payload) *Row
	codec           Codec[Row]
	suppressContent bool
}

// AddKind defines a record kind stored in the given region.
//
// build constructs a complete record from an identifier and a payload. It is
// used both to create records and to replace all mutable fields on update,
// so it must copy the identifier into the record and take every other field
// from the payload.
//
// Options: MaxRecordSize(n), SuppressContentWhenLogging.
//
// AddKind panics if the region is the counter region or is already taken by
// another kind, since two stores sharing a region corrupt each other. It also
// panics once the schema has been used to open a database.
func AddKind[Row, Payload any](scm *Schema, name string, region RegionID, build func(id uint64, p *Payload) *Row, opts ...any) *Kind[Row, Payload] {
	if build == nil {
		panic(fmt.Errorf("kind %s: nil build func", name))
	}
	k := &Kind[Row, Payload]{
		schema:  scm,
		name:    name,
		region:  region,
		maxSize: DefaultMaxRecordSize,
		build:   build,
		codec:   MsgPack[Row]{},
	}
	for _, opt := range opts {
		switch opt := opt.(type) {
		case MaxRecordSize:
			if opt <= 0 {
				panic(fmt.Errorf("kind %s: invalid max record size %d", name, opt))
			}
			k.maxSize = int(opt)
		case kindOpt:
			if opt == SuppressContentWhenLogging {
				k.suppressContent = true
			}
		default:
			panic(fmt.Errorf("kind %s: invalid option %T %v", name, opt, opt))
		}
	}
	k.pos = scm.addKind(k)
	return k
}

func (k *Kind[Row, Payload]) Name() string {
	return k.name
}

func (k *Kind[Row, Payload]) Region() RegionID {
	return k.region
}

func (k *Kind[Row, Payload]) MaxRecordSize() int {
	return k.maxSize
}

func (k *Kind[Row, Payload]) String() string {
	return k.name
}

func (k *Kind[Row, Payload]) openStore(mem Memory) (store, error) {
	om, err := NewOrderedMap(mem, k.maxSize, k.codec)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", k.name, err)
	}
	return om, nil
}
