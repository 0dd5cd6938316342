package stabledb

import "fmt"

// IDGenerator issues strictly increasing identifiers, starting from 0, backed
// by a persisted counter. Issued identifiers are never reused, including
// across restarts.
type IDGenerator struct {
	next *Cell[uint64]
}

func NewIDGenerator(mem Memory) (*IDGenerator, error) {
	cell, err := NewCell(mem, uint64(0), Uint64LE{})
	if err != nil {
		return nil, fmt.Errorf("id generator: %w", err)
	}
	return &IDGenerator{cell}, nil
}

// Next returns a fresh identifier after durably recording that it was issued.
func (g *IDGenerator) Next() (uint64, error) {
	v := g.next.Get()
	if err := g.next.Set(v + 1); err != nil {
		return 0, fmt.Errorf("issuing id %d: %w", v, err)
	}
	return v, nil
}

// Peek returns the identifier the next call to Next will return.
func (g *IDGenerator) Peek() uint64 {
	return g.next.Get()
}
