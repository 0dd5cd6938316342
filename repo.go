package stabledb

import (
	"fmt"
)

// Repository provides create/read/update/delete for one record kind.
//
// Every record moves between two states, absent and present. Create makes a
// fresh identifier present; Update and Delete of an absent identifier report
// *NotFoundError and change nothing.
type Repository[Row, Payload any] struct {
	db    *DB
	kind  *Kind[Row, Payload]
	store *OrderedMap[Row]
}

// Repo returns the repository of the given kind. The kind must belong to the
// schema the DB was opened with.
func Repo[Row, Payload any](db *DB, kind *Kind[Row, Payload]) *Repository[Row, Payload] {
	if kind.schema != db.schema {
		panic(fmt.Errorf("kind %s is not part of this database's schema", kind.name))
	}
	return &Repository[Row, Payload]{
		db:    db,
		kind:  kind,
		store: db.stores[kind.pos].(*OrderedMap[Row]),
	}
}

func (r *Repository[Row, Payload]) Kind() *Kind[Row, Payload] {
	return r.kind
}

// Create stores a new record built from p under a fresh identifier.
//
// If the record exceeds the kind's maximum size, Create returns
// *RecordTooLargeError; the identifier it drew is not reused.
func (r *Repository[Row, Payload]) Create(p *Payload) (*Row, error) {
	var row *Row
	err := r.db.write(func() error {
		id, err := r.db.ids.Next()
		if err != nil {
			return fmt.Errorf("%s: %w", r.kind.name, err)
		}
		row = r.kind.build(id, p)
		_, replaced, err := r.store.Insert(id, *row)
		if err != nil {
			return fmt.Errorf("%s: %w", r.kind.name, err)
		}
		if replaced {
			panic(fmt.Errorf("%s: fresh id %d already had a record", r.kind.name, id))
		}
		if r.db.isVerboseLoggingEnabled() {
			r.db.logger.Debug("stabledb: CREATE", "kind", r.kind.name, "id", id, "row", loggableRow(r.kind, row))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return row, nil
}

// Read returns the record stored under id.
func (r *Repository[Row, Payload]) Read(id uint64) (*Row, error) {
	var row *Row
	err := r.db.read(func() error {
		v, found := r.store.Get(id)
		if !found {
			return &NotFoundError{Kind: r.kind.name, ID: id}
		}
		row = &v
		return nil
	})
	if err != nil {
		return nil, err
	}
	return row, nil
}

// Update replaces every field of the record stored under id with the fields
// of p, keeping the identifier.
func (r *Repository[Row, Payload]) Update(id uint64, p *Payload) (*Row, error) {
	var row *Row
	err := r.db.write(func() error {
		if _, found := r.store.Get(id); !found {
			if r.db.isVerboseLoggingEnabled() {
				r.db.logger.Debug("stabledb: UPDATE.NOOP", "kind", r.kind.name, "id", id)
			}
			return &NotFoundError{Kind: r.kind.name, ID: id, Op: "update"}
		}
		row = r.kind.build(id, p)
		if _, _, err := r.store.Insert(id, *row); err != nil {
			return fmt.Errorf("%s: %w", r.kind.name, err)
		}
		if r.db.isVerboseLoggingEnabled() {
			r.db.logger.Debug("stabledb: UPDATE", "kind", r.kind.name, "id", id, "row", loggableRow(r.kind, row))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return row, nil
}

// Delete removes the record stored under id and returns it.
func (r *Repository[Row, Payload]) Delete(id uint64) (*Row, error) {
	var row *Row
	err := r.db.write(func() error {
		v, found := r.store.Remove(id)
		if !found {
			if r.db.isVerboseLoggingEnabled() {
				r.db.logger.Debug("stabledb: DELETE.NOOP", "kind", r.kind.name, "id", id)
			}
			return &NotFoundError{Kind: r.kind.name, ID: id, Op: "delete"}
		}
		row = &v
		if r.db.isVerboseLoggingEnabled() {
			r.db.logger.Debug("stabledb: DELETE", "kind", r.kind.name, "id", id)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return row, nil
}

// List returns all records in ascending identifier order.
func (r *Repository[Row, Payload]) List() ([]*Row, error) {
	var rows []*Row
	err := r.db.read(func() error {
		rows = make([]*Row, 0, r.store.Len())
		for _, v := range r.store.All() {
			rows = append(rows, &v)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// Count returns the number of records.
func (r *Repository[Row, Payload]) Count() int {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	return r.store.Len()
}
