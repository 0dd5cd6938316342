package stabledb

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"reflect"
	"testing"
)

func init() {
	slog.SetLogLoggerLevel(slog.LevelDebug)
}

type (
	Note struct {
		ID    uint64 `msgpack:"id"`
		Title string `msgpack:"t"`
		Body  string `msgpack:"b"`
	}
	NotePayload struct {
		Title string
		Body  string
	}

	Tag struct {
		ID   uint64 `msgpack:"id"`
		Name string `msgpack:"n"`
	}
	TagPayload struct {
		Name string
	}
)

var (
	basicSchema = NewSchema()
	notesKind   = AddKind(basicSchema, "Notes", 1, func(id uint64, p *NotePayload) *Note {
		return &Note{ID: id, Title: p.Title, Body: p.Body}
	}, MaxRecordSize(128))
	tagsKind = AddKind(basicSchema, "Tags", 2, func(id uint64, p *TagPayload) *Tag {
		return &Tag{ID: id, Name: p.Name}
	}, SuppressContentWhenLogging)
)

func setup(t testing.TB, schema *Schema) (*DB, *HeapMemory) {
	t.Helper()
	mem := NewHeapMemory(0)
	return openHeap(t, mem, schema, nil), mem
}

func openHeap(t testing.TB, mem *HeapMemory, schema *Schema, logs *bytes.Buffer) *DB {
	t.Helper()
	var w io.Writer = io.Discard
	if logs != nil {
		w = logs
	}
	db, err := Open(mem, schema, Options{
		Logger:      slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug})),
		Verbose:     logs != nil,
		BucketPages: 1,
	})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// restart simulates the host saving the memory and starting a new process.
func restart(t testing.TB, mem *HeapMemory, schema *Schema) (*DB, *HeapMemory) {
	t.Helper()
	mem2 := must(LoadHeapMemory(mem.Snapshot(), 0))
	return openHeap(t, mem2, schema, nil), mem2
}

func ensure(err error) {
	if err != nil {
		panic(err)
	}
}

func deepEqual[T any](t testing.TB, a, e T) {
	if !reflect.DeepEqual(a, e) {
		t.Helper()
		t.Errorf("** got %v, wanted %v", a, e)
	}
}

func success(t testing.TB, err error) {
	if err != nil {
		t.Helper()
		t.Fatalf("** unexpected error: %v", err)
	}
}

func failsWith(t testing.TB, err error, target error) {
	if !errors.Is(err, target) {
		t.Helper()
		t.Fatalf("** got error %v, wanted %v", err, target)
	}
}

func expectPanic(t testing.TB, f func()) {
	t.Helper()
	defer func() {
		if recover() == nil {
			t.Helper()
			t.Errorf("** expected panic")
		}
	}()
	f()
}
