package mmap

import (
	"os"
	"path/filepath"
	"testing"
)

func TestOptionsHas(t *testing.T) {
	var o Options = Writable | Prefault
	if !o.Has(Writable) || o.Has(SequentialAccess) {
		t.Fatalf("Options.Has returned unexpected results for %v", o)
	}
}

func TestMapAndUnmap(t *testing.T) {
	f := createFile(t, 4096)

	b, err := Map(f, 4096, Writable)
	if err != nil {
		t.Fatalf("Map: %v", err)
	}
	if len(b) != 4096 {
		t.Fatalf("len(mmap) = %d, wanted %d", len(b), 4096)
	}
	b[0] = 0x42
	if err := Fdatasync(f, b); err != nil {
		t.Fatalf("Fdatasync: %v", err)
	}
	if err := Unmap(b); err != nil {
		t.Fatalf("Unmap: %v", err)
	}

	var buf [1]byte
	if _, err := f.ReadAt(buf[:], 0); err != nil {
		t.Fatalf("ReadAt: %v", err)
	}
	if buf[0] != 0x42 {
		t.Fatalf("file byte 0 = %x, wanted 42", buf[0])
	}
}

func TestRemapPreservesContents(t *testing.T) {
	f := createFile(t, 4096)

	b, err := Map(f, 4096, Writable|RandomAccess)
	if err != nil {
		t.Fatalf("Map: %v", err)
	}
	b[100] = 0x11

	b, err = Remap(f, b, 3*4096, Writable|RandomAccess)
	if err != nil {
		t.Fatalf("Remap: %v", err)
	}
	defer Unmap(b)
	if len(b) != 3*4096 {
		t.Fatalf("len(remapped) = %d, wanted %d", len(b), 3*4096)
	}
	if b[100] != 0x11 {
		t.Fatalf("remapped byte 100 = %x, wanted 11", b[100])
	}
	if b[2*4096] != 0 {
		t.Fatalf("new area byte = %x, wanted 00", b[2*4096])
	}
	b[2*4096] = 0x22
}

func TestMap_RejectsInvalidSize(t *testing.T) {
	f := createFile(t, 4096)
	if _, err := Map(f, 0, Writable); err == nil {
		t.Fatalf("Map(size=0) succeeded, wanted error")
	}
}

func createFile(t testing.TB, size int64) *os.File {
	t.Helper()
	f := must(os.Create(filepath.Join(t.TempDir(), "mmap.bin")))
	t.Cleanup(func() { f.Close() })
	if err := f.Truncate(size); err != nil {
		t.Fatalf("Truncate: %v", err)
	}
	return f
}

func must[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}
