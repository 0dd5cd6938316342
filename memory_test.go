package stabledb

import (
	"bytes"
	"path/filepath"
	"testing"
)

func TestHeapMemory(t *testing.T) {
	mem := NewHeapMemory(3)
	if mem.Size() != 0 {
		t.Fatalf("Size = %d, wanted 0", mem.Size())
	}
	prev, err := mem.Grow(2)
	success(t, err)
	if prev != 0 || mem.Size() != 2 {
		t.Fatalf("Grow(2) = %d, size %d, wanted 0, size 2", prev, mem.Size())
	}

	mem.WriteAt([]byte("hello"), PageSize-2)
	buf := make([]byte, 5)
	mem.ReadAt(buf, PageSize-2)
	deepEqual(t, string(buf), "hello")

	_, err = mem.Grow(2)
	failsWith(t, err, ErrGrowFailed)
	if mem.Size() != 2 {
		t.Fatalf("Size after failed grow = %d, wanted 2", mem.Size())
	}

	expectPanic(t, func() { mem.ReadAt(buf, 2*PageSize-4) })
	expectPanic(t, func() { mem.WriteAt(buf, 2*PageSize) })
}

func TestHeapMemory_SnapshotRoundTrip(t *testing.T) {
	mem := NewHeapMemory(0)
	must(mem.Grow(1))
	mem.WriteAt([]byte{1, 2, 3}, 10)

	mem2 := must(LoadHeapMemory(mem.Snapshot(), 0))
	mem.WriteAt([]byte{9}, 10)

	buf := make([]byte, 3)
	mem2.ReadAt(buf, 10)
	deepEqual(t, buf, []byte{1, 2, 3})

	_, err := LoadHeapMemory(make([]byte, 100), 0)
	if err == nil {
		t.Fatalf("LoadHeapMemory(100 bytes) succeeded, wanted error")
	}
	_, err = LoadHeapMemory(make([]byte, 2*PageSize), 1)
	if err == nil {
		t.Fatalf("LoadHeapMemory over the limit succeeded, wanted error")
	}
}

func TestFileMemory_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mem.bin")

	mem := must(OpenFileMemory(path, FileOptions{}))
	must(mem.Grow(1))
	mem.WriteAt([]byte("first"), 100)
	must(mem.Grow(2))
	mem.WriteAt([]byte("second"), 2*PageSize+5)
	success(t, mem.Sync())
	success(t, mem.Close())

	mem = must(OpenFileMemory(path, FileOptions{MaxPages: 3}))
	defer mem.Close()
	if mem.Size() != 3 {
		t.Fatalf("Size = %d, wanted 3", mem.Size())
	}
	buf := make([]byte, 5)
	mem.ReadAt(buf, 100)
	deepEqual(t, string(buf), "first")
	buf = make([]byte, 6)
	mem.ReadAt(buf, 2*PageSize+5)
	deepEqual(t, string(buf), "second")

	_, err := mem.Grow(1)
	failsWith(t, err, ErrGrowFailed)
}

func TestBoltMemory_SyncAndReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mem.db")

	mem := must(OpenBoltMemory(path, BoltOptions{IsTesting: true}))
	must(mem.Grow(3))
	mem.WriteAt([]byte("synced"), 2*PageSize+1)
	mem.WriteAt([]byte("spans"), PageSize-2)
	if mem.DirtyPages() != 3 {
		t.Fatalf("DirtyPages = %d, wanted 3", mem.DirtyPages())
	}
	success(t, mem.Sync())
	if mem.DirtyPages() != 0 {
		t.Fatalf("DirtyPages after Sync = %d, wanted 0", mem.DirtyPages())
	}
	mem.WriteAt([]byte("lost"), 0)
	success(t, mem.Close())

	mem = must(OpenBoltMemory(path, BoltOptions{IsTesting: true}))
	defer mem.Close()
	if mem.Size() != 3 {
		t.Fatalf("Size = %d, wanted 3", mem.Size())
	}
	buf := make([]byte, 6)
	mem.ReadAt(buf, 2*PageSize+1)
	deepEqual(t, string(buf), "synced")
	buf = make([]byte, 5)
	mem.ReadAt(buf, PageSize-2)
	deepEqual(t, string(buf), "spans")
	buf = make([]byte, 4)
	mem.ReadAt(buf, 0)
	if !bytes.Equal(buf, make([]byte, 4)) {
		t.Fatalf("unsynced write survived reopen: %x", buf)
	}
}

func TestBoltMemory_GrowWithoutWrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mem.db")

	mem := must(OpenBoltMemory(path, BoltOptions{IsTesting: true, MaxPages: 4}))
	must(mem.Grow(4))
	success(t, mem.Sync())
	_, err := mem.Grow(1)
	failsWith(t, err, ErrGrowFailed)
	success(t, mem.Close())

	mem = must(OpenBoltMemory(path, BoltOptions{IsTesting: true}))
	defer mem.Close()
	if mem.Size() != 4 {
		t.Fatalf("Size = %d, wanted 4", mem.Size())
	}
	buf := make([]byte, 8)
	mem.ReadAt(buf, 3*PageSize)
	deepEqual(t, buf, make([]byte, 8))
}
