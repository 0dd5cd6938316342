/*
Package stabledb implements typed record storage inside a single growable,
byte-addressable memory that outlives the process (a memory-mapped file, a
Bolt-backed page store, or a blob the host saves and restores).

We implement:

1. Memories: HeapMemory, FileMemory and BoltMemory, all growing in 64 KiB
pages.

2. Regions, independently growable address spaces carved out of one memory
by the RegionManager.

3. Cells, single persisted values; the IDGenerator keeps its counter in one.

4. Ordered maps, uint64-keyed sorted collections of encoded records.

5. Kinds and repositories: a schema assigns every record kind its own region,
and a Repository provides create/read/update/delete on top of an ordered map
and the shared IDGenerator.

# Technical Details

**Regions.**
Region 0 holds the id counter; every kind gets a distinct region of its own.
Region numbers are part of the persisted layout and must never change without
a migration. Two kinds can never share a region; AddKind panics if asked to.

**Buckets.**
The physical memory is cut into buckets (128 pages by default) after a
one-page header. A region grows by taking the next free bucket, so regions
interleave in the physical memory but never overlap.

**Identifiers.**
A single counter serves all kinds, so an identifier is unique across the whole
database. Identifiers are consumed even if the create that drew them fails.

## Binary encoding

**Records**: MessagePack of the row struct, at most MaxRecordSize bytes
(1024 by default). Oversized records are rejected, never truncated.

**Counter**: 8 little-endian bytes.

**Execution model.**
A DB runs one call at a time and flushes the memory after each mutating call.
A panic inside a call means the memory is corrupted or cannot be written; the
DB then refuses further calls.
*/
package stabledb
