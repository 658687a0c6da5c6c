// Package maple implements an in-memory key-value database (KVDB) that satisfies the
// db.KVDB interface.
//
// Entries live in a single xsync.MapOf. The map shards its buckets internally, which keeps
// concurrent access to different keys contention free, and its Compute method is used for
// every conditional write (SetEIfUnset, CompareAndSwap) so that the check and the write
// happen atomically for a key.
//
// Time handling:
//
//   - The engine never reads the wall clock. Every operation receives `now` in unix
//     milliseconds and entries store an absolute DeleteAt computed as now+ttl.
//   - An entry is live while now < DeleteAt. Dead entries are invisible to Get, Has and to
//     the compare-and-swap precondition even before they are physically removed.
//   - GarbageCollect(now) removes dead entries. The caller decides when to run it
//     (lstore runs it on a ticker, the raft state machine only when a Collect command is
//     applied, with the timestamp of the proposer so all replicas keep identical state).
//
// Persistence:
//
// Save writes a fuzzy snapshot in a small binary format:
//
//	magic "MAPLEDB\x00" | version uint8 | count uint64 |
//	count × (keyLen uint32 | key | deleteAt int64 | updatedAt int64 | valueLen uint32 | value)
//
// Load replaces the current content with such a snapshot.
package maple
