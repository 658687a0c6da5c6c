// Package db provides a standardized interface for key-value database implementations.
// The KVDB interface is the storage engine contract used by the local store
// (lib/store/lstore) and by the raft state machine (lib/store/dstore).
//
// Key Components:
//
//   - KVDB Interface: basic operations (Set, Get, Has, Delete), TTL aware writes (SetE),
//     conditional writes (SetEIfUnset, CompareAndSwap), garbage collection and
//     persistence (Save, Load).
//
//   - Feature Flags: implementations advertise their capabilities through
//     SupportsFeature so stores can reject unsupported operations with a clear error.
//
//   - Database Information: DatabaseInfo reports the key count, an estimated size and
//     the supported features.
//
// Note on Time:
//   - Every operation that depends on time takes `now` in unix milliseconds. Engines never
//     read the wall clock, the caller owns the clock. A store running on a single node passes
//     time.Now(), a replicated store passes the timestamp recorded in the log entry.
//   - TTLs are relative to `now` and are stored as an absolute deadline.
//   - Get, Has and CompareAndSwap must never observe an entry whose deadline has passed, even
//     if it was not yet removed by GarbageCollect.
//
// Conditional writes:
//   - CompareAndSwap(key, expected, value, ...) writes only when the live value equals
//     expected. A nil expected requires the key to be absent. This is the single-key
//     conditional update the document layer builds its optimistic update loop on.
//
// Related Packages:
//
// The engines/maple package provides the in-memory implementation. The testing package
// provides RunKVDBTests, a conformance suite every engine runs.
package db
