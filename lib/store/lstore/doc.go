// Package lstore implements a local, in-memory, single-node key-value store based on the
// store.IStore interface. It is a thin wrapper around any db.KVDB implementation that
// supplies the wall clock to the engine and periodically collects expired entries.
//
// Implementation Details:
//
//   - Clock: every operation passes the current unix milliseconds to the engine. Tests can
//     replace the clock through Options.Clock to drive TTLs deterministically.
//
//   - Garbage Collection: when Options.GCInterval is positive a background goroutine calls
//     GarbageCollect on the engine. Expired entries are invisible immediately, the collector
//     only reclaims memory.
//
//   - Feature Detection: before executing operations, the store checks if the underlying
//     db.KVDB implementation supports the requested feature. Unsupported operations return
//     RetCUnsupportedOperation.
//
// Usage Example:
//
//	s := lstore.NewLocalStore(func() db.KVDB { return maple.NewMapleDB(nil) }, lstore.DefaultOptions())
//	defer s.Close()
//
//	_ = s.SetE("session:123", []byte("holder"), 10*time.Minute)
//	value, exists, err := s.Get("session:123")
//
// The local store backs tests of the document layer and the shards of a `serve` node that
// does not need replication.
package lstore
