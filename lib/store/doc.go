// Package store provides the IStore interface, the key-value contract every backend of
// dDoc satisfies, together with a structured error type.
//
// IStore is deliberately small: plain and TTL writes, reads, deletes and two conditional
// writes (SetEIfUnset and CompareAndSwap). The document layer needs nothing else: the
// gateway builds its optimistic read-transform-write loop on CompareAndSwap, and the
// session lock manager keeps its leases with SetE / SetEIfUnset.
//
// Key Components:
//
//   - IStore Interface: shared by every backend so documents and locks can live on any of
//     them without code changes.
//
//   - Error System: Error carries a RetCode. RetCUnavailable and RetCInternalError are
//     reported as temporary, callers may retry them.
//
//   - DBFactory: injects the db.KVDB engine used by stores that run an engine themselves.
//
// Implementations:
//
//   - lstore: single process store on top of a db.KVDB engine, wall clock TTLs.
//   - dstore: raft replicated store built on Dragonboat.
//   - consulstore: Consul KV, compare-and-swap through ModifyIndex.
//   - redisstore: Redis, TTLs through PX and compare-and-swap through WATCH/MULTI.
//   - rpc/client: IStore over the dDoc wire protocol against a `serve` node.
package store
