// Package rpc provides the remote procedure call layer of the document store. It lets
// documents and lock managers in client processes use store shards hosted by a server.
//
// The package is organized into several subpackages:
//
//   - common: Core data structures and utilities used across the RPC system,
//     including the Message protocol, configuration structures, and logging.
//
//   - transport: Network communication abstractions, implemented over HTTP.
//
//   - serializer: Message serialization (Binary, JSON) for converting between
//     Message objects and byte arrays.
//
//   - client: RPC client implementing store.IStore, so a remote shard can back
//     the lock manager, the gateway and the documents transparently.
//
//   - server: RPC server components that route incoming requests to the store
//     of a shard.
package rpc
