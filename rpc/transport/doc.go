// Package transport defines how encoded RPC messages travel between store clients and the
// server. Implementations only move bytes: serialization and shard routing happen above.
//
//   - IRPCServerTransport receives requests, hands them with their shard id to the
//     registered ServerHandleFunc and writes back the response bytes.
//
//   - IRPCClientTransport sends a request to one of the configured endpoints. Failures
//     on the network are reported as store.Error with RetCUnavailable, so the retry
//     policies of the lock manager and the gateway treat them as transient.
//
// The http subpackage is the only implementation. Its server also exposes the process
// metrics of the documents and the gateway on GET /metrics.
package transport
