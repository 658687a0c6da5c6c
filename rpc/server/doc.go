// Package server implements the RPC server of the document store. It hosts any number of
// shards, each serving one store.IStore, and routes requests of a transport to them.
//
// Key Components:
//
//   - IRPCServerAdapter: Interface defining the contract for all server adapters,
//     with the Handle method that processes incoming requests against a store.IStore.
//
//   - NewIStoreServerAdapter: Factory function creating an adapter for key-value
//     store operations, translating RPC requests to store.IStore method calls.
//
//   - NewRPCServer: Factory function creating a configured server with the specified
//     transport and serializer mechanisms.
//
// Usage Example:
//
//	config := common.ServerConfig{
//	  Shards: []common.ServerShard{
//	    {ShardID: 1, Type: common.ShardTypeLocal},
//	    {ShardID: 2, Type: common.ShardTypeRaft},
//	  },
//	  Endpoint:         "0.0.0.0:8080",
//	  TimeoutSecond:    5,
//	  GCIntervalSecond: 10,
//	  LogLevel:         "info",
//	}
//
//	s := server.NewRPCServer(config, http.NewHttpServerTransport(), serializer.NewBinarySerializer())
//	if err := s.Serve(); err != nil {
//	  log.Fatalf("Server error: %v", err)
//	}
//
// The server supports two types of shards, which can be mixed within a single server:
//
//   - ShardTypeLocal: An in-memory store, suitable for single-node deployments
//     or development environments.
//
//   - ShardTypeRaft: A store replicated with Raft consensus, providing strong consistency
//     across multiple nodes. RAFT configuration (RTTMillisecond, SnapshotEntries,
//     CompactionOverhead, DataDir, ReplicaID, and ClusterMembers) must be configured.
//     Expired keys are removed by a garbage collection proposal every GCIntervalSecond.
//
// Session locks need no shard type of their own: clients run the lock manager on top of
// any store shard.
//
// Thread Safety:
//
//	The server handles concurrent requests; each request is processed independently.
//	Serve is not thread-safe and should be called only once.
package server
