// Package dstore implements a distributed, fault-tolerant key-value store using
// the Dragonboat RAFT consensus library. It provides a strongly consistent implementation
// of the store.IStore interface that can operate across multiple nodes while
// maintaining linearizable consistency.
//
// Architecture:
//
// The dstore implementation consists of three main components:
//
//   - Store Client: Implements the store.IStore interface and communicates with
//     the RAFT cluster. It serializes operations into commands, sends them to the
//     consensus layer, and processes responses.
//
//   - State Machine: A Dragonboat IConcurrentStateMachine implementation that processes
//     commands and queries on each node. The state machine contains the actual db.KVDB
//     instance and applies operations to it.
//
//   - Communication Protocol: Defined in the internal package, this consists of Command
//     and Query structures with serialization logic for transmitting operations across
//     the network.
//
// Consensus Model:
//
//	The store uses Dragonboat's implementation of the RAFT consensus protocol which provides:
//
//	- Strong Consistency: All operations are linearizable, meaning they appear to
//	  execute atomically and in a consistent order across all nodes.
//
//	- Fault Tolerance: The system remains operational as long as a majority of nodes
//	  are functioning. With 2N+1 nodes, up to N node failures can be tolerated.
//
//	- Leader-Based Processing: Write operations are forwarded to the leader node,
//	  replicated to followers, and only considered committed when a majority of nodes
//	  have persisted the operation.
//
// Write Operations:
//
//	All write operations (Set, SetE, SetEIfUnset, CompareAndSwap, Delete, Collect) follow this flow:
//
//	1. The operation is serialized into a Command structure
//	2. The Command is proposed to the RAFT cluster via SyncPropose
//	3. The leader node replicates the command to a majority of followers
//	4. Once committed, the command is executed on the state machine on each node (Update method in statemachine.go)
//	5. The result (ACK) is returned to the client
//
//	The proposer stamps every command with its clock (unix milliseconds). TTL deadlines are
//	computed from that stamp, so each replica applying the entry reaches the same state.
//	Conditional commands (SetEIfUnset, CompareAndSwap) report whether they were applied in
//	the result data, which is how a document update learns about a write conflict.
//
//	Expired entries stay in the engine until a Collect command is committed. `serve`
//	proposes one periodically for every raft shard it hosts.
//
// Read Operations:
//
// Read operations (Get, Has, GetDBInfo) can be handled in two ways:
//
//   - Linearizable Reads: By default, reads use SyncRead which ensures that the node
//     processing the read has applied all committed log entries locally before processing
//     the request. This guarantees the operation sees the latest committed state of the
//     database, regardless of which node in the cluster processes the read.
//
//   - Stale Reads: For less critical operations (GetDBInfo), StaleRead is used,
//     which may return slightly outdated information but with lower latency.
//
//   - Every query carries the reader's clock, which decides whether an entry is still live.
//
// Failures:
//
//	ErrSystemBusy from Dragonboat is retried after a short delay, up to a fixed number
//	of attempts. Timeouts, busy shards and shards that are not ready yet are reported as
//	store.Error with RetCUnavailable: the document gateway treats them as transient and
//	runs its own retry policy on top. Commands the engine cannot execute (missing feature)
//	are reported as RetCUnsupportedOperation and never retried.
//
// Snapshots:
//
//	SaveSnapshot streams a fuzzy snapshot of the engine (db.KVDB Save) without pausing
//	updates, RecoverFromSnapshot loads it before the log entries committed after the
//	snapshot are replayed. Deadlines are absolute timestamps, so a session lock recovered
//	from a snapshot expires at the same moment on every replica.
//
// Usage:
//
//	nh, err := dragonboat.NewNodeHost(nodeHostConfig)
//	if err != nil { ... }
//
//	dbFactory := func() db.KVDB { return maple.NewMapleDB(nil) }
//	err = nh.StartConcurrentReplica(
//	    clusterMembers,
//	    false,
//	    dstore.CreateStateMaschineFactory(dbFactory),
//	    shardConfig)
//	if err != nil { ... }
//
//	s := dstore.NewDistributedStore(nh, shardID, 5*time.Second)
//	locks := lockmgr.NewLockManager(s, nil)
//	gw := gateway.NewGateway(s, nil)
//
// Writes need a majority of the replicas. For tests and single node deployments the lstore
// package implements the same interface in memory.
package dstore
