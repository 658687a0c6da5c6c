// Package common provides core data structures and utilities shared across
// the document store RPC layer. It defines fundamental types,
// configuration structures, and protocol elements used by other packages.
//
// The package focuses on:
//   - Message protocol definition for inter-component communication
//   - Configuration structures for client and server components
//   - Custom logging implementation integrated with Dragonboat
//   - Utilities for Dragonboat (RAFT) integration
//
// Key Components:
//
//   - Message: Core data structure for all RPC communication between components,
//     with a flexible structure that adapts to different operation types.
//     Includes factory methods for creating request and response messages, and
//     carries store error codes so clients can tell transient failures apart.
//
//   - MessageType: Enumeration defining all supported operation types in the
//     system: the store.IStore operations and control messages. Session locks
//     need no message types of their own, the lock manager runs on top of a
//     remote store.
//
//   - ServerConfig: Configuration for server nodes, including the local and raft
//     shards, RAFT parameters, storage settings and the HTTP endpoint.
//     Provides utilities for converting to Dragonboat-specific configurations.
//
//   - ClientConfig: Configuration for client components, controlling connection
//     parameters, timeouts, and retry behavior.
//
//   - Logger: Custom logging implementation that integrates with Dragonboat's
//     logging system while providing consistent formatting across the application.
package common
