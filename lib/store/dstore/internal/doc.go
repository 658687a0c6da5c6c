// Package internal provides the communication protocol structures and serialization
// logic for the dstore package. It defines the format of raft log entries (Command) and of
// read requests handed to the state machine (Query).
//
// This package is intended for internal use by the dstore implementation and should
// not be imported directly by external code.
//
// Command Format:
//
//	- 1 byte: Command type (Set, SetE, SetIfUnset, CompareAndSwap, Delete, Collect)
//	- 8 bytes: Now, the proposer clock in unix milliseconds (int64, big endian)
//	- 8 bytes: TTL in milliseconds (uint64, big endian)
//	- 4 bytes: Key length (uint32, big endian)
//	- N bytes: Key data
//	- 1 byte: Expected flag (1 if an expected value follows)
//	- 4 bytes + M bytes: Expected value length and data (only if the flag is set)
//	- rest: Value data
//
//	The timestamp travels inside the entry so that replaying the log on any replica
//	produces identical expiry decisions.
//
// Query Format:
//
//	Queries are not persisted in the raft log and are passed to the state machine as Go
//	values: the query type, the key and the reader's clock.
package internal
