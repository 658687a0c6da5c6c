// Package cmd implements the command-line interface of dDoc. It provides a hierarchical
// command structure with operations for running the server and interacting with it as a
// client.
//
// The package is organized into several subpackages:
//
//   - serve: Commands for starting and configuring the dDoc server
//   - kv: Raw key-value operations on a store shard (get, set, cas, etc.)
//   - lock: Session lock operations (holder, acquire, renew, release)
//   - doc: Document operations (show, update, erase, status)
//   - util: Shared utilities for command-line processing and configuration (internal use)
//
// Every flag can be set as environment variable DDOC_<FLAG> (e.g. DDOC_LOG_LEVEL=debug),
// .env and .env.local files in the working directory are loaded first.
//
// See ddoc -help for a list of all commands.
package cmd
