// Package testing provides a conformance suite for store.IStore implementations.
//
// Every backend runs RunIStoreTests from its own tests. Backends that need an external
// service (Consul, Redis) skip the suite unless the service address is configured through
// the environment.
package testing
