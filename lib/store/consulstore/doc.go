// Package consulstore implements store.IStore on top of the HashiCorp Consul KV store.
//
// Every value is prefixed with an 8 byte big endian deadline in unix milliseconds (0 means
// the key never expires). Expired keys are reported as absent and replaced on the next
// conditional write; they are not removed from consul by this package.
//
// CompareAndSwap and SetEIfUnset read the key and write with consul's check-and-set on the
// ModifyIndex, so a concurrent writer makes the write fail instead of being overwritten.
//
// Usage Example:
//
//	s, err := consulstore.NewConsulStore(consulstore.Options{Address: "127.0.0.1:8500", Prefix: "ddoc/"})
package consulstore
