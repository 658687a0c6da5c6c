// Package serializer encodes the RPC messages exchanged between store clients and the
// server.
//
// Two implementations satisfy IRPCSerializer:
//
//   - Binary: a flag byte marks which fields are present, so a lock renewal or a
//     document save only carries its key, ttl and the two envelopes. The flags also keep
//     the difference between "expect the key to be absent" and "expect an empty value"
//     of a CompareAndSwap request.
//
//   - JSON: goccy/go-json encoding of the message struct, readable in debug logs and
//     with curl against the http transport.
//
// The serializer is selected with --serializer and must be the same on the server and
// all clients. ByName resolves the flag value.
//
// Both implementations are stateless and safe for concurrent use.
//
//	s := serializer.NewBinarySerializer()
//	data, err := s.Serialize(*common.NewGetRequest("player:123"))
//	...
//	var resp common.Message
//	err = s.Deserialize(respData, &resp)
package serializer
