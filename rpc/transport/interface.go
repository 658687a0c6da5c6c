package transport

import (
	"github.com/ValentinKolb/dDoc/rpc/common"
)

// ServerHandleFunc answers one encoded store request addressed to a shard. It never fails:
// store errors travel inside the encoded response.
type ServerHandleFunc func(shardID uint64, req []byte) (resp []byte)

// IRPCServerTransport accepts requests from store clients
type IRPCServerTransport interface {
	// RegisterHandler sets the function every request is passed to. Requests that arrive
	// before a handler is registered are refused.
	RegisterHandler(handler ServerHandleFunc)

	// Listen serves config.Endpoint until the listener fails
	Listen(config common.ServerConfig) error
}

// IRPCClientTransport carries requests of a store client to a server
type IRPCClientTransport interface {
	// Connect prepares the endpoints, timeout and retry count of config. No request is sent.
	Connect(config common.ClientConfig) error

	// Send delivers req to the shard and returns the encoded response. Up to the configured
	// retry count of endpoints is tried, a final failure is a store.Error with RetCUnavailable.
	Send(shardID uint64, req []byte) (resp []byte, err error)

	// Close drops idle connections
	Close() error
}
