package server

import (
	"github.com/ValentinKolb/dDoc/lib/store"
	"github.com/ValentinKolb/dDoc/rpc/common"
)

// IRPCServerAdapter is the interface for all RPC server adapters
// It is responsible for handling requests and responses
type IRPCServerAdapter interface {
	// Handle executes a request against the store of a shard.
	// Failures are reported in the response, never returned.
	Handle(req *common.Message, store store.IStore) (resp *common.Message)
}
