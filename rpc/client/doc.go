// Package client implements the RPC client of the document store. NewRPCStore returns a
// store.IStore that forwards every operation to one shard of a remote RPC server.
//
// Session locks and documents need no client of their own: the lock manager, the gateway
// and documents only depend on store.IStore and run on top of the RPC store unchanged.
//
// Store errors raised on the server keep their return code on the client, and transport
// failures are reported as store.RetCUnavailable, so the retry engine can tell transient
// faults from permanent ones.
//
// Usage Example:
//
//	cfg := common.ClientConfig{
//	    Endpoints:     []string{"http://localhost:8080"},
//	    TimeoutSecond: 5,
//	    RetryCount:    3,
//	}
//
//	s, err := client.NewRPCStore(1, cfg, http.NewHttpClientTransport(), serializer.NewBinarySerializer())
//	if err != nil {
//	    return err
//	}
//	locks := lockmgr.NewLockManager(s, nil)
//	doc := document.New("player:123", gateway.NewGateway(s, nil), locks, document.DefaultOptions())
//
// Thread Safety:
//
//	The store client is safe for concurrent use from multiple goroutines.
package client
