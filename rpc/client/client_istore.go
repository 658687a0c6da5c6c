package client

import (
	"time"

	"github.com/ValentinKolb/dDoc/lib/db"
	"github.com/ValentinKolb/dDoc/lib/store"
	"github.com/ValentinKolb/dDoc/rpc/common"
	"github.com/ValentinKolb/dDoc/rpc/serializer"
	"github.com/ValentinKolb/dDoc/rpc/transport"
	"github.com/goccy/go-json"
)

// NewRPCStore creates a store.IStore that forwards every call to a shard of an RPC server.
// The transport is connected before the store is returned.
func NewRPCStore(
	shardId uint64,
	config common.ClientConfig,
	transport transport.IRPCClientTransport,
	serializer serializer.IRPCSerializer,
) (store.IStore, error) {
	if err := transport.Connect(config); err != nil {
		return nil, err
	}

	return &rpcStore{
		rpcClientAdapter{
			shardId:    shardId,
			config:     config,
			transport:  transport,
			serializer: serializer,
		},
	}, nil
}

type rpcStore struct {
	rpcClientAdapter
}

// --------------------------------------------------------------------------
// Interface Methods (docu see the store package in interface.go)
// --------------------------------------------------------------------------

func (i *rpcStore) Set(key string, value []byte) error {
	_, err := i.invoke(common.NewSetRequest(key, value))
	return err
}

func (i *rpcStore) SetE(key string, value []byte, ttl time.Duration) error {
	_, err := i.invoke(common.NewSetERequest(key, value, store.TTLMillis(ttl)))
	return err
}

func (i *rpcStore) SetEIfUnset(key string, value []byte, ttl time.Duration) (bool, error) {
	resp, err := i.invoke(common.NewSetEIfUnsetRequest(key, value, store.TTLMillis(ttl)))
	if err != nil {
		return false, err
	}
	return resp.Ok, nil
}

func (i *rpcStore) CompareAndSwap(key string, expected, value []byte, ttl time.Duration) (bool, error) {
	resp, err := i.invoke(common.NewCompareAndSwapRequest(key, expected, value, store.TTLMillis(ttl)))
	if err != nil {
		return false, err
	}
	return resp.Ok, nil
}

func (i *rpcStore) Delete(key string) error {
	_, err := i.invoke(common.NewDeleteRequest(key))
	return err
}

func (i *rpcStore) Get(key string) ([]byte, bool, error) {
	resp, err := i.invoke(common.NewGetRequest(key))
	if err != nil {
		return nil, false, err
	}
	if resp.Ok && resp.Value == nil {
		// json drops empty values
		return []byte{}, true, nil
	}
	return resp.Value, resp.Ok, nil
}

func (i *rpcStore) Has(key string) (bool, error) {
	resp, err := i.invoke(common.NewHasRequest(key))
	if err != nil {
		return false, err
	}
	return resp.Ok, nil
}

func (i *rpcStore) GetDBInfo() (db.DatabaseInfo, error) {
	resp, err := i.invoke(common.NewInfoRequest())
	if err != nil {
		return db.DatabaseInfo{}, err
	}
	var info db.DatabaseInfo
	if err := json.Unmarshal(resp.Value, &info); err != nil {
		return db.DatabaseInfo{}, store.NewError(store.RetCInternalError, "invalid db info: "+err.Error())
	}
	return info, nil
}
