package server

import (
	"fmt"
	"time"

	"github.com/ValentinKolb/dDoc/lib/store"
	"github.com/ValentinKolb/dDoc/rpc/common"
	"github.com/goccy/go-json"
)

func NewIStoreServerAdapter() IRPCServerAdapter {
	return &iStoreServerAdapterImpl{}
}

type iStoreServerAdapterImpl struct{}

// ttl converts the millisecond ttl of a message
func ttl(req *common.Message) time.Duration {
	return time.Duration(req.TTL) * time.Millisecond
}

func (adapter *iStoreServerAdapterImpl) Handle(req *common.Message, s store.IStore) *common.Message {
	if s == nil {
		return common.NewErrorResponse("handler: store is nil")
	}

	switch req.MsgType {
	case common.MsgTKVSet:
		return common.NewResponse(req.MsgType, s.Set(req.Key, req.Value))
	case common.MsgTKVSetE:
		return common.NewResponse(req.MsgType, s.SetE(req.Key, req.Value, ttl(req)))
	case common.MsgTKVSetEIfUnset:
		ok, err := s.SetEIfUnset(req.Key, req.Value, ttl(req))
		return common.NewOkResponse(req.MsgType, ok, err)
	case common.MsgTKVCompareAndSwap:
		ok, err := s.CompareAndSwap(req.Key, req.ExpectedValue(), req.Value, ttl(req))
		return common.NewOkResponse(req.MsgType, ok, err)
	case common.MsgTKVDelete:
		return common.NewResponse(req.MsgType, s.Delete(req.Key))
	case common.MsgTKVGet:
		val, ok, err := s.Get(req.Key)
		return common.NewValueResponse(req.MsgType, val, ok, err)
	case common.MsgTKVHas:
		ok, err := s.Has(req.Key)
		return common.NewOkResponse(req.MsgType, ok, err)
	case common.MsgTKVInfo:
		info, err := s.GetDBInfo()
		if err != nil {
			return common.NewResponse(req.MsgType, err)
		}
		raw, err := json.Marshal(info)
		return common.NewValueResponse(req.MsgType, raw, err == nil, err)
	default:
		return common.NewErrorResponse(fmt.Sprintf("unsupported message type: %s", req.MsgType))
	}
}
