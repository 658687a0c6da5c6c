package client

import (
	"fmt"

	"github.com/ValentinKolb/dDoc/rpc/common"
	"github.com/ValentinKolb/dDoc/rpc/serializer"
	"github.com/ValentinKolb/dDoc/rpc/transport"
	"github.com/lni/dragonboat/v4/logger"
)

var (
	Logger = logger.GetLogger("rpc")
)

// rpcClientAdapter stores all data needed by an RPC client implementation
type rpcClientAdapter struct {
	shardId    uint64
	config     common.ClientConfig
	transport  transport.IRPCClientTransport
	serializer serializer.IRPCSerializer
}

// invoke sends a request and returns the response. Error responses are turned back into
// errors (store errors keep their code) and a response of the wrong type is rejected.
func (a *rpcClientAdapter) invoke(req *common.Message) (*common.Message, error) {
	reqBytes, err := a.serializer.Serialize(*req)
	if err != nil {
		return nil, err
	}

	respBytes, err := a.transport.Send(a.shardId, reqBytes)
	if err != nil {
		Logger.Debugf("%s on shard %d failed: %v", req.MsgType, a.shardId, err)
		return nil, err
	}

	resp := &common.Message{}
	if err := a.serializer.Deserialize(respBytes, resp); err != nil {
		return nil, fmt.Errorf("rpc client: invalid response: %w", err)
	}

	if err := resp.AsError(); err != nil {
		return nil, err
	}
	if resp.MsgType == common.MsgTError {
		return nil, fmt.Errorf("rpc client: error response without message")
	}
	if resp.MsgType != req.MsgType {
		return nil, fmt.Errorf("rpc client: unexpected message type %s, expected %s", resp.MsgType, req.MsgType)
	}

	return resp, nil
}
