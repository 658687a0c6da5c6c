package server

import (
	"fmt"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/ValentinKolb/dDoc/lib/db"
	"github.com/ValentinKolb/dDoc/lib/db/engines/maple"
	"github.com/ValentinKolb/dDoc/lib/store"
	"github.com/ValentinKolb/dDoc/lib/store/dstore"
	"github.com/ValentinKolb/dDoc/lib/store/lstore"
	"github.com/ValentinKolb/dDoc/rpc/common"
	"github.com/ValentinKolb/dDoc/rpc/serializer"
	"github.com/ValentinKolb/dDoc/rpc/transport"
	"github.com/lni/dragonboat/v4"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/puzpuzpuz/xsync/v3"
)

var Logger = logger.GetLogger("rpc")

// serverShard is a shard of the RPC server: the store it encapsulates and the adapter
// that handles requests for the store
type serverShard struct {
	Store   store.IStore
	Adapter IRPCServerAdapter
}

// RPCServer routes requests of a transport to the stores of its shards
type RPCServer struct {
	config     common.ServerConfig
	transport  transport.IRPCServerTransport
	serializer serializer.IRPCSerializer
	shards     *xsync.MapOf[uint64, serverShard]
}

// NewRPCServer creates a new RPC server
//
// Usage:
//
//	s := server.NewRPCServer(
//		*config,
//		http.NewHttpServerTransport(),
//		serializer.NewBinarySerializer(),
//	)
//
//	if err := s.Serve(); err != nil {
//		panic(err)
//	 }
func NewRPCServer(
	config common.ServerConfig,
	transport transport.IRPCServerTransport,
	serializer serializer.IRPCSerializer,
) *RPCServer {
	// https://github.com/golang/go/issues/17393
	if runtime.GOOS == "darwin" {
		signal.Ignore(syscall.Signal(0xd))
	}

	return &RPCServer{
		config:     config,
		transport:  transport,
		serializer: serializer,
		shards:     xsync.NewMapOf[uint64, serverShard](),
	}
}

// AddShard serves s under shardId. An existing shard with the same id is replaced.
func (s *RPCServer) AddShard(shardId uint64, st store.IStore) {
	s.shards.Store(shardId, serverShard{Store: st, Adapter: NewIStoreServerAdapter()})
}

// Handle decodes a request, executes it on the shard and returns the encoded response
func (s *RPCServer) Handle(shardId uint64, req []byte) []byte {
	var msg common.Message
	var respMsg *common.Message

	if shard, ok := s.shards.Load(shardId); !ok {
		respMsg = common.NewErrorResponse(fmt.Sprintf("shard %d not found", shardId))
	} else if err := s.serializer.Deserialize(req, &msg); err != nil {
		respMsg = common.NewErrorResponse(fmt.Sprintf("failed to deserialize request: %s", err))
	} else {
		respMsg = shard.Adapter.Handle(&msg, shard.Store)
	}

	resp, err := s.serializer.Serialize(*respMsg)
	if err != nil {
		Logger.Errorf("failed to serialize response: %v", err)
		resp, _ = s.serializer.Serialize(*common.NewErrorResponse(fmt.Sprintf("failed to serialize response: %s", err)))
	}
	return resp
}

// init creates the shards of the configuration
func (s *RPCServer) init() error {
	dbFactory := func() db.KVDB { return maple.NewMapleDB(nil) }

	// the NodeHost is only needed for raft shards
	var nodeHost *dragonboat.NodeHost
	if s.config.HasRaftShard() {
		var err error
		nodeHost, err = dragonboat.NewNodeHost(s.config.ToNodeHostConfig())
		if err != nil {
			return fmt.Errorf("failed to create node host: %w", err)
		}
	}

	for _, shardConfig := range s.config.Shards {
		switch shardConfig.Type {
		case common.ShardTypeLocal:
			opts := lstore.DefaultOptions()
			if s.config.GCIntervalSecond > 0 {
				opts.GCInterval = s.config.GCInterval()
			}
			s.AddShard(shardConfig.ShardID, lstore.NewLocalStore(dbFactory, opts))
			Logger.Infof("created local store for shard %d", shardConfig.ShardID)

		case common.ShardTypeRaft:
			err := nodeHost.StartConcurrentReplica(
				s.config.ClusterMembers, false,
				dstore.CreateStateMaschineFactory(dbFactory),
				s.config.ToDragonboatConfig(shardConfig.ShardID),
			)
			if err != nil {
				return fmt.Errorf("failed to start shard %d: %w", shardConfig.ShardID, err)
			}
			ds := dstore.NewDistributedStore(nodeHost, shardConfig.ShardID, s.config.Timeout())
			s.AddShard(shardConfig.ShardID, ds)
			if s.config.GCIntervalSecond > 0 {
				go collect(shardConfig.ShardID, ds, s.config.GCInterval())
			}
			Logger.Infof("started raft store for shard %d", shardConfig.ShardID)

		default:
			return fmt.Errorf("invalid shard type: %s", shardConfig.Type)
		}
	}

	s.transport.RegisterHandler(s.Handle)
	return nil
}

// collect proposes the removal of expired entries of a raft shard. Every replica applies
// the proposal with the same timestamp, a failed proposal is retried on the next tick.
func collect(shardId uint64, ds dstore.DistributedStore, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for range ticker.C {
		if err := ds.Collect(); err != nil {
			Logger.Debugf("garbage collection of shard %d failed: %v", shardId, err)
		}
	}
}

// Serve creates the shards and starts the transport layer. It blocks until the transport
// stops.
func (s *RPCServer) Serve() error {
	Logger.Infof("starting RPC server%s", s.config.String())
	if err := s.init(); err != nil {
		return err
	}
	return s.transport.Listen(s.config)
}
