package serve

import (
	"fmt"
	"strconv"
	"strings"

	cmdUtil "github.com/ValentinKolb/dDoc/cmd/util"
	"github.com/ValentinKolb/dDoc/rpc/common"
	"github.com/ValentinKolb/dDoc/rpc/server"
	"github.com/ValentinKolb/dDoc/rpc/transport/http"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	serveCmdConfig = &common.ServerConfig{}
	ServeCmd       = &cobra.Command{
		Use:   "serve",
		Short: "Start the dDoc store server",
		Long: `Start the store server that hosts the shards documents and session locks are kept in.
The configuration can be set via command line flags or environment variables. The format of the environment variables is DDOC_<flag> (e.g. DDOC_GC_INTERVAL=30)`,
		PreRunE: processConfig,
		RunE:    run,
	}
)

func init() {
	key := "shards"
	ServeCmd.PersistentFlags().String(key, "100=local", cmdUtil.WrapString("Comma-separated list of shards to serve. Format: ID=TYPE where TYPE is one of: local, raft"))

	key = "rtt-millisecond"
	ServeCmd.PersistentFlags().Int(key, 100, cmdUtil.WrapString("(raft shards) RTTMillisecond defines the average Round Trip Time (RTT) in milliseconds between two NodeHost instances"))

	key = "snapshot-entries"
	ServeCmd.PersistentFlags().Int(key, 10, cmdUtil.WrapString("(raft shards) SnapshotEntries defines how often the state machine should be snapshotted automatically, in terms of applied Raft log entries. 0 disables automatic snapshotting (not recommended)"))

	key = "compaction-overhead"
	ServeCmd.PersistentFlags().Int(key, 5, cmdUtil.WrapString("(raft shards) CompactionOverhead defines the number of log entries to keep after a snapshot. Recommended value is about 1/2 of SnapshotEntries"))

	key = "data-dir"
	ServeCmd.PersistentFlags().String(key, "data", cmdUtil.WrapString("(raft shards) DataDir is the directory used for the raft log and the snapshots"))

	key = "replica-id"
	ServeCmd.PersistentFlags().String(key, "", cmdUtil.WrapString("(raft shards) ReplicaID is the unique name of this node (e.g. 'node-1')"))

	key = "cluster-members"
	ServeCmd.PersistentFlags().String(key, "", cmdUtil.WrapString("(raft shards) ClusterMembers is a comma-separated list of raft addresses in the format 'node-1=localhost:63001,node-2=localhost:63002,...'"))

	key = "timeout"
	ServeCmd.PersistentFlags().Int64(key, 5, cmdUtil.WrapString("(raft shards) Timeout of a proposal in seconds"))

	key = "gc-interval"
	ServeCmd.PersistentFlags().Int64(key, 10, cmdUtil.WrapString("Interval in seconds in which expired keys (e.g. abandoned session locks) are removed"))

	key = "endpoint"
	ServeCmd.PersistentFlags().String(key, "0.0.0.0:8080", cmdUtil.WrapString("The address on which the API will listen"))
}

// parseShards parses the --shards flag (ID=TYPE,...)
func parseShards(s string) ([]common.ServerShard, error) {
	var shards []common.ServerShard
	for _, shardConfig := range strings.Split(s, ",") {
		parts := strings.Split(shardConfig, "=")
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid shard format: %s (expected ID=TYPE)", shardConfig)
		}

		shardID, err := strconv.ParseUint(strings.TrimSpace(parts[0]), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid shard ID %s: %v", parts[0], err)
		}

		shardType, err := common.ParseShardType(strings.TrimSpace(parts[1]))
		if err != nil {
			return nil, err
		}

		shards = append(shards, common.ServerShard{ShardID: shardID, Type: shardType})
	}
	return shards, nil
}

// parseClusterMembers parses the --cluster-members flag (name=address,...)
func parseClusterMembers(s string) (map[uint64]string, error) {
	members := make(map[uint64]string)
	for _, member := range strings.Split(s, ",") {
		parts := strings.Split(member, "=")
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid cluster member format: %s (expected ID=address)", member)
		}
		members[cmdUtil.HashString(strings.TrimSpace(parts[0]))] = strings.TrimSpace(parts[1])
	}
	return members, nil
}

// processConfig reads the configuration from the command line flags and environment variables and converts them to the server configuration
func processConfig(cmd *cobra.Command, _ []string) error {
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	shards, err := parseShards(viper.GetString("shards"))
	if err != nil {
		return err
	}
	serveCmdConfig.Shards = shards

	serveCmdConfig.RTTMillisecond = viper.GetUint64("rtt-millisecond")
	serveCmdConfig.SnapshotEntries = viper.GetUint64("snapshot-entries")
	serveCmdConfig.CompactionOverhead = viper.GetUint64("compaction-overhead")
	serveCmdConfig.DataDir = viper.GetString("data-dir")
	serveCmdConfig.TimeoutSecond = viper.GetInt64("timeout")
	serveCmdConfig.GCIntervalSecond = viper.GetInt64("gc-interval")
	serveCmdConfig.Endpoint = viper.GetString("endpoint")
	serveCmdConfig.Serializer = viper.GetString("serializer")
	serveCmdConfig.LogLevel = viper.GetString("log-level")

	if !serveCmdConfig.HasRaftShard() {
		return nil
	}

	// cluster settings are only required for raft shards
	id := viper.GetString("replica-id")
	if id == "" {
		return fmt.Errorf("ReplicaId is required for raft shards")
	}
	serveCmdConfig.ReplicaID = cmdUtil.HashString(id)

	clusterMembers := viper.GetString("cluster-members")
	if clusterMembers == "" {
		return fmt.Errorf("ClusterMembers is required for raft shards")
	}
	if serveCmdConfig.ClusterMembers, err = parseClusterMembers(clusterMembers); err != nil {
		return err
	}

	if _, ok := serveCmdConfig.ClusterMembers[serveCmdConfig.ReplicaID]; !ok {
		return fmt.Errorf("no address found for replica %s in cluster members", id)
	}
	return nil
}

// run starts the server
func run(_ *cobra.Command, _ []string) error {
	s, err := cmdUtil.GetSerializer()
	if err != nil {
		return err
	}

	serv := server.NewRPCServer(
		*serveCmdConfig,
		http.NewHttpServerTransport(),
		s,
	)

	return serv.Serve()
}
