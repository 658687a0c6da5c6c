package util

import (
	"fmt"
	"strings"
	"time"

	"github.com/ValentinKolb/dDoc/lib/store"
	"github.com/ValentinKolb/dDoc/lib/store/consulstore"
	"github.com/ValentinKolb/dDoc/lib/store/redisstore"
	"github.com/ValentinKolb/dDoc/rpc/client"
	"github.com/ValentinKolb/dDoc/rpc/common"
	"github.com/ValentinKolb/dDoc/rpc/serializer"
	"github.com/ValentinKolb/dDoc/rpc/transport/http"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	// Wrap is the number of characters to Wrap the help text at
	Wrap int = 50

	// EnvPrefix is the prefix of all environment variables (DDOC_<FLAG>)
	EnvPrefix = "ddoc"
)

// WrapString wraps a string at Wrap characters
func WrapString(text string) string {
	var wrappedLines []string
	var currentLine strings.Builder
	lineWidth := 0

	for _, word := range strings.Fields(text) {
		wordWidth := len(word)

		// Check if we need to wrap
		if lineWidth > 0 && lineWidth+1+wordWidth > Wrap {
			wrappedLines = append(wrappedLines, currentLine.String())
			currentLine.Reset()
			lineWidth = 0
		}

		// Add space before word (if not first word on line)
		if lineWidth > 0 {
			currentLine.WriteString(" ")
			lineWidth++
		}

		currentLine.WriteString(word)
		lineWidth += wordWidth
	}

	if currentLine.Len() > 0 {
		wrappedLines = append(wrappedLines, currentLine.String())
	}

	return strings.Join(wrappedLines, "\n")
}

// HashString maps a human readable replica name to a replica id (FNV-1a)
func HashString(s string) uint64 {
	const (
		offset64 = 14695981039346656037
		prime64  = 1099511628211
	)

	hash := uint64(offset64)
	for i := 0; i < len(s); i++ {
		hash ^= uint64(s[i])
		hash *= prime64
	}
	return hash
}

// SetupRPCClientFlags adds common RPC connection flags to a command
func SetupRPCClientFlags(cmd *cobra.Command, defaultShard int) {
	key := "timeout"
	cmd.PersistentFlags().Int(key, 10, WrapString("The timeout in seconds of the client"))

	key = "endpoints"
	cmd.PersistentFlags().String(key, "http://localhost:8080", WrapString("The address of the dDoc server. Multiple endpoints can be specified as a comma-separated list, requests are balanced round-robin"))

	key = "retries"
	cmd.PersistentFlags().Int(key, 3, WrapString("How many endpoints to try before a request fails"))

	key = "shard"
	cmd.PersistentFlags().Int(key, defaultShard, WrapString("ID of the shard to connect to"))

	setupBackendFlags(cmd)
}

// setupBackendFlags adds the flags selecting the store the client talks to
func setupBackendFlags(cmd *cobra.Command) {
	key := "backend"
	cmd.PersistentFlags().String(key, BackendRPC, WrapString("The store to use (rpc, consul or redis). rpc talks to a dDoc server, consul and redis are used directly"))

	key = "prefix"
	cmd.PersistentFlags().String(key, "", WrapString("Prefix of every key in consul or redis, empty uses the backend default"))

	key = "consul-addr"
	cmd.PersistentFlags().String(key, "", WrapString("The consul HTTP address, empty uses CONSUL_HTTP_ADDR or the consul default"))

	key = "consul-token"
	cmd.PersistentFlags().String(key, "", WrapString("The consul ACL token (optional)"))

	key = "redis-addr"
	cmd.PersistentFlags().String(key, redisstore.DefaultOptions().Addr, WrapString("The host:port of the redis server"))

	key = "redis-password"
	cmd.PersistentFlags().String(key, "", WrapString("The redis password (optional)"))

	key = "redis-db"
	cmd.PersistentFlags().Int(key, 0, WrapString("The redis database number"))
}

// InitConfig loads the env files and binds the DDOC_ environment variables
func InitConfig() {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

// GetClientConfig reads client configuration from viper
func GetClientConfig() common.ClientConfig {
	var endpoints []string
	for _, e := range strings.Split(viper.GetString("endpoints"), ",") {
		if e = strings.TrimSpace(e); e != "" {
			endpoints = append(endpoints, e)
		}
	}

	return common.ClientConfig{
		Endpoints:     endpoints,
		TimeoutSecond: viper.GetInt("timeout"),
		RetryCount:    viper.GetInt("retries"),
		Serializer:    viper.GetString("serializer"),
	}
}

// GetSerializer creates a serializer based on configuration
func GetSerializer() (serializer.IRPCSerializer, error) {
	name := viper.GetString("serializer")
	s, ok := serializer.ByName(name)
	if !ok {
		return nil, fmt.Errorf("invalid serializer %s (expected json or binary)", name)
	}
	return s, nil
}

// GetShardID retrieves the configured shard ID
func GetShardID() uint64 {
	return uint64(viper.GetInt("shard"))
}

// BindCommandFlags binds a command's flags to viper
func BindCommandFlags(cmd *cobra.Command) error {
	return viper.BindPFlags(cmd.Flags())
}

// Backends selectable with --backend
const (
	BackendRPC    = "rpc"
	BackendConsul = "consul"
	BackendRedis  = "redis"
)

// BackendConfig holds the connection settings of the direct consul and redis backends
type BackendConfig struct {
	Backend       string
	Prefix        string
	Timeout       time.Duration
	ConsulAddr    string
	ConsulToken   string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

// GetBackendConfig reads the backend configuration from viper
func GetBackendConfig() BackendConfig {
	return BackendConfig{
		Backend:       viper.GetString("backend"),
		Prefix:        viper.GetString("prefix"),
		Timeout:       time.Duration(viper.GetInt("timeout")) * time.Second,
		ConsulAddr:    viper.GetString("consul-addr"),
		ConsulToken:   viper.GetString("consul-token"),
		RedisAddr:     viper.GetString("redis-addr"),
		RedisPassword: viper.GetString("redis-password"),
		RedisDB:       viper.GetInt("redis-db"),
	}
}

// NewDirectStore creates a store that talks to consul or redis without a dDoc server
func NewDirectStore(cfg BackendConfig) (store.IStore, error) {
	switch cfg.Backend {
	case BackendConsul:
		opts := consulstore.DefaultOptions()
		opts.Address, opts.Token = cfg.ConsulAddr, cfg.ConsulToken
		if cfg.Prefix != "" {
			opts.Prefix = cfg.Prefix
		}
		return consulstore.NewConsulStore(opts)
	case BackendRedis:
		opts := redisstore.DefaultOptions()
		opts.Password, opts.DB = cfg.RedisPassword, cfg.RedisDB
		if cfg.RedisAddr != "" {
			opts.Addr = cfg.RedisAddr
		}
		if cfg.Prefix != "" {
			opts.Prefix = cfg.Prefix
		}
		if cfg.Timeout > 0 {
			opts.Timeout = cfg.Timeout
		}
		return redisstore.NewRedisStore(opts), nil
	default:
		return nil, fmt.Errorf("invalid backend %s (expected %s, %s or %s)", cfg.Backend, BackendRPC, BackendConsul, BackendRedis)
	}
}

// ConnectStore binds the flags of cmd and connects to the configured store, a remote
// shard unless --backend selects consul or redis
func ConnectStore(cmd *cobra.Command) (store.IStore, error) {
	if err := BindCommandFlags(cmd); err != nil {
		return nil, err
	}

	if cfg := GetBackendConfig(); cfg.Backend != "" && cfg.Backend != BackendRPC {
		return NewDirectStore(cfg)
	}

	s, err := GetSerializer()
	if err != nil {
		return nil, err
	}

	return client.NewRPCStore(GetShardID(), GetClientConfig(), http.NewHttpClientTransport(), s)
}
