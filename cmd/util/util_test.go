package util

import (
	"io"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func TestNewDirectStore(t *testing.T) {
	tests := []struct {
		name    string
		cfg     BackendConfig
		wantErr bool
	}{
		{"consul", BackendConfig{Backend: BackendConsul, ConsulAddr: "127.0.0.1:8500"}, false},
		{"consul with prefix", BackendConfig{Backend: BackendConsul, Prefix: "test/"}, false},
		{"redis", BackendConfig{Backend: BackendRedis, RedisAddr: "127.0.0.1:6379", Timeout: time.Second}, false},
		{"rpc is no direct store", BackendConfig{Backend: BackendRPC}, true},
		{"unknown", BackendConfig{Backend: "etcd"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// neither client connects before the first request
			s, err := NewDirectStore(tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewDirectStore() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && s == nil {
				t.Fatalf("NewDirectStore() returned no store")
			}
			if c, ok := s.(io.Closer); ok {
				_ = c.Close()
			}
		})
	}
}

func TestGetBackendConfig(t *testing.T) {
	t.Cleanup(viper.Reset)

	cmd := &cobra.Command{Use: "test"}
	SetupRPCClientFlags(cmd, 100)
	if err := cmd.ParseFlags([]string{"--backend", "redis", "--redis-addr", "redis:6380", "--redis-db", "2", "--prefix", "p:", "--timeout", "3"}); err != nil {
		t.Fatalf("ParseFlags() error = %v", err)
	}
	if err := BindCommandFlags(cmd); err != nil {
		t.Fatalf("BindCommandFlags() error = %v", err)
	}

	got := GetBackendConfig()
	want := BackendConfig{
		Backend:   BackendRedis,
		Prefix:    "p:",
		Timeout:   3 * time.Second,
		RedisAddr: "redis:6380",
		RedisDB:   2,
	}
	if got != want {
		t.Errorf("GetBackendConfig() = %+v, want %+v", got, want)
	}
}

func TestWrapString(t *testing.T) {
	got := WrapString("aaaa bbbb")
	if got != "aaaa bbbb" {
		t.Errorf("WrapString() = %q", got)
	}
	long := WrapString("0123456789 0123456789 0123456789 0123456789 0123456789")
	if long != "0123456789 0123456789 0123456789 0123456789\n0123456789" {
		t.Errorf("WrapString() = %q", long)
	}
}
