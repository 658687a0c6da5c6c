package redisstore

import (
	"os"
	"testing"
	"time"

	"github.com/ValentinKolb/dDoc/lib/store"
	storetesting "github.com/ValentinKolb/dDoc/lib/store/testing"
)

func TestExpiry(t *testing.T) {
	tests := []struct {
		ttl  time.Duration
		want time.Duration
	}{
		{0, 0},
		{-time.Second, 0},
		{time.Microsecond, time.Millisecond},
		{1500 * time.Millisecond, 1500 * time.Millisecond},
		{10 * time.Minute, 10 * time.Minute},
	}
	for _, tt := range tests {
		if got := expiry(tt.ttl); got != tt.want {
			t.Errorf("expiry(%s) = %s, want %s", tt.ttl, got, tt.want)
		}
	}
}

// TestRedisStore runs the conformance suite against a redis server.
// Set DDOC_TEST_REDIS_ADDR (e.g. 127.0.0.1:6379) to enable it.
func TestRedisStore(t *testing.T) {
	addr := os.Getenv("DDOC_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("DDOC_TEST_REDIS_ADDR not set")
	}
	storetesting.RunIStoreTests(t, "redis", func(t *testing.T) store.IStore {
		opts := DefaultOptions()
		opts.Addr = addr
		opts.Prefix = "ddoc-test:"
		s := NewRedisStore(opts)
		t.Cleanup(func() { _ = s.Close() })
		return s
	})
}
