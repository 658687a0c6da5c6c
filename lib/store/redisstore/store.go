package redisstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ValentinKolb/dDoc/lib/db"
	"github.com/ValentinKolb/dDoc/lib/store"
	"github.com/go-redis/redis/v8"
	"github.com/lni/dragonboat/v4/logger"
)

var log = logger.GetLogger("store")

// Options configures the redis store
type Options struct {
	Addr     string        // host:port of the redis server
	Password string        // (optional)
	DB       int           // database number
	Prefix   string        // Prepended to every key
	Timeout  time.Duration // Deadline of a single store call
}

// DefaultOptions returns the default redis store options
func DefaultOptions() Options {
	return Options{
		Addr:    "127.0.0.1:6379",
		Prefix:  "ddoc:",
		Timeout: 5 * time.Second,
	}
}

// RedisStore is a store.IStore that owns its redis connection pool
type RedisStore interface {
	store.IStore
	Close() error
}

type storeImpl struct {
	rdb     *redis.Client
	prefix  string
	timeout time.Duration
}

// NewRedisStore creates a store.IStore backed by redis. TTLs map to PX expiries,
// SetEIfUnset to SET NX and CompareAndSwap to an optimistic WATCH/MULTI transaction.
func NewRedisStore(opts Options) RedisStore {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultOptions().Timeout
	}
	log.Infof("using redis at %s (db %d) with prefix %q", opts.Addr, opts.DB, opts.Prefix)
	return &storeImpl{
		rdb: redis.NewClient(&redis.Options{
			Addr:     opts.Addr,
			Password: opts.Password,
			DB:       opts.DB,
		}),
		prefix:  opts.Prefix,
		timeout: opts.Timeout,
	}
}

func (s *storeImpl) Close() error {
	return s.rdb.Close()
}

// --------------------------------------------------------------------------
// Helper functions
// --------------------------------------------------------------------------

func (s *storeImpl) ctx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), s.timeout)
}

func unavailable(op string, err error) error {
	return store.NewError(store.RetCUnavailable, fmt.Sprintf("redis %s: %v", op, err))
}

// expiry converts a ttl to the redis expiration, keeping sub millisecond ttls alive for 1ms
func expiry(ttl time.Duration) time.Duration {
	return time.Duration(store.TTLMillis(ttl)) * time.Millisecond
}

// --------------------------------------------------------------------------
// Interface Methods (docu see store/interface.go)
// --------------------------------------------------------------------------

func (s *storeImpl) Set(key string, value []byte) error {
	return s.SetE(key, value, 0)
}

func (s *storeImpl) SetE(key string, value []byte, ttl time.Duration) error {
	ctx, cancel := s.ctx()
	defer cancel()
	if err := s.rdb.Set(ctx, s.prefix+key, value, expiry(ttl)).Err(); err != nil {
		return unavailable("set", err)
	}
	return nil
}

func (s *storeImpl) SetEIfUnset(key string, value []byte, ttl time.Duration) (bool, error) {
	ctx, cancel := s.ctx()
	defer cancel()
	ok, err := s.rdb.SetNX(ctx, s.prefix+key, value, expiry(ttl)).Result()
	if err != nil {
		return false, unavailable("setnx", err)
	}
	return ok, nil
}

func (s *storeImpl) CompareAndSwap(key string, expected, value []byte, ttl time.Duration) (bool, error) {
	if expected == nil {
		return s.SetEIfUnset(key, value, ttl)
	}

	ctx, cancel := s.ctx()
	defer cancel()

	swapped := false
	err := s.rdb.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, s.prefix+key).Bytes()
		if errors.Is(err, redis.Nil) {
			return nil
		}
		if err != nil {
			return err
		}
		if !bytes.Equal(current, expected) {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, s.prefix+key, value, expiry(ttl))
			return nil
		})
		if err == nil {
			swapped = true
		}
		return err
	}, s.prefix+key)

	switch {
	case errors.Is(err, redis.TxFailedErr):
		// the key changed between WATCH and EXEC
		return false, nil
	case err != nil:
		return false, unavailable("cas", err)
	}
	return swapped, nil
}

func (s *storeImpl) Delete(key string) error {
	ctx, cancel := s.ctx()
	defer cancel()
	if err := s.rdb.Del(ctx, s.prefix+key).Err(); err != nil {
		return unavailable("del", err)
	}
	return nil
}

func (s *storeImpl) Get(key string) ([]byte, bool, error) {
	ctx, cancel := s.ctx()
	defer cancel()
	value, err := s.rdb.Get(ctx, s.prefix+key).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		return nil, false, nil
	case err != nil:
		return nil, false, unavailable("get", err)
	}
	return value, true, nil
}

func (s *storeImpl) Has(key string) (bool, error) {
	ctx, cancel := s.ctx()
	defer cancel()
	n, err := s.rdb.Exists(ctx, s.prefix+key).Result()
	if err != nil {
		return false, unavailable("exists", err)
	}
	return n > 0, nil
}

func (s *storeImpl) GetDBInfo() (db.DatabaseInfo, error) {
	ctx, cancel := s.ctx()
	defer cancel()
	n, err := s.rdb.DBSize(ctx).Result()
	if err != nil {
		return db.DatabaseInfo{}, unavailable("dbsize", err)
	}
	return db.DatabaseInfo{
		Keys:   int(n),
		DbType: db.ImplRedis,
		SupportedFeatures: []db.Feature{
			db.FeatureSet, db.FeatureSetE, db.FeatureSetEIfUnset, db.FeatureCompareAndSwap,
			db.FeatureGet, db.FeatureDelete, db.FeatureHas,
		},
	}, nil
}
