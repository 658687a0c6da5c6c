package consulstore

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"time"

	"github.com/ValentinKolb/dDoc/lib/db"
	"github.com/ValentinKolb/dDoc/lib/store"
	"github.com/hashicorp/consul/api"
	"github.com/lni/dragonboat/v4/logger"
)

var log = logger.GetLogger("store")

// headerSize is the length of the expiry deadline stored in front of every value
const headerSize = 8

// Options configures the consul store
type Options struct {
	Address string // Consul HTTP address, empty uses the api defaults (CONSUL_HTTP_ADDR)
	Token   string // ACL token (optional)
	Prefix  string // Prepended to every key, e.g. "ddoc/"
	// Clock returns the current time, defaults to time.Now.
	Clock func() time.Time
}

// DefaultOptions returns the default consul store options
func DefaultOptions() Options {
	return Options{
		Prefix: "ddoc/",
		Clock:  time.Now,
	}
}

type storeImpl struct {
	kv     *api.KV
	prefix string
	clock  func() time.Time
}

// NewConsulStore creates a store.IStore backed by the consul KV store.
//
// Consul has no per key TTL, so the deadline is stored in front of the value and expired
// keys are treated as absent. Conditional writes use consul's check-and-set on the
// ModifyIndex of the key.
func NewConsulStore(opts Options) (store.IStore, error) {
	cfg := api.DefaultConfig()
	if opts.Address != "" {
		cfg.Address = opts.Address
	}
	if opts.Token != "" {
		cfg.Token = opts.Token
	}
	client, err := api.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("create consul client: %w", err)
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	log.Infof("using consul at %s with prefix %q", cfg.Address, opts.Prefix)
	return &storeImpl{kv: client.KV(), prefix: opts.Prefix, clock: opts.Clock}, nil
}

// --------------------------------------------------------------------------
// Value encoding
// --------------------------------------------------------------------------

// entry is a decoded consul pair
type entry struct {
	value       []byte
	deleteAt    int64 // unix milliseconds, 0 = never
	modifyIndex uint64
}

func (e *entry) live(now int64) bool {
	return e.deleteAt == 0 || now < e.deleteAt
}

func encode(value []byte, now int64, ttl time.Duration) []byte {
	var deleteAt int64
	if ms := store.TTLMillis(ttl); ms > 0 {
		deleteAt = now + int64(ms)
	}
	buf := make([]byte, headerSize+len(value))
	binary.BigEndian.PutUint64(buf, uint64(deleteAt))
	copy(buf[headerSize:], value)
	return buf
}

func decode(pair *api.KVPair) (*entry, error) {
	if len(pair.Value) < headerSize {
		return nil, store.NewError(store.RetCInternalError, fmt.Sprintf("value of %q is not written by this store", pair.Key))
	}
	return &entry{
		value:       pair.Value[headerSize:],
		deleteAt:    int64(binary.BigEndian.Uint64(pair.Value)),
		modifyIndex: pair.ModifyIndex,
	}, nil
}

func unavailable(op string, err error) error {
	return store.NewError(store.RetCUnavailable, fmt.Sprintf("consul %s: %v", op, err))
}

// --------------------------------------------------------------------------
// Helper functions
// --------------------------------------------------------------------------

func (s *storeImpl) now() int64 {
	return s.clock().UnixMilli()
}

// load returns the raw entry for key, expired or not. A nil entry means the key is absent.
func (s *storeImpl) load(key string) (*entry, error) {
	pair, _, err := s.kv.Get(s.prefix+key, nil)
	if err != nil {
		return nil, unavailable("get", err)
	}
	if pair == nil {
		return nil, nil
	}
	return decode(pair)
}

// loadLive returns the entry for key if it is live
func (s *storeImpl) loadLive(key string) (*entry, error) {
	e, err := s.load(key)
	if err != nil || e == nil {
		return nil, err
	}
	if !e.live(s.now()) {
		return nil, nil
	}
	return e, nil
}

// cas writes value if the key still has the given index (0 = key must not exist)
func (s *storeImpl) cas(key string, index uint64, value []byte, ttl time.Duration) (bool, error) {
	ok, _, err := s.kv.CAS(&api.KVPair{
		Key:         s.prefix + key,
		Value:       encode(value, s.now(), ttl),
		ModifyIndex: index,
	}, nil)
	if err != nil {
		return false, unavailable("cas", err)
	}
	return ok, nil
}

// --------------------------------------------------------------------------
// Interface Methods (docu see store/interface.go)
// --------------------------------------------------------------------------

func (s *storeImpl) Set(key string, value []byte) error {
	return s.SetE(key, value, 0)
}

func (s *storeImpl) SetE(key string, value []byte, ttl time.Duration) error {
	_, err := s.kv.Put(&api.KVPair{Key: s.prefix + key, Value: encode(value, s.now(), ttl)}, nil)
	if err != nil {
		return unavailable("put", err)
	}
	return nil
}

func (s *storeImpl) SetEIfUnset(key string, value []byte, ttl time.Duration) (bool, error) {
	return s.CompareAndSwap(key, nil, value, ttl)
}

func (s *storeImpl) CompareAndSwap(key string, expected, value []byte, ttl time.Duration) (bool, error) {
	e, err := s.load(key)
	if err != nil {
		return false, err
	}

	var index uint64
	switch {
	case e == nil:
		if expected != nil {
			return false, nil
		}
	case !e.live(s.now()):
		// an expired key is replaced like an absent one
		if expected != nil {
			return false, nil
		}
		index = e.modifyIndex
	default:
		if expected == nil || !bytes.Equal(e.value, expected) {
			return false, nil
		}
		index = e.modifyIndex
	}
	return s.cas(key, index, value, ttl)
}

func (s *storeImpl) Delete(key string) error {
	if _, err := s.kv.Delete(s.prefix+key, nil); err != nil {
		return unavailable("delete", err)
	}
	return nil
}

func (s *storeImpl) Get(key string) ([]byte, bool, error) {
	e, err := s.loadLive(key)
	if err != nil || e == nil {
		return nil, false, err
	}
	return e.value, true, nil
}

func (s *storeImpl) Has(key string) (bool, error) {
	e, err := s.loadLive(key)
	return e != nil, err
}

func (s *storeImpl) GetDBInfo() (db.DatabaseInfo, error) {
	keys, _, err := s.kv.Keys(s.prefix, "", nil)
	if err != nil {
		return db.DatabaseInfo{}, unavailable("keys", err)
	}
	return db.DatabaseInfo{
		Keys:   len(keys),
		DbType: db.ImplConsul,
		SupportedFeatures: []db.Feature{
			db.FeatureSet, db.FeatureSetE, db.FeatureSetEIfUnset, db.FeatureCompareAndSwap,
			db.FeatureGet, db.FeatureDelete, db.FeatureHas,
		},
	}, nil
}
