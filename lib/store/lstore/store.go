package lstore

import (
	"sync"
	"time"

	"github.com/ValentinKolb/dDoc/lib/db"
	"github.com/ValentinKolb/dDoc/lib/store"
	"github.com/lni/dragonboat/v4/logger"
)

var log = logger.GetLogger("store")

// Options configures the local store
type Options struct {
	// GCInterval is the time between garbage collection runs (0 disables the collector).
	GCInterval time.Duration
	// Clock returns the current time, defaults to time.Now.
	Clock func() time.Time
}

// DefaultOptions returns the default local store options
func DefaultOptions() Options {
	return Options{
		GCInterval: 10 * time.Second,
		Clock:      time.Now,
	}
}

// LocalStore is a store.IStore that can be closed to stop its garbage collector.
type LocalStore interface {
	store.IStore
	Close() error
}

type storeImpl struct {
	db    db.KVDB
	clock func() time.Time

	stop     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewLocalStore creates a new local store instance.
// This store implementation is not distributed and only works on a single node.
func NewLocalStore(factory store.DBFactory, opts Options) LocalStore {
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	s := &storeImpl{
		db:    factory(),
		clock: opts.Clock,
		stop:  make(chan struct{}),
	}
	if opts.GCInterval > 0 && s.db.SupportsFeature(db.FeatureGarbageCollect) {
		s.wg.Add(1)
		go s.collect(opts.GCInterval)
	}
	return s
}

// now returns the current time in unix milliseconds
func (s *storeImpl) now() int64 {
	return s.clock().UnixMilli()
}

// collect runs the garbage collector until the store is closed
func (s *storeImpl) collect(interval time.Duration) {
	defer s.wg.Done()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			if removed := s.db.GarbageCollect(s.now()); removed > 0 {
				log.Debugf("garbage collector removed %d expired entries", removed)
			}
		}
	}
}

// Close stops the garbage collector and closes the engine.
func (s *storeImpl) Close() error {
	s.stopOnce.Do(func() { close(s.stop) })
	s.wg.Wait()
	return s.db.Close()
}

func unsupported(op string) error {
	return store.NewError(store.RetCUnsupportedOperation, op+" operation is not supported")
}

// --------------------------------------------------------------------------
// Interface Methods (docu see store/interface.go)
// --------------------------------------------------------------------------

func (s *storeImpl) Set(key string, value []byte) error {
	if !s.db.SupportsFeature(db.FeatureSet) {
		return unsupported("Set")
	}
	s.db.Set(key, value, s.now())
	return nil
}

func (s *storeImpl) SetE(key string, value []byte, ttl time.Duration) error {
	if !s.db.SupportsFeature(db.FeatureSetE) {
		return unsupported("SetE")
	}
	s.db.SetE(key, value, s.now(), store.TTLMillis(ttl))
	return nil
}

func (s *storeImpl) SetEIfUnset(key string, value []byte, ttl time.Duration) (bool, error) {
	if !s.db.SupportsFeature(db.FeatureSetEIfUnset) {
		return false, unsupported("SetEIfUnset")
	}
	return s.db.SetEIfUnset(key, value, s.now(), store.TTLMillis(ttl)), nil
}

func (s *storeImpl) CompareAndSwap(key string, expected, value []byte, ttl time.Duration) (bool, error) {
	if !s.db.SupportsFeature(db.FeatureCompareAndSwap) {
		return false, unsupported("CompareAndSwap")
	}
	return s.db.CompareAndSwap(key, expected, value, s.now(), store.TTLMillis(ttl)), nil
}

func (s *storeImpl) Delete(key string) error {
	if !s.db.SupportsFeature(db.FeatureDelete) {
		return unsupported("Delete")
	}
	s.db.Delete(key)
	return nil
}

func (s *storeImpl) Get(key string) ([]byte, bool, error) {
	if !s.db.SupportsFeature(db.FeatureGet) {
		return nil, false, unsupported("Get")
	}
	val, ok := s.db.Get(key, s.now())
	return val, ok, nil
}

func (s *storeImpl) Has(key string) (bool, error) {
	if !s.db.SupportsFeature(db.FeatureHas) {
		return false, unsupported("Has")
	}
	return s.db.Has(key, s.now()), nil
}

func (s *storeImpl) GetDBInfo() (db.DatabaseInfo, error) {
	return s.db.GetInfo(), nil
}
