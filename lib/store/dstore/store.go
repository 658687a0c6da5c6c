package dstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ValentinKolb/dDoc/lib/db"
	"github.com/ValentinKolb/dDoc/lib/store"
	"github.com/ValentinKolb/dDoc/lib/store/dstore/internal"
	"github.com/lni/dragonboat/v4"
	"github.com/lni/dragonboat/v4/client"
	"github.com/lni/dragonboat/v4/logger"
)

var (
	retries = 5
	log     = logger.GetLogger("store")
)

// DistributedStore is a store.IStore replicated with raft.
type DistributedStore interface {
	store.IStore
	// Collect proposes a garbage collection of all entries that expired before now.
	Collect() (err error)
}

// storeImpl is the concrete implementation of the DistributedStore interface.
// It encapsulates a Dragonboat NodeHost which is used to communicate with the state machine.
type storeImpl struct {
	nh      *dragonboat.NodeHost
	shardID uint64
	cs      *client.Session
	timeout time.Duration
	clock   func() time.Time
}

// NewDistributedStore creates a new distributed store instance which uses raft consensus to ensure strict linearizability
// across multiple nodes.
func NewDistributedStore(nh *dragonboat.NodeHost, shardID uint64, timeout time.Duration) DistributedStore {
	cs := nh.GetNoOPSession(shardID)
	return &storeImpl{
		nh:      nh,
		shardID: shardID,
		cs:      cs,
		timeout: timeout,
		clock:   time.Now,
	}
}

func (s *storeImpl) now() int64 {
	return s.clock().UnixMilli()
}

// --------------------------------------------------------------------------
// Internal write and read operations (used by interface methods)
// --------------------------------------------------------------------------

// write serializes a Command and sends it via SyncPropose.
// It returns the result data of the command or a *store.Error.
func (s *storeImpl) write(cmd internal.Command) ([]byte, error) {
	cmd.Now = s.now()
	for i := 0; i < retries; i++ {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)

		res, err := s.nh.SyncPropose(ctx, s.cs, cmd.Serialize())
		cancel()

		if errors.Is(err, dragonboat.ErrSystemBusy) {
			log.Infof("SyncPropose: System busy, retrying (%d/%d)...", i+1, retries)
			time.Sleep(s.timeout / 10)
			continue
		}

		if errors.Is(err, dragonboat.ErrTimeout) || errors.Is(err, dragonboat.ErrShardNotReady) {
			return nil, store.NewError(store.RetCUnavailable, err.Error())
		}
		if err != nil {
			return nil, store.NewError(store.RetCInternalError, err.Error())
		}
		if res.Value != uint64(store.RetCSuccess) {
			return nil, store.NewError(store.RetCode(res.Value), string(res.Data))
		}
		return res.Data, nil
	}
	return nil, store.NewError(store.RetCUnavailable, "timeout")
}

// read is a generic helper function queries the statemachine
// and attempts to convert the response into the expected type R.
//
// This function uses the SyncRead function (dragenboat) by default to Query the state machine.
// If linearizability is not required, the stale parameter can be set to true to use the faster StaleRead function.
//
// Is the read operation fails due to a system busy error, the function retries up to 5 times.
func read[R any](r *storeImpl, q internal.Query, stale bool) (R, error) {
	var zero R
	q.Now = r.now()
	for i := 0; i < retries; i++ {

		var res interface{}
		var err error

		if stale {
			res, err = r.nh.StaleRead(r.shardID, q)
		} else {
			ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
			res, err = r.nh.SyncRead(ctx, r.shardID, q)
			cancel()
		}

		if errors.Is(err, dragonboat.ErrSystemBusy) {
			log.Infof("SyncRead: System busy, retrying (%d/%d)...", i+1, retries)
			time.Sleep(r.timeout / 10)
			continue
		}

		if err != nil {
			var rse *store.Error
			if errors.As(err, &rse) {
				return zero, rse
			}
			if errors.Is(err, dragonboat.ErrTimeout) || errors.Is(err, dragonboat.ErrShardNotReady) {
				return zero, store.NewError(store.RetCUnavailable, err.Error())
			}
			return zero, store.NewError(store.RetCInternalError, err.Error())
		}

		// The state machine is expected to return the response in the expected type R.
		casted, ok := res.(R)
		if !ok {
			return zero, store.NewError(store.RetCInternalError,
				fmt.Sprintf("unexpected type: received %T, expected %T", res, zero))
		}
		return casted, nil
	}
	return zero, store.NewError(store.RetCUnavailable, "timeout")
}

func applied(data []byte) bool {
	return len(data) == 1 && data[0] == 1
}

// --------------------------------------------------------------------------
// Interface Methods (docs see store/interface.go)
// --------------------------------------------------------------------------

func (s *storeImpl) Set(key string, value []byte) error {
	_, err := s.write(internal.Command{
		Type:  internal.CommandTSet,
		Key:   key,
		Value: value,
	})
	return err
}

func (s *storeImpl) SetE(key string, value []byte, ttl time.Duration) error {
	_, err := s.write(internal.Command{
		Type:  internal.CommandTSetE,
		Key:   key,
		Value: value,
		TTL:   store.TTLMillis(ttl),
	})
	return err
}

func (s *storeImpl) SetEIfUnset(key string, value []byte, ttl time.Duration) (bool, error) {
	data, err := s.write(internal.Command{
		Type:  internal.CommandTSetIfUnset,
		Key:   key,
		Value: value,
		TTL:   store.TTLMillis(ttl),
	})
	if err != nil {
		return false, err
	}
	return applied(data), nil
}

func (s *storeImpl) CompareAndSwap(key string, expected, value []byte, ttl time.Duration) (bool, error) {
	data, err := s.write(internal.Command{
		Type:     internal.CommandTCompareAndSwap,
		Key:      key,
		Expected: expected,
		Value:    value,
		TTL:      store.TTLMillis(ttl),
	})
	if err != nil {
		return false, err
	}
	return applied(data), nil
}

func (s *storeImpl) Delete(key string) error {
	_, err := s.write(internal.Command{
		Type: internal.CommandTDelete,
		Key:  key,
	})
	return err
}

func (s *storeImpl) Collect() error {
	_, err := s.write(internal.Command{Type: internal.CommandTCollect})
	return err
}

func (s *storeImpl) Get(key string) ([]byte, bool, error) {
	res, err := read[internal.QueryResult](s, internal.Query{
		Type: internal.QueryTGet,
		Key:  key,
	}, false)
	if err != nil {
		return nil, false, err
	}
	return res.Value, res.Ok, nil
}

func (s *storeImpl) Has(key string) (bool, error) {
	return read[bool](s, internal.Query{
		Type: internal.QueryTHas,
		Key:  key,
	}, false)
}

func (s *storeImpl) GetDBInfo() (db.DatabaseInfo, error) {
	return read[db.DatabaseInfo](
		s,
		internal.Query{
			Type: internal.QueryTGetDBInfo,
		},
		true, // Note: allow for stale reads
	)
}
