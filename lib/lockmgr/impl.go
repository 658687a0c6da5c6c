package lockmgr

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ValentinKolb/dDoc/lib/retry"
	"github.com/ValentinKolb/dDoc/lib/store"
	"github.com/lni/dragonboat/v4/logger"
)

var log = logger.GetLogger("lockmgr")

// DefaultSessionTTL is the lifetime of a session that is not renewed
const DefaultSessionTTL = 10 * time.Minute

// Options configures the lock manager
type Options struct {
	TTL    time.Duration // Lifetime of a written session
	Policy retry.Policy  // Retry policy for registry calls
}

// DefaultOptions returns the default lock manager options
func DefaultOptions() *Options {
	return &Options{
		TTL:    DefaultSessionTTL,
		Policy: retry.LockPolicy,
	}
}

type lockMgrImpl struct {
	store  store.IStore
	ttl    time.Duration
	policy retry.Policy
}

// NewLockManager creates a lock manager on top of the given store (options are optional).
// The manager keeps no state besides the store, so any number of managers may share one.
func NewLockManager(s store.IStore, opts *Options) ILockManager {
	if opts == nil {
		opts = DefaultOptions()
	}
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &lockMgrImpl{
		store:  s,
		ttl:    ttl,
		policy: opts.Policy,
	}
}

// --------------------------------------------------------------------------
// Interface Methods
// --------------------------------------------------------------------------

func (lm *lockMgrImpl) GetLockHolder(ctx context.Context, key string) (string, bool, error) {
	type holder struct {
		id   string
		held bool
	}
	h, err := retry.Do(ctx, lm.policy, func(ctx context.Context, _ retry.CancelFunc) (holder, error) {
		id, held, err := lm.holder(key)
		return holder{id, held}, err
	})
	return h.id, h.held, err
}

func (lm *lockMgrImpl) TryAcquire(ctx context.Context, key string, allowSteal bool) (Session, error) {
	lockKey := LockKey(key)

	return retry.Do(ctx, lm.policy, func(ctx context.Context, cancel retry.CancelFunc) (Session, error) {
		id, err := newSessionID(lockKey)
		if err != nil {
			return Session{}, err
		}

		if allowSteal {
			if err := lm.store.SetE(lockKey, []byte(id), lm.ttl); err != nil {
				return Session{}, err
			}
			log.Infof("session for %q stolen, new holder %s", key, id)
			return Session{ID: id}, nil
		}

		// only one requester can create the key
		ok, err := lm.store.SetEIfUnset(lockKey, []byte(id), lm.ttl)
		if err != nil {
			return Session{}, err
		}
		if !ok {
			cancel(ErrAlreadyLocked)
			return Session{}, nil
		}

		// verify the write, the entry may have been replaced by a steal in the meantime
		current, held, err := lm.holder(key)
		if err != nil {
			return Session{}, err
		}
		if !held || current != id {
			cancel(ErrAlreadyLocked)
			return Session{}, nil
		}

		log.Debugf("session %s acquired", id)
		return Session{ID: id}, nil
	})
}

func (lm *lockMgrImpl) Renew(ctx context.Context, key string, session Session) error {
	lockKey := LockKey(key)
	id := []byte(session.ID)

	return retry.Run(ctx, lm.policy, func(ctx context.Context, cancel retry.CancelFunc) error {
		swapped, err := lm.store.CompareAndSwap(lockKey, id, id, lm.ttl)
		if err != nil {
			return err
		}
		if !swapped {
			// expired or taken over, a released lock is never brought back
			cancel(ErrNotOwned)
		}
		return nil
	})
}

func (lm *lockMgrImpl) Release(ctx context.Context, key string, session Session, steal bool) error {
	lockKey := LockKey(key)

	return retry.Run(ctx, lm.policy, func(ctx context.Context, cancel retry.CancelFunc) error {
		if !steal {
			current, held, err := lm.holder(key)
			if err != nil {
				return err
			}
			if !held {
				return nil
			}
			if current != session.ID {
				cancel(ErrNotOwned)
				return nil
			}
		}
		return lm.store.Delete(lockKey)
	})
}

// --------------------------------------------------------------------------
// Helper functions
// --------------------------------------------------------------------------

func (lm *lockMgrImpl) holder(key string) (string, bool, error) {
	value, found, err := lm.store.Get(LockKey(key))
	if err != nil {
		return "", false, fmt.Errorf("read lock holder: %w", err)
	}
	if !found {
		return "", false, nil
	}
	return string(value), true, nil
}

// IsConflict reports whether err is a lock conflict rather than a registry failure.
func IsConflict(err error) bool {
	return errors.Is(err, ErrAlreadyLocked) || errors.Is(err, ErrNotOwned)
}
