package lockmgr

import (
	"context"
	"errors"
)

var (
	// ErrAlreadyLocked is returned by TryAcquire when another session holds the lock
	ErrAlreadyLocked = errors.New("lockmgr: lock is held by another session")
	// ErrNotOwned is returned by Renew and Release when the caller's session is not the holder
	ErrNotOwned = errors.New("lockmgr: lock is not owned by this session")
)

// Session is a lease on a document key. The ID is the only credential the registry knows.
type Session struct {
	ID string
}

// ILockManager defines the interface for a session lock provider.
// All methods take the document key, the registry entry lives under LockKey(key).
type ILockManager interface {
	// GetLockHolder returns the session id currently holding the lock for key.
	// held is false if the lock is free (or expired).
	GetLockHolder(ctx context.Context, key string) (sessionID string, held bool, err error)

	// TryAcquire creates a new session for key. Without allowSteal it fails with
	// ErrAlreadyLocked if any session holds the lock. With allowSteal the current holder
	// is overwritten.
	TryAcquire(ctx context.Context, key string, allowSteal bool) (session Session, err error)

	// Renew re-writes the session with a fresh TTL. It fails with ErrNotOwned if the session
	// no longer holds the lock, because it expired, was released or was taken over.
	Renew(ctx context.Context, key string, session Session) (err error)

	// Release removes the lock. Without steal it fails with ErrNotOwned unless session is the
	// current holder; a lock that is already gone counts as released. With steal the entry is
	// removed unconditionally.
	Release(ctx context.Context, key string, session Session, steal bool) (err error)
}
