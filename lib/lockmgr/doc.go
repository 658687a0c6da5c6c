// Package lockmgr implements session locks (leases) for documents on top of any
// store.IStore. A session is a randomly generated id that is written to the registry key
// LockKey(key) with a TTL. While the id is stored there, the session owns the document.
//
// The lock manager keeps no state besides the store, so it is safe to create it multiple
// times on the same store. As long as the same store is used, all sessions work as expected.
//
// Implementation Approach:
//
//	- Acquisition: SetEIfUnset creates the registry key, which guarantees that only one
//	  requester succeeds. A Get afterwards verifies that the stored id is ours, since a
//	  concurrent steal may have overwritten it.
//
//	- Steal: an operator override that writes a fresh id with SetE regardless of the
//	  current holder, and removes the entry on release without an ownership check.
//
//	- Renewal: a CompareAndSwap of the id with itself refreshes the TTL only while the
//	  session still owns the key. An expired or released session is never re-created.
//
//	- Release: the registry has no owner-checked delete. The holder is read and compared
//	  with the session id before an unconditional Delete. The window between both calls is
//	  covered by the short TTL.
//
// Every call runs in the retry engine. Lock conflicts (ErrAlreadyLocked, ErrNotOwned)
// cancel the retry loop and are returned immediately; store failures are retried.
//
// Session ids have the form "<key>-lockSession::<uuid>".
//
// Usage Example:
//
//	locks := lockmgr.NewLockManager(store, nil)
//
//	session, err := locks.TryAcquire(ctx, "player:123", false)
//	if errors.Is(err, lockmgr.ErrAlreadyLocked) {
//	    // someone else has the document open
//	}
//	defer locks.Release(ctx, "player:123", session, false)
package lockmgr
