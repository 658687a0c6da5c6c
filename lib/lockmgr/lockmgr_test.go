package lockmgr

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ValentinKolb/dDoc/lib/db"
	"github.com/ValentinKolb/dDoc/lib/db/engines/maple"
	"github.com/ValentinKolb/dDoc/lib/retry"
	"github.com/ValentinKolb/dDoc/lib/store"
	"github.com/ValentinKolb/dDoc/lib/store/lstore"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestManager(t *testing.T) (ILockManager, store.IStore, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	s := lstore.NewLocalStore(func() db.KVDB { return maple.NewMapleDB(nil) }, lstore.Options{Clock: clock.Now})
	t.Cleanup(func() { _ = s.Close() })
	return NewLockManager(s, &Options{TTL: time.Minute, Policy: retry.Immediate(3)}), s, clock
}

func TestLockKeyAndSessionID(t *testing.T) {
	if got := LockKey("doc"); got != "doc-lockSession" {
		t.Errorf("LockKey() = %q", got)
	}
	id, err := newSessionID(LockKey("doc"))
	if err != nil {
		t.Fatalf("newSessionID() error = %v", err)
	}
	if !strings.HasPrefix(id, "doc-lockSession::") {
		t.Errorf("session id %q has wrong prefix", id)
	}
	lockKey, ok := SessionLockKey(id)
	if !ok || lockKey != "doc-lockSession" {
		t.Errorf("SessionLockKey(%q) = %q, %v", id, lockKey, ok)
	}
	if _, ok := SessionLockKey("doc-lockSession::not-a-uuid"); ok {
		t.Errorf("SessionLockKey accepted an invalid id")
	}
}

func TestAcquireAndHolder(t *testing.T) {
	lm, _, _ := newTestManager(t)
	ctx := context.Background()

	if _, held, err := lm.GetLockHolder(ctx, "doc"); err != nil || held {
		t.Fatalf("GetLockHolder() on free lock = %v, %v", held, err)
	}

	s1, err := lm.TryAcquire(ctx, "doc", false)
	if err != nil {
		t.Fatalf("TryAcquire() error = %v", err)
	}

	holder, held, err := lm.GetLockHolder(ctx, "doc")
	if err != nil || !held || holder != s1.ID {
		t.Errorf("GetLockHolder() = %q, %v, %v, want %q", holder, held, err, s1.ID)
	}

	if _, err := lm.TryAcquire(ctx, "doc", false); !errors.Is(err, ErrAlreadyLocked) {
		t.Errorf("second TryAcquire() error = %v, want ErrAlreadyLocked", err)
	}

	// other keys are independent
	if _, err := lm.TryAcquire(ctx, "other", false); err != nil {
		t.Errorf("TryAcquire() on another key error = %v", err)
	}
}

func TestSteal(t *testing.T) {
	lm, _, _ := newTestManager(t)
	ctx := context.Background()

	s1, _ := lm.TryAcquire(ctx, "doc", false)
	s2, err := lm.TryAcquire(ctx, "doc", true)
	if err != nil {
		t.Fatalf("TryAcquire(steal) error = %v", err)
	}
	if s2.ID == s1.ID {
		t.Fatalf("steal reused the old session id")
	}

	if err := lm.Release(ctx, "doc", s1, false); !errors.Is(err, ErrNotOwned) {
		t.Errorf("Release() by the previous owner = %v, want ErrNotOwned", err)
	}
	if err := lm.Release(ctx, "doc", s1, true); err != nil {
		t.Errorf("Release(steal) error = %v", err)
	}
	if _, held, _ := lm.GetLockHolder(ctx, "doc"); held {
		t.Errorf("lock still held after forced release")
	}
}

func TestRelease(t *testing.T) {
	lm, _, _ := newTestManager(t)
	ctx := context.Background()

	s1, _ := lm.TryAcquire(ctx, "doc", false)
	if err := lm.Release(ctx, "doc", s1, false); err != nil {
		t.Fatalf("Release() error = %v", err)
	}
	// releasing a free lock is fine
	if err := lm.Release(ctx, "doc", s1, false); err != nil {
		t.Errorf("second Release() error = %v", err)
	}
	if _, err := lm.TryAcquire(ctx, "doc", false); err != nil {
		t.Errorf("TryAcquire() after release error = %v", err)
	}
}

func TestExpiryAndRenew(t *testing.T) {
	lm, _, clock := newTestManager(t)
	ctx := context.Background()

	s1, _ := lm.TryAcquire(ctx, "doc", false)

	// renewing pushes the deadline
	clock.Advance(40 * time.Second)
	if err := lm.Renew(ctx, "doc", s1); err != nil {
		t.Fatalf("Renew() error = %v", err)
	}
	clock.Advance(40 * time.Second)
	if holder, held, _ := lm.GetLockHolder(ctx, "doc"); !held || holder != s1.ID {
		t.Fatalf("renewed session expired early")
	}

	// without renewal the session expires and the lock is free again
	clock.Advance(2 * time.Minute)
	if _, held, _ := lm.GetLockHolder(ctx, "doc"); held {
		t.Fatalf("session did not expire")
	}

	// an expired session stays expired
	if err := lm.Renew(ctx, "doc", s1); !errors.Is(err, ErrNotOwned) {
		t.Errorf("Renew() of expired session = %v, want ErrNotOwned", err)
	}
	if _, held, _ := lm.GetLockHolder(ctx, "doc"); held {
		t.Errorf("expired session was re-created by Renew()")
	}

	// renewing fails once another session took over
	if _, err := lm.TryAcquire(ctx, "doc", false); err != nil {
		t.Fatalf("TryAcquire() after expiry error = %v", err)
	}
	if err := lm.Renew(ctx, "doc", s1); !errors.Is(err, ErrNotOwned) {
		t.Errorf("Renew() of foreign lock = %v, want ErrNotOwned", err)
	}
}

func TestRenewAfterRelease(t *testing.T) {
	lm, _, _ := newTestManager(t)
	ctx := context.Background()

	s, _ := lm.TryAcquire(ctx, "doc", false)
	if err := lm.Release(ctx, "doc", s, false); err != nil {
		t.Fatalf("Release() error = %v", err)
	}
	if err := lm.Renew(ctx, "doc", s); !errors.Is(err, ErrNotOwned) {
		t.Errorf("Renew() after release = %v, want ErrNotOwned", err)
	}
	if _, held, _ := lm.GetLockHolder(ctx, "doc"); held {
		t.Errorf("released lock was re-created by Renew()")
	}
}

func TestConcurrentAcquire(t *testing.T) {
	lm, _, _ := newTestManager(t)
	ctx := context.Background()

	const workers = 16
	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		owners []Session
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s, err := lm.TryAcquire(ctx, "doc", false)
			if err == nil {
				mu.Lock()
				owners = append(owners, s)
				mu.Unlock()
			} else if !errors.Is(err, ErrAlreadyLocked) {
				t.Errorf("TryAcquire() error = %v", err)
			}
		}()
	}
	wg.Wait()

	if len(owners) != 1 {
		t.Fatalf("%d sessions acquired the lock, want exactly 1", len(owners))
	}
	if !IsConflict(ErrAlreadyLocked) || IsConflict(errors.New("x")) {
		t.Errorf("IsConflict() misclassified errors")
	}
}

// failingStore fails every call with a transient error
type failingStore struct {
	store.IStore
	calls int
}

func (f *failingStore) Get(string) ([]byte, bool, error) {
	f.calls++
	return nil, false, store.NewError(store.RetCUnavailable, "down")
}

func TestRegistryFailuresAreRetried(t *testing.T) {
	fs := &failingStore{}
	lm := NewLockManager(fs, &Options{Policy: retry.Immediate(3)})

	_, _, err := lm.GetLockHolder(context.Background(), "doc")
	var storeErr *store.Error
	if !errors.As(err, &storeErr) || storeErr.Code != store.RetCUnavailable {
		t.Errorf("GetLockHolder() error = %v, want wrapped store error", err)
	}
	if fs.calls != 3 {
		t.Errorf("store called %d times, want 3", fs.calls)
	}
}
