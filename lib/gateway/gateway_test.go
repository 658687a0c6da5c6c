package gateway

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/ValentinKolb/dDoc/lib/db"
	"github.com/ValentinKolb/dDoc/lib/db/engines/maple"
	"github.com/ValentinKolb/dDoc/lib/retry"
	"github.com/ValentinKolb/dDoc/lib/store"
	"github.com/ValentinKolb/dDoc/lib/store/lstore"
)

func newTestStore(t *testing.T) store.IStore {
	t.Helper()
	s := lstore.NewLocalStore(func() db.KVDB { return maple.NewMapleDB(nil) }, lstore.DefaultOptions())
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func testOptions() *Options {
	return &Options{
		GetPolicy:    retry.Immediate(3),
		UpdatePolicy: retry.Immediate(3),
		RemovePolicy: retry.Immediate(3),
		MaxConflicts: 100,
	}
}

func increment(current []byte, _ retry.CancelFunc) []byte {
	n, _ := strconv.Atoi(string(current))
	return []byte(strconv.Itoa(n + 1))
}

func TestGetAndRemove(t *testing.T) {
	s := newTestStore(t)
	gw := NewGateway(s, testOptions())
	ctx := context.Background()

	value, info, err := gw.Get(ctx, "doc")
	if err != nil || info.Exists || value != nil {
		t.Fatalf("Get() on absent key = %q, %+v, %v", value, info, err)
	}

	_ = s.Set("doc", []byte("v"))
	value, info, err = gw.Get(ctx, "doc")
	if err != nil || !info.Exists || string(value) != "v" {
		t.Fatalf("Get() = %q, %+v, %v", value, info, err)
	}

	if err := gw.Remove(ctx, "doc"); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	if _, info, _ := gw.Get(ctx, "doc"); info.Exists {
		t.Errorf("key still exists after Remove()")
	}
}

func TestConditionalUpdate(t *testing.T) {
	gw := NewGateway(newTestStore(t), testOptions())
	ctx := context.Background()

	value, info, err := gw.ConditionalUpdate(ctx, "counter", increment)
	if err != nil {
		t.Fatalf("ConditionalUpdate() error = %v", err)
	}
	if string(value) != "1" || info.Exists || info.Attempts != 1 {
		t.Errorf("ConditionalUpdate() = %q, %+v", value, info)
	}

	value, info, err = gw.ConditionalUpdate(ctx, "counter", increment)
	if err != nil || string(value) != "2" || !info.Exists {
		t.Errorf("second ConditionalUpdate() = %q, %+v, %v", value, info, err)
	}
}

func TestConditionalUpdateUnchanged(t *testing.T) {
	s := newTestStore(t)
	gw := NewGateway(s, testOptions())
	ctx := context.Background()

	// nil output on an absent key writes nothing
	_, _, err := gw.ConditionalUpdate(ctx, "doc", func(current []byte, _ retry.CancelFunc) []byte { return current })
	if err != nil {
		t.Fatalf("ConditionalUpdate() error = %v", err)
	}
	if ok, _ := s.Has("doc"); ok {
		t.Errorf("identity transform created the key")
	}
}

func TestConditionalUpdateCancel(t *testing.T) {
	s := newTestStore(t)
	_ = s.Set("doc", []byte("original"))
	gw := NewGateway(s, testOptions())

	errInvalid := errors.New("invalid data")
	_, info, err := gw.ConditionalUpdate(context.Background(), "doc", func(current []byte, cancel retry.CancelFunc) []byte {
		cancel(errInvalid)
		return current
	})
	if err != errInvalid {
		t.Errorf("ConditionalUpdate() error = %v, want the cancel error verbatim", err)
	}
	if info.Attempts != 1 {
		t.Errorf("transform ran %d times, want 1", info.Attempts)
	}
	if v, _, _ := s.Get("doc"); string(v) != "original" {
		t.Errorf("cancelled update wrote %q", v)
	}
}

// racingStore lets another writer change the key between the read and the swap
type racingStore struct {
	store.IStore
	races int
}

func (r *racingStore) CompareAndSwap(key string, expected, value []byte, ttl time.Duration) (bool, error) {
	if r.races > 0 {
		r.races--
		cur, _, _ := r.IStore.Get(key)
		n, _ := strconv.Atoi(string(cur))
		_ = r.IStore.Set(key, []byte(strconv.Itoa(n+100)))
	}
	return r.IStore.CompareAndSwap(key, expected, value, ttl)
}

func TestConditionalUpdateConflictRerunsTransform(t *testing.T) {
	rs := &racingStore{IStore: newTestStore(t), races: 2}
	_ = rs.Set("counter", []byte("0"))
	gw := NewGateway(rs, testOptions())

	value, info, err := gw.ConditionalUpdate(context.Background(), "counter", increment)
	if err != nil {
		t.Fatalf("ConditionalUpdate() error = %v", err)
	}
	// two foreign writes of +100 happened before our increment won
	if string(value) != "201" {
		t.Errorf("ConditionalUpdate() = %q, want 201", value)
	}
	if info.Attempts != 3 {
		t.Errorf("transform ran %d times, want 3", info.Attempts)
	}
}

func TestConcurrentConditionalUpdates(t *testing.T) {
	gw := NewGateway(newTestStore(t), testOptions())
	ctx := context.Background()

	const workers, perWorker = 8, 50
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				if _, _, err := gw.ConditionalUpdate(ctx, "counter", increment); err != nil {
					t.Errorf("ConditionalUpdate() error = %v", err)
				}
			}
		}()
	}
	wg.Wait()

	value, _, _ := gw.Get(ctx, "counter")
	if string(value) != strconv.Itoa(workers*perWorker) {
		t.Errorf("counter = %s, want %d", value, workers*perWorker)
	}
}

// denyBudget denies a fixed number of requests
type denyBudget struct {
	mu     sync.Mutex
	denied int
}

func (d *denyBudget) Allow(OpClass) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.denied > 0 {
		d.denied--
		return false
	}
	return true
}

func TestBudgetExhaustion(t *testing.T) {
	ctx := context.Background()

	t.Run("retried until the budget recovers", func(t *testing.T) {
		opts := testOptions()
		opts.Budget = &denyBudget{denied: 2}
		gw := NewGateway(newTestStore(t), opts)
		if _, _, err := gw.Get(ctx, "doc"); err != nil {
			t.Errorf("Get() error = %v", err)
		}
	})

	t.Run("surfaced after the last attempt", func(t *testing.T) {
		opts := testOptions()
		opts.Budget = &denyBudget{denied: 10}
		gw := NewGateway(newTestStore(t), opts)
		_, _, err := gw.ConditionalUpdate(ctx, "doc", increment)
		if !IsBudgetExhausted(err) {
			t.Errorf("ConditionalUpdate() error = %v, want ErrBudgetExhausted", err)
		}
		if errors.Is(err, ErrService) {
			t.Errorf("budget exhaustion must be distinguishable from service errors")
		}
	})
}

func TestRateBudget(t *testing.T) {
	b := NewRateBudget(RateLimits{Update: Limit{PerSecond: 0.001, Burst: 2}})
	if !b.Allow(OpUpdate) || !b.Allow(OpUpdate) {
		t.Fatalf("burst requests were denied")
	}
	if b.Allow(OpUpdate) {
		t.Errorf("request beyond the burst was allowed")
	}
	for i := 0; i < 100; i++ {
		if !b.Allow(OpGet) {
			t.Fatalf("unlimited class was denied")
		}
	}
}

// brokenStore fails every request
type brokenStore struct {
	store.IStore
}

func (brokenStore) Get(string) ([]byte, bool, error) {
	return nil, false, store.NewError(store.RetCUnavailable, "backend down")
}

func (brokenStore) Delete(string) error {
	return store.NewError(store.RetCUnavailable, "backend down")
}

func TestServiceErrors(t *testing.T) {
	gw := NewGateway(brokenStore{}, testOptions())
	ctx := context.Background()

	if _, _, err := gw.Get(ctx, "doc"); !errors.Is(err, ErrService) {
		t.Errorf("Get() error = %v, want ErrService", err)
	}
	if _, _, err := gw.ConditionalUpdate(ctx, "doc", increment); !errors.Is(err, ErrService) {
		t.Errorf("ConditionalUpdate() error = %v, want ErrService", err)
	}
	err := gw.Remove(ctx, "doc")
	var storeErr *store.Error
	if !errors.As(err, &storeErr) || storeErr.Code != store.RetCUnavailable {
		t.Errorf("Remove() error = %v, want wrapped store error", err)
	}
}
