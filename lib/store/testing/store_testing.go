package testing

import (
	"bytes"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/ValentinKolb/dDoc/lib/store"
)

// StoreFactory creates a fresh store for one test. Keys are prefixed per test so
// shared external backends do not leak state between runs.
type StoreFactory func(t *testing.T) store.IStore

// RunIStoreTests runs the conformance suite against an IStore implementation.
func RunIStoreTests(t *testing.T, name string, factory StoreFactory) {
	t.Run(name, func(t *testing.T) {
		t.Run("Set&Get", func(t *testing.T) {
			testSetGet(t, factory(t), prefix(t))
		})
		t.Run("Delete", func(t *testing.T) {
			testDelete(t, factory(t), prefix(t))
		})
		t.Run("TTL", func(t *testing.T) {
			testTTL(t, factory(t), prefix(t))
		})
		t.Run("SetEIfUnset", func(t *testing.T) {
			testSetEIfUnset(t, factory(t), prefix(t))
		})
		t.Run("CompareAndSwap", func(t *testing.T) {
			testCompareAndSwap(t, factory(t), prefix(t))
		})
		t.Run("ConcurrentCompareAndSwap", func(t *testing.T) {
			testConcurrentCompareAndSwap(t, factory(t), prefix(t))
		})
	})
}

func prefix(t *testing.T) string {
	return fmt.Sprintf("conformance/%d/", time.Now().UnixNano())
}

func mustGet(t *testing.T, s store.IStore, key string) ([]byte, bool) {
	t.Helper()
	value, ok, err := s.Get(key)
	if err != nil {
		t.Fatalf("Get(%q) failed: %v", key, err)
	}
	return value, ok
}

func testSetGet(t *testing.T, s store.IStore, p string) {
	if err := s.Set(p+"key", []byte("value")); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	value, ok := mustGet(t, s, p+"key")
	if !ok || !bytes.Equal(value, []byte("value")) {
		t.Errorf("Get() = %q, %v; want %q, true", value, ok, "value")
	}
	if _, ok := mustGet(t, s, p+"missing"); ok {
		t.Errorf("Get() on missing key reported a value")
	}
	has, err := s.Has(p + "key")
	if err != nil || !has {
		t.Errorf("Has() = %v, %v; want true, nil", has, err)
	}
}

func testDelete(t *testing.T, s store.IStore, p string) {
	if err := s.Set(p+"key", []byte("value")); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := s.Delete(p + "key"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, ok := mustGet(t, s, p+"key"); ok {
		t.Errorf("key still present after Delete")
	}
	if err := s.Delete(p + "missing"); err != nil {
		t.Errorf("Delete on missing key failed: %v", err)
	}
}

func testTTL(t *testing.T, s store.IStore, p string) {
	if err := s.SetE(p+"short", []byte("v"), 100*time.Millisecond); err != nil {
		t.Fatalf("SetE failed: %v", err)
	}
	if err := s.SetE(p+"long", []byte("v"), time.Minute); err != nil {
		t.Fatalf("SetE failed: %v", err)
	}
	if _, ok := mustGet(t, s, p+"short"); !ok {
		t.Fatalf("short lived key missing right after SetE")
	}

	time.Sleep(1200 * time.Millisecond)

	if _, ok := mustGet(t, s, p+"short"); ok {
		t.Errorf("short lived key still present after its ttl")
	}
	if _, ok := mustGet(t, s, p+"long"); !ok {
		t.Errorf("long lived key expired too early")
	}
}

func testSetEIfUnset(t *testing.T, s store.IStore, p string) {
	ok, err := s.SetEIfUnset(p+"key", []byte("first"), time.Minute)
	if err != nil || !ok {
		t.Fatalf("SetEIfUnset on missing key = %v, %v; want true, nil", ok, err)
	}
	ok, err = s.SetEIfUnset(p+"key", []byte("second"), time.Minute)
	if err != nil || ok {
		t.Errorf("SetEIfUnset on present key = %v, %v; want false, nil", ok, err)
	}
	value, _ := mustGet(t, s, p+"key")
	if !bytes.Equal(value, []byte("first")) {
		t.Errorf("value = %q, want %q", value, "first")
	}
}

func testCompareAndSwap(t *testing.T, s store.IStore, p string) {
	key := p + "cas"
	tests := []struct {
		name     string
		expected []byte
		value    []byte
		swapped  bool
		after    string
	}{
		{"create when absent", nil, []byte("v1"), true, "v1"},
		{"create fails when present", nil, []byte("x"), false, "v1"},
		{"swap with current value", []byte("v1"), []byte("v2"), true, "v2"},
		{"swap with stale value", []byte("v1"), []byte("v3"), false, "v2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			swapped, err := s.CompareAndSwap(key, tt.expected, tt.value, 0)
			if err != nil {
				t.Fatalf("CompareAndSwap failed: %v", err)
			}
			if swapped != tt.swapped {
				t.Errorf("CompareAndSwap() = %v, want %v", swapped, tt.swapped)
			}
			value, _ := mustGet(t, s, key)
			if string(value) != tt.after {
				t.Errorf("value = %q, want %q", value, tt.after)
			}
		})
	}
}

func testConcurrentCompareAndSwap(t *testing.T, s store.IStore, p string) {
	const (
		workers    = 4
		increments = 25
	)
	key := p + "counter"
	if err := s.Set(key, []byte("0")); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < increments; i++ {
				for {
					cur, _, err := s.Get(key)
					if err != nil {
						errs <- err
						return
					}
					var n int
					fmt.Sscanf(string(cur), "%d", &n)
					swapped, err := s.CompareAndSwap(key, cur, []byte(fmt.Sprintf("%d", n+1)), 0)
					if err != nil {
						errs <- err
						return
					}
					if swapped {
						break
					}
				}
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("worker failed: %v", err)
	}

	value, _ := mustGet(t, s, key)
	if want := fmt.Sprintf("%d", workers*increments); string(value) != want {
		t.Errorf("counter = %q, want %q", value, want)
	}
}
