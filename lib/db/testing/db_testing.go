package testing

import (
	"bytes"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/ValentinKolb/dDoc/lib/db"
)

// DBFactory is a function that creates a new instance of a KVDB implementation
type DBFactory func() db.KVDB

// RunKVDBTests runs a comprehensive test suite for a KVDB implementation.
func RunKVDBTests(t *testing.T, name string, factory DBFactory) {
	t.Run(name, func(t *testing.T) {
		t.Run("Set&Get", func(t *testing.T) {
			testSetGet(t, factory())
		})

		t.Run("Delete", func(t *testing.T) {
			testDelete(t, factory())
		})

		t.Run("KeyExpiry", func(t *testing.T) {
			testKeyExpiry(t, factory())
		})

		t.Run("SetEIfUnset", func(t *testing.T) {
			testSetEIfUnset(t, factory())
		})

		t.Run("CompareAndSwap", func(t *testing.T) {
			testCompareAndSwap(t, factory())
		})

		t.Run("ConcurrentCompareAndSwap", func(t *testing.T) {
			testConcurrentCompareAndSwap(t, factory())
		})

		t.Run("GarbageCollect", func(t *testing.T) {
			testGarbageCollect(t, factory())
		})

		t.Run("SaveLoad", func(t *testing.T) {
			testSaveLoad(t, factory)
		})
	})
}

// --------------------------------------------------------------------------
// Helper functions
// --------------------------------------------------------------------------

// Checks if the database supports the specified feature
// Skip the test if it is not supported
func requireFeature(t testing.TB, database db.KVDB, feature db.Feature) {
	if !database.SupportsFeature(feature) {
		t.Skip()
	}
}

func expectValue(t testing.TB, database db.KVDB, key string, now int64, want []byte) {
	t.Helper()
	got, ok := database.Get(key, now)
	if want == nil {
		if ok {
			t.Errorf("Get(%q) at %d: expected no value, got %q", key, now, got)
		}
		return
	}
	if !ok {
		t.Errorf("Get(%q) at %d: expected %q, got nothing", key, now, want)
		return
	}
	if !bytes.Equal(got, want) {
		t.Errorf("Get(%q) at %d: expected %q, got %q", key, now, want, got)
	}
}

// --------------------------------------------------------------------------
// Test functions
// --------------------------------------------------------------------------

func testSetGet(t *testing.T, database db.KVDB) {
	defer database.Close()

	requireFeature(t, database, db.FeatureSet|db.FeatureGet)

	database.Set("key", []byte("value1"), 1)
	expectValue(t, database, "key", 1, []byte("value1"))

	database.Set("key", []byte("value2"), 2)
	expectValue(t, database, "key", 2, []byte("value2"))

	expectValue(t, database, "nonexistent-key", 2, nil)

	// returned values must be copies
	retrieved, _ := database.Get("key", 2)
	retrieved[0] = 'X'
	expectValue(t, database, "key", 2, []byte("value2"))

	// stored values must be copies
	input := []byte("value3")
	database.Set("key", input, 3)
	input[0] = 'X'
	expectValue(t, database, "key", 3, []byte("value3"))
}

func testDelete(t *testing.T, database db.KVDB) {
	defer database.Close()

	requireFeature(t, database, db.FeatureSet|db.FeatureDelete|db.FeatureHas)

	database.Set("key", []byte("value"), 1)
	if !database.Has("key", 1) {
		t.Fatalf("expected key to exist before Delete")
	}
	database.Delete("key")
	if database.Has("key", 1) {
		t.Errorf("expected key to be gone after Delete")
	}

	// deleting a missing key is a no-op
	database.Delete("missing")
}

func testKeyExpiry(t *testing.T, database db.KVDB) {
	defer database.Close()

	requireFeature(t, database, db.FeatureSetE|db.FeatureGet|db.FeatureHas)

	database.SetE("ttl", []byte("value"), 1000, 500)

	tests := []struct {
		now  int64
		live bool
	}{
		{1000, true},
		{1499, true},
		{1500, false},
		{5000, false},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("now=%d", tt.now), func(t *testing.T) {
			if got := database.Has("ttl", tt.now); got != tt.live {
				t.Errorf("Has() = %v, want %v", got, tt.live)
			}
			if tt.live {
				expectValue(t, database, "ttl", tt.now, []byte("value"))
			} else {
				expectValue(t, database, "ttl", tt.now, nil)
			}
		})
	}

	// a ttl of zero never expires
	database.SetE("forever", []byte("value"), 1000, 0)
	expectValue(t, database, "forever", 1<<40, []byte("value"))

	// rewriting with SetE refreshes the deadline
	database.SetE("ttl", []byte("renewed"), 1400, 500)
	expectValue(t, database, "ttl", 1800, []byte("renewed"))
}

func testSetEIfUnset(t *testing.T, database db.KVDB) {
	defer database.Close()

	requireFeature(t, database, db.FeatureSetEIfUnset|db.FeatureGet)

	if ok := database.SetEIfUnset("key", []byte("first"), 10, 100); !ok {
		t.Fatalf("SetEIfUnset on missing key should write")
	}
	if ok := database.SetEIfUnset("key", []byte("second"), 20, 100); ok {
		t.Errorf("SetEIfUnset on live key should not write")
	}
	expectValue(t, database, "key", 20, []byte("first"))

	// after expiry the key counts as unset
	if ok := database.SetEIfUnset("key", []byte("third"), 200, 100); !ok {
		t.Errorf("SetEIfUnset on expired key should write")
	}
	expectValue(t, database, "key", 200, []byte("third"))
}

func testCompareAndSwap(t *testing.T, database db.KVDB) {
	defer database.Close()

	requireFeature(t, database, db.FeatureCompareAndSwap|db.FeatureGet)

	tests := []struct {
		name     string
		expected []byte
		value    []byte
		now      int64
		swapped  bool
		after    []byte
	}{
		{"create when absent", nil, []byte("v1"), 1, true, []byte("v1")},
		{"create fails when present", nil, []byte("other"), 2, false, []byte("v1")},
		{"swap with matching value", []byte("v1"), []byte("v2"), 3, true, []byte("v2")},
		{"swap with stale value", []byte("v1"), []byte("v3"), 4, false, []byte("v2")},
		{"swap with empty expected", []byte{}, []byte("v3"), 5, false, []byte("v2")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			swapped := database.CompareAndSwap("cas", tt.expected, tt.value, tt.now, 0)
			if swapped != tt.swapped {
				t.Errorf("CompareAndSwap() = %v, want %v", swapped, tt.swapped)
			}
			expectValue(t, database, "cas", tt.now, tt.after)
		})
	}

	// a failed create on a missing key must not leave anything behind
	if database.CompareAndSwap("missing", []byte("x"), []byte("y"), 10, 0) {
		t.Errorf("CompareAndSwap on missing key with expected value should fail")
	}
	if database.Has("missing", 10) {
		t.Errorf("failed CompareAndSwap created a key")
	}

	// expired values behave like absent values
	database.SetE("expiring", []byte("old"), 100, 10)
	if database.CompareAndSwap("expiring", []byte("old"), []byte("new"), 200, 0) {
		t.Errorf("CompareAndSwap matched an expired value")
	}
	if !database.CompareAndSwap("expiring", nil, []byte("new"), 200, 0) {
		t.Errorf("CompareAndSwap with nil expected should replace an expired value")
	}
}

func testConcurrentCompareAndSwap(t *testing.T, database db.KVDB) {
	defer database.Close()

	requireFeature(t, database, db.FeatureCompareAndSwap|db.FeatureGet)

	const (
		workers    = 8
		increments = 200
	)

	database.Set("counter", []byte("0"), 0)

	var conflicts atomic.Int64
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < increments; i++ {
				for {
					cur, _ := database.Get("counter", 0)
					var n int
					fmt.Sscanf(string(cur), "%d", &n)
					next := []byte(fmt.Sprintf("%d", n+1))
					if database.CompareAndSwap("counter", cur, next, 0, 0) {
						break
					}
					conflicts.Add(1)
				}
			}
		}()
	}
	wg.Wait()

	expectValue(t, database, "counter", 0, []byte(fmt.Sprintf("%d", workers*increments)))
	t.Logf("resolved %d conflicts", conflicts.Load())
}

func testGarbageCollect(t *testing.T, database db.KVDB) {
	defer database.Close()

	requireFeature(t, database, db.FeatureGarbageCollect|db.FeatureSetE|db.FeatureHas)

	for i := 0; i < 100; i++ {
		database.SetE(fmt.Sprintf("short-%d", i), []byte("v"), 0, 10)
		database.SetE(fmt.Sprintf("long-%d", i), []byte("v"), 0, 1000)
	}
	database.Set("forever", []byte("v"), 0)

	if removed := database.GarbageCollect(5); removed != 0 {
		t.Errorf("GarbageCollect(5) removed %d entries, want 0", removed)
	}
	if removed := database.GarbageCollect(10); removed != 100 {
		t.Errorf("GarbageCollect(10) removed %d entries, want 100", removed)
	}
	if !database.Has("long-0", 10) || !database.Has("forever", 10) {
		t.Errorf("GarbageCollect removed live entries")
	}
	if info := database.GetInfo(); info.Keys != 101 {
		t.Errorf("GetInfo().Keys = %d, want 101", info.Keys)
	}
}

func testSaveLoad(t *testing.T, factory DBFactory) {
	source := factory()
	defer source.Close()

	requireFeature(t, source, db.FeatureSave|db.FeatureLoad|db.FeatureSetE|db.FeatureGet)

	source.Set("plain", []byte("value"), 1)
	source.SetE("ttl", []byte("expiring"), 1, 100)
	source.Set("empty", []byte{}, 1)

	var buf bytes.Buffer
	if err := source.Save(&buf); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	target := factory()
	defer target.Close()
	target.Set("stale", []byte("removed by load"), 1)

	if err := target.Load(&buf); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	expectValue(t, target, "plain", 50, []byte("value"))
	expectValue(t, target, "ttl", 50, []byte("expiring"))
	expectValue(t, target, "ttl", 101, nil)
	expectValue(t, target, "empty", 50, []byte{})
	expectValue(t, target, "stale", 50, nil)

	if err := target.Load(bytes.NewReader([]byte("garbage"))); err == nil {
		t.Errorf("Load accepted an invalid snapshot")
	}
}
