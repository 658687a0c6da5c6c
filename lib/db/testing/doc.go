// Package testing provides a conformance suite for db.KVDB implementations.
//
// Engines call RunKVDBTests from their own test files:
//
//	func Test(t *testing.T) {
//		dbtesting.RunKVDBTests(t, "MapleDB", func() db.KVDB {
//			return maple.NewMapleDB(nil)
//		})
//	}
//
// Tests that need a feature the engine does not advertise are skipped.
package testing
