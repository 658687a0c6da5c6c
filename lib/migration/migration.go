package migration

import "fmt"

// Func migrates data from the previous schema version to the next one
type Func func(data any) (any, error)

// Transformation is applied to the loaded data before any migration runs
type Transformation func(data any) (any, error)

// Migration is a single step in a Chain
type Migration struct {
	BackwardsCompatible bool // Older chains can still read data written after this step
	Migrate             Func
}

// Chain is an ordered list of migrations, position i upgrades to version i
type Chain []Migration

// Error reports a failed migration step
type Error struct {
	Version int // Target version of the failing migration
	Err     error
}

func (e *Error) Error() string {
	return fmt.Sprintf("migration to version %d failed: %v", e.Version, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Version returns the schema version produced by the chain
func (c Chain) Version() int {
	return len(c)
}

// Accepts reports whether data with the given minimal supported version can be read.
func (c Chain) Accepts(minimalSupportedVersion int) bool {
	return minimalSupportedVersion <= len(c)
}

// Apply runs every migration after version and returns the migrated data together with the
// reached version. Versions at or beyond the chain length are returned unchanged.
func (c Chain) Apply(data any, version int) (any, int, error) {
	if version < 0 {
		version = 0
	}
	for target := version + 1; target <= len(c); target++ {
		m := c[target-1]
		if m.Migrate == nil {
			version = target
			continue
		}
		next, err := m.Migrate(data)
		if err != nil {
			return nil, version, &Error{Version: target, Err: err}
		}
		data, version = next, target
	}
	return data, version, nil
}

// MinimalSupportedVersion computes the floor after applying the chain. The newest migration
// that is not backwards compatible defines the floor; if every migration is compatible the
// previous floor is kept.
func (c Chain) MinimalSupportedVersion(previous int) int {
	for i := len(c); i > 0; i-- {
		if !c[i-1].BackwardsCompatible {
			return i
		}
	}
	if previous < 0 {
		return 0
	}
	return previous
}
