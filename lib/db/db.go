package db

import "io"

// --------------------------------------------------------------------------
// Helper Types
// --------------------------------------------------------------------------

type Implementation string

const (
	ImplMaple  Implementation = "maple"
	ImplConsul Implementation = "consul" // external, see store/consulstore
	ImplRedis  Implementation = "redis"  // external, see store/redisstore
)

// Feature represents database features as bit flags
type Feature uint64

const (
	FeatureSet            Feature = 1 << iota // Support for Set operations
	FeatureSetE                               // Support for SetE operations
	FeatureSetEIfUnset                        // Support for SetEIfUnset operations
	FeatureCompareAndSwap                     // Support for CompareAndSwap operations
	FeatureGet                                // Support for Get operations
	FeatureDelete                             // Support for Delete operations
	FeatureHas                                // Support for Has operations
	FeatureSave                               // Support for Save operations
	FeatureLoad                               // Support for Load operations
	FeatureGarbageCollect                     // Support for GarbageCollect operations
)

func (f Feature) String() string {
	switch f {
	case FeatureSet:
		return "Set"
	case FeatureSetE:
		return "SetE"
	case FeatureSetEIfUnset:
		return "SetEIfUnset"
	case FeatureCompareAndSwap:
		return "CompareAndSwap"
	case FeatureGet:
		return "Get"
	case FeatureDelete:
		return "Delete"
	case FeatureHas:
		return "Has"
	case FeatureSave:
		return "Save"
	case FeatureLoad:
		return "Load"
	case FeatureGarbageCollect:
		return "GarbageCollect"
	default:
		return "Unknown"
	}
}

// AllFeatures lists every feature in bit order.
var AllFeatures = []Feature{
	FeatureSet, FeatureSetE, FeatureSetEIfUnset, FeatureCompareAndSwap, FeatureGet,
	FeatureDelete, FeatureHas, FeatureSave, FeatureLoad, FeatureGarbageCollect,
}

type DatabaseInfo struct {
	Keys              int            `json:"keys"`
	SizeBytes         int            `json:"size_bytes"`
	DbType            Implementation `json:"db_type"`
	SupportedFeatures []Feature      `json:"supported_features"`
}

// --------------------------------------------------------------------------
// Database Interface
// --------------------------------------------------------------------------

// KVDB defines an interface for key-value database implementations.
//
// All time parameters are unix milliseconds supplied by the caller. The database never
// reads the wall clock itself, which keeps replicated state machines deterministic:
// every replica applies the same `now` that was recorded in the log entry.
// A ttl of 0 means the entry never expires.
type KVDB interface {

	// --------------------------------------------------------------------------
	// Write Operations
	// --------------------------------------------------------------------------

	// Set inserts or updates an entry without expiration.
	Set(key string, value []byte, now int64)

	// SetE inserts or updates an entry that is removed ttl milliseconds after now.
	SetE(key string, value []byte, now int64, ttl uint64)

	// SetEIfUnset inserts an entry only if no live entry exists for the key.
	// Expired entries count as absent. Returns whether the value was written.
	SetEIfUnset(key string, value []byte, now int64, ttl uint64) (ok bool)

	// CompareAndSwap replaces the value for key only if the live value equals expected.
	// A nil expected means the key must be absent (or expired).
	// Returns whether the value was written.
	CompareAndSwap(key string, expected, value []byte, now int64, ttl uint64) (swapped bool)

	// Delete removes an entry with the specified key.
	Delete(key string)

	// --------------------------------------------------------------------------
	// Query Operations
	// --------------------------------------------------------------------------

	// Get retrieves a copy of the live value for key.
	Get(key string, now int64) (value []byte, loaded bool)

	// Has checks whether a live entry exists for key.
	Has(key string, now int64) (loaded bool)

	// --------------------------------------------------------------------------
	// Maintenance & Persistence Operations
	// --------------------------------------------------------------------------

	// GarbageCollect physically removes all entries that expired at or before now.
	// It returns the number of removed entries.
	GarbageCollect(now int64) (removed int)

	// Save persists the current state of the database to the provided io.Writer.
	Save(w io.Writer) (err error)

	// Load replaces the database state with the data provided by an io.Reader.
	Load(r io.Reader) (err error)

	// --------------------------------------------------------------------------
	// Feature Support
	// --------------------------------------------------------------------------

	// SupportsFeature checks if the database implementation supports the specified feature.
	// Multiple features can be checked at once using bitwise OR (|) operator.
	SupportsFeature(feature Feature) (ok bool)

	// GetInfo returns information about the database.
	GetInfo() (info DatabaseInfo)

	// Close closes the database.
	Close() (err error)
}
