package store

import (
	"fmt"
	"time"

	"github.com/ValentinKolb/dDoc/lib/db"
)

// --------------------------------------------------------------------------
// Interface Definition
// --------------------------------------------------------------------------

// DBFactory is a function type that creates a new db used by the store.
// This is used to abstract the creation of the db from the store implementation.
type DBFactory func() db.KVDB

// IStore is the generic interface for interacting with a key–value store.
// It is implemented by local, raft, rpc, consul and redis backed stores and is the
// medium for both documents and session locks.
//
// A ttl of 0 means the key never expires.
type IStore interface {
	// Set inserts or updates a key–value pair.
	Set(key string, value []byte) (err error)
	// SetE inserts or updates a key–value pair that is deleted after ttl.
	SetE(key string, value []byte, ttl time.Duration) (err error)
	// SetEIfUnset inserts a key–value pair if the key does not exist.
	// If the key already exists, the old value is not updated and ok is false.
	SetEIfUnset(key string, value []byte, ttl time.Duration) (ok bool, err error)
	// CompareAndSwap writes value only if the current value equals expected.
	// A nil expected means the key must not exist.
	// A false swapped with a nil error means another writer changed the key first.
	CompareAndSwap(key string, expected, value []byte, ttl time.Duration) (swapped bool, err error)
	// Delete deletes a key–value pair. Deleting a missing key is not an error.
	Delete(key string) (err error)
	// Get return the value for a key. The boolean return value indicates whether a value for the key was found.
	Get(key string) (value []byte, loaded bool, err error)
	// Has returns whether a key exists in the store.
	Has(key string) (loaded bool, err error)
	// GetDBInfo returns metadata about the database underlying the store.
	// It is not guaranteed that all fields are filled in or that the information is up-to-date!
	GetDBInfo() (info db.DatabaseInfo, err error)
}

// TTLMillis converts a ttl to the millisecond resolution used by the db engines.
// Positive durations below one millisecond are rounded up so they do not mean "forever".
func TTLMillis(ttl time.Duration) uint64 {
	if ttl <= 0 {
		return 0
	}
	ms := ttl.Milliseconds()
	if ms == 0 {
		ms = 1
	}
	return uint64(ms)
}

// --------------------------------------------------------------------------
// Custom Error Type
// --------------------------------------------------------------------------

// Error is a custom error type that wraps a return code (of type RetCode)
// and an error message.
type Error struct {
	Code RetCode // The return code
	Msg  string  // The error message.
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("KVStoreError (code %s): %s", e.Code, e.Msg)
}

// Temporary reports whether retrying the operation may succeed.
func (e *Error) Temporary() bool {
	return e.Code == RetCUnavailable || e.Code == RetCInternalError
}

// NewError creates a new KVStoreError with the given code and message.
func NewError(code RetCode, msg string) *Error {
	return &Error{
		Code: code,
		Msg:  msg,
	}
}

// --------------------------------------------------------------------------
// Return Codes
// --------------------------------------------------------------------------

type RetCode uint64

const (
	RetCSuccess              RetCode = iota // 0: Command executed successfully.
	RetCInternalError                       // 1: Command failed due to an internal error.
	RetCUnsupportedOperation                // 2: Operation is not supported by underlying database.
	RetCInvalidOperation                    // 3: Invalid operation.
	RetCUnavailable                         // 4: Backend temporarily unavailable (busy, timeout, network).
)

func (c RetCode) String() string {
	switch c {
	case RetCSuccess:
		return "Success"
	case RetCInternalError:
		return "InternalError"
	case RetCUnsupportedOperation:
		return "UnsupportedOperation"
	case RetCInvalidOperation:
		return "InvalidOperation"
	case RetCUnavailable:
		return "Unavailable"
	default:
		return "Unknown"
	}
}
