package maple

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/ValentinKolb/dDoc/lib/db"
	"github.com/ValentinKolb/dDoc/lib/db/engines/maple/internal"
	"github.com/puzpuzpuz/xsync/v3"
)

// --------------------------------------------------------------------------
// Constants
// --------------------------------------------------------------------------

const (
	magicNum     = "MAPLEDB\x00" // File format identifier
	mapleVersion = 4             // Database version
)

const supportedFeatures = db.FeatureSet | db.FeatureSetE | db.FeatureSetEIfUnset |
	db.FeatureCompareAndSwap | db.FeatureGet | db.FeatureDelete | db.FeatureHas |
	db.FeatureSave | db.FeatureLoad | db.FeatureGarbageCollect

// --------------------------------------------------------------------------
// Core Maple database structure
// --------------------------------------------------------------------------

// mapleImpl is an in-memory database backed by a concurrent hash map.
// xsync.MapOf shards its buckets internally, so per key operations never contend
// on a global lock and Compute gives atomic read-modify-write per key.
type mapleImpl struct {
	data *xsync.MapOf[string, internal.Entry]
}

// DBOptions configures the mapleImpl behavior during initialization
type DBOptions struct {
	PresizeHint int // Expected number of keys (0 = grow on demand)
}

// DefaultOptions returns the default mapleImpl options
func DefaultOptions() *DBOptions {
	return &DBOptions{
		PresizeHint: 0,
	}
}

// NewMapleDB creates a new MapleDB instance with the specified options (optional)
func NewMapleDB(opts *DBOptions) db.KVDB {
	if opts == nil {
		opts = DefaultOptions()
	}

	var data *xsync.MapOf[string, internal.Entry]
	if opts.PresizeHint > 0 {
		data = xsync.NewMapOf[string, internal.Entry](xsync.WithPresize(opts.PresizeHint))
	} else {
		data = xsync.NewMapOf[string, internal.Entry]()
	}

	return &mapleImpl{data: data}
}

// --------------------------------------------------------------------------
// Core KVDB Interface Methods - Write Operations
// --------------------------------------------------------------------------

// Set inserts or updates an entry without expiration.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (maple *mapleImpl) Set(key string, value []byte, now int64) {
	maple.data.Store(key, internal.NewEntry(value, now, 0))
}

// SetE inserts or updates an entry that is deleted ttl milliseconds after now.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (maple *mapleImpl) SetE(key string, value []byte, now int64, ttl uint64) {
	maple.data.Store(key, internal.NewEntry(value, now, ttl))
}

// SetEIfUnset inserts an entry only if no live entry exists.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (maple *mapleImpl) SetEIfUnset(key string, value []byte, now int64, ttl uint64) bool {
	return maple.CompareAndSwap(key, nil, value, now, ttl)
}

// CompareAndSwap writes value only if the live entry equals expected.
// The precondition and the write happen inside a single Compute call, so concurrent
// writers to the same key are serialized by the map.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (maple *mapleImpl) CompareAndSwap(key string, expected, value []byte, now int64, ttl uint64) bool {
	swapped := false
	maple.data.Compute(key, func(old internal.Entry, loaded bool) (internal.Entry, bool) {
		if !old.Matches(expected, loaded, now) {
			// keep the old entry untouched, drop it if it only existed as a dead value
			return old, !loaded
		}
		swapped = true
		return internal.NewEntry(value, now, ttl), false
	})
	return swapped
}

// Delete removes an entry with the specified key.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (maple *mapleImpl) Delete(key string) {
	maple.data.Delete(key)
}

// --------------------------------------------------------------------------
// Core KVDB Interface Methods - Read Operations
// --------------------------------------------------------------------------

// Get returns a copy of the live value for key.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (maple *mapleImpl) Get(key string, now int64) ([]byte, bool) {
	entry, ok := maple.data.Load(key)
	if !ok || !entry.Live(now) {
		return nil, false
	}
	return internal.Clone(entry.Value), true
}

// Has reports whether a live entry exists for key.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (maple *mapleImpl) Has(key string, now int64) bool {
	entry, ok := maple.data.Load(key)
	return ok && entry.Live(now)
}

// --------------------------------------------------------------------------
// Garbage Collection
// --------------------------------------------------------------------------

// GarbageCollect removes every entry that is dead at now.
// Entries are re-checked inside Compute so a concurrent rewrite is never lost.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (maple *mapleImpl) GarbageCollect(now int64) int {
	var dead []string
	maple.data.Range(func(key string, entry internal.Entry) bool {
		if !entry.Live(now) {
			dead = append(dead, key)
		}
		return true
	})

	removed := 0
	for _, key := range dead {
		maple.data.Compute(key, func(old internal.Entry, loaded bool) (internal.Entry, bool) {
			if loaded && !old.Live(now) {
				removed++
				return old, true
			}
			return old, !loaded
		})
	}
	return removed
}

// --------------------------------------------------------------------------
// Persistence
// --------------------------------------------------------------------------

// Save writes a fuzzy snapshot of all live entries.
//
// Thread-safety: Concurrent writes are allowed while saving, they may or may not be
// part of the snapshot.
func (maple *mapleImpl) Save(w io.Writer) error {
	bw := bufio.NewWriterSize(w, 1024*1024) // 1 MB buffer

	type entryToSave struct {
		key   string
		entry internal.Entry
	}
	var entries []entryToSave
	maple.data.Range(func(key string, entry internal.Entry) bool {
		entries = append(entries, entryToSave{key, entry})
		return true
	})

	// Header
	if _, err := bw.WriteString(magicNum); err != nil {
		return err
	}
	if err := binary.Write(bw, binary.LittleEndian, uint8(mapleVersion)); err != nil {
		return err
	}
	if err := binary.Write(bw, binary.LittleEndian, uint64(len(entries))); err != nil {
		return err
	}

	// Entries
	for _, item := range entries {
		if err := binary.Write(bw, binary.LittleEndian, uint32(len(item.key))); err != nil {
			return err
		}
		if _, err := bw.WriteString(item.key); err != nil {
			return err
		}
		if err := binary.Write(bw, binary.LittleEndian, item.entry.DeleteAt); err != nil {
			return err
		}
		if err := binary.Write(bw, binary.LittleEndian, item.entry.UpdatedAt); err != nil {
			return err
		}
		if err := binary.Write(bw, binary.LittleEndian, uint32(len(item.entry.Value))); err != nil {
			return err
		}
		if _, err := bw.Write(item.entry.Value); err != nil {
			return err
		}
	}

	return bw.Flush()
}

// Load replaces the database content with a snapshot written by Save.
//
// Thread-safety: This function is not thread-safe and should not be called concurrently
func (maple *mapleImpl) Load(r io.Reader) error {
	br := bufio.NewReaderSize(r, 1024*1024) // 1 MB buffer

	magicBytes := make([]byte, len(magicNum))
	if _, err := io.ReadFull(br, magicBytes); err != nil {
		return err
	}
	if string(magicBytes) != magicNum {
		return fmt.Errorf("invalid file format: magic number mismatch")
	}

	var version uint8
	if err := binary.Read(br, binary.LittleEndian, &version); err != nil {
		return err
	}
	if version != mapleVersion {
		return fmt.Errorf("unsupported maple version: %d", version)
	}

	var count uint64
	if err := binary.Read(br, binary.LittleEndian, &count); err != nil {
		return err
	}

	loaded := make(map[string]internal.Entry, count)
	for i := uint64(0); i < count; i++ {
		var keyLen uint32
		if err := binary.Read(br, binary.LittleEndian, &keyLen); err != nil {
			return err
		}
		key := make([]byte, keyLen)
		if _, err := io.ReadFull(br, key); err != nil {
			return err
		}

		var entry internal.Entry
		if err := binary.Read(br, binary.LittleEndian, &entry.DeleteAt); err != nil {
			return err
		}
		if err := binary.Read(br, binary.LittleEndian, &entry.UpdatedAt); err != nil {
			return err
		}

		var valueLen uint32
		if err := binary.Read(br, binary.LittleEndian, &valueLen); err != nil {
			return err
		}
		entry.Value = make([]byte, valueLen)
		if _, err := io.ReadFull(br, entry.Value); err != nil {
			return err
		}
		loaded[string(key)] = entry
	}

	maple.data.Clear()
	for key, entry := range loaded {
		maple.data.Store(key, entry)
	}
	return nil
}

// --------------------------------------------------------------------------
// Info & Features
// --------------------------------------------------------------------------

// GetInfo returns the number of keys and an estimate of the stored bytes.
func (maple *mapleImpl) GetInfo() db.DatabaseInfo {
	info := db.DatabaseInfo{
		DbType: db.ImplMaple,
	}
	maple.data.Range(func(key string, entry internal.Entry) bool {
		info.Keys++
		info.SizeBytes += len(key) + len(entry.Value) + 16
		return true
	})
	for _, f := range db.AllFeatures {
		if maple.SupportsFeature(f) {
			info.SupportedFeatures = append(info.SupportedFeatures, f)
		}
	}
	return info
}

func (maple *mapleImpl) SupportsFeature(feature db.Feature) bool {
	return feature&supportedFeatures == feature
}

func (maple *mapleImpl) Close() error {
	maple.data.Clear()
	return nil
}
