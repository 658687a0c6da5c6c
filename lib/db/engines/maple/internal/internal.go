package internal

import "bytes"

// --------------------------------------------------------------------------
// Entry Type (value with expiry metadata)
// --------------------------------------------------------------------------

// Entry stores a value together with its absolute expiry time
type Entry struct {
	Value     []byte // Stored data
	DeleteAt  int64  // Unix milliseconds after which the entry is gone (0 = never)
	UpdatedAt int64  // Unix milliseconds of the last write
}

// NewEntry creates an entry written at now that lives for ttl milliseconds (0 = forever)
func NewEntry(value []byte, now int64, ttl uint64) Entry {
	e := Entry{
		Value:     Clone(value),
		UpdatedAt: now,
	}
	if ttl > 0 {
		e.DeleteAt = now + int64(ttl)
	}
	return e
}

// Live reports whether the entry is still visible at now
func (e Entry) Live(now int64) bool {
	return e.DeleteAt == 0 || now < e.DeleteAt
}

// Matches reports whether the entry satisfies a compare-and-swap precondition.
// A nil expected value only matches a missing or dead entry.
func (e Entry) Matches(expected []byte, loaded bool, now int64) bool {
	live := loaded && e.Live(now)
	if expected == nil {
		return !live
	}
	return live && bytes.Equal(e.Value, expected)
}

// Clone returns a copy of b that does not share memory with it
func Clone(b []byte) []byte {
	if b == nil {
		return nil
	}
	c := make([]byte, len(b))
	copy(c, b)
	return c
}
