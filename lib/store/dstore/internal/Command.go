package internal

import (
	"encoding/binary"
	"fmt"

	"github.com/ValentinKolb/dDoc/lib/db"
)

// CommandType defines the possible operations for the state machine.
type CommandType uint8

const (
	CommandTSet            CommandType = iota // Insert or update an entry.
	CommandTSetE                              // Insert or update an entry with a ttl.
	CommandTSetIfUnset                        // Insert an entry if it does not exist.
	CommandTCompareAndSwap                    // Replace an entry if it holds the expected value.
	CommandTDelete                            // Delete an entry.
	CommandTCollect                           // Remove entries that expired before Now.
)

func (ct CommandType) String() string {
	switch ct {
	case CommandTSet:
		return "Set"
	case CommandTSetE:
		return "SetE"
	case CommandTSetIfUnset:
		return "SetIfUnset"
	case CommandTCompareAndSwap:
		return "CompareAndSwap"
	case CommandTDelete:
		return "Delete"
	case CommandTCollect:
		return "Collect"
	default:
		return fmt.Sprintf("Unknown(%d)", ct)
	}
}

// ToDBFeature converts a CommandType to the corresponding db.Feature.
// This can be used for checking if the database supports a certain operation.
func (ct CommandType) ToDBFeature() (db.Feature, error) {
	switch ct {
	case CommandTSet:
		return db.FeatureSet, nil
	case CommandTSetE:
		return db.FeatureSetE, nil
	case CommandTSetIfUnset:
		return db.FeatureSetEIfUnset, nil
	case CommandTCompareAndSwap:
		return db.FeatureCompareAndSwap, nil
	case CommandTDelete:
		return db.FeatureDelete, nil
	case CommandTCollect:
		return db.FeatureGarbageCollect, nil
	default:
		return 0, fmt.Errorf("unknown command type %d", ct)
	}
}

// Command represents a command to be executed by the state machine (a single entry in the raft log).
// Now is the proposer's clock in unix milliseconds. It is part of the log entry so every
// replica evaluates TTLs against the same time.
type Command struct {
	Type     CommandType
	Now      int64
	TTL      uint64
	Key      string
	Expected []byte // nil = key must be absent (only used by CompareAndSwap)
	Value    []byte
}

const headerSize = 1 + 8 + 8 + 4 // Type + Now + TTL + KeyLen

// SizeBytes returns the exact number of bytes needed to serialize this command
func (command *Command) SizeBytes() int {
	size := headerSize + len(command.Key) + 1 // header + key + expected flag
	if command.Expected != nil {
		size += 4 + len(command.Expected)
	}
	return size + len(command.Value)
}

// Serialize serializes a command into a byte array with the format:
// 1 byte for operation type,
// 8 bytes for now (big endian),
// 8 bytes for ttl (big endian),
// 4 bytes for key length (big endian),
// N bytes for key data,
// 1 byte expected flag, followed by 4 bytes length and the data if the flag is set,
// N bytes for value data (optional)
func (command *Command) Serialize() []byte {
	result := make([]byte, command.SizeBytes())

	result[0] = byte(command.Type)
	binary.BigEndian.PutUint64(result[1:9], uint64(command.Now))
	binary.BigEndian.PutUint64(result[9:17], command.TTL)
	binary.BigEndian.PutUint32(result[17:21], uint32(len(command.Key)))

	pos := headerSize
	pos += copy(result[pos:], command.Key)

	if command.Expected != nil {
		result[pos] = 1
		pos++
		binary.BigEndian.PutUint32(result[pos:pos+4], uint32(len(command.Expected)))
		pos += 4
		pos += copy(result[pos:], command.Expected)
	} else {
		result[pos] = 0
		pos++
	}

	copy(result[pos:], command.Value)
	return result
}

// Deserialize extracts all Command fields from a byte array.
func (command *Command) Deserialize(data []byte) error {
	if len(data) < headerSize {
		return fmt.Errorf("data too short for command")
	}

	command.Type = CommandType(data[0])
	command.Now = int64(binary.BigEndian.Uint64(data[1:9]))
	command.TTL = binary.BigEndian.Uint64(data[9:17])
	keyLen := int(binary.BigEndian.Uint32(data[17:21]))

	// key + expected flag
	if len(data) < headerSize+keyLen+1 {
		return fmt.Errorf("data too short for key of length %d", keyLen)
	}
	pos := headerSize
	command.Key = string(data[pos : pos+keyLen])
	pos += keyLen

	hasExpected := data[pos] == 1
	pos++
	command.Expected = nil
	if hasExpected {
		if len(data) < pos+4 {
			return fmt.Errorf("data too short for expected length")
		}
		expLen := int(binary.BigEndian.Uint32(data[pos : pos+4]))
		pos += 4
		if len(data) < pos+expLen {
			return fmt.Errorf("data too short for expected value of length %d", expLen)
		}
		command.Expected = make([]byte, expLen)
		copy(command.Expected, data[pos:pos+expLen])
		pos += expLen
	}

	if len(data) > pos {
		valueLen := len(data) - pos
		// Reuse existing buffer if possible to reduce allocations
		if command.Value == nil || cap(command.Value) < valueLen {
			command.Value = make([]byte, valueLen)
		} else {
			command.Value = command.Value[:valueLen]
		}
		copy(command.Value, data[pos:])
	} else {
		command.Value = nil
	}

	return nil
}
