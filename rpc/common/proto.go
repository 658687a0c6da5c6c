package common

import (
	"errors"
	"fmt"

	"github.com/ValentinKolb/dDoc/lib/store"
	"github.com/goccy/go-json"
)

// --------------------------------------------------------------------------
// Message Structure
// --------------------------------------------------------------------------

// Message represents a single message used for both requests and responses.
// Which fields are used depends on the type of message.
type Message struct {
	// Type of message
	MsgType MessageType `json:"msg_type"`

	// General fields
	Key   string `json:"key,omitempty"`   // Used for: every store operation
	TTL   uint64 `json:"ttl,omitempty"`   // Milliseconds, used for: SetE, SetEIfUnset, CAS
	Value []byte `json:"value,omitempty"` // Used for: writes (request), Get and Info (response)

	// Compare and swap fields
	Expected     []byte `json:"expected,omitempty"`      // Value the key must currently hold
	ExpectAbsent bool   `json:"expect_absent,omitempty"` // The key must not exist, Expected is ignored

	// Response only fields
	Ok      bool          `json:"ok,omitempty"`       // Used for: Get, Has, SetEIfUnset, CAS responses
	Err     string        `json:"err,omitempty"`      // Empty if no error, otherwise contains the error message
	ErrCode store.RetCode `json:"err_code,omitempty"` // Return code of a store.Error
}

// AsError reconstructs the error carried by a response message.
// Store errors keep their return code so callers can tell transient failures apart.
func (m *Message) AsError() error {
	if m.Err == "" {
		return nil
	}
	if m.ErrCode != store.RetCSuccess {
		return store.NewError(m.ErrCode, m.Err)
	}
	return errors.New(m.Err)
}

// withErr attaches err to a response message
func (m *Message) withErr(err error) *Message {
	if err == nil {
		return m
	}
	var storeErr *store.Error
	if errors.As(err, &storeErr) {
		m.Err = storeErr.Msg
		m.ErrCode = storeErr.Code
		return m
	}
	m.Err = err.Error()
	return m
}

// --------------------------------------------------------------------------
// Message Factory Functions
// --------------------------------------------------------------------------

// NewSetRequest creates a new Set request
func NewSetRequest(key string, value []byte) *Message {
	return &Message{
		MsgType: MsgTKVSet,
		Key:     key,
		Value:   value,
	}
}

// NewSetERequest creates a new SetE request
func NewSetERequest(key string, value []byte, ttl uint64) *Message {
	return &Message{
		MsgType: MsgTKVSetE,
		Key:     key,
		Value:   value,
		TTL:     ttl,
	}
}

// NewSetEIfUnsetRequest creates a new SetEIfUnset request
func NewSetEIfUnsetRequest(key string, value []byte, ttl uint64) *Message {
	return &Message{
		MsgType: MsgTKVSetEIfUnset,
		Key:     key,
		Value:   value,
		TTL:     ttl,
	}
}

// NewCompareAndSwapRequest creates a new CompareAndSwap request. A nil expected value
// requires the key to be absent.
func NewCompareAndSwapRequest(key string, expected, value []byte, ttl uint64) *Message {
	return &Message{
		MsgType:      MsgTKVCompareAndSwap,
		Key:          key,
		Value:        value,
		TTL:          ttl,
		Expected:     expected,
		ExpectAbsent: expected == nil,
	}
}

// ExpectedValue returns the expected value of a CompareAndSwap request, nil if the key
// must be absent
func (m *Message) ExpectedValue() []byte {
	if m.ExpectAbsent {
		return nil
	}
	if m.Expected == nil {
		return []byte{}
	}
	return m.Expected
}

// NewDeleteRequest creates a new Delete request
func NewDeleteRequest(key string) *Message {
	return &Message{
		MsgType: MsgTKVDelete,
		Key:     key,
	}
}

// NewGetRequest creates a new Get request
func NewGetRequest(key string) *Message {
	return &Message{
		MsgType: MsgTKVGet,
		Key:     key,
	}
}

// NewHasRequest creates a new Has request
func NewHasRequest(key string) *Message {
	return &Message{
		MsgType: MsgTKVHas,
		Key:     key,
	}
}

// NewInfoRequest creates a new GetDBInfo request
func NewInfoRequest() *Message {
	return &Message{
		MsgType: MsgTKVInfo,
	}
}

// NewResponse creates a response for the given request type
func NewResponse(t MessageType, err error) *Message {
	return (&Message{MsgType: t}).withErr(err)
}

// NewOkResponse creates a response carrying a boolean result
func NewOkResponse(t MessageType, ok bool, err error) *Message {
	return (&Message{MsgType: t, Ok: ok}).withErr(err)
}

// NewValueResponse creates a response carrying a value
func NewValueResponse(t MessageType, value []byte, ok bool, err error) *Message {
	return (&Message{MsgType: t, Value: value, Ok: ok}).withErr(err)
}

// NewErrorResponse creates a new Error response
func NewErrorResponse(err string) *Message {
	return &Message{
		MsgType: MsgTError,
		Err:     err,
	}
}

// --------------------------------------------------------------------------
// Message Type Definition
// --------------------------------------------------------------------------

// MessageType defines the type of message used in RPC communication.
type MessageType uint8

var messageTypeNames = map[MessageType]string{
	MsgTSuccess:          "success",
	MsgTError:            "error",
	MsgTKVSet:            "set",
	MsgTKVSetE:           "setE",
	MsgTKVSetEIfUnset:    "setEIfUnset",
	MsgTKVCompareAndSwap: "cas",
	MsgTKVDelete:         "delete",
	MsgTKVGet:            "get",
	MsgTKVHas:            "has",
	MsgTKVInfo:           "info",
}

// String returns the string representation of a MessageType.
func (t MessageType) String() string {
	if name, ok := messageTypeNames[t]; ok {
		return name
	}
	return "unknown"
}

// MarshalJSON implements the json.Marshaller interface for MessageType.
// This allows MessageType to be serialized as a string in JSON.
func (t MessageType) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// UnmarshalJSON implements the json.Unmarshaler interface for MessageType.
// This allows MessageType to be deserialized from a string in JSON.
func (t *MessageType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	for msgType, name := range messageTypeNames {
		if name == s {
			*t = msgType
			return nil
		}
	}
	return fmt.Errorf("unknown message type: %s", s)
}

// --------------------------------------------------------------------------
// Message Type Constants
// --------------------------------------------------------------------------

const (
	// General message types

	MsgTUnknown MessageType = iota
	MsgTSuccess             // Indicates a successful operation
	MsgTError               // Indicates an error occurred

	// IStore operations

	MsgTKVSet            // Set a key-value pair
	MsgTKVSetE           // Set a key-value pair with expiration
	MsgTKVSetEIfUnset    // Set a key-value pair if not already set
	MsgTKVCompareAndSwap // Replace a value if it matches the expected one
	MsgTKVDelete         // Delete a key-value pair
	MsgTKVGet            // Get a value by key
	MsgTKVHas            // Check if a key exists
	MsgTKVInfo           // Get metadata about the database
)
