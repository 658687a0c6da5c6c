package serializer

import (
	"bytes"
	"reflect"
	"testing"

	"github.com/ValentinKolb/dDoc/lib/store"
	"github.com/ValentinKolb/dDoc/rpc/common"
)

// testSerializers is a map of serializer name to factory function
var testSerializers = map[string]func() IRPCSerializer{
	"JSON":   NewJSONSerializer,
	"Binary": NewBinarySerializer,
}

// testMessages creates a set of test messages with different fields filled
func testMessages() []common.Message {
	return []common.Message{
		// Basic message with just a type
		{MsgType: common.MsgTSuccess},

		// Set request
		{
			MsgType: common.MsgTKVSet,
			Key:     "test-key",
			Value:   []byte("test-value"),
		},

		// Get response
		{
			MsgType: common.MsgTKVGet,
			Value:   []byte(`{"schemaVersion":1,"minimalSupportedVersion":0,"data":{}}`),
			Ok:      true,
		},

		// Error response of the store
		{
			MsgType: common.MsgTKVSetE,
			Err:     "backend busy",
			ErrCode: store.RetCUnavailable,
		},

		// Compare and swap request
		{
			MsgType:  common.MsgTKVCompareAndSwap,
			Key:      "doc",
			TTL:      600_000,
			Expected: []byte("old"),
			Value:    []byte("new"),
		},

		// Compare and swap on an absent key
		{
			MsgType:      common.MsgTKVCompareAndSwap,
			Key:          "doc-lockSession",
			TTL:          600_000,
			ExpectAbsent: true,
			Value:        []byte("doc-lockSession::id"),
		},
	}
}

// TestSerializerRoundTrip tests that messages can be serialized and deserialized correctly
func TestSerializerRoundTrip(t *testing.T) {
	for name, factory := range testSerializers {
		t.Run(name, func(t *testing.T) {
			serializer := factory()

			for i, msg := range testMessages() {
				data, err := serializer.Serialize(msg)
				if err != nil {
					t.Errorf("Failed to serialize message %d: %v", i, err)
					continue
				}

				var result common.Message
				if err := serializer.Deserialize(data, &result); err != nil {
					t.Errorf("Failed to deserialize message %d: %v", i, err)
					continue
				}

				if !reflect.DeepEqual(msg, result) {
					t.Errorf("Message %d doesn't match after round trip:\nOriginal: %+v\nResult: %+v", i, msg, result)
				}
			}
		})
	}
}

// TestMessageTypes tests each message type with each serializer
func TestMessageTypes(t *testing.T) {
	for name, factory := range testSerializers {
		t.Run(name, func(t *testing.T) {
			serializer := factory()

			for msgType := common.MsgTSuccess; msgType <= common.MsgTKVInfo; msgType++ {
				data, err := serializer.Serialize(common.Message{MsgType: msgType})
				if err != nil {
					t.Errorf("Failed to serialize message type %s: %v", msgType, err)
					continue
				}

				var result common.Message
				if err := serializer.Deserialize(data, &result); err != nil {
					t.Errorf("Failed to deserialize message type %s: %v", msgType, err)
					continue
				}
				if result.MsgType != msgType {
					t.Errorf("Message type doesn't match after round trip: Expected %s, got %s", msgType, result.MsgType)
				}
			}
		})
	}
}

// TestExpectedValueSurvives tests that every serializer keeps the difference between an
// absent key, an empty value and a non-empty value in CompareAndSwap requests
func TestExpectedValueSurvives(t *testing.T) {
	tests := []struct {
		name     string
		expected []byte
	}{
		{"absent", nil},
		{"empty", []byte{}},
		{"value", []byte("v1")},
	}

	for name, factory := range testSerializers {
		for _, tt := range tests {
			t.Run(name+"/"+tt.name, func(t *testing.T) {
				serializer := factory()
				data, err := serializer.Serialize(*common.NewCompareAndSwapRequest("k", tt.expected, []byte("v2"), 0))
				if err != nil {
					t.Fatalf("Serialize() error = %v", err)
				}
				var result common.Message
				if err := serializer.Deserialize(data, &result); err != nil {
					t.Fatalf("Deserialize() error = %v", err)
				}

				got := result.ExpectedValue()
				if (got == nil) != (tt.expected == nil) || !bytes.Equal(got, tt.expected) {
					t.Errorf("ExpectedValue() = %v, want %v", got, tt.expected)
				}
			})
		}
	}
}

// TestErrorCodeSurvives tests that store errors keep their return code
func TestErrorCodeSurvives(t *testing.T) {
	for name, factory := range testSerializers {
		t.Run(name, func(t *testing.T) {
			serializer := factory()
			resp := common.NewResponse(common.MsgTKVSet, store.NewError(store.RetCUnavailable, "timeout"))

			data, err := serializer.Serialize(*resp)
			if err != nil {
				t.Fatalf("Serialize() error = %v", err)
			}
			var result common.Message
			if err := serializer.Deserialize(data, &result); err != nil {
				t.Fatalf("Deserialize() error = %v", err)
			}

			storeErr, ok := result.AsError().(*store.Error)
			if !ok || storeErr.Code != store.RetCUnavailable || storeErr.Msg != "timeout" {
				t.Errorf("Error() = %#v, want an unavailable store error", result.AsError())
			}
		})
	}
}

// TestBinarySerializerSpecific tests specific edge cases for the binary serializer
func TestBinarySerializerSpecific(t *testing.T) {
	serializer := NewBinarySerializer()

	testCases := []struct {
		name string
		msg  common.Message
	}{
		{
			name: "Empty message",
			msg:  common.Message{},
		},
		{
			name: "Message with empty value slice but not nil",
			msg: common.Message{
				MsgType: common.MsgTKVSet,
				Key:     "test",
				Value:   []byte{},
			},
		},
		{
			name: "Message with empty expected slice but not nil",
			msg: common.Message{
				MsgType:  common.MsgTKVCompareAndSwap,
				Key:      "test",
				Expected: []byte{},
				Value:    []byte("v"),
			},
		},
		{
			name: "Message with Ok only",
			msg: common.Message{
				MsgType: common.MsgTKVHas,
				Ok:      true,
			},
		},
		{
			name: "Message with binary value",
			msg: common.Message{
				MsgType: common.MsgTKVSet,
				Key:     "你好世界",
				Value:   []byte{0, 1, 2, 254, 255},
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			data, err := serializer.Serialize(tc.msg)
			if err != nil {
				t.Fatalf("Failed to serialize: %v", err)
			}
			if want := (binarySerializerImpl{}).sizeBytes(tc.msg); len(data) != want {
				t.Errorf("serialized %d bytes, sizeBytes() = %d", len(data), want)
			}

			var result common.Message
			if err := serializer.Deserialize(data, &result); err != nil {
				t.Fatalf("Failed to deserialize: %v", err)
			}

			// reflect.DeepEqual tells nil and empty slices apart
			if !reflect.DeepEqual(tc.msg, result) {
				t.Errorf("Message doesn't match after round trip:\nOriginal: %#v\nResult: %#v", tc.msg, result)
			}
		})
	}
}

// TestBinaryDeserializeResetsFields tests that fields of a reused message are cleared
func TestBinaryDeserializeResetsFields(t *testing.T) {
	serializer := NewBinarySerializer()
	msg := common.Message{Key: "stale", Value: []byte("stale value"), Ok: true, Err: "stale"}

	data, _ := serializer.Serialize(common.Message{MsgType: common.MsgTKVGet, Value: []byte("fresh")})
	if err := serializer.Deserialize(data, &msg); err != nil {
		t.Fatalf("Deserialize() error = %v", err)
	}
	want := common.Message{MsgType: common.MsgTKVGet, Value: []byte("fresh")}
	if !reflect.DeepEqual(want, msg) {
		t.Errorf("Deserialize() = %#v, want %#v", msg, want)
	}
}

// TestInvalidBinaryData tests how the binary serializer handles corrupt or invalid data
func TestInvalidBinaryData(t *testing.T) {
	serializer := NewBinarySerializer()

	testCases := []struct {
		name        string
		data        []byte
		expectError bool
	}{
		{
			name:        "Empty data",
			data:        []byte{},
			expectError: true,
		},
		{
			name:        "Too short header",
			data:        []byte{1}, // Only message type, no flags
			expectError: true,
		},
		{
			name:        "Valid header only",
			data:        []byte{1, 0}, // Message type 1, no flags
			expectError: false,
		},
		{
			name:        "Invalid length for key",
			data:        []byte{1, hasKey, 0, 0, 0, 5, 'a', 'b', 'c'}, // Claims key length 5 but only 3 bytes provided
			expectError: true,
		},
		{
			name:        "Invalid length for value",
			data:        []byte{1, hasValue, 0, 0, 0, 10}, // Claims value length 10 but no bytes provided
			expectError: true,
		},
		{
			name:        "Truncated TTL",
			data:        []byte{1, hasTTL, 0, 0, 0},
			expectError: true,
		},
		{
			name:        "Error without code",
			data:        []byte{1, hasErr, 0, 0, 0, 1, 'x'},
			expectError: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var msg common.Message
			err := serializer.Deserialize(tc.data, &msg)

			if tc.expectError && err == nil {
				t.Errorf("Expected error but got none")
			} else if !tc.expectError && err != nil {
				t.Errorf("Did not expect error but got: %v", err)
			}
		})
	}
}

func TestByName(t *testing.T) {
	for _, name := range []string{"json", "binary"} {
		if _, ok := ByName(name); !ok {
			t.Errorf("ByName(%q) not found", name)
		}
	}
	if _, ok := ByName("gob"); ok {
		t.Errorf("ByName(\"gob\") should not exist")
	}
}
