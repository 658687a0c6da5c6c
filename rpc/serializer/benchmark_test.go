package serializer

import (
	"fmt"
	"strings"
	"testing"

	"github.com/ValentinKolb/dDoc/rpc/common"
)

// envelopeOf builds a stored document with n entries in its data map
func envelopeOf(n int, level int) []byte {
	var sb strings.Builder
	sb.WriteString(`{"schemaVersion":3,"minimalSupportedVersion":1,"data":{`)
	for i := 0; i < n; i++ {
		if i > 0 {
			sb.WriteByte(',')
		}
		fmt.Fprintf(&sb, `"item-%d":{"level":%d,"name":"entry %d"}`, i, level, i)
	}
	sb.WriteString("}}")
	return []byte(sb.String())
}

// benchmarkMessages returns the messages a document session exchanges with its shard
func benchmarkMessages() map[string]common.Message {
	const sessionID = "player:123-lockSession::9b2f3c1e-4d5a-4f7b-8c9d-0e1f2a3b4c5d"

	messages := map[string]common.Message{
		"LockAcquire": *common.NewSetEIfUnsetRequest("player:123-lockSession", []byte(sessionID), 600_000),
		"LockRenew":   *common.NewCompareAndSwapRequest("player:123-lockSession", []byte(sessionID), []byte(sessionID), 600_000),
		"LockHolder":  *common.NewValueResponse(common.MsgTKVGet, []byte(sessionID), true, nil),
		"OkResponse":  *common.NewOkResponse(common.MsgTKVCompareAndSwap, true, nil),
		"ErrorResponse": *common.NewErrorResponse(
			"failed to deserialize request: data too short for message header"),
	}

	// document loads and saves of growing size
	for _, n := range []int{1, 16, 256} {
		messages[fmt.Sprintf("DocumentGet%d", n)] = *common.NewValueResponse(common.MsgTKVGet, envelopeOf(n, 1), true, nil)
		messages[fmt.Sprintf("DocumentSave%d", n)] = *common.NewCompareAndSwapRequest("player:123", envelopeOf(n, 1), envelopeOf(n, 2), 0)
	}
	return messages
}

// BenchmarkRoundTrip measures encoding and decoding of one message
func BenchmarkRoundTrip(b *testing.B) {
	messages := benchmarkMessages()

	for name, factory := range testSerializers {
		for msgName, msg := range messages {
			b.Run(name+"_"+msgName, func(b *testing.B) {
				serializer := factory()
				var decoded common.Message

				for b.Loop() {
					data, err := serializer.Serialize(msg)
					if err != nil {
						b.Fatalf("Failed to serialize: %v", err)
					}
					if err := serializer.Deserialize(data, &decoded); err != nil {
						b.Fatalf("Failed to deserialize: %v", err)
					}
				}
			})
		}
	}
}

// BenchmarkSize reports the encoded size of each message
func BenchmarkSize(b *testing.B) {
	messages := benchmarkMessages()

	for name, factory := range testSerializers {
		serializer := factory()

		for msgName, msg := range messages {
			b.Run(name+"_"+msgName, func(b *testing.B) {
				data, err := serializer.Serialize(msg)
				if err != nil {
					b.Fatalf("Failed to serialize: %v", err)
				}
				b.ReportMetric(float64(len(data)), "bytes")

				for b.Loop() {
				}
			})
		}
	}
}
