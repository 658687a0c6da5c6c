package serializer

import (
	"encoding/binary"
	"fmt"

	"github.com/ValentinKolb/dDoc/lib/store"
	"github.com/ValentinKolb/dDoc/rpc/common"
)

// NewBinarySerializer creates a new serializer using a custom binary format
// optimized for speed and efficiency
func NewBinarySerializer() IRPCSerializer {
	return &binarySerializerImpl{}
}

// binarySerializerImpl implements IRPCSerializer using a custom binary format
//
// Layout: MsgType (1 byte) | flags (1 byte) | the present fields in flag order.
// Strings and byte slices are prefixed with a big endian uint32 length, numbers are
// big endian uint64. Ok and ExpectAbsent live in the flags only.
type binarySerializerImpl struct {
}

// Bit flags to indicate which optional fields are present
const (
	hasKey       byte = 1 << 0
	hasTTL       byte = 1 << 1
	hasValue     byte = 1 << 2
	hasExpected  byte = 1 << 3
	expectAbsent byte = 1 << 4
	isOk         byte = 1 << 5
	hasErr       byte = 1 << 6 // followed by the error code
)

const headerSize = 2

// --------------------------------------------------------------------------
// Interface Methods (docu see serializer.IRPCSerializer)
// --------------------------------------------------------------------------

func (b binarySerializerImpl) Serialize(msg common.Message) ([]byte, error) {
	w := writer{buf: make([]byte, headerSize, b.sizeBytes(msg))}
	w.buf[0] = byte(msg.MsgType)

	var flags byte
	if msg.Key != "" {
		flags |= hasKey
		w.bytes([]byte(msg.Key))
	}
	if msg.TTL > 0 {
		flags |= hasTTL
		w.uint64(msg.TTL)
	}
	if msg.Value != nil {
		flags |= hasValue
		w.bytes(msg.Value)
	}
	if msg.Expected != nil {
		flags |= hasExpected
		w.bytes(msg.Expected)
	}
	if msg.ExpectAbsent {
		flags |= expectAbsent
	}
	if msg.Ok {
		flags |= isOk
	}
	if msg.Err != "" {
		flags |= hasErr
		w.bytes([]byte(msg.Err))
		w.uint64(uint64(msg.ErrCode))
	}

	w.buf[1] = flags
	return w.buf, nil
}

func (b binarySerializerImpl) Deserialize(data []byte, msg *common.Message) error {
	if len(data) < headerSize {
		return fmt.Errorf("data too short for message header")
	}

	r := reader{data: data, pos: headerSize}
	flags := data[1]

	// reuse the value buffer of the previous message
	value := msg.Value
	*msg = common.Message{MsgType: common.MessageType(data[0])}

	if flags&hasKey != 0 {
		key, err := r.bytes("key")
		if err != nil {
			return err
		}
		msg.Key = string(key)
	}
	if flags&hasTTL != 0 {
		ttl, err := r.uint64("TTL")
		if err != nil {
			return err
		}
		msg.TTL = ttl
	}
	if flags&hasValue != 0 {
		v, err := r.bytes("value")
		if err != nil {
			return err
		}
		if value == nil || cap(value) < len(v) {
			value = make([]byte, len(v))
		}
		msg.Value = append(value[:0], v...)
	}
	if flags&hasExpected != 0 {
		expected, err := r.bytes("expected value")
		if err != nil {
			return err
		}
		msg.Expected = append([]byte{}, expected...)
	}
	msg.ExpectAbsent = flags&expectAbsent != 0
	msg.Ok = flags&isOk != 0
	if flags&hasErr != 0 {
		errMsg, err := r.bytes("error")
		if err != nil {
			return err
		}
		code, err := r.uint64("error code")
		if err != nil {
			return err
		}
		msg.Err = string(errMsg)
		msg.ErrCode = store.RetCode(code)
	}

	return nil
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// sizeBytes calculates the total size needed for serialization
func (b binarySerializerImpl) sizeBytes(msg common.Message) int {
	size := headerSize
	if msg.Key != "" {
		size += 4 + len(msg.Key)
	}
	if msg.TTL > 0 {
		size += 8
	}
	if msg.Value != nil {
		size += 4 + len(msg.Value)
	}
	if msg.Expected != nil {
		size += 4 + len(msg.Expected)
	}
	if msg.Err != "" {
		size += 4 + len(msg.Err) + 8
	}
	return size
}

type writer struct {
	buf []byte
}

func (w *writer) uint64(v uint64) {
	w.buf = binary.BigEndian.AppendUint64(w.buf, v)
}

func (w *writer) bytes(v []byte) {
	w.buf = binary.BigEndian.AppendUint32(w.buf, uint32(len(v)))
	w.buf = append(w.buf, v...)
}

type reader struct {
	data []byte
	pos  int
}

func (r *reader) uint64(field string) (uint64, error) {
	if r.pos+8 > len(r.data) {
		return 0, fmt.Errorf("data too short for %s", field)
	}
	v := binary.BigEndian.Uint64(r.data[r.pos:])
	r.pos += 8
	return v, nil
}

// bytes returns a slice of the input, callers copy it if they keep it
func (r *reader) bytes(field string) ([]byte, error) {
	if r.pos+4 > len(r.data) {
		return nil, fmt.Errorf("data too short for %s length", field)
	}
	n := int(binary.BigEndian.Uint32(r.data[r.pos:]))
	r.pos += 4
	if r.pos+n > len(r.data) {
		return nil, fmt.Errorf("data too short for %s data", field)
	}
	v := r.data[r.pos : r.pos+n]
	r.pos += n
	return v, nil
}
