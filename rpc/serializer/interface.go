package serializer

import "github.com/ValentinKolb/dDoc/rpc/common"

// IRPCSerializer is the interface for all Message Serializers
type IRPCSerializer interface {
	// Serialize serializes a Message into a byte array
	Serialize(msg common.Message) ([]byte, error)
	// Deserialize deserializes a byte array into the given Message.
	// Fields that are not present in the data are reset.
	Deserialize(b []byte, msg *common.Message) error
}

// ByName returns the serializer registered under name ("json" or "binary")
func ByName(name string) (IRPCSerializer, bool) {
	switch name {
	case "json":
		return NewJSONSerializer(), true
	case "binary":
		return NewBinarySerializer(), true
	}
	return nil, false
}
