package envelope

import (
	"bytes"
	"errors"
	"fmt"
	"math"

	"github.com/go-viper/mapstructure/v2"
	"github.com/goccy/go-json"
)

// Envelope is the persisted wrapper around the document data
type Envelope struct {
	SchemaVersion           int `json:"schemaVersion"`
	MinimalSupportedVersion int `json:"minimalSupportedVersion"`
	Data                    any `json:"data"`
}

// ErrVersionRange is the cause of an Error whose version fields are present but violate
// 0 <= minimalSupportedVersion <= schemaVersion
var ErrVersionRange = errors.New("version fields out of range")

// Kind classifies a malformed envelope
type Kind int

const (
	KindInvalidArgument Kind = iota + 1
	KindSchemaVersion
	KindMinimalSupportedVersion
	KindData
)

func (k Kind) String() string {
	switch k {
	case KindInvalidArgument:
		return "INVALID_TABLE_DATA_ARGUMENT"
	case KindSchemaVersion:
		return "SCHEMA_VERSION_INVALID_OR_UNDEFINED"
	case KindMinimalSupportedVersion:
		return "MINIMAL_SUPPORTED_VERSION_INVALID_OR_UNDEFINED"
	case KindData:
		return "INVALID_DATA"
	default:
		return "UNKNOWN"
	}
}

// Error describes why a raw value is not a valid envelope
type Error struct {
	Kind Kind
	Err  error // underlying decode error, if any
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid envelope (%s): %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("invalid envelope (%s)", e.Kind)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Decode parses raw and checks that it carries both version fields and a data node.
func Decode(raw []byte) (Envelope, error) {
	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err != nil || obj == nil {
		return Envelope{}, &Error{Kind: KindInvalidArgument, Err: err}
	}
	return FromMap(obj)
}

// FromMap verifies an already decoded JSON object, including the version range checked by
// Verify.
func FromMap(obj map[string]any) (Envelope, error) {
	schemaVersion, ok := version(obj["schemaVersion"])
	if !ok {
		return Envelope{}, &Error{Kind: KindSchemaVersion}
	}
	minimal, ok := version(obj["minimalSupportedVersion"])
	if !ok {
		return Envelope{}, &Error{Kind: KindMinimalSupportedVersion}
	}
	data, ok := obj["data"]
	if !ok || !isNode(data) {
		return Envelope{}, &Error{Kind: KindData}
	}
	env := Envelope{
		SchemaVersion:           schemaVersion,
		MinimalSupportedVersion: minimal,
		Data:                    data,
	}
	if err := Verify(env); err != nil {
		return Envelope{}, err
	}
	return env, nil
}

// Encode serializes env. It does not verify the version fields.
func Encode(env Envelope) ([]byte, error) {
	return json.Marshal(env)
}

// Verify checks 0 <= minimalSupportedVersion <= schemaVersion.
func Verify(env Envelope) error {
	if env.SchemaVersion < 0 {
		return &Error{Kind: KindSchemaVersion, Err: fmt.Errorf("%w: negative schema version %d", ErrVersionRange, env.SchemaVersion)}
	}
	if env.MinimalSupportedVersion < 0 || env.MinimalSupportedVersion > env.SchemaVersion {
		return &Error{Kind: KindMinimalSupportedVersion, Err: fmt.Errorf(
			"%w: minimal supported version %d outside [0, %d]", ErrVersionRange, env.MinimalSupportedVersion, env.SchemaVersion)}
	}
	return nil
}

// DecodeData decodes the data node of env into out, which must be a pointer.
// Struct fields are matched by their json tags.
func DecodeData(env Envelope, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		TagName:          "json",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return err
	}
	return dec.Decode(env.Data)
}

// Unwrap interprets a stored value that is not a valid envelope as plain data: JSON objects
// and arrays are used as they are, anything else ends up under a "data" field.
func Unwrap(raw []byte) any {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return map[string]any{"data": string(bytes.TrimSpace(raw))}
	}
	if isNode(v) {
		return v
	}
	return map[string]any{"data": v}
}

// --------------------------------------------------------------------------
// Helper functions
// --------------------------------------------------------------------------

func version(v any) (int, bool) {
	f, ok := v.(float64)
	if !ok || f < 0 || f != math.Trunc(f) || f > math.MaxInt32 {
		return 0, false
	}
	return int(f), true
}

// isNode reports whether v is a JSON object or array
func isNode(v any) bool {
	switch v.(type) {
	case map[string]any, []any:
		return true
	}
	return false
}
