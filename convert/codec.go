package convert

import (
	"encoding/json"

	"github.com/vmihailenco/msgpack/v5"
)

// Codec is the intermediate representation used for structural conversion.
// Implementations must be safe for concurrent use.
type Codec interface {
	// Encode serializes an untyped value to bytes.
	Encode(v any) ([]byte, error)

	// Decode deserializes bytes into the target.
	// The target must be a pointer.
	Decode(data []byte, v any) error

	// ContentType returns the MIME type (e.g., "application/json").
	ContentType() string
}

// Default returns the default codec (JSON).
func Default() Codec {
	return JSON{}
}

// JSON converts through encoding/json. It is strict about scalar kinds:
// a number never becomes a string and a fractional number never becomes an
// integer.
type JSON struct{}

// Encode serializes the value to JSON bytes.
func (JSON) Encode(v any) ([]byte, error) {
	return json.Marshal(v)
}

// Decode deserializes JSON bytes to the target type.
func (JSON) Decode(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

// ContentType returns the MIME type for JSON.
func (JSON) ContentType() string {
	return "application/json"
}

// MsgPack converts through MessagePack. It keeps []byte values binary and
// matches struct fields by their msgpack tags.
type MsgPack struct{}

// Encode serializes the value to MessagePack bytes.
func (MsgPack) Encode(v any) ([]byte, error) {
	return msgpack.Marshal(v)
}

// Decode deserializes MessagePack bytes to the target type.
func (MsgPack) Decode(data []byte, v any) error {
	return msgpack.Unmarshal(data, v)
}

// ContentType returns the MIME type for MessagePack.
func (MsgPack) ContentType() string {
	return "application/msgpack"
}

// Compile-time checks.
var (
	_ Codec = JSON{}
	_ Codec = MsgPack{}
)
