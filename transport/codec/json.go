package codec

import (
	"bytes"
	"encoding/json"
	"errors"
	"maps"

	"github.com/rbaliyan/hubevent/transport/message"
	"go.opentelemetry.io/otel/trace"
)

// JSON implements Codec using JSON serialization.
// This is the default codec, providing human-readable output.
//
// Numeric arguments decode as json.Number so that integers keep their
// precision until they are converted to a concrete type.
type JSON struct{}

// jsonMessage is the JSON wire format
type jsonMessage struct {
	ID        string            `json:"id"`
	Target    string            `json:"target"`
	Arguments []any             `json:"arguments"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// Encode serializes a message to JSON bytes
func (c JSON) Encode(msg Message) ([]byte, error) {
	jm := jsonMessage{
		ID:        msg.ID(),
		Target:    msg.Target(),
		Arguments: msg.Arguments(),
	}
	if jm.Arguments == nil {
		jm.Arguments = []any{}
	}

	if msg.Metadata() != nil {
		jm.Metadata = make(map[string]string)
		maps.Copy(jm.Metadata, msg.Metadata())
	}

	data, err := json.Marshal(jm)
	if err != nil {
		return nil, errors.Join(ErrEncodeFailure, err)
	}

	return data, nil
}

// Decode deserializes JSON bytes to a message
func (c JSON) Decode(data []byte) (Message, error) {
	var jm jsonMessage
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&jm); err != nil {
		return nil, errors.Join(ErrDecodeFailure, err)
	}

	var metadata map[string]string
	if jm.Metadata != nil {
		metadata = make(map[string]string)
		maps.Copy(metadata, jm.Metadata)
	}

	return message.New(jm.ID, jm.Target, jm.Arguments, metadata, trace.SpanContext{}), nil
}

// ContentType returns the MIME type for JSON
func (c JSON) ContentType() string {
	return "application/json"
}

// Name returns the codec identifier
func (c JSON) Name() string {
	return "json"
}

// Compile-time check
var _ Codec = JSON{}
