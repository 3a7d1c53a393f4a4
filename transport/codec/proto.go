package codec

import (
	"errors"
	"fmt"

	"github.com/rbaliyan/hubevent/transport/message"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

// Proto implements Codec using Protocol Buffers serialization.
//
// The invocation is carried as a google.protobuf.Struct with the fields
// "id", "target", "arguments" (a ListValue) and "metadata". Arguments must be
// representable as structpb values: nil, bool, numbers, string, []any and
// map[string]any. All numbers decode as float64.
type Proto struct{}

const (
	protoFieldID        = "id"
	protoFieldTarget    = "target"
	protoFieldArguments = "arguments"
	protoFieldMetadata  = "metadata"
)

// Encode serializes a message to Protocol Buffer bytes
func (c Proto) Encode(msg Message) ([]byte, error) {
	args, err := structpb.NewList(msg.Arguments())
	if err != nil {
		return nil, errors.Join(ErrEncodeFailure, err)
	}

	fields := map[string]*structpb.Value{
		protoFieldID:        structpb.NewStringValue(msg.ID()),
		protoFieldTarget:    structpb.NewStringValue(msg.Target()),
		protoFieldArguments: structpb.NewListValue(args),
	}

	if md := msg.Metadata(); md != nil {
		mdFields := make(map[string]*structpb.Value, len(md))
		for k, v := range md {
			mdFields[k] = structpb.NewStringValue(v)
		}
		fields[protoFieldMetadata] = structpb.NewStructValue(&structpb.Struct{Fields: mdFields})
	}

	data, err := proto.Marshal(&structpb.Struct{Fields: fields})
	if err != nil {
		return nil, errors.Join(ErrEncodeFailure, err)
	}

	return data, nil
}

// Decode deserializes Protocol Buffer bytes to a message
func (c Proto) Decode(data []byte) (Message, error) {
	var pm structpb.Struct
	if err := proto.Unmarshal(data, &pm); err != nil {
		return nil, errors.Join(ErrDecodeFailure, err)
	}

	fields := pm.GetFields()
	target := fields[protoFieldTarget].GetStringValue()
	if target == "" {
		return nil, errors.Join(ErrDecodeFailure, fmt.Errorf("missing %q field", protoFieldTarget))
	}

	var args []any
	if list := fields[protoFieldArguments].GetListValue(); list != nil {
		args = list.AsSlice()
	}

	var metadata map[string]string
	if md := fields[protoFieldMetadata].GetStructValue(); md != nil {
		metadata = make(map[string]string, len(md.GetFields()))
		for k, v := range md.GetFields() {
			metadata[k] = v.GetStringValue()
		}
	}

	return message.New(fields[protoFieldID].GetStringValue(), target, args, metadata, trace.SpanContext{}), nil
}

// ContentType returns the MIME type for Protocol Buffers
func (c Proto) ContentType() string {
	return "application/x-protobuf"
}

// Name returns the codec identifier
func (c Proto) Name() string {
	return "proto"
}

// Compile-time check
var _ Codec = Proto{}
