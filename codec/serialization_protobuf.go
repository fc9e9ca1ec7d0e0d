package codec

import (
	"fmt"

	"google.golang.org/protobuf/proto"
)

// ProtobufSerialization only accepts values implementing proto.Message.
type ProtobufSerialization struct{}

func (p *ProtobufSerialization) Unmarshal(in []byte, body interface{}) error {
	if v, ok := body.(proto.Message); ok {
		return proto.Unmarshal(in, v)
	}
	return fmt.Errorf("proto unmarshal error, target %T should be proto.Message", body)
}

func (p *ProtobufSerialization) Marshal(body interface{}) (out []byte, err error) {
	if v, ok := body.(proto.Message); ok {
		return proto.Marshal(v)
	}
	return nil, fmt.Errorf("proto marshal error, value %T should be proto.Message", body)
}
