package codec

import (
	"github.com/fxamacker/cbor/v2"
)

type CBORSerialization struct{}

func (c *CBORSerialization) Unmarshal(in []byte, body interface{}) error {
	return cbor.Unmarshal(in, body)
}

func (c *CBORSerialization) Marshal(body interface{}) ([]byte, error) {
	return cbor.Marshal(body)
}
