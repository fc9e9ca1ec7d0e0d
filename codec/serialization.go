// Package codec
package codec

import (
	"errors"
	"fmt"
	"sync"
)

// Type is the serializer id carried on the wire.
type Type uint8

const (
	Unknown Type = iota
	JSON
	Protobuf
	MessagePack
	CBOR
)

// ParseType maps a serializer name to its wire id.
func ParseType(name string) (Type, error) {
	lock.RLock()
	defer lock.RUnlock()
	if t, ok := typeIDs[name]; ok {
		return t, nil
	}
	return Unknown, fmt.Errorf("codec: unknown serialization %q", name)
}

func (t Type) String() string {
	lock.RLock()
	defer lock.RUnlock()
	if n, ok := typeNames[t]; ok {
		return n
	}
	return fmt.Sprintf("codec(%d)", uint8(t))
}

// Legal reports whether t names a registered serializer.
func (t Type) Legal() bool {
	lock.RLock()
	defer lock.RUnlock()
	n, ok := typeNames[t]
	return ok && serializers[n] != nil
}

type Serializer interface {
	Unmarshal(in []byte, body interface{}) error
	Marshal(body interface{}) (out []byte, err error)
}

var (
	ErrNotRegistered = errors.New("serializer not registered")
	ErrConflict      = errors.New("serializer conflicts with a registered one")
)

var (
	lock      sync.RWMutex
	typeNames = map[Type]string{
		JSON:        "json",
		Protobuf:    "protobuf",
		MessagePack: "msgpack",
		CBOR:        "cbor",
	}
	typeIDs = map[string]Type{
		"json":     JSON,
		"protobuf": Protobuf,
		"msgpack":  MessagePack,
		"cbor":     CBOR,
	}
	serializers = map[string]Serializer{
		"json":     &JSONSerialization{},
		"protobuf": &ProtobufSerialization{},
		"msgpack":  &MessagePackSerialization{},
		"cbor":     &CBORSerialization{},
	}
)

// RegisterSerializer binds s to name and the wire id t. Replacing the
// serializer of an existing pair is allowed; reusing either half of a pair
// with a different partner is not.
func RegisterSerializer(t Type, name string, s Serializer) error {
	if t == Unknown || name == "" || s == nil {
		return fmt.Errorf("codec: invalid registration %q as %d", name, uint8(t))
	}

	lock.Lock()
	defer lock.Unlock()
	if n, ok := typeNames[t]; ok && n != name {
		return fmt.Errorf("%w: id %d is %s", ErrConflict, uint8(t), n)
	}
	if id, ok := typeIDs[name]; ok && id != t {
		return fmt.Errorf("%w: %s has id %d", ErrConflict, name, uint8(id))
	}
	typeNames[t] = name
	typeIDs[name] = t
	serializers[name] = s
	return nil
}

func GetSerializer(serializationType string) Serializer {
	lock.RLock()
	defer lock.RUnlock()
	return serializers[serializationType]
}

func Unmarshal(serializationType string, in []byte, body interface{}) error {
	if body == nil {
		return nil
	}
	if len(in) == 0 {
		return nil
	}

	s := GetSerializer(serializationType)
	if s == nil {
		return fmt.Errorf("%w: %s", ErrNotRegistered, serializationType)
	}

	return s.Unmarshal(in, body)
}

func Marshal(serializationType string, body interface{}) ([]byte, error) {
	if body == nil {
		return nil, nil
	}
	s := GetSerializer(serializationType)
	if s == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotRegistered, serializationType)
	}
	return s.Marshal(body)
}
