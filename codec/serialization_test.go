package codec

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

type person struct {
	Name string `json:"name" msgpack:"name"`
	Age  int    `json:"age" msgpack:"age"`
}

func TestParseType(t *testing.T) {
	for _, name := range []string{"json", "protobuf", "msgpack", "cbor"} {
		typ, err := ParseType(name)
		require.NoError(t, err)
		assert.Equal(t, name, typ.String())
		assert.True(t, typ.Legal())
	}

	_, err := ParseType("xml")
	assert.Error(t, err)
	assert.False(t, Unknown.Legal())
	assert.Equal(t, "codec(9)", Type(9).String())
}

func TestStructSerializers(t *testing.T) {
	for _, name := range []string{"json", "msgpack", "cbor"} {
		data, err := Marshal(name, &person{Name: "ann", Age: 7})
		require.NoError(t, err, name)

		var got person
		require.NoError(t, Unmarshal(name, data, &got), name)
		assert.Equal(t, person{Name: "ann", Age: 7}, got, name)
	}
}

func TestProtobuf(t *testing.T) {
	data, err := Marshal("protobuf", wrapperspb.String("hello"))
	require.NoError(t, err)

	got := &wrapperspb.StringValue{}
	require.NoError(t, Unmarshal("protobuf", data, got))
	assert.Equal(t, "hello", got.GetValue())

	_, err = Marshal("protobuf", &person{})
	assert.Error(t, err)
}

func TestNilAndEmpty(t *testing.T) {
	data, err := Marshal("json", nil)
	assert.NoError(t, err)
	assert.Nil(t, data)

	var p person
	assert.NoError(t, Unmarshal("json", nil, &p))
	assert.NoError(t, Unmarshal("json", []byte("{}"), nil))
}

func TestNotRegistered(t *testing.T) {
	_, err := Marshal("xml", 1)
	assert.True(t, errors.Is(err, ErrNotRegistered))

	var v int
	err = Unmarshal("xml", []byte("1"), &v)
	assert.True(t, errors.Is(err, ErrNotRegistered))
}

type upperJSON struct {
	JSONSerialization
}

func TestRegisterSerializer(t *testing.T) {
	const custom Type = 32
	require.NoError(t, RegisterSerializer(custom, "json-custom", &upperJSON{}))

	typ, err := ParseType("json-custom")
	require.NoError(t, err)
	assert.Equal(t, custom, typ)
	assert.Equal(t, "json-custom", custom.String())
	assert.True(t, custom.Legal())

	data, err := Marshal(custom.String(), &person{Name: "bo"})
	require.NoError(t, err)
	var got person
	require.NoError(t, Unmarshal(custom.String(), data, &got))
	assert.Equal(t, "bo", got.Name)

	// same pair again replaces the serializer
	assert.NoError(t, RegisterSerializer(custom, "json-custom", &JSONSerialization{}))

	assert.True(t, errors.Is(RegisterSerializer(JSON, "json-custom", &JSONSerialization{}), ErrConflict))
	assert.True(t, errors.Is(RegisterSerializer(custom, "other", &JSONSerialization{}), ErrConflict))
	assert.Error(t, RegisterSerializer(Unknown, "none", &JSONSerialization{}))
	assert.Error(t, RegisterSerializer(Type(33), "", &JSONSerialization{}))
	assert.Error(t, RegisterSerializer(Type(33), "nil", nil))
}
