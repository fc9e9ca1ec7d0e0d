// Package protocol
package protocol

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/yingshulu/apiclient/codec"
)

const (
	RequestType uint16 = iota + 1
	ReplyType
	ErrorType
	CloseType
	PingType
	PongType
)

var ErrShortMessage = errors.New("unmarshal error: on data less")

// Part is one encoded in parameter of a request.
type Part struct {
	Name string
	Type string
	Data []byte
}

type Message struct {
	Type    uint16
	ID      uint32
	Codec   codec.Type
	Service string
	Action  string
	Error   string
	Parts   []Part
	Data    []byte
}

// Err returns the fault carried by an error or close message.
func (m *Message) Err() error {
	if m.Type != ErrorType && m.Type != CloseType {
		return nil
	}
	return &Fault{Service: m.Service, Reason: m.Error}
}

func (m *Message) Encode() ([]byte, error) {
	if len(m.Service) > 0xffff || len(m.Action) > 0xffff {
		return nil, fmt.Errorf("marshal error: service or action too long")
	}
	if len(m.Parts) > 0xffff {
		return nil, fmt.Errorf("marshal error: %d parts", len(m.Parts))
	}

	var buf = make([]byte, 0, 16+len(m.Service)+len(m.Action)+len(m.Data))
	buf = appendUint16(buf, m.Type)
	buf = appendUint32(buf, m.ID)
	buf = append(buf, byte(m.Codec))
	buf = appendString16(buf, m.Service)
	buf = appendString16(buf, m.Action)

	switch m.Type {
	case ErrorType, CloseType:
		buf = appendBytes32(buf, []byte(m.Error))
	case RequestType:
		buf = appendUint16(buf, uint16(len(m.Parts)))
		for _, p := range m.Parts {
			if len(p.Name) > 0xffff || len(p.Type) > 0xffff {
				return nil, fmt.Errorf("marshal error: part %s too long", p.Name)
			}
			buf = appendString16(buf, p.Name)
			buf = appendString16(buf, p.Type)
			buf = appendBytes32(buf, p.Data)
		}
	default:
		buf = appendBytes32(buf, m.Data)
	}
	return buf, nil
}

func (m *Message) Decode(data []byte) error {
	r := &reader{data: data}
	m.Type = r.uint16()
	m.ID = r.uint32()
	m.Codec = codec.Type(r.byte())
	m.Service = string(r.bytes(int(r.uint16())))
	m.Action = string(r.bytes(int(r.uint16())))

	switch m.Type {
	case ErrorType, CloseType:
		m.Error = string(r.bytes(int(r.uint32())))
	case RequestType:
		n := int(r.uint16())
		m.Parts = make([]Part, 0, n)
		for i := 0; i < n && r.err == nil; i++ {
			var p Part
			p.Name = string(r.bytes(int(r.uint16())))
			p.Type = string(r.bytes(int(r.uint16())))
			p.Data = r.bytes(int(r.uint32()))
			m.Parts = append(m.Parts, p)
		}
	default:
		m.Data = r.bytes(int(r.uint32()))
	}
	return r.err
}

type reader struct {
	data  []byte
	index int
	err   error
}

func (r *reader) bytes(n int) []byte {
	if r.err != nil {
		return nil
	}
	if n < 0 || len(r.data)-r.index < n {
		r.err = ErrShortMessage
		return nil
	}
	b := r.data[r.index : r.index+n]
	r.index += n
	return b
}

func (r *reader) byte() byte {
	if b := r.bytes(1); b != nil {
		return b[0]
	}
	return 0
}

func (r *reader) uint16() uint16 {
	if b := r.bytes(2); b != nil {
		return binary.BigEndian.Uint16(b)
	}
	return 0
}

func (r *reader) uint32() uint32 {
	if b := r.bytes(4); b != nil {
		return binary.BigEndian.Uint32(b)
	}
	return 0
}

func appendString16(buf []byte, s string) []byte {
	buf = appendUint16(buf, uint16(len(s)))
	return append(buf, s...)
}

func appendBytes32(buf []byte, data []byte) []byte {
	buf = appendUint32(buf, uint32(len(data)))
	return append(buf, data...)
}

func appendUint16(buf []byte, v uint16) []byte {
	data16 := [2]byte{}
	binary.BigEndian.PutUint16(data16[:], v)
	return append(buf, data16[:]...)
}

func appendUint32(buf []byte, v uint32) []byte {
	data32 := [4]byte{}
	binary.BigEndian.PutUint32(data32[:], v)
	return append(buf, data32[:]...)
}
