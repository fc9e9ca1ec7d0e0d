// Package transport
package transport

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
)

const (
	MagicCode         byte = 0x6f
	HeaderFixedLength      = 12

	// MaxPayloadLength bounds a single frame read from the peer.
	MaxPayloadLength = 16 << 20
)

// RpcFlag marks frames carrying an encoded protocol message.
const RpcFlag byte = 1 << 1

var (
	ErrMagicCode = errors.New("decode error: on magic code unmatched")
	ErrCheckSum  = errors.New("decode error: on checksum unmatched")
)

func NewFrame(data []byte) *Frame {
	return &Frame{
		Magic:    MagicCode,
		CheckSum: crc32.ChecksumIEEE(data),
		Length:   uint32(len(data)),
		Payload:  data,
	}
}

func NewRpcFrame(data []byte) *Frame {
	f := NewFrame(data)
	f.Flag |= RpcFlag
	return f
}

type Frame struct {
	Magic    byte
	Flag     byte
	Reserved uint16
	CheckSum uint32
	Length   uint32
	Payload  []byte
}

func (f *Frame) IsRpc() bool {
	return (f.Flag & RpcFlag) != 0
}

func (f *Frame) Encode() []byte {
	var buf = make([]byte, HeaderFixedLength+len(f.Payload))
	buf[0] = f.Magic
	buf[1] = f.Flag
	binary.BigEndian.PutUint16(buf[2:], f.Reserved)
	binary.BigEndian.PutUint32(buf[4:], f.CheckSum)
	binary.BigEndian.PutUint32(buf[8:], f.Length)
	copy(buf[HeaderFixedLength:], f.Payload)
	return buf
}

func (f *Frame) DecodeHeader(data []byte) error {
	if data[0] != MagicCode {
		return ErrMagicCode
	}
	f.Magic = data[0]
	f.Flag = data[1]
	f.Reserved = binary.BigEndian.Uint16(data[2:])
	f.CheckSum = binary.BigEndian.Uint32(data[4:])
	f.Length = binary.BigEndian.Uint32(data[8:])
	if f.Length > MaxPayloadLength {
		return fmt.Errorf("decode error: payload length %d exceeds %d", f.Length, MaxPayloadLength)
	}
	return nil
}

func (f *Frame) Decode(data []byte) error {
	if len(data) < HeaderFixedLength {
		return errors.New("decode error: on data length less")
	}

	err := f.DecodeHeader(data)
	if err != nil {
		return err
	}
	if len(data) < HeaderFixedLength+int(f.Length) {
		return errors.New("decode error: on payload length less")
	}
	f.Payload = data[HeaderFixedLength : HeaderFixedLength+f.Length]
	return f.verify()
}

func (f *Frame) verify() error {
	if crc32.ChecksumIEEE(f.Payload) != f.CheckSum {
		return ErrCheckSum
	}
	return nil
}

func newFrameReader(r io.Reader) *frameReader {
	return &frameReader{
		r: bufio.NewReader(r),
	}
}

func newFrameWriter(w io.Writer) *frameWriter {
	return &frameWriter{
		w: w,
	}
}

type frameReader struct {
	r         *bufio.Reader
	headerBuf [HeaderFixedLength]byte
}

func (f *frameReader) Read() (*Frame, error) {
	_, err := io.ReadFull(f.r, f.headerBuf[:])
	if err != nil {
		return nil, err
	}

	m := &Frame{}
	err = m.DecodeHeader(f.headerBuf[:])
	if err != nil {
		return nil, err
	}

	m.Payload = make([]byte, int(m.Length))
	if _, err = io.ReadFull(f.r, m.Payload); err != nil {
		return nil, err
	}
	return m, m.verify()
}

type frameWriter struct {
	w io.Writer
}

func (f *frameWriter) Write(m *Frame) error {
	data := m.Encode()
	_, err := f.w.Write(data)
	return err
}
