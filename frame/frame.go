// Package frame implements the Yamux 1.0 wire codec: a fixed 12-byte
// header, big-endian throughout, followed by a payload for Data frames
// only. See the parent yamux package for the session state machine that
// drives it.
package frame

import (
	"encoding/binary"
	"fmt"
	"io"
)

var order = binary.BigEndian

// HeaderSize is the fixed size, in bytes, of every Yamux frame header.
const HeaderSize = 12

// ProtoVersion is the only version byte this codec accepts.
const ProtoVersion uint8 = 0

// Type identifies the kind of frame carried by a header.
type Type uint8

const (
	TypeData         Type = 0
	TypeWindowUpdate Type = 1
	TypePing         Type = 2
	TypeGoAway       Type = 3
)

func (t Type) String() string {
	switch t {
	case TypeData:
		return "DATA"
	case TypeWindowUpdate:
		return "WINDOW_UPDATE"
	case TypePing:
		return "PING"
	case TypeGoAway:
		return "GO_AWAY"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", uint8(t))
	}
}

// Flags is the 16-bit flag bitset in the frame header.
type Flags uint16

const (
	FlagSYN Flags = 0x1
	FlagACK Flags = 0x2
	FlagFIN Flags = 0x4
	FlagRST Flags = 0x8
)

func (f Flags) Has(g Flags) bool { return f&g != 0 }

// StreamID is the 32-bit stream identifier. Zero is reserved for
// session-level frames (Ping, GoAway).
type StreamID uint32

// GoAway reason codes (carried in the length field of a GoAway frame).
const (
	GoAwayNormal   uint32 = 0
	GoAwayProtocol uint32 = 1
	GoAwayInternal uint32 = 2
)

// common is the decoded form of a frame header, embedded by every
// concrete frame type. Only Data frames have anything to read or write
// beyond these 12 bytes.
type common struct {
	version  uint8
	ftype    Type
	flags    Flags
	streamID StreamID
	length   uint32
}

func (f *common) Version() uint8    { return f.version }
func (f *common) Type() Type        { return f.ftype }
func (f *common) Flags() Flags      { return f.flags }
func (f *common) StreamID() StreamID { return f.streamID }
func (f *common) Length() uint32    { return f.length }

// readFrom decodes exactly HeaderSize bytes from r into f. It validates
// version and type; it does not read any payload.
func (f *common) readFrom(r io.Reader) error {
	var b [HeaderSize]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return err
	}
	f.version = b[0]
	if f.version != ProtoVersion {
		return protoErrorf("invalid protocol version: %d", f.version)
	}
	f.ftype = Type(b[1])
	switch f.ftype {
	case TypeData, TypeWindowUpdate, TypePing, TypeGoAway:
	default:
		return protoErrorf("invalid frame type: %d", b[1])
	}
	f.flags = Flags(order.Uint16(b[2:4]))
	f.streamID = StreamID(order.Uint32(b[4:8]))
	f.length = order.Uint32(b[8:12])
	return nil
}

// pack fills in f's fields and renders the 12-byte header into b.
func (f *common) pack(b *[HeaderSize]byte, ftype Type, flags Flags, streamID StreamID, length uint32) {
	f.version = ProtoVersion
	f.ftype = ftype
	f.flags = flags
	f.streamID = streamID
	f.length = length

	b[0] = ProtoVersion
	b[1] = byte(ftype)
	order.PutUint16(b[2:4], uint16(flags))
	order.PutUint32(b[4:8], uint32(streamID))
	order.PutUint32(b[8:12], length)
}

// Frame is implemented by every decoded Yamux frame.
type Frame interface {
	Version() uint8
	Type() Type
	Flags() Flags
	StreamID() StreamID
	Length() uint32

	readFrom(io.Reader) error
	writeTo(io.Writer) error
}
