package frame

import "io"

// Ping is a session-level (stream id 0) liveness probe. A request uses
// SYN (spec §6.1 also tolerates a bare 0-flag request from some peers);
// the response echoes the same opaque value with ACK set.
type Ping struct {
	common
}

func (f *Ping) Request() bool   { return !f.flags.Has(FlagACK) }
func (f *Ping) Ack() bool       { return f.flags.Has(FlagACK) }
func (f *Ping) Opaque() uint32  { return f.length }

func (f *Ping) readFrom(io.Reader) error {
	if f.streamID != 0 {
		return protoErrorf("PING frame must target stream 0, got: %d", f.streamID)
	}
	return nil
}

func (f *Ping) writeTo(w io.Writer) error {
	var b [HeaderSize]byte
	f.pack(&b, TypePing, f.flags, 0, f.length)
	_, err := w.Write(b[:])
	return err
}

// Pack prepares f as a ping request carrying the given opaque value.
func (f *Ping) Pack(opaque uint32) error {
	f.streamID = 0
	f.length = opaque
	f.flags = FlagSYN
	return nil
}

// PackAck prepares f as the ACK response echoing opaque.
func (f *Ping) PackAck(opaque uint32) error {
	f.streamID = 0
	f.length = opaque
	f.flags = FlagACK
	return nil
}
