package frame

import "io"

// GoAway is a session-wide shutdown signal. Its reason code lives in the
// length field, per spec §3.1/§6.1; unlike muxado's frame of the same
// purpose, it carries no trailing debug payload — the wire format here
// is Yamux's, where every non-Data frame is header-only.
type GoAway struct {
	common
}

func (f *GoAway) Reason() uint32 { return f.length }

func (f *GoAway) readFrom(io.Reader) error {
	if f.streamID != 0 {
		return protoErrorf("GO_AWAY frame must target stream 0, got: %d", f.streamID)
	}
	return nil
}

func (f *GoAway) writeTo(w io.Writer) error {
	var b [HeaderSize]byte
	f.pack(&b, TypeGoAway, 0, 0, f.length)
	_, err := w.Write(b[:])
	return err
}

// Pack prepares f as a GO_AWAY frame with the given reason code
// (GoAwayNormal, GoAwayProtocol, or GoAwayInternal).
func (f *GoAway) Pack(reason uint32) error {
	f.streamID = 0
	f.length = reason
	return nil
}
