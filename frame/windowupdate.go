package frame

import "io"

// WindowUpdate both grants send credit and, via flags, carries stream
// lifecycle signals (SYN opens a stream, ACK-only acknowledges a SYN,
// RST resets a stream). The window delta lives in the length field, not
// a separate body, per spec §3.1.
type WindowUpdate struct {
	common
}

func (f *WindowUpdate) Syn() bool        { return f.flags.Has(FlagSYN) }
func (f *WindowUpdate) Ack() bool        { return f.flags.Has(FlagACK) }
func (f *WindowUpdate) Rst() bool        { return f.flags.Has(FlagRST) }
func (f *WindowUpdate) Delta() uint32    { return f.length }

func (f *WindowUpdate) readFrom(io.Reader) error {
	if f.streamID == 0 {
		return protoErrorf("WINDOW_UPDATE frame must not target stream 0")
	}
	return nil
}

func (f *WindowUpdate) writeTo(w io.Writer) error {
	var b [HeaderSize]byte
	f.pack(&b, TypeWindowUpdate, f.flags, f.streamID, f.length)
	_, err := w.Write(b[:])
	return err
}

// Pack prepares f to be written as a WINDOW_UPDATE frame for streamID,
// granting delta bytes of additional send credit and carrying the given
// lifecycle flags (any subset of SYN/ACK/RST; FIN never applies here).
func (f *WindowUpdate) Pack(streamID StreamID, delta uint32, flags Flags) error {
	if streamID == 0 {
		return protoErrorf("WINDOW_UPDATE frame must not target stream 0")
	}
	f.streamID = streamID
	f.length = delta
	f.flags = flags &^ FlagFIN
	return nil
}
