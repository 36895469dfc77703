package frame

import "io"

// Data carries stream payload bytes. SYN and FIN may ride along as
// flags; RST never rides a Data frame (it rides WindowUpdate instead,
// per the wire format in spec §6.1).
type Data struct {
	common

	toRead  io.LimitedReader // set when decoding: caller drains this
	toWrite []byte           // set when encoding
}

func (f *Data) Fin() bool { return f.flags.Has(FlagFIN) }
func (f *Data) Syn() bool { return f.flags.Has(FlagSYN) }

// Reader returns an io.Reader bounded to exactly Length() bytes. It must
// be fully drained (or discarded) before the next frame is read from the
// same underlying transport.
func (f *Data) Reader() io.Reader { return &f.toRead }

func (f *Data) readFrom(r io.Reader) error {
	if f.streamID == 0 {
		return protoErrorf("DATA frame must not target stream 0, got: %d", f.streamID)
	}
	f.toRead.R = r
	f.toRead.N = int64(f.length)
	return nil
}

func (f *Data) writeTo(w io.Writer) error {
	var b [HeaderSize]byte
	f.pack(&b, TypeData, f.flags, f.streamID, uint32(len(f.toWrite)))
	if _, err := w.Write(b[:]); err != nil {
		return err
	}
	if len(f.toWrite) == 0 {
		return nil
	}
	_, err := w.Write(f.toWrite)
	return err
}

// Pack prepares f to be written as a DATA frame for streamID carrying
// data, with the given SYN/FIN flags set. streamID must be non-zero.
func (f *Data) Pack(streamID StreamID, data []byte, syn, fin bool) error {
	if streamID == 0 {
		return protoErrorf("DATA frame must not target stream 0")
	}
	var flags Flags
	if syn {
		flags |= FlagSYN
	}
	if fin {
		flags |= FlagFIN
	}
	f.streamID = streamID
	f.flags = flags
	f.toWrite = data
	return nil
}
