package frame

import (
	"bytes"
	"testing"
)

type windowUpdateTest struct {
	streamID StreamID
	delta    uint32
	flags    Flags
}

func (wt *windowUpdateTest) FrameName() string { return "WindowUpdate" }
func (wt *windowUpdateTest) New() Frame        { return &WindowUpdate{} }

func (wt *windowUpdateTest) Pack(f Frame) error {
	return f.(*WindowUpdate).Pack(wt.streamID, wt.delta, wt.flags)
}

func (wt *windowUpdateTest) Serialized() []byte {
	var b [HeaderSize]byte
	b[0] = ProtoVersion
	b[1] = byte(TypeWindowUpdate)
	order.PutUint16(b[2:4], uint16(wt.flags&^FlagFIN))
	order.PutUint32(b[4:8], uint32(wt.streamID))
	order.PutUint32(b[8:12], wt.delta)
	return b[:]
}

func (wt *windowUpdateTest) Eq(a, b Frame) bool {
	wa, wb := a.(*WindowUpdate), b.(*WindowUpdate)
	return wa.StreamID() == wb.StreamID() && wa.Delta() == wb.Delta() &&
		wa.Syn() == wb.Syn() && wa.Ack() == wb.Ack() && wa.Rst() == wb.Rst()
}

func TestWindowUpdateFrame(t *testing.T) {
	RunFrameTest(t, &windowUpdateTest{streamID: 1, delta: 0, flags: FlagSYN})
	RunFrameTest(t, &windowUpdateTest{streamID: 1, delta: 0, flags: FlagACK})
	RunFrameTest(t, &windowUpdateTest{streamID: 1, delta: 0, flags: FlagRST})
	RunFrameTest(t, &windowUpdateTest{streamID: 7, delta: 32768, flags: 0})
}

func TestWindowUpdateRejectsStreamZero(t *testing.T) {
	f := &WindowUpdate{}
	if err := f.Pack(0, 10, 0); err == nil {
		t.Fatal("expected error packing WINDOW_UPDATE frame for stream 0")
	}

	var buf bytes.Buffer
	var b [HeaderSize]byte
	var c common
	c.pack(&b, TypeWindowUpdate, 0, 0, 10)
	buf.Write(b[:])

	var hdr common
	if err := hdr.readFrom(&buf); err != nil {
		t.Fatalf("unexpected header decode error: %v", err)
	}
	w := &WindowUpdate{common: hdr}
	if err := w.readFrom(&buf); err == nil {
		t.Fatal("expected protocol error decoding WINDOW_UPDATE frame targeting stream 0")
	}
}
