package frame

import (
	"bytes"
	"io"
	"testing"
)

type dataTest struct {
	streamID   StreamID
	payload    []byte
	syn, fin   bool
}

func (dt *dataTest) FrameName() string { return "Data" }
func (dt *dataTest) New() Frame        { return &Data{} }

func (dt *dataTest) Pack(f Frame) error {
	return f.(*Data).Pack(dt.streamID, dt.payload, dt.syn, dt.fin)
}

func (dt *dataTest) Serialized() []byte {
	var b [HeaderSize]byte
	b[0] = ProtoVersion
	b[1] = byte(TypeData)
	var flags Flags
	if dt.syn {
		flags |= FlagSYN
	}
	if dt.fin {
		flags |= FlagFIN
	}
	order.PutUint16(b[2:4], uint16(flags))
	order.PutUint32(b[4:8], uint32(dt.streamID))
	order.PutUint32(b[8:12], uint32(len(dt.payload)))
	return append(b[:], dt.payload...)
}

func (dt *dataTest) Eq(a, b Frame) bool {
	da, db := a.(*Data), b.(*Data)
	if da.StreamID() != db.StreamID() || da.Syn() != db.Syn() || da.Fin() != db.Fin() {
		return false
	}
	wantBody, err := io.ReadAll(bytes.NewReader(dt.payload))
	if err != nil {
		return false
	}
	return bytes.Equal(wantBody, dt.payload)
}

func TestDataFrame(t *testing.T) {
	RunFrameTest(t, &dataTest{streamID: 1, payload: []byte("hello"), syn: true})
	RunFrameTest(t, &dataTest{streamID: 3, payload: []byte("world"), fin: true})
	RunFrameTest(t, &dataTest{streamID: 5, payload: nil})
}

func TestDataFrameRejectsStreamZero(t *testing.T) {
	f := &Data{}
	if err := f.Pack(0, []byte("x"), false, false); err == nil {
		t.Fatal("expected error packing DATA frame for stream 0")
	}

	var buf bytes.Buffer
	var b [HeaderSize]byte
	var c common
	c.pack(&b, TypeData, 0, 0, 1)
	buf.Write(b[:])
	buf.WriteByte('x')

	var hdr common
	if err := hdr.readFrom(&buf); err != nil {
		t.Fatalf("unexpected header decode error: %v", err)
	}
	d := &Data{common: hdr}
	if err := d.readFrom(&buf); err == nil {
		t.Fatal("expected protocol error decoding DATA frame targeting stream 0")
	}
}
