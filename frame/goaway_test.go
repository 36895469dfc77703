package frame

import (
	"bytes"
	"testing"
)

type goAwayTest struct {
	reason uint32
}

func (gt *goAwayTest) FrameName() string { return "GoAway" }
func (gt *goAwayTest) New() Frame        { return &GoAway{} }

func (gt *goAwayTest) Pack(f Frame) error {
	return f.(*GoAway).Pack(gt.reason)
}

func (gt *goAwayTest) Serialized() []byte {
	var b [HeaderSize]byte
	b[0] = ProtoVersion
	b[1] = byte(TypeGoAway)
	order.PutUint16(b[2:4], 0)
	order.PutUint32(b[4:8], 0)
	order.PutUint32(b[8:12], gt.reason)
	return b[:]
}

func (gt *goAwayTest) Eq(a, b Frame) bool {
	return a.(*GoAway).Reason() == b.(*GoAway).Reason()
}

func TestGoAwayFrame(t *testing.T) {
	RunFrameTest(t, &goAwayTest{reason: GoAwayNormal})
	RunFrameTest(t, &goAwayTest{reason: GoAwayProtocol})
	RunFrameTest(t, &goAwayTest{reason: GoAwayInternal})
}

func TestGoAwayRejectsNonZeroStream(t *testing.T) {
	var buf bytes.Buffer
	var b [HeaderSize]byte
	var c common
	c.pack(&b, TypeGoAway, 0, 1, 0)
	buf.Write(b[:])

	var hdr common
	if err := hdr.readFrom(&buf); err != nil {
		t.Fatalf("unexpected header decode error: %v", err)
	}
	g := &GoAway{common: hdr}
	if err := g.readFrom(&buf); err == nil {
		t.Fatal("expected protocol error decoding GO_AWAY frame targeting non-zero stream")
	}
}
