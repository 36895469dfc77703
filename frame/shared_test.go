package frame

import (
	"bytes"
	"testing"
)

// FrameTest describes a single frame fixture: how to pack it, what bytes
// it should serialize to, and how to compare two decoded instances for
// equality. Concrete frame types implement this in their own _test.go
// file and drive it through RunFrameTest.
type FrameTest interface {
	FrameName() string
	Pack(f Frame) error
	Serialized() []byte
	Eq(a, b Frame) bool
	New() Frame
}

func RunFrameTest(t *testing.T, ft FrameTest) {
	t.Run(ft.FrameName()+"/serialize", func(t *testing.T) { runSerializeTest(t, ft) })
	t.Run(ft.FrameName()+"/deserialize", func(t *testing.T) { runDeserializeTest(t, ft) })
	t.Run(ft.FrameName()+"/framer", func(t *testing.T) { runFramerTest(t, ft) })
}

func runSerializeTest(t *testing.T, ft FrameTest) {
	f := ft.New()
	if err := ft.Pack(f); err != nil {
		t.Fatalf("unexpected error packing frame: %v", err)
	}
	var buf bytes.Buffer
	if err := f.writeTo(&buf); err != nil {
		t.Fatalf("unexpected error writing frame: %v", err)
	}
	got := buf.Bytes()
	want := ft.Serialized()
	if !bytes.Equal(got, want) {
		t.Fatalf("serialized mismatch:\n got: % x\nwant: % x", got, want)
	}
}

func runDeserializeTest(t *testing.T, ft FrameTest) {
	want := ft.New()
	if err := ft.Pack(want); err != nil {
		t.Fatalf("unexpected error packing frame: %v", err)
	}

	buf := bytes.NewReader(ft.Serialized())
	var c common
	if err := c.readFrom(buf); err != nil {
		t.Fatalf("unexpected error reading header: %v", err)
	}

	got := ft.New()
	switch g := got.(type) {
	case *Data:
		g.common = c
	case *WindowUpdate:
		g.common = c
	case *Ping:
		g.common = c
	case *GoAway:
		g.common = c
	}
	if err := got.readFrom(buf); err != nil {
		t.Fatalf("unexpected error reading body: %v", err)
	}
	if d, ok := got.(*Data); ok {
		payload := make([]byte, d.Length())
		if _, err := d.Reader().Read(payload); err != nil && d.Length() > 0 {
			t.Fatalf("unexpected error draining data payload: %v", err)
		}
	}

	if !ft.Eq(want, got) {
		t.Fatalf("deserialized frame does not match: got %#v, want %#v", got, want)
	}
}

func runFramerTest(t *testing.T, ft FrameTest) {
	f := ft.New()
	if err := ft.Pack(f); err != nil {
		t.Fatalf("unexpected error packing frame: %v", err)
	}

	var buf bytes.Buffer
	fr := NewFramer(&buf, &buf)
	if err := fr.WriteFrame(f); err != nil {
		t.Fatalf("unexpected error writing frame via framer: %v", err)
	}

	got, err := fr.ReadFrame()
	if err != nil {
		t.Fatalf("unexpected error reading frame via framer: %v", err)
	}
	if got.Type() != f.Type() {
		t.Fatalf("type mismatch: got %v, want %v", got.Type(), f.Type())
	}
	if got.StreamID() != f.StreamID() {
		t.Fatalf("stream id mismatch: got %v, want %v", got.StreamID(), f.StreamID())
	}
}
