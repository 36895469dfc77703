package frame

import (
	"bytes"
	"io"
	"testing"
)

func TestRejectsBadVersion(t *testing.T) {
	var b [HeaderSize]byte
	b[0] = ProtoVersion + 1
	b[1] = byte(TypeData)
	order.PutUint32(b[4:8], 1)

	var c common
	if err := c.readFrom(bytes.NewReader(b[:])); err == nil {
		t.Fatal("expected error decoding header with bad version")
	}
}

func TestRejectsUnknownType(t *testing.T) {
	var b [HeaderSize]byte
	b[0] = ProtoVersion
	b[1] = 0xFF
	order.PutUint32(b[4:8], 1)

	var c common
	if err := c.readFrom(bytes.NewReader(b[:])); err == nil {
		t.Fatal("expected error decoding header with unknown type")
	}
}

func TestRejectsShortHeader(t *testing.T) {
	var c common
	err := c.readFrom(bytes.NewReader([]byte{0, 0, 0}))
	if err == nil {
		t.Fatal("expected error decoding truncated header")
	}
	if err != io.ErrUnexpectedEOF && err != io.EOF {
		t.Fatalf("expected an EOF-family error, got: %v", err)
	}
}

func TestFlagsHas(t *testing.T) {
	f := FlagSYN | FlagFIN
	if !f.Has(FlagSYN) || !f.Has(FlagFIN) {
		t.Fatal("expected Has to report set flags")
	}
	if f.Has(FlagACK) || f.Has(FlagRST) {
		t.Fatal("expected Has to report unset flags as false")
	}
}

func TestTypeString(t *testing.T) {
	cases := map[Type]string{
		TypeData:         "DATA",
		TypeWindowUpdate: "WINDOW_UPDATE",
		TypePing:         "PING",
		TypeGoAway:       "GO_AWAY",
	}
	for typ, want := range cases {
		if got := typ.String(); got != want {
			t.Fatalf("Type(%d).String() = %q, want %q", typ, got, want)
		}
	}
}
