package yamux

import (
	"io"
	"testing"
)

func newTestStream() (*Session, *Stream) {
	sess := &Session{config: DefaultConfig(), streams: newStreamMap()}
	sess.config.initDefaults()
	st := newStream(sess, 1, streamOpen)
	return sess, st
}

func TestStreamBufferPreservesDataAfterFin(t *testing.T) {
	_, st := newTestStream()

	if _, err := st.recvBuf.Write([]byte("abc")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	st.recvBuf.SetError(io.EOF)

	buf := make([]byte, 3)
	n, err := st.Read(buf)
	if err != nil {
		t.Fatalf("expected nil error while buffered data remains, got %v", err)
	}
	if n != 3 || string(buf) != "abc" {
		t.Fatalf("got %q, want %q", buf[:n], "abc")
	}

	_, err = st.Read(buf)
	if err != io.EOF {
		t.Fatalf("expected io.EOF once drained, got %v", err)
	}
}

func TestStreamWriteAfterCloseFails(t *testing.T) {
	_, st := newTestStream()
	st.setState(streamLocalClosed)

	if _, err := st.Write([]byte("x")); err == nil {
		t.Fatal("expected error writing to a locally-closed stream")
	}
}

func TestSendWindowBlocksThenUnblocks(t *testing.T) {
	w := newSendWindow(0)
	done := make(chan struct{})
	go func() {
		n, err := w.Decrement(10)
		if err != nil || n != 10 {
			t.Errorf("Decrement: n=%d err=%v", n, err)
		}
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("Decrement returned before credit was available")
	default:
	}

	w.Increment(10)
	<-done
}
