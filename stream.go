package yamux

import (
	"io"
	"sync"
	"time"

	"github.com/ngrok/yamux/frame"
)

// streamState enumerates a Stream's lifecycle. A stream only ever moves
// forward through these states; Closed and Reset are terminal.
type streamState uint8

const (
	streamInit streamState = iota
	streamOpen
	// streamClosing: the remote sent FIN. Reads may still drain
	// buffered data; writes in the local->remote direction are still
	// permitted until the local side also closes.
	streamClosing
	// streamLocalClosed: the local side sent FIN. Reads still work
	// (remote may still be sending); writes are no longer permitted.
	streamLocalClosed
	streamClosed
	streamReset
)

// streamWriteJob is one outbound chunk (or a bare FIN) queued for
// runWriteQueue to hand to the session's write serializer in order.
type streamWriteJob struct {
	payload []byte
	fin     bool
}

// Stream is a single multiplexed byte stream within a Session. It
// implements net.Conn-shaped Read/Write/Close plus the yamux-specific
// CloseWrite half-close.
type Stream struct {
	id      frame.StreamID
	session *Session

	stateMu sync.Mutex
	state   streamState

	sendWin *sendWindow
	recvBuf *streamBuffer
	recvWin *recvWindow

	writeMu    sync.Mutex // serializes Write/CloseWrite enqueue ordering
	writeQueue chan streamWriteJob

	resetOnce sync.Once
	doneOnce  sync.Once
	doneCh    chan struct{}
}

func newStream(sess *Session, id frame.StreamID, state streamState) *Stream {
	st := &Stream{
		id:         id,
		session:    sess,
		state:      state,
		sendWin:    newSendWindow(sess.config.InitialWindowSize),
		recvBuf:    newStreamBuffer(int(sess.config.InitialWindowSize)),
		recvWin:    newRecvWindow(sess.config.InitialWindowSize),
		writeQueue: make(chan streamWriteJob, sess.config.StreamWriteQueueDepth),
		doneCh:     make(chan struct{}),
	}
	go st.runWriteQueue()
	return st
}

// ID returns the stream's identifier.
func (s *Stream) ID() frame.StreamID { return s.id }

// Session returns the Session that owns this stream.
func (s *Stream) Session() *Session { return s.session }

func (s *Stream) setState(st streamState) {
	s.stateMu.Lock()
	s.state = st
	s.stateMu.Unlock()
}

func (s *Stream) getState() streamState {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	return s.state
}

// markDone stops runWriteQueue once the stream has reached a terminal
// state. Safe to call more than once or from more than one terminal
// path (clean close, Reset, remote RST) — only the first takes effect.
func (s *Stream) markDone() {
	s.doneOnce.Do(func() { close(s.doneCh) })
}

// markEstablished is called when the peer's ACK arrives for a
// locally-initiated stream. The session's OpenStream call is woken
// separately, via its own pending-SYN waiter; this only advances the
// stream's own state.
func (s *Stream) markEstablished() {
	s.stateMu.Lock()
	if s.state == streamInit {
		s.state = streamOpen
	}
	s.stateMu.Unlock()
}

// Read reads data from the stream. It returns io.EOF once the remote has
// sent FIN (or the stream was reset, as the appropriate error) and all
// buffered data has been delivered — never before, even if FIN arrived
// while bytes were still queued.
func (s *Stream) Read(p []byte) (int, error) {
	n, err := s.recvBuf.Read(p)
	if n > 0 {
		if grant := s.recvWin.Consume(uint32(n)); grant > 0 {
			s.session.sendWindowUpdate(s.id, grant)
		}
	}
	return n, err
}

// Write sends p to the remote, chunking at the frame codec's maximum
// payload length and blocking on send-window credit as needed. Each
// chunk is copied and handed to the stream's bounded write queue rather
// than written to the transport inline, so a slow transport backs up in
// that queue instead of here; see enqueueWrite.
func (s *Stream) Write(p []byte) (int, error) {
	if s.getState() == streamLocalClosed || s.getState() == streamClosed {
		return 0, errStreamClosed
	}
	if s.getState() == streamReset {
		return 0, errStreamReset
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	maxFrame := s.session.config.MaxFrameLength

	total := 0
	for total < len(p) {
		remaining := uint32(len(p) - total)
		n, err := s.sendWin.Decrement(min32(remaining, maxFrame))
		if err != nil {
			return total, err
		}
		chunk := make([]byte, n)
		copy(chunk, p[total:total+int(n)])
		if err := s.enqueueWrite(chunk, false); err != nil {
			return total, err
		}
		total += int(n)
	}
	return total, nil
}

func min32(a, b uint32) uint32 {
	if a < b {
		return a
	}
	return b
}

// enqueueWrite hands payload to the stream's bounded write queue for
// runWriteQueue to submit to the session's write serializer in order.
// The check is a non-blocking select, not a wait: per the anti-slow-
// transport measure, a writer that has already filled the queue is
// treated as a persistent stall and the stream is reset immediately
// rather than left to grow its backlog without bound.
func (s *Stream) enqueueWrite(payload []byte, fin bool) error {
	select {
	case s.writeQueue <- streamWriteJob{payload: payload, fin: fin}:
		return nil
	default:
		s.resetLocally()
		return errStreamStalled
	}
}

// runWriteQueue is the stream's single write-submission goroutine. It
// drains jobs queued by Write/CloseWrite and hands each to the
// session's write serializer in order, so backpressure from a slow
// transport accumulates in writeQueue rather than blocking Write itself
// beyond the queue's bound.
func (s *Stream) runWriteQueue() {
	for {
		select {
		case job := <-s.writeQueue:
			if err := s.session.sendData(s.id, job.payload, job.fin); err != nil {
				s.resetLocally()
				return
			}
		case <-s.doneCh:
			return
		case <-s.session.dead:
			return
		}
	}
}

// CloseWrite half-closes the stream: it sends FIN and prevents further
// local writes, but the stream remains readable until the remote also
// closes or resets.
func (s *Stream) CloseWrite() error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	switch s.getState() {
	case streamLocalClosed, streamClosed, streamReset:
		return nil
	}

	if err := s.enqueueWrite(nil, true); err != nil {
		return err
	}
	s.transitionAfterLocalFin()
	return nil
}

func (s *Stream) transitionAfterLocalFin() {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	switch s.state {
	case streamClosing:
		s.state = streamClosed
		s.session.removeStream(s.id)
		s.markDone()
	case streamInit, streamOpen:
		s.state = streamLocalClosed
	}
}

// Close closes the stream for both reading and writing: it sends FIN (if
// not already sent) and stops accepting further reads once buffered data
// is drained.
func (s *Stream) Close() error {
	err := s.CloseWrite()
	s.recvBuf.SetError(errStreamClosed)
	return err
}

// Reset abruptly terminates the stream in both directions and notifies
// the remote with an RST-flagged WINDOW_UPDATE frame. Unlike Close, any
// buffered-but-unread data is discarded immediately. Reset is best-effort:
// the RST frame may fail to send, but local state transitions regardless.
func (s *Stream) Reset() error {
	var sendErr error
	s.resetOnce.Do(func() {
		s.setState(streamReset)
		s.sendWin.SetError(errStreamReset)
		s.recvBuf.SetError(errStreamReset)
		s.recvBuf.mu.Lock()
		s.recvBuf.buf.Reset()
		s.recvBuf.mu.Unlock()
		s.writeMu.Lock()
		sendErr = s.session.sendWindowUpdateFlags(s.id, 0, frame.FlagRST)
		s.writeMu.Unlock()
		s.session.removeStream(s.id)
		s.markDone()
	})
	return sendErr
}

// resetLocally is Reset's reader-loop-safe counterpart: it submits the
// RST frame fire-and-forget instead of blocking on the write serializer,
// since the session's single reader goroutine must never wait on a
// frame it submitted before continuing to dispatch. Shares resetOnce
// with Reset so the two can never both fire for the same stream. Unlike
// Reset, it leaves already-buffered bytes readable ahead of
// errStreamReset.
func (s *Stream) resetLocally() {
	s.resetOnce.Do(func() {
		s.setState(streamReset)
		s.sendWin.SetError(errStreamReset)
		s.recvBuf.SetError(errStreamReset)
		var f frame.WindowUpdate
		f.Pack(s.id, 0, frame.FlagRST)
		s.session.writer.writeFrameAsync(&f, s.session.dead)
		s.session.removeStream(s.id)
		s.markDone()
	})
}

// SetDeadline sets both read and write deadlines.
func (s *Stream) SetDeadline(t time.Time) error {
	if err := s.SetReadDeadline(t); err != nil {
		return err
	}
	return s.SetWriteDeadline(t)
}

// SetReadDeadline sets the deadline for future Read calls.
func (s *Stream) SetReadDeadline(t time.Time) error {
	s.recvBuf.SetReadDeadline(t)
	return nil
}

// SetWriteDeadline sets the deadline for future Write calls.
//
// Yamux's credit-based flow control has no natural place to hang a write
// deadline below the session's ConnectionWriteTimeout, so this is
// presently a no-op kept only to satisfy net.Conn-shaped callers.
func (s *Stream) SetWriteDeadline(t time.Time) error {
	return nil
}

// handleData is called by the session's reader loop when a DATA frame
// targeting this stream arrives. It must never block for long: the
// reader loop cannot proceed to the next frame until this returns, and a
// stalled consumer is handled by the buffer's own capacity check, not by
// blocking here.
func (s *Stream) handleData(fr *frame.Data) error {
	if fr.Length() > s.session.config.MaxFrameLength {
		io.Copy(io.Discard, fr.Reader())
		return newErr(ErrorProtocol, errFrameTooLarge)
	}
	if err := s.recvWin.Decrement(fr.Length()); err != nil {
		// The peer spent more credit than we granted it: a flow-control
		// violation on their end. Drain the frame so the next header
		// parses cleanly, then reset locally rather than tearing down
		// the whole session, without blocking on the write serializer —
		// this runs on the session's single reader goroutine, which must
		// keep dispatching regardless of how backed up writes are.
		io.Copy(io.Discard, fr.Reader())
		s.resetLocally()
		return nil
	}
	body := make([]byte, fr.Length())
	if _, err := io.ReadFull(fr.Reader(), body); err != nil {
		return err
	}
	if len(body) > 0 {
		if _, err := s.recvBuf.Write(body); err != nil {
			s.resetLocally()
			return nil
		}
	}
	if fr.Fin() {
		s.handleRemoteFin()
	}
	return nil
}

func (s *Stream) handleRemoteFin() {
	s.recvBuf.SetError(errStreamClosedCleanly)
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	switch s.state {
	case streamLocalClosed:
		s.state = streamClosed
		s.session.removeStream(s.id)
		s.markDone()
	case streamInit, streamOpen:
		s.state = streamClosing
	}
}

// handleWindowUpdate processes a WINDOW_UPDATE frame for this stream:
// ACK establishes the stream, RST tears it down, and the delta (if any)
// grants additional send credit.
func (s *Stream) handleWindowUpdate(fr *frame.WindowUpdate) {
	if fr.Rst() {
		s.setState(streamReset)
		s.sendWin.SetError(errStreamReset)
		s.recvBuf.SetError(errStreamReset)
		s.session.removeStream(s.id)
		s.markDone()
		return
	}
	if fr.Ack() {
		s.markEstablished()
	}
	if fr.Delta() > 0 {
		s.sendWin.Increment(fr.Delta())
	}
}
