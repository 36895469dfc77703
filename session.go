package yamux

import (
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/inconshreveable/log15"

	"github.com/ngrok/yamux/frame"
)

// Session multiplexes many Streams over a single underlying transport
// connection. Create one with Client or Server depending on which side
// of the connection you're on; the two sides must agree, since stream
// ids are parity-partitioned (odd for the client, even for the server).
type Session struct {
	conn    net.Conn
	framer  frame.Framer
	config  *Config
	client  bool
	log     log15.Logger

	writer *writeSerializer

	streams  *streamMap
	nextID   uint32 // atomic

	acceptCh chan *Stream

	dieOnce  uint32 // atomic CAS guard for die()
	dead     chan struct{}
	dieErr   atomic.Value // error

	localGoAway  uint32 // atomic
	remoteGoAway uint32 // atomic

	pendingPingsMu sync.Mutex
	pendingPings   map[uint32]chan struct{}
	nextPingID     uint32 // atomic

	pendingSynMu sync.Mutex
	pendingSyn   map[frame.StreamID]chan struct{}

	keepalive *keepaliveController
}

// Client wraps conn as the client (odd stream ids) side of a Session.
func Client(conn net.Conn, config *Config) (*Session, error) {
	return newSession(conn, config, true)
}

// Server wraps conn as the server (even stream ids) side of a Session.
func Server(conn net.Conn, config *Config) (*Session, error) {
	return newSession(conn, config, false)
}

func newSession(conn net.Conn, config *Config, client bool) (*Session, error) {
	if config == nil {
		config = DefaultConfig()
	}
	config.initDefaults()

	sess := &Session{
		conn:         conn,
		framer:       frame.NewFramer(conn, conn),
		config:       config,
		client:       client,
		log:          sessionLogger(config.Logger, client),
		streams:      newStreamMap(),
		acceptCh:     make(chan *Stream, config.AcceptBacklog),
		dead:         make(chan struct{}),
		pendingPings: make(map[uint32]chan struct{}),
		pendingSyn:   make(map[frame.StreamID]chan struct{}),
	}
	if client {
		sess.nextID = 1
	} else {
		sess.nextID = 2
	}

	sess.writer = newWriteSerializer(sess.framer, config.writeFrameQueueDepth, config.ConnectionWriteTimeout)

	go sess.writer.run(sess.dead, func(err error) { sess.die(newErr(ErrorInternal, err)) })
	go sess.readLoop()

	if config.EnableKeepAlive {
		sess.keepalive = newKeepaliveController(sess)
		go sess.keepalive.run()
	}

	return sess, nil
}

func (s *Session) allocStreamID() frame.StreamID {
	id := atomic.AddUint32(&s.nextID, 2) - 2
	return frame.StreamID(id)
}

// OpenStream allocates a new stream, sends its SYN-flagged WINDOW_UPDATE
// immediately, and blocks until the peer's ACK arrives or
// config.StreamOpenTimeout elapses. This matches the wire-level
// expectations of other Yamux implementations: a stream exists on the
// peer's side as soon as OpenStream returns successfully, whether or not
// the caller ever writes to it.
func (s *Session) OpenStream() (*Stream, error) {
	select {
	case <-s.dead:
		return nil, s.closeErr()
	default:
	}
	if atomic.LoadUint32(&s.remoteGoAway) == 1 {
		return nil, errRemoteGoneAway
	}
	if s.streams.Len() >= int(s.config.MaxStreams) {
		return nil, errTooManyStreams
	}

	id := s.allocStreamID()
	st := newStream(s, id, streamInit)
	s.streams.Set(id, st)

	waitCh := make(chan struct{})
	s.pendingSynMu.Lock()
	s.pendingSyn[id] = waitCh
	s.pendingSynMu.Unlock()

	abandon := func() {
		s.pendingSynMu.Lock()
		delete(s.pendingSyn, id)
		s.pendingSynMu.Unlock()
		s.streams.Delete(id)
	}

	var syn frame.WindowUpdate
	syn.Pack(id, 0, frame.FlagSYN)
	if err := s.writer.writeFrame(&syn, s.dead); err != nil {
		abandon()
		return nil, err
	}

	timer := time.NewTimer(s.config.StreamOpenTimeout)
	defer timer.Stop()

	select {
	case <-waitCh:
		return st, nil
	case <-s.dead:
		return nil, s.closeErr()
	case <-timer.C:
		abandon()
		return nil, errStreamOpenTimeout
	}
}

// AcceptStream blocks until a remotely-initiated stream is available or
// the session dies.
func (s *Session) AcceptStream() (*Stream, error) {
	select {
	case st, ok := <-s.acceptCh:
		if !ok {
			return nil, s.closeErr()
		}
		return st, nil
	case <-s.dead:
		return nil, s.closeErr()
	}
}

// Close shuts the session down cleanly: it sends a normal GO_AWAY,
// closes every open stream, and tears down the underlying transport.
func (s *Session) Close() error {
	s.sendGoAway(frame.GoAwayNormal)
	return s.die(errSessionShutdown)
}

func (s *Session) closeErr() error {
	if v := s.dieErr.Load(); v != nil {
		return v.(error)
	}
	return errSessionShutdown
}

// die tears the session down exactly once: it records err, closes dead,
// force-resets every live stream, and closes the transport. Safe to call
// concurrently and redundantly from the reader loop, the writer, and
// Close.
func (s *Session) die(err error) error {
	if !atomic.CompareAndSwapUint32(&s.dieOnce, 0, 1) {
		return nil
	}
	s.dieErr.Store(err)
	close(s.dead)

	s.streams.Each(func(_ frame.StreamID, st *Stream) {
		st.recvBuf.SetError(err)
		st.sendWin.SetError(err)
	})

	return s.conn.Close()
}

// LocalAddr returns the underlying transport's local address.
func (s *Session) LocalAddr() net.Addr { return s.conn.LocalAddr() }

// RemoteAddr returns the underlying transport's remote address.
func (s *Session) RemoteAddr() net.Addr { return s.conn.RemoteAddr() }

// Wait blocks until the session has terminated and returns the reason.
func (s *Session) Wait() error {
	<-s.dead
	return s.closeErr()
}

func (s *Session) removeStream(id frame.StreamID) {
	s.streams.Delete(id)
}

// readLoop is the session's single reader goroutine. It owns frame
// decoding and dispatch; it must never block on the write serializer, so
// every send it triggers uses writeFrameAsync or a buffered channel.
func (s *Session) readLoop() {
	defer close(s.acceptCh)
	for {
		fr, err := s.framer.ReadFrame()
		if err != nil {
			if err == io.EOF {
				s.die(newErr(ErrorNone, err))
			} else {
				wrapped := fromFrameError(err)
				if code, _ := GetError(wrapped); code == ErrorProtocol {
					s.log.Warn("protocol violation decoding frame, shutting down session", "err", err)
					s.sendGoAway(frame.GoAwayProtocol)
				}
				s.die(wrapped)
			}
			return
		}
		if err := s.handleFrame(fr); err != nil {
			s.log.Warn("protocol violation, shutting down session", "err", err)
			s.sendGoAway(frame.GoAwayProtocol)
			s.die(err)
			return
		}
	}
}

func (s *Session) handleFrame(fr frame.Frame) error {
	switch f := fr.(type) {
	case *frame.Data:
		return s.handleDataFrame(f)
	case *frame.WindowUpdate:
		return s.handleWindowUpdateFrame(f)
	case *frame.Ping:
		return s.handlePing(f)
	case *frame.GoAway:
		return s.handleGoAway(f)
	default:
		return newErr(ErrorProtocol, io.ErrUnexpectedEOF)
	}
}

func (s *Session) handleDataFrame(f *frame.Data) error {
	st, ok := s.streams.Get(f.StreamID())
	if !ok {
		if f.Syn() {
			return s.handleSyn(f.StreamID(), f)
		}
		// Unknown stream and not a SYN: likely a race with a stream we
		// just closed or reset locally. Drain the payload and ignore it
		// silently — an RST here would be gratuitous.
		io.Copy(io.Discard, f.Reader())
		return nil
	}
	return st.handleData(f)
}

func (s *Session) handleWindowUpdateFrame(f *frame.WindowUpdate) error {
	if f.Syn() {
		return s.handleSyn(f.StreamID(), nil)
	}
	if f.Ack() {
		s.completeSyn(f.StreamID())
	}
	st, ok := s.streams.Get(f.StreamID())
	if !ok {
		return nil
	}
	st.handleWindowUpdate(f)
	return nil
}

// completeSyn wakes a pending OpenStream call once the peer's ACK for
// its SYN arrives. It's a no-op if the id isn't pending (already
// completed, timed out, or the ACK belongs to a remotely-initiated
// stream, which never waits on this map).
func (s *Session) completeSyn(id frame.StreamID) {
	s.pendingSynMu.Lock()
	ch, ok := s.pendingSyn[id]
	if ok {
		delete(s.pendingSyn, id)
	}
	s.pendingSynMu.Unlock()
	if ok {
		close(ch)
	}
}

// drainSynPayload discards df's payload, if any. Required before a
// non-fatal rejection of a SYN that rode in on a Data frame: df.Reader
// only arms a lazy io.LimitedReader, and an unread tail would corrupt
// the next ReadFrame call's header parse.
func drainSynPayload(df *frame.Data) {
	if df != nil {
		io.Copy(io.Discard, df.Reader())
	}
}

// handleSyn admits a remotely-initiated stream. df is non-nil when the
// SYN rode in on a DATA frame (it may carry a first chunk of payload);
// it is nil when the SYN rode in on a bare WINDOW_UPDATE.
func (s *Session) handleSyn(id frame.StreamID, df *frame.Data) error {
	if s.client == (id%2 == 1) {
		drainSynPayload(df)
		return newErr(ErrorProtocol, errWrongParity)
	}
	if _, exists := s.streams.Get(id); exists {
		// A live stream already occupies this id: the peer is either
		// confused about its own id allocation or replaying a stale SYN.
		// Either way this is a protocol error, not a per-stream RST.
		drainSynPayload(df)
		return newErr(ErrorProtocol, errDuplicateStreamID)
	}
	if atomic.LoadUint32(&s.localGoAway) == 1 || s.streams.Len() >= int(s.config.MaxStreams) {
		drainSynPayload(df)
		rst := windowUpdateRst(id)
		s.writer.writeFrameAsync(&rst, s.dead)
		return nil
	}

	st := newStream(s, id, streamOpen)
	s.streams.Set(id, st)

	ack := frame.WindowUpdate{}
	ack.Pack(id, 0, frame.FlagACK)
	s.writer.writeFrameAsync(&ack, s.dead)

	select {
	case s.acceptCh <- st:
	default:
		s.streams.Delete(id)
		drainSynPayload(df)
		rst := windowUpdateRst(id)
		s.writer.writeFrameAsync(&rst, s.dead)
		return nil
	}

	if df != nil {
		return st.handleData(df)
	}
	return nil
}

func windowUpdateRst(id frame.StreamID) frame.WindowUpdate {
	var f frame.WindowUpdate
	f.Pack(id, 0, frame.FlagRST)
	return f
}

func (s *Session) handlePing(f *frame.Ping) error {
	if f.Ack() {
		s.pendingPingsMu.Lock()
		if ch, ok := s.pendingPings[f.Opaque()]; ok {
			close(ch)
			delete(s.pendingPings, f.Opaque())
		}
		s.pendingPingsMu.Unlock()
		return nil
	}
	var resp frame.Ping
	resp.PackAck(f.Opaque())
	s.writer.writeFrameAsync(&resp, s.dead)
	return nil
}

// handleGoAway treats a remote GO_AWAY as a hard shutdown signal: no new
// streams may be opened or accepted from this point, and the session
// tears itself down, resetting whatever streams were still open. This
// intentionally runs full cleanup rather than the more lenient
// stop-accepting-only behavior some Yamux implementations use, matching
// the error-handling contract spelled out for remote closure.
func (s *Session) handleGoAway(f *frame.GoAway) error {
	atomic.StoreUint32(&s.remoteGoAway, 1)
	s.log.Info("received GO_AWAY", "reason", f.Reason())
	s.die(errRemoteGoneAway)
	return nil
}

func (s *Session) sendGoAway(reason uint32) {
	if !atomic.CompareAndSwapUint32(&s.localGoAway, 0, 1) {
		return
	}
	var f frame.GoAway
	f.Pack(reason)
	s.writer.writeFrameAsync(&f, s.dead)
}

func (s *Session) sendData(id frame.StreamID, p []byte, fin bool) error {
	var f frame.Data
	if err := f.Pack(id, p, false, fin); err != nil {
		return newErr(ErrorInternal, err)
	}
	return s.writer.writeFrame(&f, s.dead)
}

func (s *Session) sendWindowUpdate(id frame.StreamID, delta uint32) {
	var f frame.WindowUpdate
	f.Pack(id, delta, 0)
	s.writer.writeFrameAsync(&f, s.dead)
}

func (s *Session) sendWindowUpdateFlags(id frame.StreamID, delta uint32, flags frame.Flags) error {
	var f frame.WindowUpdate
	f.Pack(id, delta, flags)
	return s.writer.writeFrame(&f, s.dead)
}

// Ping sends a session-level liveness probe and blocks until the peer
// acknowledges it or the session dies.
func (s *Session) Ping() error {
	opaque, ch, err := s.sendPing()
	if err != nil {
		return err
	}

	select {
	case <-ch:
		return nil
	case <-s.dead:
		s.forgetPendingPing(opaque)
		return s.closeErr()
	}
}

// sendPing allocates a fresh opaque ping value, registers it as pending,
// and submits the PING frame. The caller gets back the channel that
// handlePing's ACK branch closes, so it can wait (or not) on its own
// terms — the keepalive controller polls hasPendingPing instead of
// blocking, since it has its own timeout bookkeeping.
func (s *Session) sendPing() (uint32, chan struct{}, error) {
	opaque := atomic.AddUint32(&s.nextPingID, 1)
	ch := make(chan struct{})

	s.pendingPingsMu.Lock()
	s.pendingPings[opaque] = ch
	s.pendingPingsMu.Unlock()

	var f frame.Ping
	f.Pack(opaque)
	if err := s.writer.writeFrame(&f, s.dead); err != nil {
		s.forgetPendingPing(opaque)
		return 0, nil, err
	}
	return opaque, ch, nil
}

// hasPendingPing reports whether opaque is still awaiting its ACK.
func (s *Session) hasPendingPing(opaque uint32) bool {
	s.pendingPingsMu.Lock()
	defer s.pendingPingsMu.Unlock()
	_, ok := s.pendingPings[opaque]
	return ok
}

// forgetPendingPing removes opaque from the pending-ping table without
// closing its channel, used when giving up on a ping (timeout, or the
// session died) rather than receiving its ACK.
func (s *Session) forgetPendingPing(opaque uint32) {
	s.pendingPingsMu.Lock()
	delete(s.pendingPings, opaque)
	s.pendingPingsMu.Unlock()
}
