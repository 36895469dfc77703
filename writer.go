package yamux

import (
	"time"

	"github.com/ngrok/yamux/frame"
)

// writeRequest is one item in the write serializer's queue. err is
// buffered (capacity 1) so the writer goroutine never blocks handing
// back a result, and is recycled through errPool to avoid a channel
// allocation on every write.
type writeRequest struct {
	f   frame.Frame
	err chan error
}

// writeSerializer owns the single goroutine permitted to call
// Framer.WriteFrame, guaranteeing the strict per-write ordering the
// underlying secured transport requires. The reader loop and streams
// submit through writeFrame (blocking, with a result) or
// writeFrameAsync (fire-and-forget) rather than writing directly.
type writeSerializer struct {
	framer  frame.Framer
	reqs    chan writeRequest
	errPool chan chan error
	timeout time.Duration
}

func newWriteSerializer(framer frame.Framer, queueDepth int, timeout time.Duration) *writeSerializer {
	w := &writeSerializer{
		framer:  framer,
		reqs:    make(chan writeRequest, queueDepth),
		errPool: make(chan chan error, queueDepth),
		timeout: timeout,
	}
	return w
}

func (w *writeSerializer) getErrCh() chan error {
	select {
	case c := <-w.errPool:
		return c
	default:
		return make(chan error, 1)
	}
}

func (w *writeSerializer) putErrCh(c chan error) {
	select {
	case w.errPool <- c:
	default:
	}
}

// writeFrame enqueues f and blocks for the result, up to the serializer's
// configured timeout. It must never be called from the reader loop: if
// the write queue is full and the writer goroutine is itself blocked
// reading from something the reader loop produces, that's a deadlock.
func (w *writeSerializer) writeFrame(f frame.Frame, dead <-chan struct{}) error {
	errCh := w.getErrCh()
	defer w.putErrCh(errCh)

	req := writeRequest{f: f, err: errCh}

	var timer *time.Timer
	var timeoutCh <-chan time.Time
	if w.timeout > 0 {
		timer = time.NewTimer(w.timeout)
		defer timer.Stop()
		timeoutCh = timer.C
	}

	select {
	case w.reqs <- req:
	case <-dead:
		return errSessionShutdown
	case <-timeoutCh:
		return newErr(ErrorInternal, errWriteTimeout)
	}

	select {
	case err := <-errCh:
		return err
	case <-dead:
		return errSessionShutdown
	case <-timeoutCh:
		return newErr(ErrorInternal, errWriteTimeout)
	}
}

// writeFrameAsync enqueues f without waiting for the result. The reader
// loop uses this exclusively: it must never block on the writer, since
// the writer's own error handling can in turn need the reader loop to
// keep draining (e.g. during shutdown).
func (w *writeSerializer) writeFrameAsync(f frame.Frame, dead <-chan struct{}) {
	req := writeRequest{f: f, err: nil}
	select {
	case w.reqs <- req:
	case <-dead:
	}
}

// run is the single writer goroutine. It returns (and signals the
// session dead) on the first write error, or when stop is closed.
func (w *writeSerializer) run(stop <-chan struct{}, onErr func(error)) {
	for {
		select {
		case req := <-w.reqs:
			err := w.framer.WriteFrame(req.f)
			if req.err != nil {
				req.err <- err
			}
			if err != nil {
				onErr(err)
				return
			}
		case <-stop:
			return
		}
	}
}
