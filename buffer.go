package yamux

import (
	"bytes"
	"io"
	"os"
	"sync"
	"time"
)

// streamBuffer is a bounded, deadline-aware byte queue feeding a
// Stream's Read side. Its defining property is SetError: it records a
// terminal condition (EOF from a remote FIN, or a reset) without
// discarding bytes already queued. Read only ever returns that error
// once the buffer has been fully drained, so data the remote sent
// before half-closing is never lost to a late Read call.
type streamBuffer struct {
	mu       sync.Mutex
	cond     *sync.Cond
	buf      bytes.Buffer
	err      error
	maxSize  int
	deadline time.Time
}

func newStreamBuffer(maxSize int) *streamBuffer {
	b := &streamBuffer{maxSize: maxSize}
	b.cond = sync.NewCond(&b.mu)
	return b
}

// Write appends p to the buffer. It returns errInvalidWindow (an
// ErrorFlowControl error) if p would
// push the buffer past maxSize — the caller is expected to have already
// enforced the advertised window, so this is a defensive check against a
// peer that ignores flow control.
func (b *streamBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.err != nil {
		return 0, b.err
	}
	if b.buf.Len()+len(p) > b.maxSize {
		return 0, errInvalidWindow
	}
	n, err := b.buf.Write(p)
	b.cond.Broadcast()
	return n, err
}

// SetError records a terminal condition. Already-buffered bytes remain
// readable; err is only returned once they've been drained.
func (b *streamBuffer) SetError(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.err == nil {
		b.err = err
	}
	b.cond.Broadcast()
}

func (b *streamBuffer) SetReadDeadline(t time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.deadline = t
	b.cond.Broadcast()
}

// Read blocks until there is at least one byte available, the recorded
// error fires with an empty buffer, or the read deadline passes.
func (b *streamBuffer) Read(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for {
		if !b.deadline.IsZero() && !time.Now().Before(b.deadline) {
			return 0, os.ErrDeadlineExceeded
		}
		if b.buf.Len() > 0 {
			return b.buf.Read(p)
		}
		if b.err != nil {
			return 0, b.err
		}
		if b.deadline.IsZero() {
			b.cond.Wait()
			continue
		}
		b.waitUntilDeadline()
	}
}

// waitUntilDeadline parks on cond but guarantees it wakes at the
// deadline even if nothing else broadcasts. It must be called with b.mu
// held and releases it only while blocked, matching sync.Cond.Wait.
func (b *streamBuffer) waitUntilDeadline() {
	d := time.Until(b.deadline)
	if d <= 0 {
		return
	}
	timer := time.AfterFunc(d, func() {
		b.mu.Lock()
		b.cond.Broadcast()
		b.mu.Unlock()
	})
	defer timer.Stop()
	b.cond.Wait()
}

func (b *streamBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Len()
}

var _ io.Writer = (*streamBuffer)(nil)
