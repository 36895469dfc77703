package yamux

import "sync"

// sendWindow tracks a stream's remaining send credit. Decrement blocks
// until credit is available or the window is cancelled with an error;
// it has no timeout. Callers must not hold any lock that the goroutines
// calling Increment or SetError need while parked in Decrement, since
// those calls are the only way out.
type sendWindow struct {
	mu   sync.Mutex
	cond *sync.Cond
	val  uint32
	err  error
}

func newSendWindow(initial uint32) *sendWindow {
	w := &sendWindow{val: initial}
	w.cond = sync.NewCond(&w.mu)
	return w
}

// Decrement blocks until it can take up to want bytes of credit,
// returning however much was actually available (at least 1, unless an
// error has been set). Callers chunk their write loop on the returned
// amount.
func (w *sendWindow) Decrement(want uint32) (uint32, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for {
		if w.err != nil {
			return 0, w.err
		}
		if w.val > 0 {
			take := want
			if take > w.val {
				take = w.val
			}
			w.val -= take
			return take, nil
		}
		w.cond.Wait()
	}
}

func (w *sendWindow) Increment(delta uint32) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.val += delta
	w.cond.Broadcast()
}

func (w *sendWindow) SetError(err error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err == nil {
		w.err = err
	}
	w.cond.Broadcast()
}

// recvWindowUpdateThreshold is the default consumed-since-update byte
// count that triggers a WindowUpdate grant back to the peer.
const recvWindowUpdateThreshold = 32 * 1024

// recvWindow tracks a stream's receive-side credit: how many more bytes
// the peer is currently allowed to send (remaining), and how many bytes
// the application has consumed since the last WindowUpdate was issued
// (consumed, compared against threshold). It is a plain mutex-guarded
// counter, not a condition variable: nothing ever blocks on it, so there
// is no wait-while-holding-a-lock hazard to avoid.
type recvWindow struct {
	mu        sync.Mutex
	remaining uint32
	threshold uint32
	consumed  uint32
}

func newRecvWindow(initial uint32) *recvWindow {
	threshold := uint32(recvWindowUpdateThreshold)
	if threshold > initial {
		threshold = initial
	}
	return &recvWindow{remaining: initial, threshold: threshold}
}

// Decrement accounts for n freshly-arrived payload bytes, failing if the
// peer has sent more than the credit it was granted.
func (r *recvWindow) Decrement(n uint32) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if n > r.remaining {
		return errInvalidWindow
	}
	r.remaining -= n
	return nil
}

// Consume records n delivered bytes and reports how much credit (if any)
// should be granted back to the peer right now. It returns 0 when the
// threshold hasn't been crossed yet, and replenishes remaining by
// whatever it grants.
func (r *recvWindow) Consume(n uint32) uint32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.consumed += n
	if r.consumed < r.threshold {
		return 0
	}
	grant := r.consumed
	r.consumed = 0
	r.remaining += grant
	return grant
}
