package yamux

import (
	"sync"
	"time"

	"github.com/ngrok/yamux/frame"
)

// keepaliveController drives a periodic session-level PING and shuts the
// session down once config.PingTimeoutThreshold consecutive pings have
// gone unanswered for longer than config.PingTimeout. Unlike the
// teacher's heartbeat, which opens a dedicated stream for this, a Yamux
// session has a native PING frame type, so liveness checking lives at
// the session level and needs no stream bookkeeping of its own.
type keepaliveController struct {
	sess      *Session
	interval  time.Duration
	timeout   time.Duration
	threshold uint32

	mu          sync.Mutex
	outstanding map[uint32]time.Time
	missed      uint32
}

func newKeepaliveController(sess *Session) *keepaliveController {
	return &keepaliveController{
		sess:        sess,
		interval:    sess.config.KeepAliveInterval,
		timeout:     sess.config.PingTimeout,
		threshold:   sess.config.PingTimeoutThreshold,
		outstanding: make(map[uint32]time.Time),
	}
}

func (k *keepaliveController) run() {
	ticker := time.NewTicker(k.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if k.tick() {
				return
			}
		case <-k.sess.dead:
			return
		}
	}
}

// tick purges any outstanding pings that have gone unanswered past the
// configured timeout, shuts the session down once the loss count
// reaches the threshold, and otherwise sends a fresh ping. It returns
// true once the session has been torn down and the controller should
// stop.
func (k *keepaliveController) tick() bool {
	now := time.Now()

	k.mu.Lock()
	for opaque, sentAt := range k.outstanding {
		if !k.sess.hasPendingPing(opaque) {
			// ACKed since the last tick: the connection is alive.
			delete(k.outstanding, opaque)
			k.missed = 0
			continue
		}
		if now.Sub(sentAt) >= k.timeout {
			delete(k.outstanding, opaque)
			k.sess.forgetPendingPing(opaque)
			k.missed++
		}
	}
	missed := k.missed
	k.mu.Unlock()

	if missed >= k.threshold {
		k.sess.log.Warn("keepalive timeout threshold reached, shutting down session", "missed", missed)
		k.sess.sendGoAway(frame.GoAwayInternal)
		k.sess.die(errKeepAliveTimeout)
		return true
	}

	opaque, _, err := k.sess.sendPing()
	if err != nil {
		k.sess.log.Warn("keepalive ping failed to send", "err", err)
		k.sess.sendGoAway(frame.GoAwayInternal)
		k.sess.die(newErr(ErrorInternal, err))
		return true
	}

	k.mu.Lock()
	k.outstanding[opaque] = now
	k.mu.Unlock()
	return false
}
