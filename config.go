package yamux

import (
	"sync"
	"time"

	"github.com/inconshreveable/log15"
)

// Config holds the tunables for a Session. DefaultConfig returns a
// Config with the library's defaults. Client and Server also accept a
// nil Config (treated as DefaultConfig) or a partially-populated one,
// whose zero-valued fields are filled with their defaults; the one
// exception is EnableKeepAlive, whose zero value leaves keepalive off.
type Config struct {
	// InitialWindowSize is the per-stream receive window granted at
	// stream creation. Consumed bytes are granted back with a
	// WINDOW_UPDATE once they reach 32 KiB, or InitialWindowSize if that
	// is smaller.
	InitialWindowSize uint32

	// MaxStreamWindowSize is defaulted but not otherwise used: receive
	// windows never grow past InitialWindowSize, and InitialWindowSize is
	// not checked against this field.
	MaxStreamWindowSize uint32

	// AcceptBacklog bounds the number of SYN-ed streams waiting to be
	// accepted before new SYNs are refused with RST.
	AcceptBacklog uint32

	// MaxStreams bounds the total size of the stream table, counting
	// both locally- and remotely-initiated streams. OpenStream refuses
	// once it's reached; an incoming SYN is refused with RST instead.
	MaxStreams uint32

	// MaxFrameLength bounds the length field accepted on an incoming
	// DATA frame; a larger advertised length is a protocol error.
	MaxFrameLength uint32

	// StreamWriteQueueDepth bounds how many outbound chunks a stream may
	// have queued for the write serializer at once. A writer that piles
	// up more than this many before the transport drains them is
	// considered persistently stalled, and the stream is reset instead
	// of letting the backlog grow without bound.
	StreamWriteQueueDepth uint32

	// StreamOpenTimeout bounds how long OpenStream will wait for the
	// peer's ACK before giving up and returning an error.
	StreamOpenTimeout time.Duration

	// EnableKeepAlive toggles the periodic session-level PING liveness
	// probe.
	EnableKeepAlive bool

	// KeepAliveInterval is the time between outstanding keepalive pings.
	KeepAliveInterval time.Duration

	// PingTimeout is how long a single keepalive ping may go
	// unanswered before it counts as lost.
	PingTimeout time.Duration

	// PingTimeoutThreshold is the number of consecutive lost keepalive
	// pings the session tolerates before it tears itself down.
	PingTimeoutThreshold uint32

	// ConnectionWriteTimeout bounds how long a blocking frame submission
	// (enqueue onto the write serializer plus the write itself) may
	// take. On expiry the caller gets an ErrorInternal error; the
	// timeout does not by itself tear the session down, and
	// fire-and-forget submissions are not bounded by it.
	ConnectionWriteTimeout time.Duration

	// Logger receives structured diagnostic events: write/read errors,
	// keepalive timeouts, and other conditions the caller cannot easily
	// observe otherwise. A nil Logger is replaced with a discard logger.
	Logger log15.Logger

	// writeFrameQueueDepth sizes the write serializer's request queue.
	writeFrameQueueDepth int

	initOnce sync.Once
}

const (
	defaultInitialWindowSize     = 256 * 1024
	defaultMaxStreamWindowSize   = 16 * 1024 * 1024
	defaultAcceptBacklog         = 256
	defaultMaxStreams            = 256
	defaultMaxFrameLength        = 16 * 1024
	defaultStreamWriteQueueDepth = 50
	defaultStreamOpenTimeout     = 10 * time.Second
	defaultKeepAliveInterval     = 30 * time.Second
	defaultPingTimeout           = 30 * time.Second
	defaultPingTimeoutThreshold  = 5
	defaultConnWriteTimeout      = 10 * time.Second
	defaultWriteFrameQueueDepth  = 64
)

// DefaultConfig returns a Config populated with the library's defaults.
func DefaultConfig() *Config {
	return &Config{
		InitialWindowSize:      defaultInitialWindowSize,
		MaxStreamWindowSize:    defaultMaxStreamWindowSize,
		AcceptBacklog:          defaultAcceptBacklog,
		MaxStreams:             defaultMaxStreams,
		MaxFrameLength:         defaultMaxFrameLength,
		StreamWriteQueueDepth:  defaultStreamWriteQueueDepth,
		StreamOpenTimeout:      defaultStreamOpenTimeout,
		EnableKeepAlive:        true,
		KeepAliveInterval:      defaultKeepAliveInterval,
		PingTimeout:            defaultPingTimeout,
		PingTimeoutThreshold:   defaultPingTimeoutThreshold,
		ConnectionWriteTimeout: defaultConnWriteTimeout,
	}
}

// initDefaults fills in any zero-valued field with its default, exactly
// once. It's called lazily by Client/Server so callers can pass a
// partially-populated Config (or nil) without racing on first use.
func (c *Config) initDefaults() {
	c.initOnce.Do(func() {
		if c.InitialWindowSize == 0 {
			c.InitialWindowSize = defaultInitialWindowSize
		}
		if c.MaxStreamWindowSize == 0 {
			c.MaxStreamWindowSize = defaultMaxStreamWindowSize
		}
		if c.AcceptBacklog == 0 {
			c.AcceptBacklog = defaultAcceptBacklog
		}
		if c.MaxStreams == 0 {
			c.MaxStreams = defaultMaxStreams
		}
		if c.MaxFrameLength == 0 {
			c.MaxFrameLength = defaultMaxFrameLength
		}
		if c.StreamWriteQueueDepth == 0 {
			c.StreamWriteQueueDepth = defaultStreamWriteQueueDepth
		}
		if c.StreamOpenTimeout == 0 {
			c.StreamOpenTimeout = defaultStreamOpenTimeout
		}
		if c.KeepAliveInterval == 0 {
			c.KeepAliveInterval = defaultKeepAliveInterval
		}
		if c.PingTimeout == 0 {
			c.PingTimeout = defaultPingTimeout
		}
		if c.PingTimeoutThreshold == 0 {
			c.PingTimeoutThreshold = defaultPingTimeoutThreshold
		}
		if c.ConnectionWriteTimeout == 0 {
			c.ConnectionWriteTimeout = defaultConnWriteTimeout
		}
		if c.writeFrameQueueDepth == 0 {
			c.writeFrameQueueDepth = defaultWriteFrameQueueDepth
		}
		if c.Logger == nil {
			c.Logger = log15.New()
			c.Logger.SetHandler(log15.DiscardHandler())
		}
	})
}
