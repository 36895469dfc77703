package yamux

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultConfigValues(t *testing.T) {
	cfg := DefaultConfig()
	require.Equal(t, uint32(defaultInitialWindowSize), cfg.InitialWindowSize)
	require.Equal(t, uint32(defaultAcceptBacklog), cfg.AcceptBacklog)
	require.True(t, cfg.EnableKeepAlive)
}

func TestInitDefaultsFillsZeroValues(t *testing.T) {
	cfg := &Config{}
	cfg.initDefaults()

	require.Equal(t, uint32(defaultInitialWindowSize), cfg.InitialWindowSize)
	require.Equal(t, uint32(defaultMaxStreamWindowSize), cfg.MaxStreamWindowSize)
	require.Equal(t, uint32(defaultAcceptBacklog), cfg.AcceptBacklog)
	require.Equal(t, uint32(defaultMaxStreams), cfg.MaxStreams)
	require.Equal(t, uint32(defaultMaxFrameLength), cfg.MaxFrameLength)
	require.Equal(t, uint32(defaultStreamWriteQueueDepth), cfg.StreamWriteQueueDepth)
	require.Equal(t, defaultStreamOpenTimeout, cfg.StreamOpenTimeout)
	require.Equal(t, defaultPingTimeout, cfg.PingTimeout)
	require.Equal(t, uint32(defaultPingTimeoutThreshold), cfg.PingTimeoutThreshold)
	require.NotNil(t, cfg.Logger)
}

func TestInitDefaultsOnlyAppliesOnce(t *testing.T) {
	cfg := &Config{}
	cfg.initDefaults()
	cfg.InitialWindowSize = 12345
	cfg.initDefaults()

	require.Equal(t, uint32(12345), cfg.InitialWindowSize)
}
