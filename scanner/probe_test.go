package scanner

import (
	"context"
	"net"
	"net/netip"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func listenLoopback(t *testing.T) (net.Listener, uint16) {
	t.Helper()
	l, err := net.Listen("tcp4", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = l.Close() })
	return l, uint16(l.Addr().(*net.TCPAddr).Port)
}

func TestTCPProberOpenAndClosed(t *testing.T) {
	l, port := listenLoopback(t)
	unit := ProbeUnit{Host: netip.MustParseAddr("127.0.0.1"), Port: port}

	outcome := NewTCPProber().Probe(context.Background(), unit, time.Second)
	assert.True(t, outcome.Open, "err=%v", outcome.Err)
	assert.NoError(t, outcome.Err)
	assert.Equal(t, unit.Host, outcome.Host)
	assert.Equal(t, port, outcome.Port)
	assert.GreaterOrEqual(t, outcome.Latency, time.Duration(0))

	_ = l.Close()
	time.Sleep(50 * time.Millisecond)

	outcome = NewTCPProber().Probe(context.Background(), unit, 500*time.Millisecond)
	assert.False(t, outcome.Open)
	assert.Less(t, outcome.Latency, time.Second)
}
