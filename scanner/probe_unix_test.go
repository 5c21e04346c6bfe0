//go:build linux || darwin || freebsd || netbsd || openbsd || dragonfly

package scanner

import (
	"context"
	"net/netip"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

// neverWritable returns the read end of a pipe, which never reports POLLOUT.
func neverWritable(t *testing.T) int {
	t.Helper()
	var p [2]int
	require.NoError(t, unix.Pipe(p[:]))
	t.Cleanup(func() {
		unix.Close(p[0])
		unix.Close(p[1])
	})
	return p[0]
}

func TestWaitWritableTimesOut(t *testing.T) {
	fd := neverWritable(t)

	start := time.Now()
	ready, err := waitWritable(context.Background(), fd, start.Add(250*time.Millisecond))
	elapsed := time.Since(start)

	assert.False(t, ready)
	assert.NoError(t, err)
	assert.GreaterOrEqual(t, elapsed, 200*time.Millisecond)
	assert.Less(t, elapsed, 2*time.Second)
}

func TestWaitWritablePastDeadline(t *testing.T) {
	fd := neverWritable(t)

	ready, err := waitWritable(context.Background(), fd, time.Now().Add(-time.Second))
	assert.False(t, ready)
	assert.NoError(t, err)
}

func TestWaitWritableCancelled(t *testing.T) {
	fd := neverWritable(t)

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(50*time.Millisecond, cancel)

	start := time.Now()
	ready, err := waitWritable(ctx, fd, start.Add(10*time.Second))
	elapsed := time.Since(start)

	assert.False(t, ready)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, elapsed, 2*time.Second)
}

func TestNewSocketFlags(t *testing.T) {
	fd, err := newSocket()
	require.NoError(t, err)
	defer unix.Close(fd)

	fdFlags, err := unix.FcntlInt(uintptr(fd), unix.F_GETFD, 0)
	require.NoError(t, err)
	assert.NotZero(t, fdFlags&unix.FD_CLOEXEC, "close-on-exec")

	flFlags, err := unix.FcntlInt(uintptr(fd), unix.F_GETFL, 0)
	require.NoError(t, err)
	assert.NotZero(t, flFlags&unix.O_NONBLOCK, "non-blocking")
}

func TestIsSelfConnect(t *testing.T) {
	fd, err := newSocket()
	require.NoError(t, err)
	defer unix.Close(fd)

	loopback := netip.MustParseAddr("127.0.0.1")
	require.NoError(t, unix.Bind(fd, &unix.SockaddrInet4{Addr: loopback.As4()}))
	sa, err := unix.Getsockname(fd)
	require.NoError(t, err)
	port := uint16(sa.(*unix.SockaddrInet4).Port)

	assert.True(t, isSelfConnect(fd, ProbeUnit{Host: loopback, Port: port}))
	assert.False(t, isSelfConnect(fd, ProbeUnit{Host: loopback, Port: port + 1}))
	assert.False(t, isSelfConnect(fd, ProbeUnit{Host: netip.MustParseAddr("127.0.0.2"), Port: port}))

	open, _, err := established(fd, ProbeUnit{Host: loopback, Port: port}, time.Millisecond)
	assert.False(t, open)
	assert.ErrorIs(t, err, errSelfConnect)
}
