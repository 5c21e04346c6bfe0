//go:build linux || darwin || freebsd || netbsd || openbsd || dragonfly

package scanner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sys/unix"
)

// pollSlice bounds a single poll call so cancellation is noticed during long timeouts.
const pollSlice = 100 * time.Millisecond

// errSelfConnect reports a loopback connect that TCP simultaneous open joined to its own socket.
var errSelfConnect = errors.New("connected to own socket")

// newSocket returns a non-blocking, close-on-exec IPv4 stream socket.
func newSocket() (int, error) {
	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_STREAM, 0)
	if err != nil {
		return -1, fmt.Errorf("create socket: %w", err)
	}
	unix.CloseOnExec(fd)
	if err := unix.SetNonblock(fd, true); err != nil {
		unix.Close(fd)
		return -1, fmt.Errorf("set non-blocking: %w", err)
	}
	return fd, nil
}

func connect(ctx context.Context, unit ProbeUnit, timeout time.Duration) (bool, time.Duration, error) {
	fd, err := newSocket()
	if err != nil {
		return false, 0, err
	}
	defer unix.Close(fd)

	sa := &unix.SockaddrInet4{Port: int(unit.Port), Addr: unit.Host.As4()}
	start := time.Now()
	err = unix.Connect(fd, sa)
	switch {
	case err == nil:
		// Loopback connects may complete synchronously.
		return established(fd, unit, time.Since(start))
	case errors.Is(err, unix.EINPROGRESS), errors.Is(err, unix.EINTR):
	default:
		return false, time.Since(start), err
	}

	ready, err := waitWritable(ctx, fd, start.Add(timeout))
	if err != nil || !ready {
		return false, time.Since(start), err
	}

	soErr, err := unix.GetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_ERROR)
	latency := time.Since(start)
	if err != nil {
		return false, latency, fmt.Errorf("read SO_ERROR: %w", err)
	}
	if soErr != 0 {
		return false, latency, unix.Errno(soErr)
	}
	return established(fd, unit, latency)
}

func established(fd int, unit ProbeUnit, latency time.Duration) (bool, time.Duration, error) {
	if unit.Host.IsLoopback() && isSelfConnect(fd, unit) {
		return false, latency, errSelfConnect
	}
	return true, latency, nil
}

// isSelfConnect reports whether fd is bound to the very address it connects to.
func isSelfConnect(fd int, unit ProbeUnit) bool {
	sa, err := unix.Getsockname(fd)
	if err != nil {
		return false
	}
	local, ok := sa.(*unix.SockaddrInet4)
	return ok && local.Port == int(unit.Port) && local.Addr == unit.Host.As4()
}

// waitWritable polls fd for POLLOUT until deadline. A false result with a nil
// error means the budget ran out.
func waitWritable(ctx context.Context, fd int, deadline time.Time) (bool, error) {
	fds := []unix.PollFd{{Fd: int32(fd), Events: unix.POLLOUT}}
	for {
		if err := ctx.Err(); err != nil {
			return false, err
		}
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return false, nil
		}
		ms := int(min(remaining, pollSlice) / time.Millisecond)
		if ms == 0 {
			ms = 1
		}

		fds[0].Revents = 0
		n, err := unix.Poll(fds, ms)
		if err != nil {
			if errors.Is(err, unix.EINTR) {
				continue
			}
			return false, fmt.Errorf("poll: %w", err)
		}
		if n > 0 {
			return true, nil
		}
	}
}
