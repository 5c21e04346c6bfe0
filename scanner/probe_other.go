//go:build !(linux || darwin || freebsd || netbsd || openbsd || dragonfly)

package scanner

import (
	"context"
	"net"
	"time"
)

func connect(ctx context.Context, unit ProbeUnit, timeout time.Duration) (bool, time.Duration, error) {
	dialer := &net.Dialer{Timeout: timeout}
	start := time.Now()
	conn, err := dialer.DialContext(ctx, "tcp4", unit.String())
	latency := time.Since(start)
	if err != nil {
		return false, latency, err
	}
	_ = conn.Close()
	return true, latency, nil
}
