package scanner

import (
	"context"
	"net/netip"
	"time"
)

// ProbeOutcome is the result of one connect attempt.
type ProbeOutcome struct {
	Host    netip.Addr    `json:"host"`
	Port    uint16        `json:"port"`
	Open    bool          `json:"open"`
	Service string        `json:"service,omitempty"`
	Latency time.Duration `json:"latency_ns"`
	// Err holds the local failure that made the outcome closed, if any.
	Err error `json:"-"`
}

// Prober tests a single unit for TCP reachability within timeout.
// Implementations must never leak the socket they open.
type Prober interface {
	Probe(ctx context.Context, unit ProbeUnit, timeout time.Duration) ProbeOutcome
}

// TCPProber performs a non-blocking TCP connect and waits for writability.
type TCPProber struct{}

// NewTCPProber returns the default platform prober.
func NewTCPProber() *TCPProber {
	return &TCPProber{}
}

// Probe never fails: socket and connect errors degrade to a closed outcome.
func (p *TCPProber) Probe(ctx context.Context, unit ProbeUnit, timeout time.Duration) ProbeOutcome {
	open, latency, err := connect(ctx, unit, timeout)
	return ProbeOutcome{
		Host:    unit.Host,
		Port:    unit.Port,
		Open:    open,
		Latency: latency,
		Err:     err,
	}
}
