package scanner

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"netprobe/logging"
)

const (
	// DefaultThreads is the worker count used when none is configured.
	DefaultThreads = 100
	// DefaultTimeout is the per-probe connect budget.
	DefaultTimeout = time.Second
	// MaxThreads caps concurrent sockets per scan well below common descriptor limits.
	MaxThreads = 4096
)

// Options tunes a single scan.
type Options struct {
	Threads int
	Timeout time.Duration
	// OnOpen, when set, is called from worker goroutines for each open port as
	// it is recorded. It must be safe for concurrent use.
	OnOpen func(ProbeOutcome)
}

// DefaultOptions returns the stock thread count and timeout.
func DefaultOptions() Options {
	return Options{Threads: DefaultThreads, Timeout: DefaultTimeout}
}

// Validate rejects thread counts outside 1..MaxThreads and non-positive timeouts.
func (o Options) Validate() error {
	if o.Threads < 1 || o.Threads > MaxThreads {
		return requestErrorf(ErrInvalidOptions, "threads must be within 1-%d, got %d", MaxThreads, o.Threads)
	}
	if o.Timeout <= 0 {
		return requestErrorf(ErrInvalidOptions, "timeout must be positive, got %s", o.Timeout)
	}
	return nil
}

// Scanner is the scan orchestrator. It is the only component that wires the
// enumerator, pool, prober and aggregator together.
type Scanner struct {
	prober Prober
	logger *slog.Logger
}

// Option customizes a Scanner.
type Option func(*Scanner)

// WithProber replaces the TCP prober.
func WithProber(p Prober) Option {
	return func(s *Scanner) {
		s.prober = p
	}
}

// WithLogger replaces the shared logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Scanner) {
		s.logger = l
	}
}

// New builds a Scanner using the platform TCP prober.
func New(opts ...Option) *Scanner {
	s := &Scanner{prober: NewTCPProber()}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logging.Logger()
	}
	return s
}

// Run scans req with a default Scanner.
func Run(ctx context.Context, req ScanRequest, opts Options) (*ScanReport, error) {
	return New().Run(ctx, req, opts)
}

// Run validates the request and options, probes every unit on a pool of
// opts.Threads workers and returns the report once the pool has drained.
// Request errors are returned before any socket is opened. If ctx is cancelled
// the remaining units are skipped and the partial report is returned with the
// context error.
func (s *Scanner) Run(ctx context.Context, req ScanRequest, opts Options) (*ScanReport, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if !req.IsNetwork() && !req.Host().IsValid() {
		return nil, &RequestError{Kind: ErrMissingTarget}
	}

	logger := s.logger.With("target", req.String())
	logger.Info("scan started",
		"units", req.Count(),
		"threads", opts.Threads,
		"timeout_ms", opts.Timeout.Milliseconds(),
	)

	agg := NewAggregator(opts.OnOpen)
	pool := NewPool(opts.Threads)
	start := time.Now()

	for unit := range req.Units() {
		if ctx.Err() != nil {
			break
		}
		if err := pool.Submit(func() { s.probe(ctx, unit, opts.Timeout, agg, logger) }); err != nil {
			break
		}
	}
	pool.Shutdown()

	report := agg.Snapshot()
	report.Elapsed = time.Since(start)

	logger.Info("scan finished",
		"scanned", report.Scanned,
		"open", report.Open,
		"elapsed_ms", report.Elapsed.Milliseconds(),
	)

	if err := ctx.Err(); err != nil {
		return &report, fmt.Errorf("scan interrupted: %w", err)
	}
	return &report, nil
}

func (s *Scanner) probe(ctx context.Context, unit ProbeUnit, timeout time.Duration, agg *Aggregator, logger *slog.Logger) {
	if ctx.Err() != nil {
		return
	}

	outcome := s.prober.Probe(ctx, unit, timeout)
	outcome.Host = unit.Host
	outcome.Port = unit.Port
	if outcome.Open {
		outcome.Service = IdentifyService(unit.Port)
	} else if outcome.Err != nil {
		logger.Debug("probe failed", "unit", unit.String(), "error", outcome.Err)
	}
	agg.Record(outcome)
}
