package scanner

import (
	"slices"
	"sync"
	"sync/atomic"
	"time"
)

// ScanReport is the drained state of a scan. Results holds open outcomes only.
type ScanReport struct {
	Results []ProbeOutcome `json:"results"`
	Scanned int64          `json:"scanned"`
	Open    int64          `json:"open"`
	Elapsed time.Duration  `json:"elapsed_ns"`
}

// Aggregator collects outcomes from concurrent workers.
type Aggregator struct {
	scanned atomic.Int64
	open    atomic.Int64

	mu      sync.Mutex
	results []ProbeOutcome

	onOpen func(ProbeOutcome)
}

// NewAggregator returns an Aggregator that calls onOpen, when non-nil, for
// every open outcome it records.
func NewAggregator(onOpen func(ProbeOutcome)) *Aggregator {
	return &Aggregator{onOpen: onOpen}
}

// Record counts the outcome and keeps it if the port is open.
func (a *Aggregator) Record(o ProbeOutcome) {
	a.scanned.Add(1)
	if !o.Open {
		return
	}

	a.mu.Lock()
	a.results = append(a.results, o)
	a.open.Add(1)
	a.mu.Unlock()

	if a.onOpen != nil {
		a.onOpen(o)
	}
}

// Scanned returns the running number of recorded outcomes.
func (a *Aggregator) Scanned() int64 {
	return a.scanned.Load()
}

// Snapshot copies the collected state, sorted by host then port. Call it
// only after every worker has finished.
func (a *Aggregator) Snapshot() ScanReport {
	a.mu.Lock()
	results := make([]ProbeOutcome, len(a.results))
	copy(results, a.results)
	a.mu.Unlock()

	slices.SortFunc(results, compareOutcomes)
	return ScanReport{
		Results: results,
		Scanned: a.scanned.Load(),
		Open:    a.open.Load(),
	}
}

func compareOutcomes(x, y ProbeOutcome) int {
	if c := x.Host.Compare(y.Host); c != 0 {
		return c
	}
	return int(x.Port) - int(y.Port)
}
