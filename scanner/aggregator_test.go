package scanner

import (
	"net/netip"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAggregatorConcurrentRecord(t *testing.T) {
	var hooked atomic.Int64
	agg := NewAggregator(func(ProbeOutcome) { hooked.Add(1) })

	host := netip.MustParseAddr("127.0.0.1")
	var wg sync.WaitGroup
	for w := 0; w < 50; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				agg.Record(ProbeOutcome{Host: host, Port: uint16(w*200 + i + 1), Open: i%2 == 0})
			}
		}()
	}
	wg.Wait()

	report := agg.Snapshot()
	assert.EqualValues(t, 10000, report.Scanned)
	assert.EqualValues(t, 5000, report.Open)
	assert.Len(t, report.Results, int(report.Open))
	assert.EqualValues(t, 5000, hooked.Load())
	for i := 1; i < len(report.Results); i++ {
		assert.Less(t, report.Results[i-1].Port, report.Results[i].Port)
	}
}

func TestAggregatorDiscardsClosed(t *testing.T) {
	agg := NewAggregator(nil)
	agg.Record(ProbeOutcome{Host: netip.MustParseAddr("10.0.0.2"), Port: 80})
	agg.Record(ProbeOutcome{Host: netip.MustParseAddr("10.0.0.2"), Port: 22, Open: true})
	agg.Record(ProbeOutcome{Host: netip.MustParseAddr("10.0.0.1"), Port: 443, Open: true})

	report := agg.Snapshot()
	assert.EqualValues(t, 3, report.Scanned)
	require.Len(t, report.Results, 2)
	assert.Equal(t, "10.0.0.1", report.Results[0].Host.String())
	assert.EqualValues(t, 22, report.Results[1].Port)
}

func TestAggregatorEmptySnapshot(t *testing.T) {
	report := NewAggregator(nil).Snapshot()
	assert.NotNil(t, report.Results)
	assert.Zero(t, report.Scanned)
}
