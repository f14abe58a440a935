package templix

import (
	"sync/atomic"
	"time"

	"github.com/hupe1980/templix/library"
)

// Any MetricsCollector can observe snapshot saves and loads.
var _ library.SnapshotMetrics = (*BasicMetricsCollector)(nil)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems like Prometheus.
//
// Example Prometheus integration:
//
//	type PrometheusCollector struct {
//	    matchCounter   prometheus.Counter
//	    matchHistogram prometheus.Histogram
//	}
//
//	func (p *PrometheusCollector) RecordMatch(n int, duration time.Duration, err error) {
//	    p.matchCounter.Inc()
//	    // ... record error state, duration, etc.
//	}
type MetricsCollector interface {
	// RecordSimulate is called after each template simulation.
	// peaks is the number of peaks produced, err is nil if successful.
	RecordSimulate(peaks int, duration time.Duration, err error)

	// RecordMatch is called after each correlation match.
	// n is the number of matches requested, duration is the time taken,
	// err is nil if successful.
	RecordMatch(n int, duration time.Duration, err error)

	// RecordAssemble is called after each map assembly.
	// positions is the number of scan positions attempted, failed is the
	// number that failed, duration is the total time taken.
	RecordAssemble(positions, failed int, duration time.Duration)

	// RecordSnapshot is called after each library save or load.
	RecordSnapshot(bytes int64, duration time.Duration, err error)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordSimulate(int, time.Duration, error)   {}
func (NoopMetricsCollector) RecordMatch(int, time.Duration, error)      {}
func (NoopMetricsCollector) RecordAssemble(int, int, time.Duration)     {}
func (NoopMetricsCollector) RecordSnapshot(int64, time.Duration, error) {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	SimulateCount     atomic.Int64
	SimulateErrors    atomic.Int64
	SimulatePeaks     atomic.Int64
	MatchCount        atomic.Int64
	MatchErrors       atomic.Int64
	MatchTotalNanos   atomic.Int64
	AssembleCount     atomic.Int64
	AssemblePositions atomic.Int64
	AssembleFailed    atomic.Int64
	SnapshotCount     atomic.Int64
	SnapshotErrors    atomic.Int64
	SnapshotBytes     atomic.Int64
}

// RecordSimulate implements MetricsCollector.
func (b *BasicMetricsCollector) RecordSimulate(peaks int, duration time.Duration, err error) {
	b.SimulateCount.Add(1)
	b.SimulatePeaks.Add(int64(peaks))
	if err != nil {
		b.SimulateErrors.Add(1)
	}
}

// RecordMatch implements MetricsCollector.
func (b *BasicMetricsCollector) RecordMatch(n int, duration time.Duration, err error) {
	b.MatchCount.Add(1)
	b.MatchTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.MatchErrors.Add(1)
	}
}

// RecordAssemble implements MetricsCollector.
func (b *BasicMetricsCollector) RecordAssemble(positions, failed int, duration time.Duration) {
	b.AssembleCount.Add(1)
	b.AssemblePositions.Add(int64(positions))
	b.AssembleFailed.Add(int64(failed))
}

// RecordSnapshot implements MetricsCollector.
func (b *BasicMetricsCollector) RecordSnapshot(bytes int64, duration time.Duration, err error) {
	b.SnapshotCount.Add(1)
	b.SnapshotBytes.Add(bytes)
	if err != nil {
		b.SnapshotErrors.Add(1)
	}
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		SimulateCount:     b.SimulateCount.Load(),
		SimulateErrors:    b.SimulateErrors.Load(),
		SimulatePeaks:     b.SimulatePeaks.Load(),
		MatchCount:        b.MatchCount.Load(),
		MatchErrors:       b.MatchErrors.Load(),
		MatchAvgNanos:     b.getAvgMatchNanos(),
		AssembleCount:     b.AssembleCount.Load(),
		AssemblePositions: b.AssemblePositions.Load(),
		AssembleFailed:    b.AssembleFailed.Load(),
		SnapshotCount:     b.SnapshotCount.Load(),
		SnapshotErrors:    b.SnapshotErrors.Load(),
		SnapshotBytes:     b.SnapshotBytes.Load(),
	}
}

func (b *BasicMetricsCollector) getAvgMatchNanos() int64 {
	count := b.MatchCount.Load()
	if count == 0 {
		return 0
	}
	return b.MatchTotalNanos.Load() / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	SimulateCount     int64
	SimulateErrors    int64
	SimulatePeaks     int64
	MatchCount        int64
	MatchErrors       int64
	MatchAvgNanos     int64
	AssembleCount     int64
	AssemblePositions int64
	AssembleFailed    int64
	SnapshotCount     int64
	SnapshotErrors    int64
	SnapshotBytes     int64
}
