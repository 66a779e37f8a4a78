package h5features

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems; see
// metrics/prometheus for a Prometheus implementation.
type MetricsCollector interface {
	// RecordWrite is called after each Write or WriteBatch.
	// items and rows count what the batch held, err is nil if it was committed.
	RecordWrite(items int, rows int64, duration time.Duration, err error)

	// RecordRead is called after each read.
	// rows is the number of rows returned.
	RecordRead(rows int64, duration time.Duration, err error)

	// RecordCommit is called after each committed generation.
	// continued reports that the first item extended the last stored one.
	RecordCommit(generation uint64, continued bool)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordWrite(int, int64, time.Duration, error) {}
func (NoopMetricsCollector) RecordRead(int64, time.Duration, error)       {}
func (NoopMetricsCollector) RecordCommit(uint64, bool)                    {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	WriteCount      atomic.Int64
	WriteErrors     atomic.Int64
	WriteItems      atomic.Int64
	WriteRows       atomic.Int64
	WriteTotalNanos atomic.Int64
	ReadCount       atomic.Int64
	ReadErrors      atomic.Int64
	ReadRows        atomic.Int64
	ReadTotalNanos  atomic.Int64
	CommitCount     atomic.Int64
	Continuations   atomic.Int64
	LastGeneration  atomic.Uint64
}

// RecordWrite implements MetricsCollector.
func (b *BasicMetricsCollector) RecordWrite(items int, rows int64, duration time.Duration, err error) {
	b.WriteCount.Add(1)
	b.WriteTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.WriteErrors.Add(1)
		return
	}
	b.WriteItems.Add(int64(items))
	b.WriteRows.Add(rows)
}

// RecordRead implements MetricsCollector.
func (b *BasicMetricsCollector) RecordRead(rows int64, duration time.Duration, err error) {
	b.ReadCount.Add(1)
	b.ReadTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.ReadErrors.Add(1)
		return
	}
	b.ReadRows.Add(rows)
}

// RecordCommit implements MetricsCollector.
func (b *BasicMetricsCollector) RecordCommit(generation uint64, continued bool) {
	b.CommitCount.Add(1)
	b.LastGeneration.Store(generation)
	if continued {
		b.Continuations.Add(1)
	}
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		WriteCount:     b.WriteCount.Load(),
		WriteErrors:    b.WriteErrors.Load(),
		WriteItems:     b.WriteItems.Load(),
		WriteRows:      b.WriteRows.Load(),
		WriteAvgNanos:  avg(b.WriteTotalNanos.Load(), b.WriteCount.Load()),
		ReadCount:      b.ReadCount.Load(),
		ReadErrors:     b.ReadErrors.Load(),
		ReadRows:       b.ReadRows.Load(),
		ReadAvgNanos:   avg(b.ReadTotalNanos.Load(), b.ReadCount.Load()),
		CommitCount:    b.CommitCount.Load(),
		Continuations:  b.Continuations.Load(),
		LastGeneration: b.LastGeneration.Load(),
	}
}

func avg(total, count int64) int64 {
	if count == 0 {
		return 0
	}
	return total / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	WriteCount     int64
	WriteErrors    int64
	WriteItems     int64
	WriteRows      int64
	WriteAvgNanos  int64
	ReadCount      int64
	ReadErrors     int64
	ReadRows       int64
	ReadAvgNanos   int64
	CommitCount    int64
	Continuations  int64
	LastGeneration uint64
}
