package store

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems like Prometheus.
type MetricsCollector interface {
	// RecordSave is called after each save. bytes is the encoded size.
	RecordSave(bytes int, duration time.Duration, err error)

	// RecordLoad is called after each load. bytes is the blob size read.
	RecordLoad(bytes int, duration time.Duration, err error)

	// RecordDelete is called after each delete.
	RecordDelete(duration time.Duration, err error)

	// RecordBatch is called after each SaveBatch or LoadBatch.
	RecordBatch(count int, duration time.Duration, err error)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordSave(int, time.Duration, error)  {}
func (NoopMetricsCollector) RecordLoad(int, time.Duration, error)  {}
func (NoopMetricsCollector) RecordDelete(time.Duration, error)     {}
func (NoopMetricsCollector) RecordBatch(int, time.Duration, error) {}

// BasicMetricsCollector provides simple in-memory metrics collection.
type BasicMetricsCollector struct {
	SaveCount      atomic.Int64
	SaveErrors     atomic.Int64
	SaveBytes      atomic.Int64
	SaveTotalNanos atomic.Int64
	LoadCount      atomic.Int64
	LoadErrors     atomic.Int64
	LoadBytes      atomic.Int64
	LoadTotalNanos atomic.Int64
	DeleteCount    atomic.Int64
	DeleteErrors   atomic.Int64
	BatchCount     atomic.Int64
	BatchItems     atomic.Int64
	BatchErrors    atomic.Int64
}

// RecordSave implements MetricsCollector.
func (b *BasicMetricsCollector) RecordSave(bytes int, duration time.Duration, err error) {
	b.SaveCount.Add(1)
	b.SaveTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.SaveErrors.Add(1)
		return
	}
	b.SaveBytes.Add(int64(bytes))
}

// RecordLoad implements MetricsCollector.
func (b *BasicMetricsCollector) RecordLoad(bytes int, duration time.Duration, err error) {
	b.LoadCount.Add(1)
	b.LoadTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.LoadErrors.Add(1)
		return
	}
	b.LoadBytes.Add(int64(bytes))
}

// RecordDelete implements MetricsCollector.
func (b *BasicMetricsCollector) RecordDelete(_ time.Duration, err error) {
	b.DeleteCount.Add(1)
	if err != nil {
		b.DeleteErrors.Add(1)
	}
}

// RecordBatch implements MetricsCollector.
func (b *BasicMetricsCollector) RecordBatch(count int, _ time.Duration, err error) {
	b.BatchCount.Add(1)
	b.BatchItems.Add(int64(count))
	if err != nil {
		b.BatchErrors.Add(1)
	}
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		SaveCount:    b.SaveCount.Load(),
		SaveErrors:   b.SaveErrors.Load(),
		SaveBytes:    b.SaveBytes.Load(),
		SaveAvgNanos: avg(b.SaveTotalNanos.Load(), b.SaveCount.Load()),
		LoadCount:    b.LoadCount.Load(),
		LoadErrors:   b.LoadErrors.Load(),
		LoadBytes:    b.LoadBytes.Load(),
		LoadAvgNanos: avg(b.LoadTotalNanos.Load(), b.LoadCount.Load()),
		DeleteCount:  b.DeleteCount.Load(),
		DeleteErrors: b.DeleteErrors.Load(),
		BatchCount:   b.BatchCount.Load(),
		BatchItems:   b.BatchItems.Load(),
		BatchErrors:  b.BatchErrors.Load(),
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
	SaveCount    int64
	SaveErrors   int64
	SaveBytes    int64
	SaveAvgNanos int64
	LoadCount    int64
	LoadErrors   int64
	LoadBytes    int64
	LoadAvgNanos int64
	DeleteCount  int64
	DeleteErrors int64
	BatchCount   int64
	BatchItems   int64
	BatchErrors  int64
}
