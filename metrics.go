package binder

import (
	"sync/atomic"
	"time"

	"github.com/kbinder/go-binder/internal/interfaces"
)

// Observer receives transaction-level events for metrics collection; it is
// the public alias of the interface internal packages depend on.
type Observer = interfaces.Observer

// LatencyBuckets defines the transaction latency histogram buckets in
// nanoseconds, covering from 10us to 10s with logarithmic spacing.
var LatencyBuckets = []uint64{
	10_000,         // 10us
	100_000,        // 100us
	1_000_000,      // 1ms
	10_000_000,     // 10ms
	100_000_000,    // 100ms
	1_000_000_000,  // 1s
	10_000_000_000, // 10s
}

const numLatencyBuckets = 7

// Metrics tracks transaction throughput, latency, and dispatch statistics
// for an Ipc instance.
type Metrics struct {
	// Outbound call counters
	SyncCalls   atomic.Uint64 // TransactSyncReply invocations
	OnewayCalls atomic.Uint64 // TransactSyncOneway invocations
	AsyncCalls  atomic.Uint64 // TransactAsync invocations completed

	// Outbound failure counters
	SyncErrors   atomic.Uint64
	OnewayErrors atomic.Uint64
	AsyncErrors  atomic.Uint64
	AsyncCancels atomic.Uint64

	// Incoming dispatch counters
	IncomingTransactions atomic.Uint64 // total transactions dispatched by the looper
	IncomingBuiltins     atomic.Uint64 // of those, PING/INTERFACE/descriptor-chain

	// Death notifications observed
	DeathEvents atomic.Uint64

	// Performance tracking (sync + oneway + async combined)
	TotalLatencyNs atomic.Uint64
	CallCount      atomic.Uint64

	// Latency histogram buckets (cumulative counts)
	LatencyBuckets [numLatencyBuckets]atomic.Uint64

	// Lifecycle
	StartTime atomic.Int64 // Ipc open timestamp (UnixNano)
	StopTime  atomic.Int64 // Ipc close timestamp (UnixNano)
}

// NewMetrics creates a new metrics instance.
func NewMetrics() *Metrics {
	m := &Metrics{}
	m.StartTime.Store(time.Now().UnixNano())
	return m
}

// RecordTransaction records a completed sync or oneway transaction.
func (m *Metrics) RecordTransaction(latencyNs uint64, oneway bool, success bool) {
	if oneway {
		m.OnewayCalls.Add(1)
		if !success {
			m.OnewayErrors.Add(1)
		}
	} else {
		m.SyncCalls.Add(1)
		if !success {
			m.SyncErrors.Add(1)
		}
	}
	m.recordLatency(latencyNs)
}

// RecordAsync records a completed (or cancelled) async transaction.
func (m *Metrics) RecordAsync(latencyNs uint64, cancelled bool, success bool) {
	m.AsyncCalls.Add(1)
	if cancelled {
		m.AsyncCancels.Add(1)
	} else if !success {
		m.AsyncErrors.Add(1)
	}
	m.recordLatency(latencyNs)
}

// RecordIncoming records a transaction dispatched against a local object.
func (m *Metrics) RecordIncoming(builtin bool) {
	m.IncomingTransactions.Add(1)
	if builtin {
		m.IncomingBuiltins.Add(1)
	}
}

// RecordDeath records a death notification delivered for a remote handle.
func (m *Metrics) RecordDeath() {
	m.DeathEvents.Add(1)
}

// recordLatency records call latency and updates the histogram.
func (m *Metrics) recordLatency(latencyNs uint64) {
	m.TotalLatencyNs.Add(latencyNs)
	m.CallCount.Add(1)

	for i, bucket := range LatencyBuckets {
		if latencyNs <= bucket {
			m.LatencyBuckets[i].Add(1)
		}
	}
}

// Stop marks the Ipc as closed.
func (m *Metrics) Stop() {
	m.StopTime.Store(time.Now().UnixNano())
}

// MetricsSnapshot is a point-in-time snapshot of Metrics.
type MetricsSnapshot struct {
	SyncCalls   uint64
	OnewayCalls uint64
	AsyncCalls  uint64

	SyncErrors   uint64
	OnewayErrors uint64
	AsyncErrors  uint64
	AsyncCancels uint64

	IncomingTransactions uint64
	IncomingBuiltins     uint64
	DeathEvents          uint64

	AvgLatencyNs uint64
	UptimeNs     uint64

	LatencyP50Ns  uint64
	LatencyP99Ns  uint64
	LatencyP999Ns uint64

	LatencyHistogram [numLatencyBuckets]uint64

	TotalCalls  uint64
	TotalErrors uint64
	CallsPerSec float64
	ErrorRate   float64
}

// Snapshot creates a point-in-time snapshot of metrics.
func (m *Metrics) Snapshot() MetricsSnapshot {
	snap := MetricsSnapshot{
		SyncCalls:            m.SyncCalls.Load(),
		OnewayCalls:          m.OnewayCalls.Load(),
		AsyncCalls:           m.AsyncCalls.Load(),
		SyncErrors:           m.SyncErrors.Load(),
		OnewayErrors:         m.OnewayErrors.Load(),
		AsyncErrors:          m.AsyncErrors.Load(),
		AsyncCancels:         m.AsyncCancels.Load(),
		IncomingTransactions: m.IncomingTransactions.Load(),
		IncomingBuiltins:     m.IncomingBuiltins.Load(),
		DeathEvents:          m.DeathEvents.Load(),
	}

	snap.TotalCalls = snap.SyncCalls + snap.OnewayCalls + snap.AsyncCalls
	snap.TotalErrors = snap.SyncErrors + snap.OnewayErrors + snap.AsyncErrors

	totalLatencyNs := m.TotalLatencyNs.Load()
	callCount := m.CallCount.Load()
	if callCount > 0 {
		snap.AvgLatencyNs = totalLatencyNs / callCount
	}

	startTime := m.StartTime.Load()
	stopTime := m.StopTime.Load()
	if stopTime > 0 {
		snap.UptimeNs = uint64(stopTime - startTime)
	} else {
		snap.UptimeNs = uint64(time.Now().UnixNano() - startTime)
	}

	if snap.UptimeNs > 0 {
		uptimeSeconds := float64(snap.UptimeNs) / 1e9
		snap.CallsPerSec = float64(snap.TotalCalls) / uptimeSeconds
	}

	if snap.TotalCalls > 0 {
		snap.ErrorRate = float64(snap.TotalErrors) / float64(snap.TotalCalls) * 100.0
	}

	for i := 0; i < numLatencyBuckets; i++ {
		snap.LatencyHistogram[i] = m.LatencyBuckets[i].Load()
	}

	if callCount > 0 {
		snap.LatencyP50Ns = m.calculatePercentile(0.50)
		snap.LatencyP99Ns = m.calculatePercentile(0.99)
		snap.LatencyP999Ns = m.calculatePercentile(0.999)
	}

	return snap
}

// calculatePercentile estimates the latency at the given percentile (0.0-1.0)
// using linear interpolation between histogram buckets.
func (m *Metrics) calculatePercentile(percentile float64) uint64 {
	totalCalls := m.CallCount.Load()
	if totalCalls == 0 {
		return 0
	}

	targetCount := uint64(float64(totalCalls) * percentile)

	prevBucket := uint64(0)
	for i, bucket := range LatencyBuckets {
		bucketCount := m.LatencyBuckets[i].Load()
		if bucketCount >= targetCount {
			prevCount := uint64(0)
			if i > 0 {
				prevCount = m.LatencyBuckets[i-1].Load()
			}
			if bucketCount == prevCount {
				return bucket
			}
			fraction := float64(targetCount-prevCount) / float64(bucketCount-prevCount)
			return prevBucket + uint64(fraction*float64(bucket-prevBucket))
		}
		prevBucket = bucket
	}

	return LatencyBuckets[numLatencyBuckets-1]
}

// Reset resets all metrics counters (useful for testing).
func (m *Metrics) Reset() {
	m.SyncCalls.Store(0)
	m.OnewayCalls.Store(0)
	m.AsyncCalls.Store(0)
	m.SyncErrors.Store(0)
	m.OnewayErrors.Store(0)
	m.AsyncErrors.Store(0)
	m.AsyncCancels.Store(0)
	m.IncomingTransactions.Store(0)
	m.IncomingBuiltins.Store(0)
	m.DeathEvents.Store(0)
	m.TotalLatencyNs.Store(0)
	m.CallCount.Store(0)
	for i := 0; i < numLatencyBuckets; i++ {
		m.LatencyBuckets[i].Store(0)
	}
	m.StartTime.Store(time.Now().UnixNano())
	m.StopTime.Store(0)
}

// MetricsObserver implements interfaces.Observer using the built-in Metrics.
type MetricsObserver struct {
	metrics *Metrics
}

// NewMetricsObserver creates an observer that records to the given metrics.
func NewMetricsObserver(m *Metrics) *MetricsObserver {
	return &MetricsObserver{metrics: m}
}

func (o *MetricsObserver) ObserveTransaction(latencyNs uint64, oneway bool, success bool) {
	o.metrics.RecordTransaction(latencyNs, oneway, success)
}

func (o *MetricsObserver) ObserveAsync(latencyNs uint64, cancelled bool, success bool) {
	o.metrics.RecordAsync(latencyNs, cancelled, success)
}

func (o *MetricsObserver) ObserveIncoming(code uint32, builtin bool) {
	_ = code
	o.metrics.RecordIncoming(builtin)
}

func (o *MetricsObserver) ObserveDeath() {
	o.metrics.RecordDeath()
}

// NoOpObserver is a no-op implementation used when no metrics are wanted.
type NoOpObserver struct{}

func (NoOpObserver) ObserveTransaction(uint64, bool, bool) {}
func (NoOpObserver) ObserveAsync(uint64, bool, bool)       {}
func (NoOpObserver) ObserveIncoming(uint32, bool)          {}
func (NoOpObserver) ObserveDeath()                         {}

// Compile-time interface checks.
var _ Observer = (*MetricsObserver)(nil)
var _ Observer = (*NoOpObserver)(nil)
