package binder

import (
	"testing"
	"time"
)

func TestMetrics(t *testing.T) {
	m := NewMetrics()

	snap := m.Snapshot()
	if snap.TotalCalls != 0 {
		t.Errorf("Expected 0 initial calls, got %d", snap.TotalCalls)
	}

	m.RecordTransaction(1_000_000, false, true) // sync, 1ms, success
	m.RecordTransaction(2_000_000, true, true)  // oneway, 2ms, success
	m.RecordTransaction(500_000, false, false)  // sync, 0.5ms, error

	snap = m.Snapshot()

	if snap.SyncCalls != 2 {
		t.Errorf("Expected 2 sync calls, got %d", snap.SyncCalls)
	}
	if snap.OnewayCalls != 1 {
		t.Errorf("Expected 1 oneway call, got %d", snap.OnewayCalls)
	}
	if snap.SyncErrors != 1 {
		t.Errorf("Expected 1 sync error, got %d", snap.SyncErrors)
	}
	if snap.OnewayErrors != 0 {
		t.Errorf("Expected 0 oneway errors, got %d", snap.OnewayErrors)
	}

	expectedErrorRate := float64(1) / float64(3) * 100.0
	if snap.ErrorRate < expectedErrorRate-0.1 || snap.ErrorRate > expectedErrorRate+0.1 {
		t.Errorf("Expected error rate ~%.1f%%, got %.1f%%", expectedErrorRate, snap.ErrorRate)
	}
}

func TestMetricsIncomingAndDeath(t *testing.T) {
	m := NewMetrics()

	m.RecordIncoming(false)
	m.RecordIncoming(true)
	m.RecordIncoming(true)
	m.RecordDeath()

	snap := m.Snapshot()
	if snap.IncomingTransactions != 3 {
		t.Errorf("Expected 3 incoming transactions, got %d", snap.IncomingTransactions)
	}
	if snap.IncomingBuiltins != 2 {
		t.Errorf("Expected 2 builtin dispatches, got %d", snap.IncomingBuiltins)
	}
	if snap.DeathEvents != 1 {
		t.Errorf("Expected 1 death event, got %d", snap.DeathEvents)
	}
}

func TestMetricsAsync(t *testing.T) {
	m := NewMetrics()

	m.RecordAsync(1_000_000, false, true)
	m.RecordAsync(1_000_000, false, false)
	m.RecordAsync(1_000_000, true, false) // cancelled, not counted as error

	snap := m.Snapshot()
	if snap.AsyncCalls != 3 {
		t.Errorf("Expected 3 async calls, got %d", snap.AsyncCalls)
	}
	if snap.AsyncErrors != 1 {
		t.Errorf("Expected 1 async error, got %d", snap.AsyncErrors)
	}
	if snap.AsyncCancels != 1 {
		t.Errorf("Expected 1 async cancel, got %d", snap.AsyncCancels)
	}
}

func TestMetricsLatency(t *testing.T) {
	m := NewMetrics()

	m.RecordTransaction(1_000_000, false, true) // 1ms
	m.RecordTransaction(2_000_000, false, true) // 2ms

	snap := m.Snapshot()

	expectedAvgNs := uint64(1_500_000)
	if snap.AvgLatencyNs != expectedAvgNs {
		t.Errorf("Expected avg latency %d ns, got %d ns", expectedAvgNs, snap.AvgLatencyNs)
	}
}

func TestMetricsUptime(t *testing.T) {
	m := NewMetrics()

	time.Sleep(10 * time.Millisecond)

	snap := m.Snapshot()
	if snap.UptimeNs < 10*1_000_000 {
		t.Errorf("Expected uptime >= 10ms, got %d ns", snap.UptimeNs)
	}

	m.Stop()
	time.Sleep(5 * time.Millisecond)

	snap2 := m.Snapshot()
	if snap2.UptimeNs > snap.UptimeNs+2*1_000_000 {
		t.Errorf("Uptime increased too much after stop: %d -> %d", snap.UptimeNs, snap2.UptimeNs)
	}
}

func TestMetricsReset(t *testing.T) {
	m := NewMetrics()

	m.RecordTransaction(1_000_000, false, true)
	m.RecordTransaction(2_000_000, true, true)
	m.RecordIncoming(false)

	snap := m.Snapshot()
	if snap.TotalCalls == 0 {
		t.Error("Expected some calls before reset")
	}

	m.Reset()

	snap = m.Snapshot()
	if snap.TotalCalls != 0 {
		t.Errorf("Expected 0 calls after reset, got %d", snap.TotalCalls)
	}
	if snap.IncomingTransactions != 0 {
		t.Errorf("Expected 0 incoming transactions after reset, got %d", snap.IncomingTransactions)
	}
}

func TestObserver(t *testing.T) {
	observer := &NoOpObserver{}
	observer.ObserveTransaction(1_000_000, false, true)
	observer.ObserveAsync(1_000_000, false, true)
	observer.ObserveIncoming(1, true)
	observer.ObserveDeath()

	m := NewMetrics()
	metricsObserver := NewMetricsObserver(m)

	metricsObserver.ObserveTransaction(1_000_000, false, true)
	metricsObserver.ObserveTransaction(2_000_000, true, true)
	metricsObserver.ObserveIncoming(1, false)
	metricsObserver.ObserveDeath()

	snap := m.Snapshot()
	if snap.SyncCalls != 1 {
		t.Errorf("Expected 1 sync call from observer, got %d", snap.SyncCalls)
	}
	if snap.OnewayCalls != 1 {
		t.Errorf("Expected 1 oneway call from observer, got %d", snap.OnewayCalls)
	}
	if snap.IncomingTransactions != 1 {
		t.Errorf("Expected 1 incoming transaction from observer, got %d", snap.IncomingTransactions)
	}
	if snap.DeathEvents != 1 {
		t.Errorf("Expected 1 death event from observer, got %d", snap.DeathEvents)
	}
}

func TestMetricsRates(t *testing.T) {
	m := NewMetrics()

	startTime := time.Now()
	m.StartTime.Store(startTime.UnixNano())

	m.RecordTransaction(1_000_000, false, true)
	m.RecordTransaction(2_000_000, true, true)

	stopTime := startTime.Add(1 * time.Second)
	m.StopTime.Store(stopTime.UnixNano())

	snap := m.Snapshot()

	if snap.CallsPerSec < 1.9 || snap.CallsPerSec > 2.1 {
		t.Errorf("Expected CallsPerSec ~2.0, got %.2f", snap.CallsPerSec)
	}
}

func TestMetricsHistogram(t *testing.T) {
	m := NewMetrics()

	for i := 0; i < 50; i++ {
		m.RecordTransaction(50_000, false, true) // 50us
	}
	for i := 0; i < 49; i++ {
		m.RecordTransaction(5_000_000, false, true) // 5ms
	}
	m.RecordTransaction(50_000_000, false, true) // 50ms (P99)

	snap := m.Snapshot()

	if snap.TotalCalls != 100 {
		t.Errorf("Expected 100 total calls, got %d", snap.TotalCalls)
	}

	if snap.LatencyP50Ns < 10_000 || snap.LatencyP50Ns > 1_000_000 {
		t.Errorf("Expected P50 in 10us-1ms range, got %d ns", snap.LatencyP50Ns)
	}

	if snap.LatencyP99Ns < 5_000_000 || snap.LatencyP99Ns > 100_000_000 {
		t.Errorf("Expected P99 in 5ms-100ms range, got %d ns", snap.LatencyP99Ns)
	}

	totalInBuckets := uint64(0)
	for i := 0; i < len(snap.LatencyHistogram); i++ {
		totalInBuckets += snap.LatencyHistogram[i]
	}
	if totalInBuckets == 0 {
		t.Error("Expected histogram buckets to be populated")
	}
}
