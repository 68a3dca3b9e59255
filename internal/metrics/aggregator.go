// Package metrics holds the process-wide request statistics: monotonic
// counters, bounded sample buffers and derived health verdicts.
package metrics

import (
	"context"
	"log/slog"
	"math"
	"math/rand"
	"sort"
	"sync"
	"time"
)

const (
	// maxResponseTimeHistory bounds the response-time sample buffer.
	maxResponseTimeHistory = 1000
	// maxRequestHistory bounds the request-timestamp buffer.
	maxRequestHistory = 10000
)

// Health thresholds.
const (
	maxErrorRate         = 10.0 // percent
	maxResponseTime      = 2000 // milliseconds
	minRequestsPerSecond = 0.1
)

// Snapshot is a copy of the aggregate counters and derived statistics.
type Snapshot struct {
	TotalRequests       int64     `json:"totalRequests"`
	SuccessfulRequests  int64     `json:"successfulRequests"`
	FailedRequests      int64     `json:"failedRequests"`
	AverageResponseTime float64   `json:"averageResponseTime"`
	RequestsPerSecond   float64   `json:"requestsPerSecond"`
	ErrorRate           float64   `json:"errorRate"`
	LastUpdated         time.Time `json:"lastUpdated"`
}

// ResponseTimeStats summarizes the response-time sample buffer.
type ResponseTimeStats struct {
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
	Average float64 `json:"average"`
	P50     float64 `json:"p50"`
	P95     float64 `json:"p95"`
	P99     float64 `json:"p99"`
}

// DetailedSnapshot adds windowed request counts and percentile statistics.
type DetailedSnapshot struct {
	Snapshot
	RequestsPerMinute      int               `json:"requestsPerMinute"`
	RequestsPerFiveMinutes int               `json:"requestsPerFiveMinutes"`
	RequestsPerHour        int               `json:"requestsPerHour"`
	ResponseTimeStats      ResponseTimeStats `json:"responseTimeStats"`
	UptimeSeconds          float64           `json:"uptime"`
}

// HealthStatus is the threshold-based health verdict.
type HealthStatus struct {
	IsHealthy  bool           `json:"isHealthy"`
	Status     string         `json:"status"`
	Metrics    Snapshot       `json:"metrics"`
	Thresholds map[string]any `json:"thresholds"`
	Timestamp  string         `json:"timestamp"`
}

// Aggregator records the outcome of every request. All state is guarded by a
// single mutex held through each mutation so the counter identity
// successful+failed == total holds under concurrent load.
type Aggregator struct {
	mu sync.Mutex

	total      int64
	successful int64
	failed     int64

	avgResponseTime float64
	rps             float64
	errorRate       float64
	lastUpdated     time.Time

	responseTimes []float64
	timestamps    []time.Time

	startedAt time.Time
	logger    *slog.Logger
	now       func() time.Time
}

// New creates an Aggregator.
func New(logger *slog.Logger) *Aggregator {
	return &Aggregator{
		startedAt:   time.Now(),
		lastUpdated: time.Now(),
		logger:      logger,
		now:         time.Now,
	}
}

// RecordRequest records one completed request. elapsed is milliseconds.
func (a *Aggregator) RecordRequest(success bool, elapsed float64) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.total++
	if success {
		a.successful++
	} else {
		a.failed++
	}

	a.responseTimes = append(a.responseTimes, elapsed)
	if len(a.responseTimes) > maxResponseTimeHistory {
		a.responseTimes = a.responseTimes[len(a.responseTimes)-maxResponseTimeHistory:]
	}

	a.timestamps = append(a.timestamps, a.now())
	if len(a.timestamps) > maxRequestHistory {
		a.timestamps = a.timestamps[len(a.timestamps)-maxRequestHistory:]
	}

	a.recompute()
}

// recompute derives the rolling statistics. Caller holds the lock.
func (a *Aggregator) recompute() {
	if len(a.responseTimes) > 0 {
		var sum float64
		for _, t := range a.responseTimes {
			sum += t
		}
		a.avgResponseTime = sum / float64(len(a.responseTimes))
	} else {
		a.avgResponseTime = 0
	}

	a.rps = float64(a.countSince(a.now().Add(-time.Minute))) / 60

	if a.total > 0 {
		a.errorRate = float64(a.failed) / float64(a.total) * 100
	} else {
		a.errorRate = 0
	}

	a.lastUpdated = a.now()
}

// countSince counts buffered timestamps newer than cutoff. Caller holds the lock.
func (a *Aggregator) countSince(cutoff time.Time) int {
	n := 0
	for _, ts := range a.timestamps {
		if ts.After(cutoff) {
			n++
		}
	}
	return n
}

func (a *Aggregator) snapshotLocked() Snapshot {
	return Snapshot{
		TotalRequests:       a.total,
		SuccessfulRequests:  a.successful,
		FailedRequests:      a.failed,
		AverageResponseTime: a.avgResponseTime,
		RequestsPerSecond:   a.rps,
		ErrorRate:           a.errorRate,
		LastUpdated:         a.lastUpdated,
	}
}

// Snapshot returns a copy of the current counters and derived statistics.
func (a *Aggregator) Snapshot() Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.snapshotLocked()
}

// DetailedSnapshot adds time-windowed request counts and percentiles.
func (a *Aggregator) DetailedSnapshot() DetailedSnapshot {
	a.mu.Lock()
	defer a.mu.Unlock()

	now := a.now()
	stats := ResponseTimeStats{Average: a.avgResponseTime}
	if len(a.responseTimes) > 0 {
		stats.Min = math.Inf(1)
		for _, t := range a.responseTimes {
			stats.Min = math.Min(stats.Min, t)
			stats.Max = math.Max(stats.Max, t)
		}
		stats.P50 = percentile(a.responseTimes, 50)
		stats.P95 = percentile(a.responseTimes, 95)
		stats.P99 = percentile(a.responseTimes, 99)
	}

	return DetailedSnapshot{
		Snapshot:               a.snapshotLocked(),
		RequestsPerMinute:      a.countSince(now.Add(-time.Minute)),
		RequestsPerFiveMinutes: a.countSince(now.Add(-5 * time.Minute)),
		RequestsPerHour:        a.countSince(now.Add(-time.Hour)),
		ResponseTimeStats:      stats,
		UptimeSeconds:          time.Since(a.startedAt).Seconds(),
	}
}

// percentile sorts a copy of values and selects index ceil(p/100*n)-1.
func percentile(values []float64, p float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	idx := int(math.Ceil(p/100*float64(len(sorted)))) - 1
	if idx < 0 {
		idx = 0
	}
	return sorted[idx]
}

// Reset zeroes all counters and clears both sample buffers. Idempotent.
func (a *Aggregator) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.total = 0
	a.successful = 0
	a.failed = 0
	a.avgResponseTime = 0
	a.rps = 0
	a.errorRate = 0
	a.responseTimes = nil
	a.timestamps = nil
	a.lastUpdated = a.now()
	a.logger.Info("performance metrics reset")
}

// HealthStatus evaluates the health thresholds against current statistics.
func (a *Aggregator) HealthStatus() HealthStatus {
	snap := a.Snapshot()
	healthy := snap.ErrorRate <= maxErrorRate &&
		snap.AverageResponseTime <= maxResponseTime &&
		snap.RequestsPerSecond >= minRequestsPerSecond

	status := "healthy"
	if !healthy {
		status = "unhealthy"
	}
	return HealthStatus{
		IsHealthy: healthy,
		Status:    status,
		Metrics:   snap,
		Thresholds: map[string]any{
			"maxErrorRate":         maxErrorRate,
			"maxResponseTime":      maxResponseTime,
			"minRequestsPerSecond": minRequestsPerSecond,
		},
		Timestamp: a.now().UTC().Format(time.RFC3339),
	}
}

// SimulateLoad records synthetic outcomes at the given rate until the
// duration elapses. It returns immediately; the work runs in the background
// and self-terminates on the wall-clock deadline or context cancellation.
// Range validation is the HTTP surface's responsibility.
func (a *Aggregator) SimulateLoad(ctx context.Context, duration time.Duration, requestsPerSecond float64) {
	a.logger.Info("simulating load",
		slog.Float64("rps", requestsPerSecond),
		slog.Duration("duration", duration))

	interval := time.Duration(float64(time.Second) / requestsPerSecond)
	deadline := time.Now().Add(duration)

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				if now.After(deadline) {
					a.logger.Info("load simulation completed")
					return
				}
				success := rand.Float64() > 0.1
				elapsed := rand.Float64()*1000 + 100
				a.RecordRequest(success, elapsed)
			}
		}
	}()
}
