package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/hoststack/otamock/internal/domain"
)

const (
	maxLoadDurationMillis = 300000 // 5 minutes
	maxLoadRPS            = 100
)

// Metrics returns the rolling performance snapshot.
func (h *Handlers) Metrics(w http.ResponseWriter, r *http.Request) {
	domain.WriteSuccess(w, h.metrics.Snapshot())
}

// DetailedMetrics adds windowed counts and percentile statistics.
func (h *Handlers) DetailedMetrics(w http.ResponseWriter, r *http.Request) {
	domain.WriteSuccess(w, h.metrics.DetailedSnapshot())
}

// MetricsHealth returns the threshold-based health verdict.
func (h *Handlers) MetricsHealth(w http.ResponseWriter, r *http.Request) {
	domain.WriteSuccess(w, h.metrics.HealthStatus())
}

// ResetMetrics zeroes all counters and sample buffers.
func (h *Handlers) ResetMetrics(w http.ResponseWriter, r *http.Request) {
	h.metrics.Reset()
	domain.WriteSuccess(w, map[string]any{
		"message":   "Performance metrics reset successfully",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

type simulateLoadBody struct {
	Duration          float64 `json:"duration"`
	RequestsPerSecond float64 `json:"requestsPerSecond"`
}

// SimulateLoad starts a bounded background load generation run.
func (h *Handlers) SimulateLoad(w http.ResponseWriter, r *http.Request) {
	body := simulateLoadBody{Duration: 60000, RequestsPerSecond: 10}
	if r.Body != nil && r.ContentLength != 0 {
		if err := decodeBody(r, &body); err != nil {
			domain.WriteError(w, r, err)
			return
		}
	}

	if body.Duration <= 0 {
		domain.WriteError(w, r, domain.ErrValidation("Duration must be a positive number", nil))
		return
	}
	if body.RequestsPerSecond <= 0 {
		domain.WriteError(w, r, domain.ErrValidation("Requests per second must be a positive number", nil))
		return
	}
	if body.Duration > maxLoadDurationMillis {
		domain.WriteError(w, r, domain.ErrValidation(
			"Duration cannot exceed 5 minutes (300000ms)", map[string]any{"max": maxLoadDurationMillis}))
		return
	}
	if body.RequestsPerSecond > maxLoadRPS {
		domain.WriteError(w, r, domain.ErrValidation(
			"Requests per second cannot exceed 100", map[string]any{"max": maxLoadRPS}))
		return
	}

	duration := time.Duration(body.Duration) * time.Millisecond
	// The generator must outlive this request; the request context is
	// cancelled the moment the acknowledgement is written.
	h.metrics.SimulateLoad(context.WithoutCancel(r.Context()), duration, body.RequestsPerSecond)
	h.logger.Info("load simulation started",
		slog.Float64("rps", body.RequestsPerSecond),
		slog.Duration("duration", duration))

	domain.WriteSuccess(w, map[string]any{
		"message":                "Load simulation started",
		"duration":               body.Duration,
		"requestsPerSecond":      body.RequestsPerSecond,
		"estimatedTotalRequests": int(body.Duration / 1000 * body.RequestsPerSecond),
	})
}
