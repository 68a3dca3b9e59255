// Package webhook accepts inbound provider notifications, acknowledges them
// immediately and processes them asynchronously with bounded retry.
package webhook

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hoststack/otamock/internal/domain"
	"github.com/hoststack/otamock/internal/simulate"
)

// Status is the lifecycle state of a queued notification.
type Status string

const (
	StatusPending   Status = "pending"
	StatusProcessed Status = "processed"
	StatusFailed    Status = "failed"
)

// Record is a queued webhook notification. It is owned by the Queue and
// mutated in place by its processor; records are never deleted.
type Record struct {
	ID          string         `json:"id"`
	Channel     string         `json:"channel"`
	EventType   string         `json:"eventType"`
	Payload     map[string]any `json:"payload"`
	Status      Status         `json:"status"`
	Attempts    int            `json:"attempts"`
	MaxAttempts int            `json:"maxAttempts"`
	NextRetryAt *time.Time     `json:"nextRetryAt,omitempty"`
	CreatedAt   time.Time      `json:"createdAt"`
	ProcessedAt *time.Time     `json:"processedAt,omitempty"`

	// inFlight prevents two processing attempts for the same record.
	inFlight bool
}

// View is the redacted projection returned by Query; the payload body is
// never exposed.
type View struct {
	ID          string     `json:"id"`
	Channel     string     `json:"channel"`
	EventType   string     `json:"eventType"`
	Status      Status     `json:"status"`
	Attempts    int        `json:"attempts"`
	MaxAttempts int        `json:"maxAttempts"`
	CreatedAt   time.Time  `json:"createdAt"`
	ProcessedAt *time.Time `json:"processedAt,omitempty"`
	NextRetryAt *time.Time `json:"nextRetryAt,omitempty"`
}

// Notifier receives a broadcast event for every accepted webhook.
type Notifier interface {
	WebhookNotification(channel string, data any)
}

// Config tunes processing behavior.
type Config struct {
	ProcessingDelay time.Duration `koanf:"processing_delay"`
	RetryDelay      time.Duration `koanf:"retry_delay"`
	SweepInterval   time.Duration `koanf:"sweep_interval"`
	// FailureRate is the simulated processing failure probability in percent.
	FailureRate float64 `koanf:"failure_rate"`
	MaxAttempts int     `koanf:"max_attempts"`
}

// DefaultConfig returns the standard processing profile.
func DefaultConfig() Config {
	return Config{
		ProcessingDelay: 100 * time.Millisecond,
		RetryDelay:      time.Minute,
		SweepInterval:   10 * time.Second,
		FailureRate:     10,
		MaxAttempts:     3,
	}
}

// Queue is the in-process webhook queue. A single mutex guards the record
// list and all in-place record mutation.
type Queue struct {
	mu      sync.Mutex
	records []*Record
	byID    map[string]*Record

	cfg      Config
	notifier Notifier
	rand     simulate.Rand
	logger   *slog.Logger
	now      func() time.Time
}

// Option customizes a Queue.
type Option func(*Queue)

// WithRand substitutes the random source used for simulated failures.
func WithRand(r simulate.Rand) Option {
	return func(q *Queue) { q.rand = r }
}

// NewQueue creates an empty queue.
func NewQueue(cfg Config, notifier Notifier, logger *slog.Logger, opts ...Option) *Queue {
	q := &Queue{
		byID:     make(map[string]*Record),
		cfg:      cfg,
		notifier: notifier,
		rand:     simulate.NewRand(),
		logger:   logger,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Enqueue validates and accepts a notification, returning the generated id.
// The record is processed asynchronously; the caller is acknowledged
// immediately and never sees processing failures.
func (q *Queue) Enqueue(channel, eventType string, payload map[string]any, maxAttempts int) (string, error) {
	if eventType == "" || payload == nil {
		return "", domain.ErrValidation("event_type and data are required", nil)
	}
	if maxAttempts <= 0 {
		maxAttempts = q.cfg.MaxAttempts
	}

	rec := &Record{
		ID:          fmt.Sprintf("%s_%d_%s", channel, q.now().UnixMilli(), uuid.NewString()[:7]),
		Channel:     channel,
		EventType:   eventType,
		Payload:     payload,
		Status:      StatusPending,
		MaxAttempts: maxAttempts,
		CreatedAt:   q.now(),
	}

	q.mu.Lock()
	q.records = append(q.records, rec)
	q.byID[rec.ID] = rec
	q.mu.Unlock()

	go q.process(rec)

	q.notifier.WebhookNotification(channel, map[string]any{
		"eventType": eventType,
		"data":      payload,
		"webhookId": rec.ID,
	})

	q.logger.Info("webhook received",
		slog.String("webhook_id", rec.ID),
		slog.String("channel", channel),
		slog.String("event_type", eventType))
	return rec.ID, nil
}

// process runs a single attempt. Attempts for the same record are strictly
// sequential; the inFlight flag rejects overlapping drives.
func (q *Queue) process(rec *Record) {
	q.mu.Lock()
	if rec.inFlight || rec.Status == StatusProcessed || rec.Status == StatusFailed {
		q.mu.Unlock()
		return
	}
	rec.inFlight = true
	rec.Attempts++
	attempt := rec.Attempts
	q.mu.Unlock()

	time.Sleep(q.cfg.ProcessingDelay)
	failed := q.rand.Float64()*100 < q.cfg.FailureRate

	q.mu.Lock()
	defer q.mu.Unlock()
	rec.inFlight = false

	if !failed {
		now := q.now()
		rec.Status = StatusProcessed
		rec.ProcessedAt = &now
		rec.NextRetryAt = nil
		q.logger.Info("webhook processed",
			slog.String("webhook_id", rec.ID),
			slog.Int("attempts", attempt))
		return
	}

	if attempt < rec.MaxAttempts {
		retryAt := q.now().Add(q.cfg.RetryDelay)
		rec.Status = StatusPending
		rec.NextRetryAt = &retryAt
	} else {
		rec.Status = StatusFailed
		rec.NextRetryAt = nil
	}
	q.logger.Error("webhook processing failed",
		slog.String("webhook_id", rec.ID),
		slog.String("channel", rec.Channel),
		slog.Int("attempts", attempt),
		slog.Int("max_attempts", rec.MaxAttempts))
}

// Run sweeps the queue on an interval, re-driving pending records whose retry
// time has elapsed. It blocks until ctx is cancelled.
func (q *Queue) Run(ctx context.Context) {
	ticker := time.NewTicker(q.cfg.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, rec := range q.due() {
				go q.process(rec)
			}
		}
	}
}

// due returns pending records eligible for another attempt.
func (q *Queue) due() []*Record {
	q.mu.Lock()
	defer q.mu.Unlock()
	var out []*Record
	now := q.now()
	for _, rec := range q.records {
		if rec.Status == StatusPending && !rec.inFlight &&
			rec.NextRetryAt != nil && !rec.NextRetryAt.After(now) {
			out = append(out, rec)
		}
	}
	return out
}

// Query returns a newest-first page of redacted records with total count.
func (q *Queue) Query(channel string, status Status, page, limit int) ([]View, domain.Meta) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}

	q.mu.Lock()
	filtered := make([]*Record, 0, len(q.records))
	for _, rec := range q.records {
		if channel != "" && rec.Channel != channel {
			continue
		}
		if status != "" && rec.Status != status {
			continue
		}
		filtered = append(filtered, rec)
	}
	views := make([]View, len(filtered))
	for i, rec := range filtered {
		views[i] = View{
			ID:          rec.ID,
			Channel:     rec.Channel,
			EventType:   rec.EventType,
			Status:      rec.Status,
			Attempts:    rec.Attempts,
			MaxAttempts: rec.MaxAttempts,
			CreatedAt:   rec.CreatedAt,
			ProcessedAt: rec.ProcessedAt,
			NextRetryAt: rec.NextRetryAt,
		}
	}
	q.mu.Unlock()

	sort.SliceStable(views, func(i, j int) bool {
		return views[i].CreatedAt.After(views[j].CreatedAt)
	})

	total := len(views)
	start := (page - 1) * limit
	if start > total {
		start = total
	}
	end := start + limit
	if end > total {
		end = total
	}
	return views[start:end], domain.Meta{
		Total:   total,
		Page:    page,
		Limit:   limit,
		HasMore: end < total,
	}
}
