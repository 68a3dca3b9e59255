package simulate

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hoststack/otamock/internal/domain"
)

// Config holds the probability of each failure mode, expressed in percent.
type Config struct {
	ErrorRate               float64 `koanf:"error_rate"`
	ProviderErrorRate       float64 `koanf:"provider_error_rate"`
	WebhookFailureRate      float64 `koanf:"webhook_failure_rate"`
	InconsistencyRate       float64 `koanf:"inconsistency_rate"`
	TimeoutRate             float64 `koanf:"timeout_rate"`
	ConnectivityFailureRate float64 `koanf:"connectivity_failure_rate"`
}

// DefaultConfig mirrors the always-on realism profile.
func DefaultConfig() Config {
	return Config{
		ErrorRate:               5,
		ProviderErrorRate:       3,
		WebhookFailureRate:      2,
		InconsistencyRate:       1,
		TimeoutRate:             0.1,
		ConnectivityFailureRate: 0.05,
	}
}

// delayWindow is a per-provider latency band in milliseconds.
type delayWindow struct {
	min, max int
}

var providerDelays = map[domain.Provider]delayWindow{
	domain.ProviderAirbnb:  {100, 300},
	domain.ProviderBooking: {150, 400},
	domain.ProviderExpedia: {200, 500},
	domain.ProviderAgoda:   {120, 350},
	domain.ProviderVrbo:    {180, 450},
}

var fallbackDelay = delayWindow{100, 300}

// Middleware is a single pipeline stage.
type Middleware = func(http.Handler) http.Handler

// Simulator builds the probabilistic request pipeline. The random source and
// sleep function are injectable so stage outcomes are deterministic in tests.
type Simulator struct {
	cfg    Config
	rand   Rand
	sleep  func(context.Context, time.Duration)
	logger *slog.Logger
}

// Option customizes a Simulator.
type Option func(*Simulator)

// WithRand substitutes the random source.
func WithRand(r Rand) Option {
	return func(s *Simulator) { s.rand = r }
}

// WithSleep substitutes the delay function.
func WithSleep(fn func(context.Context, time.Duration)) Option {
	return func(s *Simulator) { s.sleep = fn }
}

// New creates a Simulator with the given failure profile.
func New(cfg Config, logger *slog.Logger, opts ...Option) *Simulator {
	s := &Simulator{
		cfg:    cfg,
		rand:   NewRand(),
		sleep:  sleepContext,
		logger: logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// sleepContext pauses the current request without blocking other requests,
// returning early if the request is abandoned.
func sleepContext(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

// Pipeline returns the ordered stage chain for one provider's routes.
// Header stages run first so even failed requests carry them; latency stages
// next; termination-capable stages last. Each probability check is an
// independent trial and the first stage to terminate wins.
func (s *Simulator) Pipeline(provider string) []Middleware {
	return []Middleware{
		s.RealisticHeaders,
		s.RateLimitHeaders,
		s.NetworkLatency,
		s.ProviderDelay(provider),
		s.Timeout,
		s.ConnectivityFailure,
		s.RandomErrors,
		s.ProviderErrors(provider),
		s.WebhookFailures,
		s.DataInconsistency,
	}
}

// trial runs one Bernoulli trial against a percentage rate.
func (s *Simulator) trial(rate float64) bool {
	return s.rand.Float64()*100 < rate
}

// RealisticHeaders attaches informational API headers. Never blocks.
func (s *Simulator) RealisticHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-API-Version", "1.0.0")
		h.Set("X-Response-Time", strconv.FormatInt(time.Now().UnixMilli(), 10))
		h.Set("X-Request-ID", uuid.NewString())
		h.Set("Cache-Control", "no-cache, no-store, must-revalidate")
		h.Set("Pragma", "no-cache")
		h.Set("Expires", "0")
		next.ServeHTTP(w, r)
	})
}

// RateLimitHeaders synthesizes quota headers: remaining is uniform in
// [0,1000), reset is fifteen minutes out.
func (s *Simulator) RateLimitHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-RateLimit-Limit", "1000")
		h.Set("X-RateLimit-Remaining", strconv.Itoa(s.rand.IntN(1000)))
		h.Set("X-RateLimit-Reset", strconv.FormatInt(time.Now().Add(15*time.Minute).Unix(), 10))
		next.ServeHTTP(w, r)
	})
}

// NetworkLatency delays every request by 50ms base plus up to 100ms jitter.
func (s *Simulator) NetworkLatency(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		jitter := time.Duration(s.rand.Float64() * 100 * float64(time.Millisecond))
		s.sleep(r.Context(), 50*time.Millisecond+jitter)
		next.ServeHTTP(w, r)
	})
}

// ProviderDelay delays within the provider's configured latency band.
func (s *Simulator) ProviderDelay(provider string) Middleware {
	window, ok := providerDelays[domain.Provider(provider)]
	if !ok {
		window = fallbackDelay
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ms := window.min + s.rand.IntN(window.max-window.min+1)
			s.sleep(r.Context(), time.Duration(ms)*time.Millisecond)
			next.ServeHTTP(w, r)
		})
	}
}

// Timeout models a hung upstream: no response is ever written and the
// connection is held until the client or the transport-level timeout gives
// up, then aborted without a status line.
func (s *Simulator) Timeout(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.trial(s.cfg.TimeoutRate) {
			s.logger.Warn("simulating timeout",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path))
			<-r.Context().Done()
			panic(http.ErrAbortHandler)
		}
		next.ServeHTTP(w, r)
	})
}

// ConnectivityFailure terminates with a 503 connectivity error.
func (s *Simulator) ConnectivityFailure(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.trial(s.cfg.ConnectivityFailureRate) {
			s.logger.Warn("simulating connectivity issue",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path))
			domain.WriteError(w, r, domain.ErrServiceUnavailable(
				"Service temporarily unavailable due to connectivity issues",
				map[string]any{"retryAfter": 30}))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RandomErrors terminates with a uniformly chosen generic catalog entry.
func (s *Simulator) RandomErrors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.trial(s.cfg.ErrorRate) {
			desc := RandomError(s.rand)
			s.logger.Warn("simulating error",
				slog.String("code", desc.Code),
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path))
			domain.WriteError(w, r, desc.APIError())
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ProviderErrors terminates with the provider's dedicated catalog entry.
func (s *Simulator) ProviderErrors(provider string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if s.trial(s.cfg.ProviderErrorRate) {
				desc := ProviderError(s.rand, provider)
				s.logger.Warn("simulating provider error",
					slog.String("provider", provider),
					slog.String("code", desc.Code),
					slog.String("path", r.URL.Path))
				domain.WriteError(w, r, desc.APIError())
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// WebhookFailures terminates webhook deliveries with a synthetic 500.
// Applies only to webhook paths.
func (s *Simulator) WebhookFailures(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "/webhook") && s.trial(s.cfg.WebhookFailureRate) {
			s.logger.Warn("simulating webhook delivery failure",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path))
			domain.WriteError(w, r, domain.NewAPIError(
				"WEBHOOK_DELIVERY_FAILED", http.StatusInternalServerError,
				"Webhook delivery failed", map[string]any{
					"reason":     "endpoint_unavailable",
					"retryAfter": 30,
					"attempt":    s.rand.IntN(3) + 1,
				}))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// DataInconsistency terminates with a simulated concurrent-modification
// conflict.
func (s *Simulator) DataInconsistency(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.trial(s.cfg.InconsistencyRate) {
			s.logger.Warn("simulating data inconsistency",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path))
			domain.WriteError(w, r, domain.NewAPIError(
				"DATA_INCONSISTENCY", http.StatusConflict,
				"Data inconsistency detected", map[string]any{
					"reason":            "concurrent_modification",
					"conflictingFields": []string{"price", "availability"},
					"suggestedAction":   "retry_request",
				}))
			return
		}
		next.ServeHTTP(w, r)
	})
}
