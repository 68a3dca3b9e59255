// Package api exposes the gateway's HTTP surface: provider CRUD routes
// wrapped in the simulation pipeline, webhook intake, metrics and health.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hoststack/otamock/internal/broadcast"
	"github.com/hoststack/otamock/internal/domain"
	"github.com/hoststack/otamock/internal/metrics"
	"github.com/hoststack/otamock/internal/simulate"
	"github.com/hoststack/otamock/internal/store"
	"github.com/hoststack/otamock/internal/webhook"
)

// Handlers bundles the gateway's injected services.
type Handlers struct {
	store   store.Store
	hub     *broadcast.Hub
	queue   *webhook.Queue
	metrics *metrics.Aggregator
	sim     *simulate.Simulator
	ws      http.Handler
	logger  *slog.Logger
	started time.Time
}

// New wires the handler set.
func New(s store.Store, hub *broadcast.Hub, q *webhook.Queue, agg *metrics.Aggregator, sim *simulate.Simulator, logger *slog.Logger) *Handlers {
	return &Handlers{
		store:   s,
		hub:     hub,
		queue:   q,
		metrics: agg,
		sim:     sim,
		ws:      broadcast.NewWSHandler(hub, logger),
		logger:  logger,
		started: time.Now(),
	}
}

// Mount attaches every route. Provider routes run the full simulation
// pipeline; webhook intake runs it with the generic provider profile; the
// operational surfaces (metrics, health, websocket) are never degraded.
func (h *Handlers) Mount(r chi.Router) {
	r.Get("/health", h.Health)
	r.Handle("/ws", h.ws)

	r.Route("/api", func(r chi.Router) {
		for _, p := range domain.Providers {
			provider := string(p)
			r.Route("/"+provider, func(r chi.Router) {
				for _, mw := range h.sim.Pipeline(provider) {
					r.Use(mw)
				}
				h.mountProviderRoutes(r, provider)
			})
		}

		r.Route("/webhooks", func(r chi.Router) {
			for _, mw := range h.sim.Pipeline("") {
				r.Use(mw)
			}
			for _, p := range domain.Providers {
				provider := string(p)
				r.Post("/"+provider, h.providerWebhook(provider))
			}
			r.Post("/test", h.TestWebhook)
			r.Get("/status", h.WebhookStatus)
		})

		r.Route("/metrics", func(r chi.Router) {
			r.Get("/", h.Metrics)
			r.Get("/detailed", h.DetailedMetrics)
			r.Get("/health", h.MetricsHealth)
			r.Post("/reset", h.ResetMetrics)
			r.Post("/simulate-load", h.SimulateLoad)
		})
	})
}

// decodeBody parses a JSON request body, mapping malformed input to a
// validation error.
func decodeBody(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return domain.ErrValidation("Invalid JSON body", map[string]any{"reason": err.Error()})
	}
	return nil
}

// writeStoreError maps store failures onto the error taxonomy.
func writeStoreError(w http.ResponseWriter, r *http.Request, err error, resource string) {
	if errors.Is(err, store.ErrNotFound) {
		domain.WriteError(w, r, domain.ErrNotFound(resource+" not found",
			map[string]any{"resource": resource}))
		return
	}
	domain.WriteError(w, r, err)
}

// queryInt parses an integer query parameter with a fallback.
func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}
