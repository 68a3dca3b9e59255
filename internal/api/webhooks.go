package api

import (
	"log/slog"
	"net/http"

	"github.com/hoststack/otamock/internal/domain"
	"github.com/hoststack/otamock/internal/webhook"
)

// webhookBody is the inbound notification shape shared by all providers.
type webhookBody struct {
	Channel   string         `json:"channel"`
	EventType string         `json:"event_type"`
	Data      map[string]any `json:"data"`
	Timestamp string         `json:"timestamp"`
}

// providerWebhook accepts a provider notification and acknowledges it
// immediately; processing happens asynchronously in the queue.
func (h *Handlers) providerWebhook(provider string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body webhookBody
		if err := decodeBody(r, &body); err != nil {
			domain.WriteError(w, r, err)
			return
		}
		id, err := h.queue.Enqueue(provider, body.EventType, body.Data, 0)
		if err != nil {
			domain.WriteError(w, r, err)
			return
		}
		domain.WriteSuccess(w, map[string]any{
			"webhookId": id,
			"status":    "received",
			"eventType": body.EventType,
		})
	}
}

// TestWebhook accepts a notification for an arbitrary channel with a single
// processing attempt.
func (h *Handlers) TestWebhook(w http.ResponseWriter, r *http.Request) {
	var body webhookBody
	if err := decodeBody(r, &body); err != nil {
		domain.WriteError(w, r, err)
		return
	}
	if body.Channel == "" || body.EventType == "" {
		domain.WriteError(w, r, domain.ErrValidation("channel and event_type are required", nil))
		return
	}
	payload := body.Data
	if payload == nil {
		payload = map[string]any{}
	}
	id, err := h.queue.Enqueue(body.Channel, body.EventType, payload, 1)
	if err != nil {
		domain.WriteError(w, r, err)
		return
	}
	domain.WriteSuccess(w, map[string]any{
		"webhookId": id,
		"status":    "received",
		"eventType": body.EventType,
		"channel":   body.Channel,
	})
}

// WebhookStatus lists queued webhooks, newest first, with payloads redacted.
func (h *Handlers) WebhookStatus(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	views, meta := h.queue.Query(
		q.Get("channel"),
		webhook.Status(q.Get("status")),
		queryInt(r, "page", 1),
		queryInt(r, "limit", 20),
	)
	h.logger.Info("webhook status retrieved", slog.Int("count", len(views)))
	domain.WriteList(w, views, meta)
}
