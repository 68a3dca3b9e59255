package api

import (
	"net/http"
	"time"

	"github.com/hoststack/otamock/internal/domain"
)

// Version is stamped at build time via -ldflags.
var Version = "dev"

// Health reports overall service state plus per-subsystem detail.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	counts, err := h.store.Counts(r.Context())
	if err != nil {
		domain.WriteError(w, r, err)
		return
	}
	domain.WriteSuccess(w, map[string]any{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"uptime":    time.Since(h.started).Seconds(),
		"version":   Version,
		"services": map[string]any{
			"websocket":   h.hub.HealthStatus(),
			"performance": h.metrics.HealthStatus(),
			"data":        counts,
		},
	})
}
