package handler

import (
	"net/http"

	"github.com/maxpilipovic/INB-internal-project/internal/store"
)

// ConnChecker reports whether an optional backing connection is up.
type ConnChecker interface {
	IsConnected() bool
}

// HealthHandler handles health check endpoints.
type HealthHandler struct {
	store *store.Store
	nats  ConnChecker
}

// NewHealthHandler creates a new health handler. nats may be nil when event
// publishing is disabled.
func NewHealthHandler(st *store.Store, nats ConnChecker) *HealthHandler {
	return &HealthHandler{store: st, nats: nats}
}

// Health handles GET /health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}

// Ready handles GET /ready. The document store is required; the event stream
// is best-effort and only reported, never failing readiness.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Ping(); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "not ready",
			"reason": "store unavailable",
		})
		return
	}

	natsStatus := "disabled"
	if h.nats != nil {
		natsStatus = "disconnected"
		if h.nats.IsConnected() {
			natsStatus = "connected"
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ready",
		"nats":   natsStatus,
	})
}
