package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/raouf2ouf/kandled/internal/indexer"
)

// HealthHandler serves the health-check endpoint, including the indexer's
// lifecycle phase so operators can tell catch-up from live at a glance.
type HealthHandler struct {
	ix       *indexer.Indexer
	registry *indexer.Registry
	logger   *slog.Logger
}

// NewHealthHandler creates a HealthHandler. ix and registry may be nil, e.g.
// in an API-only deployment.
func NewHealthHandler(ix *indexer.Indexer, registry *indexer.Registry, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{ix: ix, registry: registry, logger: logger}
}

// HealthCheck responds with server liveness plus indexer status.
// GET /api/health
func (h *HealthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	body := map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	if h.ix != nil {
		body["indexer_state"] = h.ix.State().String()
		body["indexer_generation"] = h.ix.Generation()
	}
	if h.registry != nil {
		body["known_kandels"] = h.registry.Len()
	}
	writeJSON(w, http.StatusOK, body)
}
