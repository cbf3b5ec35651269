package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/raouf2ouf/kandled/internal/domain"
	"github.com/raouf2ouf/kandled/internal/indexer"
	"github.com/raouf2ouf/kandled/internal/kandel"
	"github.com/raouf2ouf/kandled/internal/server/ws"
)

// BookHandler ingests raw order-book snapshots, serves the aggregated depth
// view, and annotates offers owned by known Kandel instances.
type BookHandler struct {
	cache    domain.BookCache
	bus      domain.SignalBus
	registry *indexer.Registry
	logger   *slog.Logger
}

// NewBookHandler creates a BookHandler. cache and bus may be nil; ingest
// then only computes the view without persisting or broadcasting it.
func NewBookHandler(cache domain.BookCache, bus domain.SignalBus, registry *indexer.Registry, logger *slog.Logger) *BookHandler {
	return &BookHandler{
		cache:    cache,
		bus:      bus,
		registry: registry,
		logger:   logHandler(logger, "book"),
	}
}

// IngestSnapshot accepts a raw bid/ask snapshot, builds the cumulative depth
// view, stores it, and broadcasts it on the book channel.
// POST /api/book/{market}
func (h *BookHandler) IngestSnapshot(w http.ResponseWriter, r *http.Request) {
	marketKey := pathParam(r, "market")

	var snap domain.BookSnapshot
	if err := decodeBody(r, &snap); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	snap.MarketKey = marketKey
	if snap.Timestamp.IsZero() {
		snap.Timestamp = time.Now().UTC()
	}

	view := kandel.BuildDepthView(snap)

	if h.cache != nil {
		if err := h.cache.SetDepth(r.Context(), view); err != nil {
			h.logger.ErrorContext(r.Context(), "store depth view",
				slog.String("market", marketKey),
				slog.String("error", err.Error()))
			writeError(w, http.StatusBadGateway, "store depth view failed")
			return
		}
	}

	if h.bus != nil {
		if data, err := json.Marshal(view); err == nil {
			if err := h.bus.Publish(r.Context(), ws.ChannelBook, data); err != nil {
				h.logger.WarnContext(r.Context(), "publish depth view",
					slog.String("market", marketKey),
					slog.String("error", err.Error()))
			}
		}
	}

	var owners map[string]string
	if h.registry != nil {
		owners = kandel.MatchOwnerOffers(snap, h.registry.List())
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"depth":        view,
		"owned_offers": owners,
	})
}

// GetDepth returns the latest stored depth view for a market.
// GET /api/book/{market}/depth
func (h *BookHandler) GetDepth(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		writeError(w, http.StatusServiceUnavailable, "book cache not configured")
		return
	}
	marketKey := pathParam(r, "market")

	view, err := h.cache.GetDepth(r.Context(), marketKey)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "no depth for market")
			return
		}
		h.logger.ErrorContext(r.Context(), "get depth view",
			slog.String("market", marketKey),
			slog.String("error", err.Error()))
		writeError(w, http.StatusBadGateway, "get depth view failed")
		return
	}
	writeJSON(w, http.StatusOK, view)
}
