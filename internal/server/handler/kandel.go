package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/raouf2ouf/kandled/internal/chain"
	"github.com/raouf2ouf/kandled/internal/domain"
	"github.com/raouf2ouf/kandled/internal/indexer"
	"github.com/raouf2ouf/kandled/internal/kandel"
)

// KandelHandler serves the Kandel registry and the distribution engine:
// listing discovered instances, previewing ladders, and estimating
// provision.
type KandelHandler struct {
	registry  *indexer.Registry
	ix        *indexer.Indexer
	grid      *kandel.Grid
	estimator *kandel.Estimator
	market    domain.Market
	logger    *slog.Logger
}

// NewKandelHandler creates a KandelHandler. ix may be nil when no chain
// connection is configured; refresh then responds 503.
func NewKandelHandler(registry *indexer.Registry, ix *indexer.Indexer, grid *kandel.Grid, estimator *kandel.Estimator, market domain.Market, logger *slog.Logger) *KandelHandler {
	return &KandelHandler{
		registry:  registry,
		ix:        ix,
		grid:      grid,
		estimator: estimator,
		market:    market,
		logger:    logHandler(logger, "kandel"),
	}
}

// ListKandels returns every discovered instance, optionally filtered by the
// owner query parameter.
// GET /api/kandels?owner=0x...
func (h *KandelHandler) ListKandels(w http.ResponseWriter, r *http.Request) {
	var list []domain.Kandel
	if owner := r.URL.Query().Get("owner"); owner != "" {
		list = h.registry.ListByOwner(owner)
	} else {
		list = h.registry.List()
	}
	if list == nil {
		list = []domain.Kandel{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"kandels": list,
		"count":   len(list),
	})
}

// GetKandel returns one instance by address.
// GET /api/kandels/{address}
func (h *KandelHandler) GetKandel(w http.ResponseWriter, r *http.Request) {
	address := pathParam(r, "address")
	k, ok := h.registry.Get(address)
	if !ok {
		writeError(w, http.StatusNotFound, "kandel not found")
		return
	}
	writeJSON(w, http.StatusOK, k)
}

// RefreshReserves re-reads both reserve balances for one instance.
// POST /api/kandels/{address}/refresh
func (h *KandelHandler) RefreshReserves(w http.ResponseWriter, r *http.Request) {
	if h.ix == nil {
		writeError(w, http.StatusServiceUnavailable, "indexer not configured")
		return
	}
	address := pathParam(r, "address")

	bal, err := h.ix.RefreshBalances(r.Context(), address)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "kandel not found")
			return
		}
		h.logger.ErrorContext(r.Context(), "refresh reserves",
			slog.String("address", address),
			slog.String("error", err.Error()))
		writeError(w, http.StatusBadGateway, "reserve read failed")
		return
	}

	body := map[string]any{
		"address": domain.NormalizeAddress(address),
		"partial": bal.Partial(),
	}
	if bal.AskErr == nil {
		body["base_reserve"] = bal.Ask
	} else {
		body["ask_error"] = bal.AskErr.Error()
	}
	if bal.BidErr == nil {
		body["quote_reserve"] = bal.Bid
	} else {
		body["bid_error"] = bal.BidErr.Error()
	}
	writeJSON(w, http.StatusOK, body)
}

// previewRequest is the distribution preview body: the six deployment
// inputs plus an optional volume assumption for the APR estimate.
type previewRequest struct {
	kandel.Params
	ExpectedVolume24h float64 `json:"expected_volume_24h"`
}

// ValidateParams checks deployment params without computing the ladder, so
// a client can surface field errors while the user is still typing.
// POST /api/distribution/validate
func (h *KandelHandler) ValidateParams(w http.ResponseWriter, r *http.Request) {
	var req previewRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	validation := kandel.Validate(req.Params)
	status := http.StatusOK
	if !validation.IsValid {
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, status, map[string]any{"validation": validation})
}

// PreviewDistribution validates deployment params and, when they pass,
// returns the full ladder, the populate call, its packed calldata, the
// required provision, and position metrics.
// POST /api/distribution/preview
func (h *KandelHandler) PreviewDistribution(w http.ResponseWriter, r *http.Request) {
	var req previewRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	validation := kandel.Validate(req.Params)
	if !validation.IsValid {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"validation": validation,
		})
		return
	}

	result := h.grid.Calculate(req.Params)

	calldata, err := chain.PackPopulateFromOffset(result.Call)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "pack populate call", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "pack populate call failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"validation": validation,
		"result":     result,
		"calldata":   hexutil.Encode(calldata),
		"provision":  result.Call.Value,
		"summary":    kandel.Summarize(req.Params, req.ExpectedVolume24h),
	})
}

// EstimateProvision returns the native provision required for a grid of the
// given size, using default gas parameters.
// GET /api/provision?price_points=N
func (h *KandelHandler) EstimateProvision(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("price_points")
	pp, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || pp < 2 {
		writeError(w, http.StatusBadRequest, "price_points must be an integer >= 2")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"price_points": pp,
		"provision":    h.estimator.Required(pp),
		"gas_req":      h.estimator.GasReq(),
		"gas_price":    h.estimator.GasPrice(),
	})
}

// SowCalldata returns packed calldata for deploying a new instance through
// the seeder.
// GET /api/sow?liquidity_sharing=true
func (h *KandelHandler) SowCalldata(w http.ResponseWriter, r *http.Request) {
	sharing := r.URL.Query().Get("liquidity_sharing") == "true"

	calldata, err := chain.PackSow(h.market, sharing)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "pack sow call", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "pack sow call failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"market":            h.market,
		"liquidity_sharing": sharing,
		"calldata":          hexutil.Encode(calldata),
	})
}
