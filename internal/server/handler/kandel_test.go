package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raouf2ouf/kandled/internal/domain"
	"github.com/raouf2ouf/kandled/internal/indexer"
	"github.com/raouf2ouf/kandled/internal/kandel"
)

func newKandelHandler(reg *indexer.Registry) *KandelHandler {
	market := domain.Market{
		BaseToken:     "0x0000000000000000000000000000000000ba5e00",
		QuoteToken:    "0x000000000000000000000000000000000000c0de",
		BaseDecimals:  18,
		QuoteDecimals: 6,
		TickSpacing:   1,
	}
	est := kandel.NewEstimator(nil, nil)
	return NewKandelHandler(reg, nil, kandel.NewGrid(market, est), est, market, slog.Default())
}

func kandelMux(h *KandelHandler) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/kandels", h.ListKandels)
	mux.HandleFunc("GET /api/kandels/{address}", h.GetKandel)
	mux.HandleFunc("POST /api/distribution/validate", h.ValidateParams)
	mux.HandleFunc("POST /api/distribution/preview", h.PreviewDistribution)
	mux.HandleFunc("GET /api/provision", h.EstimateProvision)
	mux.HandleFunc("GET /api/sow", h.SowCalldata)
	return mux
}

func TestListKandels_FilterByOwner(t *testing.T) {
	reg := indexer.NewRegistry()
	reg.Upsert(domain.Kandel{Address: "0x0a", Owner: "0x01", CreationBlock: 1})
	reg.Upsert(domain.Kandel{Address: "0x0b", Owner: "0x02", CreationBlock: 2})
	mux := kandelMux(newKandelHandler(reg))

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/kandels?owner=0x01", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Kandels []domain.Kandel `json:"kandels"`
		Count   int             `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 1, body.Count)
	require.Len(t, body.Kandels, 1)
	assert.Equal(t, "0x0a", body.Kandels[0].Address)
}

func TestGetKandel_NotFound(t *testing.T) {
	mux := kandelMux(newKandelHandler(indexer.NewRegistry()))

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/kandels/0xdead", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestValidateParams(t *testing.T) {
	mux := kandelMux(newKandelHandler(indexer.NewRegistry()))

	ok := `{"base_amount":1,"quote_amount":3000,"min_price":2800,"max_price":3200,"price_points":10,"step_size":1}`
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/distribution/validate", strings.NewReader(ok)))
	require.Equal(t, http.StatusOK, rec.Code)

	bad := `{"base_amount":1,"quote_amount":3000,"min_price":3200,"max_price":2800,"price_points":10,"step_size":1}`
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/distribution/validate", strings.NewReader(bad)))
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var resp struct {
		Validation kandel.ValidationResult `json:"validation"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Validation.IsValid)
	assert.Contains(t, resp.Validation.Errors, kandel.FieldMinPrice)
}

func TestPreviewDistribution_Valid(t *testing.T) {
	mux := kandelMux(newKandelHandler(indexer.NewRegistry()))

	body := `{"base_amount":1,"quote_amount":3000,"min_price":2800,"max_price":3200,"price_points":10,"step_size":1,"expected_volume_24h":100000}`
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/distribution/preview", strings.NewReader(body)))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		Validation kandel.ValidationResult `json:"validation"`
		Result     kandel.Result           `json:"result"`
		Calldata   string                  `json:"calldata"`
		Summary    kandel.Summary          `json:"summary"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Validation.IsValid)
	assert.True(t, strings.HasPrefix(resp.Calldata, "0x"))
	assert.Len(t, resp.Result.Distribution.Bids, 5)
	assert.Len(t, resp.Result.Distribution.Asks, 5)
	assert.InDelta(t, 3000, resp.Summary.MidPrice, 1e-9)
}

func TestPreviewDistribution_InvalidParams(t *testing.T) {
	mux := kandelMux(newKandelHandler(indexer.NewRegistry()))

	body := `{"base_amount":0,"quote_amount":3000,"min_price":2800,"max_price":3200,"price_points":10,"step_size":1}`
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/distribution/preview", strings.NewReader(body)))
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var resp struct {
		Validation kandel.ValidationResult `json:"validation"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Validation.IsValid)
	assert.Contains(t, resp.Validation.Errors, kandel.FieldBaseAmount)
}

func TestEstimateProvision(t *testing.T) {
	mux := kandelMux(newKandelHandler(indexer.NewRegistry()))

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/provision?price_points=25", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	dec := json.NewDecoder(rec.Body)
	dec.UseNumber()
	var resp map[string]any
	require.NoError(t, dec.Decode(&resp))
	// 25 points * 2 sides * 250k gas * 1 gwei.
	assert.Equal(t, json.Number("12500000000000000"), resp["provision"])

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/provision?price_points=1", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSowCalldata(t *testing.T) {
	mux := kandelMux(newKandelHandler(indexer.NewRegistry()))

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/sow?liquidity_sharing=true", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Calldata         string `json:"calldata"`
		LiquiditySharing bool   `json:"liquidity_sharing"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.LiquiditySharing)
	// Selector plus the packed olKey tuple and the bool.
	assert.Len(t, resp.Calldata, 2+2*(4+4*32))
}
