package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raouf2ouf/kandled/internal/domain"
	"github.com/raouf2ouf/kandled/internal/indexer"
)

type memBookCache struct {
	views map[string]domain.DepthView
}

func newMemBookCache() *memBookCache {
	return &memBookCache{views: make(map[string]domain.DepthView)}
}

func (m *memBookCache) SetDepth(ctx context.Context, view domain.DepthView) error {
	m.views[view.MarketKey] = view
	return nil
}

func (m *memBookCache) GetDepth(ctx context.Context, marketKey string) (domain.DepthView, error) {
	view, ok := m.views[marketKey]
	if !ok {
		return domain.DepthView{}, fmt.Errorf("mem: depth %s: %w", marketKey, domain.ErrNotFound)
	}
	return view, nil
}

func bookMux(h *BookHandler) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/book/{market}", h.IngestSnapshot)
	mux.HandleFunc("GET /api/book/{market}/depth", h.GetDepth)
	return mux
}

func TestIngestSnapshot_BuildsStoresAndAnnotates(t *testing.T) {
	cache := newMemBookCache()
	reg := indexer.NewRegistry()
	reg.Upsert(domain.Kandel{Address: "0xKandelMaker", Owner: "0x01"})
	h := NewBookHandler(cache, nil, reg, slog.Default())
	mux := bookMux(h)

	body := `{
		"bids": [
			{"id":"b1","maker":"0xkandelmaker","price":95,"volume":1,"side":"bid"},
			{"id":"b2","maker":"0xsomeoneelse","price":90,"volume":2,"side":"bid"}
		],
		"asks": [
			{"id":"a1","maker":"0xsomeoneelse","price":105,"volume":1,"side":"ask"}
		]
	}`
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/book/weth-usdc", strings.NewReader(body)))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		Depth       domain.DepthView  `json:"depth"`
		OwnedOffers map[string]string `json:"owned_offers"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	assert.Equal(t, "weth-usdc", resp.Depth.MarketKey)
	require.Len(t, resp.Depth.Bids, 2)
	assert.Equal(t, "b1", resp.Depth.Bids[0].ID)
	assert.InDelta(t, 95, resp.Depth.Bids[0].Cumulative, 1e-9)
	assert.InDelta(t, 275, resp.Depth.Bids[1].Cumulative, 1e-9)

	// Maker matching is case-insensitive against registry addresses.
	assert.Equal(t, map[string]string{"b1": "0xkandelmaker"}, resp.OwnedOffers)

	stored, err := cache.GetDepth(context.Background(), "weth-usdc")
	require.NoError(t, err)
	assert.False(t, stored.Timestamp.IsZero())
}

func TestGetDepth_NotFound(t *testing.T) {
	h := NewBookHandler(newMemBookCache(), nil, indexer.NewRegistry(), slog.Default())
	mux := bookMux(h)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/book/nope/depth", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
