package kandel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raouf2ouf/kandled/internal/domain"
)

func TestBuildDepth_AsksAscending(t *testing.T) {
	offers := []domain.Offer{
		{ID: "2", Price: 105, Volume: 2, Side: domain.SideAsk},
		{ID: "1", Price: 100, Volume: 1, Side: domain.SideAsk},
	}
	depth := BuildDepth(offers, true)

	require.Len(t, depth, 2)
	assert.Equal(t, "1", depth[0].ID)
	assert.Equal(t, 100.0, depth[0].Cumulative)
	assert.Equal(t, 310.0, depth[1].Cumulative)
}

func TestBuildDepth_BidsDescending(t *testing.T) {
	offers := []domain.Offer{
		{ID: "b2", Price: 90, Volume: 2, Side: domain.SideBid},
		{ID: "b1", Price: 95, Volume: 1, Side: domain.SideBid},
	}
	depth := BuildDepth(offers, false)

	require.Len(t, depth, 2)
	assert.Equal(t, "b1", depth[0].ID)
	assert.Equal(t, 95.0, depth[0].Cumulative)
	assert.Equal(t, 275.0, depth[1].Cumulative)
}

func TestBuildDepth_PrefersReportedTotal(t *testing.T) {
	offers := []domain.Offer{
		{ID: "1", Price: 100, Volume: 1, Total: 99.5, Side: domain.SideAsk},
		{ID: "2", Price: 105, Volume: 2, Side: domain.SideAsk},
	}
	depth := BuildDepth(offers, true)
	assert.Equal(t, 99.5, depth[0].Cumulative)
	assert.Equal(t, 99.5+210, depth[1].Cumulative)
}

func TestBuildDepth_DoesNotMutateInput(t *testing.T) {
	offers := []domain.Offer{
		{ID: "2", Price: 105, Volume: 2, Side: domain.SideAsk},
		{ID: "1", Price: 100, Volume: 1, Side: domain.SideAsk},
	}
	_ = BuildDepth(offers, true)
	assert.Equal(t, "2", offers[0].ID, "input order preserved")
}

func TestBuildDepth_CumulativeNonDecreasing(t *testing.T) {
	offers := []domain.Offer{
		{ID: "1", Price: 100, Volume: 0},
		{ID: "2", Price: 101, Volume: 3},
		{ID: "3", Price: 102, Volume: 0.5},
	}
	depth := BuildDepth(offers, true)
	for i := 1; i < len(depth); i++ {
		assert.GreaterOrEqual(t, depth[i].Cumulative, depth[i-1].Cumulative)
	}
}

func TestBuildDepthView_MaxCumulative(t *testing.T) {
	snap := domain.BookSnapshot{
		MarketKey: "weth-usdc-1",
		Asks: []domain.Offer{
			{ID: "a1", Price: 100, Volume: 1, Side: domain.SideAsk},
			{ID: "a2", Price: 105, Volume: 2, Side: domain.SideAsk},
		},
		Bids: []domain.Offer{
			{ID: "b1", Price: 95, Volume: 1, Side: domain.SideBid},
		},
	}
	view := BuildDepthView(snap)
	assert.Equal(t, 310.0, view.MaxCumulative)
	assert.Equal(t, "weth-usdc-1", view.MarketKey)
}

func TestMatchOwnerOffers(t *testing.T) {
	snap := domain.BookSnapshot{
		Asks: []domain.Offer{
			{ID: "a1", Maker: "0xABcDef0000000000000000000000000000000001"},
			{ID: "a2", Maker: "0x0000000000000000000000000000000000000002"},
		},
		Bids: []domain.Offer{
			{ID: "b1", Maker: "0xabcdef0000000000000000000000000000000001"},
		},
	}
	kandels := []domain.Kandel{
		{Address: "0xabcdef0000000000000000000000000000000001"},
	}
	matched := MatchOwnerOffers(snap, kandels)
	assert.Len(t, matched, 2)
	assert.Contains(t, matched, "a1")
	assert.Contains(t, matched, "b1")
	assert.NotContains(t, matched, "a2")
}
