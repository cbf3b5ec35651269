package chain

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raouf2ouf/kandled/internal/domain"
)

func TestPackPopulateFromOffset(t *testing.T) {
	call := domain.PopulateCall{
		From:          0,
		To:            10,
		TickIndex0:    68027,
		TickOffset:    11,
		FirstAskIndex: 5,
		BidGives:      big.NewInt(1_000_000),
		AskGives:      big.NewInt(2_000_000),
		Params: domain.KandelParams{
			GasPrice:    big.NewInt(1_000_000_000),
			GasReq:      big.NewInt(250_000),
			StepSize:    1,
			PricePoints: 10,
		},
		BaseDeposit:  big.NewInt(2_000_000),
		QuoteDeposit: big.NewInt(1_000_000),
		Value:        big.NewInt(5_000_000),
	}

	data, err := PackPopulateFromOffset(call)
	require.NoError(t, err)

	method := kandelABI.Methods["populateFromOffset"]
	assert.Equal(t, method.ID, data[:4], "selector")

	// 10 static words plus the inlined 4-word params tuple.
	assert.Equal(t, 4+13*32, len(data))
}

func TestPackSow(t *testing.T) {
	market := domain.Market{
		BaseToken:   "0xdc64a140aa3e981100a9beca4e685f962f0cf6c9",
		QuoteToken:  "0x5fc8d32690cc91d4c39d9d3abcbd16989f875707",
		TickSpacing: 1,
	}

	data, err := PackSow(market, false)
	require.NoError(t, err)
	assert.Equal(t, sowABI.Methods["sow"].ID, data[:4])
	assert.Equal(t, 4+4*32, len(data))
}
