package chain

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/raouf2ouf/kandled/internal/domain"
)

// Reserve sides, matching the contract's OfferType enum.
const (
	ReserveBid uint8 = 0
	ReserveAsk uint8 = 1
)

// kandelCoreABI covers the subset of the Kandel contract kandled touches:
// reserve reads and ladder population.
const kandelCoreABI = `[
	{
		"type": "function",
		"name": "reserveBalance",
		"stateMutability": "view",
		"inputs": [{"name": "ba", "type": "uint8"}],
		"outputs": [{"name": "balance", "type": "uint256"}]
	},
	{
		"type": "function",
		"name": "populateFromOffset",
		"stateMutability": "payable",
		"inputs": [
			{"name": "from", "type": "uint256"},
			{"name": "to", "type": "uint256"},
			{"name": "baseQuoteTickIndex0", "type": "int256"},
			{"name": "_baseQuoteTickOffset", "type": "uint256"},
			{"name": "firstAskIndex", "type": "uint256"},
			{"name": "bidGives", "type": "uint256"},
			{"name": "askGives", "type": "uint256"},
			{"name": "parameters", "type": "tuple", "components": [
				{"name": "gasprice", "type": "uint32"},
				{"name": "gasreq", "type": "uint24"},
				{"name": "stepSize", "type": "uint32"},
				{"name": "pricePoints", "type": "uint32"}
			]},
			{"name": "baseAmount", "type": "uint256"},
			{"name": "quoteAmount", "type": "uint256"}
		],
		"outputs": []
	}
]`

// seederCoreABI covers the seeder's deployment entry point.
const seederCoreABI = `[
	{
		"type": "function",
		"name": "sow",
		"stateMutability": "payable",
		"inputs": [
			{"name": "olKeyBaseQuote", "type": "tuple", "components": [
				{"name": "outbound_tkn", "type": "address"},
				{"name": "inbound_tkn", "type": "address"},
				{"name": "tickSpacing", "type": "uint256"}
			]},
			{"name": "liquiditySharing", "type": "bool"}
		],
		"outputs": [{"name": "kandel", "type": "address"}]
	}
]`

var (
	kandelABI abi.ABI
	sowABI    abi.ABI
)

func init() {
	var err error
	kandelABI, err = abi.JSON(strings.NewReader(kandelCoreABI))
	if err != nil {
		panic(fmt.Sprintf("chain: parse kandel ABI: %v", err))
	}
	sowABI, err = abi.JSON(strings.NewReader(seederCoreABI))
	if err != nil {
		panic(fmt.Sprintf("chain: parse seeder core ABI: %v", err))
	}
}

// kandelParamsArg mirrors the contract's Params tuple for ABI packing.
// gasreq is uint24 on-chain, which go-ethereum maps to *big.Int.
type kandelParamsArg struct {
	Gasprice    uint32   `abi:"gasprice"`
	Gasreq      *big.Int `abi:"gasreq"`
	StepSize    uint32   `abi:"stepSize"`
	PricePoints uint32   `abi:"pricePoints"`
}

// PackPopulateFromOffset encodes a PopulateCall into calldata for the Kandel
// instance. The transaction value (provision) travels separately in
// call.Value; signing and broadcast belong to the wallet collaborator.
func PackPopulateFromOffset(call domain.PopulateCall) ([]byte, error) {
	gasPriceGwei := new(big.Int).Div(call.Params.GasPrice, big.NewInt(1_000_000_000))

	data, err := kandelABI.Pack("populateFromOffset",
		new(big.Int).SetUint64(call.From),
		new(big.Int).SetUint64(call.To),
		big.NewInt(call.TickIndex0),
		new(big.Int).SetUint64(call.TickOffset),
		new(big.Int).SetUint64(call.FirstAskIndex),
		call.BidGives,
		call.AskGives,
		kandelParamsArg{
			Gasprice:    uint32(gasPriceGwei.Uint64()),
			Gasreq:      call.Params.GasReq,
			StepSize:    uint32(call.Params.StepSize),
			PricePoints: uint32(call.Params.PricePoints),
		},
		call.BaseDeposit,
		call.QuoteDeposit,
	)
	if err != nil {
		return nil, fmt.Errorf("chain: pack populateFromOffset: %w", err)
	}
	return data, nil
}

// PackSow encodes the seeder's sow() call that deploys a fresh Kandel
// instance for the given market.
func PackSow(market domain.Market, liquiditySharing bool) ([]byte, error) {
	olKey := struct {
		OutboundTkn common.Address `abi:"outbound_tkn"`
		InboundTkn  common.Address `abi:"inbound_tkn"`
		TickSpacing *big.Int       `abi:"tickSpacing"`
	}{
		OutboundTkn: common.HexToAddress(market.BaseToken),
		InboundTkn:  common.HexToAddress(market.QuoteToken),
		TickSpacing: new(big.Int).SetUint64(market.TickSpacing),
	}

	data, err := sowABI.Pack("sow", olKey, liquiditySharing)
	if err != nil {
		return nil, fmt.Errorf("chain: pack sow: %w", err)
	}
	return data, nil
}

// ReserveBalance reads one side's reserve balance from a Kandel instance.
func ReserveBalance(ctx context.Context, client Client, kandel common.Address, side uint8) (*big.Int, error) {
	data, err := kandelABI.Pack("reserveBalance", side)
	if err != nil {
		return nil, fmt.Errorf("chain: pack reserveBalance: %w", err)
	}

	out, err := client.CallContract(ctx, ethereum.CallMsg{To: &kandel, Data: data}, nil)
	if err != nil {
		return nil, err
	}

	res, err := kandelABI.Unpack("reserveBalance", out)
	if err != nil {
		return nil, fmt.Errorf("chain: unpack reserveBalance: %w", err)
	}
	balance, ok := res[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("chain: reserveBalance returned %T: %w", res[0], domain.ErrDecode)
	}
	return balance, nil
}
