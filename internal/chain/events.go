package chain

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/raouf2ouf/kandled/internal/domain"
)

// seederEventsABI covers the deployment event emitted by the Kandel seeder.
const seederEventsABI = `[
	{
		"type": "event",
		"name": "NewKandel",
		"inputs": [
			{"name": "owner", "type": "address", "indexed": true},
			{"name": "baseQuoteOlKeyHash", "type": "bytes32", "indexed": true},
			{"name": "quoteBaseOlKeyHash", "type": "bytes32", "indexed": true},
			{"name": "kandel", "type": "address", "indexed": false}
		]
	}
]`

var (
	seederABI     abi.ABI
	newKandelID   common.Hash
	newKandelName = "NewKandel"
)

func init() {
	var err error
	seederABI, err = abi.JSON(strings.NewReader(seederEventsABI))
	if err != nil {
		panic(fmt.Sprintf("chain: parse seeder ABI: %v", err))
	}
	newKandelID = seederABI.Events[newKandelName].ID
}

// NewKandelEventID returns the topic0 hash of the NewKandel event.
func NewKandelEventID() common.Hash {
	return newKandelID
}

// NewKandelQuery builds the filter query for NewKandel logs of one seeder
// over [fromBlock, toBlock]. A nil toBlock leaves the range open for
// subscriptions.
func NewKandelQuery(seeder common.Address, fromBlock, toBlock uint64, bounded bool) ethereum.FilterQuery {
	q := ethereum.FilterQuery{
		Addresses: []common.Address{seeder},
		Topics:    [][]common.Hash{{newKandelID}},
		FromBlock: newBlockNumber(fromBlock),
	}
	if bounded {
		q.ToBlock = newBlockNumber(toBlock)
	}
	return q
}

// NewKandelEvent is a decoded Kandel deployment event.
type NewKandelEvent struct {
	Owner              common.Address
	BaseQuoteOlKeyHash common.Hash
	QuoteBaseOlKeyHash common.Hash
	Kandel             common.Address
	BlockNumber        uint64
	TxHash             common.Hash
}

// DecodeResult is the tagged outcome of decoding one log entry: either a
// decoded event or the reason it was malformed. Callers branch explicitly
// instead of recovering from decode panics.
type DecodeResult struct {
	Event  *NewKandelEvent
	Reason error
}

// Decoded reports whether the log matched the NewKandel schema.
func (r DecodeResult) Decoded() bool { return r.Event != nil }

// DecodeNewKandel decodes a single log entry against the NewKandel schema.
// A mismatched entry yields a Malformed result wrapping ErrDecode; it never
// returns both an event and a reason.
func DecodeNewKandel(log types.Log) DecodeResult {
	if len(log.Topics) != 4 {
		return malformed("expected 4 topics, got %d", len(log.Topics))
	}
	if log.Topics[0] != newKandelID {
		return malformed("topic0 %s is not NewKandel", log.Topics[0])
	}

	unpacked, err := seederABI.Unpack(newKandelName, log.Data)
	if err != nil {
		return malformed("unpack data: %v", err)
	}
	kandelAddr, ok := unpacked[0].(common.Address)
	if !ok {
		return malformed("kandel argument is not an address")
	}

	return DecodeResult{Event: &NewKandelEvent{
		Owner:              common.BytesToAddress(log.Topics[1].Bytes()),
		BaseQuoteOlKeyHash: log.Topics[2],
		QuoteBaseOlKeyHash: log.Topics[3],
		Kandel:             kandelAddr,
		BlockNumber:        log.BlockNumber,
		TxHash:             log.TxHash,
	}}
}

// KandelFromReceipt scans a deployment receipt for the NewKandel event and
// returns the new instance address. Used by the write path after sow().
func KandelFromReceipt(receipt *types.Receipt) (common.Address, error) {
	for _, log := range receipt.Logs {
		if log == nil {
			continue
		}
		if res := DecodeNewKandel(*log); res.Decoded() {
			return res.Event.Kandel, nil
		}
	}
	return common.Address{}, fmt.Errorf("chain: no NewKandel event in receipt %s: %w", receipt.TxHash, domain.ErrNotFound)
}

func newBlockNumber(n uint64) *big.Int {
	return new(big.Int).SetUint64(n)
}

func malformed(format string, args ...any) DecodeResult {
	return DecodeResult{Reason: fmt.Errorf("chain: %s: %w", fmt.Sprintf(format, args...), domain.ErrDecode)}
}
