package chain

import (
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raouf2ouf/kandled/internal/domain"
)

var (
	testOwner  = common.HexToAddress("0x1111111111111111111111111111111111111111")
	testKandel = common.HexToAddress("0x2222222222222222222222222222222222222222")
	testHashA  = common.HexToHash("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	testHashB  = common.HexToHash("0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")
)

func newKandelLog(block uint64) types.Log {
	return types.Log{
		Topics: []common.Hash{
			NewKandelEventID(),
			common.BytesToHash(testOwner.Bytes()),
			testHashA,
			testHashB,
		},
		Data:        common.LeftPadBytes(testKandel.Bytes(), 32),
		BlockNumber: block,
		TxHash:      common.HexToHash("0xdead"),
	}
}

func TestDecodeNewKandel(t *testing.T) {
	res := DecodeNewKandel(newKandelLog(42))
	require.True(t, res.Decoded())
	require.NoError(t, res.Reason)

	ev := res.Event
	assert.Equal(t, testOwner, ev.Owner)
	assert.Equal(t, testKandel, ev.Kandel)
	assert.Equal(t, testHashA, ev.BaseQuoteOlKeyHash)
	assert.Equal(t, testHashB, ev.QuoteBaseOlKeyHash)
	assert.EqualValues(t, 42, ev.BlockNumber)
}

func TestDecodeNewKandel_WrongTopicCount(t *testing.T) {
	log := newKandelLog(1)
	log.Topics = log.Topics[:2]
	res := DecodeNewKandel(log)
	assert.False(t, res.Decoded())
	assert.True(t, errors.Is(res.Reason, domain.ErrDecode))
}

func TestDecodeNewKandel_WrongSignature(t *testing.T) {
	log := newKandelLog(1)
	log.Topics[0] = testHashA
	res := DecodeNewKandel(log)
	assert.False(t, res.Decoded())
	assert.True(t, errors.Is(res.Reason, domain.ErrDecode))
}

func TestDecodeNewKandel_TruncatedData(t *testing.T) {
	log := newKandelLog(1)
	log.Data = log.Data[:16]
	res := DecodeNewKandel(log)
	assert.False(t, res.Decoded())
	assert.True(t, errors.Is(res.Reason, domain.ErrDecode))
}

func TestKandelFromReceipt(t *testing.T) {
	noise := types.Log{Topics: []common.Hash{testHashA}}
	ev := newKandelLog(7)
	receipt := &types.Receipt{
		Status: types.ReceiptStatusSuccessful,
		Logs:   []*types.Log{&noise, &ev},
	}

	addr, err := KandelFromReceipt(receipt)
	require.NoError(t, err)
	assert.Equal(t, testKandel, addr)
}

func TestKandelFromReceipt_Missing(t *testing.T) {
	receipt := &types.Receipt{Status: types.ReceiptStatusSuccessful}
	_, err := KandelFromReceipt(receipt)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}
