package indexer

import (
	"context"
	"log/slog"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raouf2ouf/kandled/internal/chain"
	"github.com/raouf2ouf/kandled/internal/domain"
)

func TestBalanceTracker_BothSides(t *testing.T) {
	client := &fakeClient{callValue: big.NewInt(1234)}
	tr := NewBalanceTracker(client, slog.Default())

	bal := tr.Fetch(context.Background(), common.HexToAddress("0x01"))
	require.NoError(t, bal.BidErr)
	require.NoError(t, bal.AskErr)
	assert.Equal(t, int64(1234), bal.Bid.Int64())
	assert.Equal(t, int64(1234), bal.Ask.Int64())
	assert.False(t, bal.Partial())
	assert.NoError(t, bal.Err())
}

func TestBalanceTracker_OneSideFailureIsIsolated(t *testing.T) {
	ask := chain.ReserveAsk
	client := &fakeClient{callValue: big.NewInt(77), failSide: &ask}
	tr := NewBalanceTracker(client, slog.Default())

	bal := tr.Fetch(context.Background(), common.HexToAddress("0x01"))
	require.NoError(t, bal.BidErr)
	assert.Equal(t, int64(77), bal.Bid.Int64())

	require.Error(t, bal.AskErr)
	assert.ErrorIs(t, bal.AskErr, domain.ErrRPC)
	assert.Nil(t, bal.Ask)
	assert.True(t, bal.Partial())
	assert.ErrorIs(t, bal.Err(), domain.ErrRPC)
}
