package indexer

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/raouf2ouf/kandled/internal/chain"
	"github.com/raouf2ouf/kandled/internal/domain"
)

type fakeSub struct {
	errs chan error
	once sync.Once
}

func newFakeSub() *fakeSub { return &fakeSub{errs: make(chan error, 1)} }

func (s *fakeSub) Unsubscribe()      { s.once.Do(func() { close(s.errs) }) }
func (s *fakeSub) Err() <-chan error { return s.errs }
func (s *fakeSub) fail(err error)    { s.errs <- err }

// fakeClient is a scripted chain client. Every eth_call returns callValue
// left-padded to 32 bytes, except calls whose final calldata byte matches
// failSide, which fail.
type fakeClient struct {
	mu sync.Mutex

	head      uint64
	headErr   error
	logs      []types.Log
	filterErr error
	subErr    error

	callValue *big.Int
	failSide  *uint8

	sub    *fakeSub
	liveCh chan<- types.Log
}

func (c *fakeClient) BlockNumber(ctx context.Context) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.head, c.headErr
}

func (c *fakeClient) FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.filterErr != nil {
		return nil, c.filterErr
	}
	return append([]types.Log(nil), c.logs...), nil
}

func (c *fakeClient) SubscribeFilterLogs(ctx context.Context, q ethereum.FilterQuery, ch chan<- types.Log) (ethereum.Subscription, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.subErr != nil {
		return nil, c.subErr
	}
	c.sub = newFakeSub()
	c.liveCh = ch
	return c.sub, nil
}

func (c *fakeClient) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failSide != nil && len(msg.Data) > 4 && msg.Data[len(msg.Data)-1] == *c.failSide {
		return nil, fmt.Errorf("fake: call refused: %w", domain.ErrRPC)
	}
	v := c.callValue
	if v == nil {
		v = big.NewInt(0)
	}
	return common.LeftPadBytes(v.Bytes(), 32), nil
}

func (c *fakeClient) subscription() *fakeSub {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sub
}

func (c *fakeClient) pushLive(log types.Log) {
	c.mu.Lock()
	ch := c.liveCh
	c.mu.Unlock()
	ch <- log
}

var _ chain.Client = (*fakeClient)(nil)

type fakeCheckpoints struct {
	mu     sync.Mutex
	blocks map[string]uint64
	getErr error
}

func newFakeCheckpoints() *fakeCheckpoints {
	return &fakeCheckpoints{blocks: make(map[string]uint64)}
}

func (f *fakeCheckpoints) Get(ctx context.Context, contract string) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return 0, f.getErr
	}
	block, ok := f.blocks[contract]
	if !ok {
		return 0, fmt.Errorf("fake: checkpoint %s: %w", contract, domain.ErrNotFound)
	}
	return block, nil
}

func (f *fakeCheckpoints) Commit(ctx context.Context, contract string, block uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.blocks[contract] = block
	return nil
}

func (f *fakeCheckpoints) committed(contract string) uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.blocks[contract]
}

var _ domain.CheckpointStore = (*fakeCheckpoints)(nil)

// deploymentLog builds a well-formed NewKandel log entry.
func deploymentLog(kandel, owner common.Address, block uint64) types.Log {
	return types.Log{
		Address: common.HexToAddress("0x000000000000000000000000000000000005eed"),
		Topics: []common.Hash{
			chain.NewKandelEventID(),
			common.BytesToHash(owner.Bytes()),
			common.HexToHash("0x01"),
			common.HexToHash("0x02"),
		},
		Data:        common.LeftPadBytes(kandel.Bytes(), 32),
		BlockNumber: block,
		TxHash:      common.HexToHash("0xbeef"),
	}
}
