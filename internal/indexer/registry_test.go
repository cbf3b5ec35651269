package indexer

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raouf2ouf/kandled/internal/domain"
)

func TestRegistry_UpsertNormalizesAddresses(t *testing.T) {
	r := NewRegistry()

	created := r.Upsert(domain.Kandel{
		Address: "0xAbCd000000000000000000000000000000000001",
		Owner:   "0xFFff000000000000000000000000000000000002",
	})
	require.True(t, created)

	k, ok := r.Get("0xABCD000000000000000000000000000000000001")
	require.True(t, ok)
	assert.Equal(t, "0xabcd000000000000000000000000000000000001", k.Address)
	assert.Equal(t, "0xffff000000000000000000000000000000000002", k.Owner)
}

func TestRegistry_ReobservationKeepsEnrichment(t *testing.T) {
	r := NewRegistry()
	addr := "0xabcd000000000000000000000000000000000001"

	r.Upsert(domain.Kandel{Address: addr, Owner: "0x01", CreationBlock: 5})

	needs := false
	created := r.Upsert(domain.Kandel{
		Address:           addr,
		BaseReserve:       big.NewInt(42),
		NeedsBaseApproval: &needs,
	})
	assert.False(t, created)

	// A bare re-delivery of the creation event carries no enrichment and
	// must not erase what the first enrichment stored.
	created = r.Upsert(domain.Kandel{Address: addr, Owner: "0x01", CreationBlock: 5})
	assert.False(t, created)

	k, ok := r.Get(addr)
	require.True(t, ok)
	require.NotNil(t, k.BaseReserve)
	assert.Equal(t, int64(42), k.BaseReserve.Int64())
	require.NotNil(t, k.NeedsBaseApproval)
	assert.False(t, *k.NeedsBaseApproval)
	assert.Nil(t, k.QuoteReserve)
	assert.Equal(t, uint64(5), k.CreationBlock)
	assert.Equal(t, 1, r.Len())
}

func TestRegistry_ListByOwnerOrdersByCreationBlock(t *testing.T) {
	r := NewRegistry()
	owner := "0xffff000000000000000000000000000000000002"

	r.Upsert(domain.Kandel{Address: "0x03", Owner: owner, CreationBlock: 30})
	r.Upsert(domain.Kandel{Address: "0x01", Owner: owner, CreationBlock: 10})
	r.Upsert(domain.Kandel{Address: "0x02", Owner: "0xother", CreationBlock: 20})

	got := r.ListByOwner("0xFFFF000000000000000000000000000000000002")
	require.Len(t, got, 2)
	assert.Equal(t, "0x01", got[0].Address)
	assert.Equal(t, "0x03", got[1].Address)

	assert.Len(t, r.List(), 3)
	assert.Empty(t, r.ListByOwner("0xnobody"))
}
