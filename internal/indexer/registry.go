// Package indexer maintains the registry of deployed Kandel instances by
// merging a bounded historical backfill with a live log subscription, and
// enriches each discovered instance with reserve-balance and approval reads.
package indexer

import (
	"sort"
	"sync"
	"time"

	"github.com/raouf2ouf/kandled/internal/domain"
)

// Registry is the single in-memory store of discovered instances. The
// indexer is its only writer; HTTP handlers and the WS hub read it. Every
// mutation is an idempotent upsert keyed by lowercase instance address, so
// replaying catch-up and live deliveries in any order converges to the same
// state.
type Registry struct {
	mu      sync.RWMutex
	byAddr  map[string]domain.Kandel
	nowFunc func() time.Time
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		byAddr:  make(map[string]domain.Kandel),
		nowFunc: func() time.Time { return time.Now().UTC() },
	}
}

// Upsert inserts or merges an instance and reports whether it was newly
// created. Merging never regresses enrichment: a nil enrichment field on the
// incoming value keeps whatever an earlier enrichment stored, so a bare
// re-observation of the creation event is a no-op for enriched entries.
func (r *Registry) Upsert(k domain.Kandel) (created bool) {
	addr := domain.NormalizeAddress(k.Address)
	k.Address = addr
	k.Owner = domain.NormalizeAddress(k.Owner)

	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.nowFunc()
	existing, ok := r.byAddr[addr]
	if !ok {
		k.FirstSeenAt = now
		k.UpdatedAt = now
		r.byAddr[addr] = k
		return true
	}

	merged := existing
	if k.BaseReserve != nil {
		merged.BaseReserve = k.BaseReserve
	}
	if k.QuoteReserve != nil {
		merged.QuoteReserve = k.QuoteReserve
	}
	if k.NeedsBaseApproval != nil {
		merged.NeedsBaseApproval = k.NeedsBaseApproval
	}
	if k.NeedsQuoteApproval != nil {
		merged.NeedsQuoteApproval = k.NeedsQuoteApproval
	}
	if k.Params != nil {
		merged.Params = k.Params
	}
	if k.TickOffset != nil {
		merged.TickOffset = k.TickOffset
	}
	merged.UpdatedAt = now
	r.byAddr[addr] = merged
	return false
}

// Get returns the instance at address, if known.
func (r *Registry) Get(address string) (domain.Kandel, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	k, ok := r.byAddr[domain.NormalizeAddress(address)]
	return k, ok
}

// ListByOwner returns all instances deployed by owner, ordered by creation
// block.
func (r *Registry) ListByOwner(owner string) []domain.Kandel {
	owner = domain.NormalizeAddress(owner)

	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []domain.Kandel
	for _, k := range r.byAddr {
		if k.Owner == owner {
			out = append(out, k)
		}
	}
	sortKandels(out)
	return out
}

// List returns every known instance, ordered by creation block.
func (r *Registry) List() []domain.Kandel {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.Kandel, 0, len(r.byAddr))
	for _, k := range r.byAddr {
		out = append(out, k)
	}
	sortKandels(out)
	return out
}

// Len returns the number of known instances.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byAddr)
}

func sortKandels(ks []domain.Kandel) {
	sort.Slice(ks, func(i, j int) bool {
		if ks[i].CreationBlock != ks[j].CreationBlock {
			return ks[i].CreationBlock < ks[j].CreationBlock
		}
		return ks[i].Address < ks[j].Address
	})
}

var _ domain.Registry = (*Registry)(nil)
