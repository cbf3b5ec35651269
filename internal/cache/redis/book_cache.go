package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/raouf2ouf/kandled/internal/domain"
)

// defaultDepthTTL bounds how long a depth view survives without a fresh
// ingest, so consumers never render a book that stopped updating hours ago.
const defaultDepthTTL = 5 * time.Minute

// BookCache stores the latest aggregated depth view per market as a JSON
// blob under depth:{marketKey}.
type BookCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewBookCache creates a BookCache backed by the given Client. A zero ttl
// uses the default.
func NewBookCache(c *Client, ttl time.Duration) *BookCache {
	if ttl <= 0 {
		ttl = defaultDepthTTL
	}
	return &BookCache{rdb: c.Underlying(), ttl: ttl}
}

func depthKey(marketKey string) string { return "depth:" + marketKey }

// SetDepth stores the depth view for its market, refreshing the TTL.
func (bc *BookCache) SetDepth(ctx context.Context, view domain.DepthView) error {
	data, err := json.Marshal(view)
	if err != nil {
		return fmt.Errorf("redis: marshal depth %s: %w", view.MarketKey, err)
	}
	if err := bc.rdb.Set(ctx, depthKey(view.MarketKey), data, bc.ttl).Err(); err != nil {
		return fmt.Errorf("redis: set depth %s: %w", view.MarketKey, err)
	}
	return nil
}

// GetDepth returns the stored depth view for a market, or ErrNotFound when
// the market has never been ingested or its entry expired.
func (bc *BookCache) GetDepth(ctx context.Context, marketKey string) (domain.DepthView, error) {
	data, err := bc.rdb.Get(ctx, depthKey(marketKey)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.DepthView{}, fmt.Errorf("redis: depth %s: %w", marketKey, domain.ErrNotFound)
	}
	if err != nil {
		return domain.DepthView{}, fmt.Errorf("redis: get depth %s: %w", marketKey, err)
	}

	var view domain.DepthView
	if err := json.Unmarshal(data, &view); err != nil {
		return domain.DepthView{}, fmt.Errorf("redis: unmarshal depth %s: %w", marketKey, err)
	}
	return view, nil
}

// Compile-time interface check.
var _ domain.BookCache = (*BookCache)(nil)
