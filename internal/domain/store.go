package domain

import (
	"context"
	"io"
	"time"
)

// CheckpointStore persists the indexer's last committed block per watched
// contract, so a restart resumes catch-up from there instead of block 0.
type CheckpointStore interface {
	Get(ctx context.Context, contract string) (uint64, error)
	Commit(ctx context.Context, contract string, block uint64) error
}

// BookCache stores the latest depth view per market for fast reads.
type BookCache interface {
	SetDepth(ctx context.Context, view DepthView) error
	GetDepth(ctx context.Context, marketKey string) (DepthView, error)
}

// StreamMessage is a single durable message read from the signal bus.
type StreamMessage struct {
	ID      string
	Payload []byte
}

// SignalBus is the pub/sub fabric between the indexer and the WebSocket hub.
type SignalBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
	StreamAppend(ctx context.Context, stream string, payload []byte) error
	StreamRead(ctx context.Context, stream string, lastID string, count int) ([]StreamMessage, error)
}

// RateLimiter enforces a per-key sliding-window request limit.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// BlobWriter uploads an object to blob storage.
type BlobWriter interface {
	Put(ctx context.Context, path string, data io.Reader, contentType string) error
}
