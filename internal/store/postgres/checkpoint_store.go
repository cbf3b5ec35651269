package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/raouf2ouf/kandled/internal/domain"
)

// CheckpointStore persists indexer checkpoints in the indexer_checkpoints
// table, keyed by lowercase contract address.
type CheckpointStore struct {
	pool *pgxpool.Pool
}

// NewCheckpointStore creates a CheckpointStore on the client's pool.
func NewCheckpointStore(client *Client) *CheckpointStore {
	return &CheckpointStore{pool: client.Pool()}
}

// Get returns the last committed block for contract, or ErrNotFound when no
// checkpoint has ever been written.
func (s *CheckpointStore) Get(ctx context.Context, contract string) (uint64, error) {
	const q = `SELECT block FROM indexer_checkpoints WHERE contract = $1`

	var block int64
	err := s.pool.QueryRow(ctx, q, domain.NormalizeAddress(contract)).Scan(&block)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("postgres: checkpoint %s: %w", contract, domain.ErrNotFound)
	}
	if err != nil {
		return 0, fmt.Errorf("postgres: get checkpoint %s: %w", contract, err)
	}
	return uint64(block), nil
}

// Commit upserts the checkpoint. GREATEST keeps the stored block monotonic
// even when two writers race.
func (s *CheckpointStore) Commit(ctx context.Context, contract string, block uint64) error {
	const q = `
		INSERT INTO indexer_checkpoints (contract, block, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (contract) DO UPDATE
		SET block = GREATEST(indexer_checkpoints.block, EXCLUDED.block),
		    updated_at = NOW()`

	if _, err := s.pool.Exec(ctx, q, domain.NormalizeAddress(contract), int64(block)); err != nil {
		return fmt.Errorf("postgres: commit checkpoint %s@%d: %w", contract, block, err)
	}
	return nil
}

var _ domain.CheckpointStore = (*CheckpointStore)(nil)
