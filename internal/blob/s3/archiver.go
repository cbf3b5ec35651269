package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/raouf2ouf/kandled/internal/chain"
	"github.com/raouf2ouf/kandled/internal/domain"
)

// EventArchiver writes each catch-up batch of deployment events to blob
// storage as one JSON object per block range, giving an append-only audit
// trail independent of the in-memory registry.
type EventArchiver struct {
	writer domain.BlobWriter
	prefix string
	logger *slog.Logger
}

// NewEventArchiver creates an archiver writing under the given key prefix
// (e.g. "kandel-events").
func NewEventArchiver(writer domain.BlobWriter, prefix string, logger *slog.Logger) *EventArchiver {
	return &EventArchiver{
		writer: writer,
		prefix: strings.Trim(prefix, "/"),
		logger: logger.With(slog.String("component", "event_archiver")),
	}
}

// archivedEvent is the stored form of one deployment event.
type archivedEvent struct {
	Kandel             string `json:"kandel"`
	Owner              string `json:"owner"`
	BaseQuoteOlKeyHash string `json:"baseQuoteOlKeyHash"`
	QuoteBaseOlKeyHash string `json:"quoteBaseOlKeyHash"`
	Block              uint64 `json:"block"`
	Tx                 string `json:"tx"`
}

type archivedBatch struct {
	FromBlock uint64          `json:"from_block"`
	ToBlock   uint64          `json:"to_block"`
	Events    []archivedEvent `json:"events"`
}

// ArchiveBatch uploads the events of one scanned block range as
// {prefix}/newkandel/{from}-{to}.json.
func (a *EventArchiver) ArchiveBatch(ctx context.Context, fromBlock, toBlock uint64, events []chain.NewKandelEvent) error {
	batch := archivedBatch{
		FromBlock: fromBlock,
		ToBlock:   toBlock,
		Events:    make([]archivedEvent, 0, len(events)),
	}
	for _, ev := range events {
		batch.Events = append(batch.Events, archivedEvent{
			Kandel:             domain.NormalizeAddress(ev.Kandel.Hex()),
			Owner:              domain.NormalizeAddress(ev.Owner.Hex()),
			BaseQuoteOlKeyHash: ev.BaseQuoteOlKeyHash.Hex(),
			QuoteBaseOlKeyHash: ev.QuoteBaseOlKeyHash.Hex(),
			Block:              ev.BlockNumber,
			Tx:                 ev.TxHash.Hex(),
		})
	}

	data, err := json.Marshal(batch)
	if err != nil {
		return fmt.Errorf("s3blob: marshal event batch [%d,%d]: %w", fromBlock, toBlock, err)
	}

	key := fmt.Sprintf("%s/newkandel/%012d-%012d.json", a.prefix, fromBlock, toBlock)
	if err := a.writer.Put(ctx, key, bytes.NewReader(data), "application/json"); err != nil {
		return err
	}

	a.logger.InfoContext(ctx, "archived event batch",
		slog.String("key", key),
		slog.Int("events", len(batch.Events)))
	return nil
}
