// Package outbox drains undelivered audit events from postgres to Kafka.
// The audit store writes outbox rows in the same transaction as the audit
// log insert, so delivery is at-least-once and survives process restarts.
package outbox

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"creditdesk/internal/audit/store"
)

// Source reads and acknowledges undelivered rows.
type Source interface {
	ListUnpublished(ctx context.Context, limit int) ([]store.OutboxRow, error)
	MarkPublished(ctx context.Context, ids []uuid.UUID, publishedAt time.Time) error
}

// Producer publishes one audit event payload. Keyed by event ID so consumers
// can deduplicate replays.
type Producer interface {
	Produce(ctx context.Context, key string, payload []byte) error
}

// Worker polls the outbox and publishes pending rows.
type Worker struct {
	source    Source
	producer  Producer
	logger    *slog.Logger
	interval  time.Duration
	batchSize int
}

func NewWorker(source Source, producer Producer, logger *slog.Logger, interval time.Duration, batchSize int) *Worker {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	if batchSize <= 0 {
		batchSize = 100
	}
	return &Worker{
		source:    source,
		producer:  producer,
		logger:    logger,
		interval:  interval,
		batchSize: batchSize,
	}
}

// Run polls until the context is cancelled. Publish failures are logged and
// retried on the next tick; rows stay unpublished until produced.
func (w *Worker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := w.drain(ctx); err != nil && ctx.Err() == nil {
				w.logger.ErrorContext(ctx, "outbox drain failed", "error", err)
			}
		}
	}
}

func (w *Worker) drain(ctx context.Context) error {
	rows, err := w.source.ListUnpublished(ctx, w.batchSize)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return nil
	}

	published := make([]uuid.UUID, 0, len(rows))
	for _, row := range rows {
		if err := w.producer.Produce(ctx, row.ID.String(), row.Payload); err != nil {
			// Stop the batch; the remaining rows keep their order on retry.
			w.logger.WarnContext(ctx, "audit event publish failed",
				"event_id", row.ID.String(),
				"error", err,
			)
			break
		}
		published = append(published, row.ID)
	}
	if len(published) == 0 {
		return nil
	}
	return w.source.MarkPublished(ctx, published, time.Now().UTC())
}
