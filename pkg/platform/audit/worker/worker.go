// Package worker relays outbox rows to Kafka. It is the only writer of
// published_at; handlers and services never talk to Kafka directly.
package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	auditpg "assent/pkg/platform/audit/store/postgres"
)

// Publisher is the sink the relay pushes payloads into.
type Publisher interface {
	Publish(ctx context.Context, key string, payload []byte) error
}

const (
	defaultPollInterval = 2 * time.Second
	defaultBatchSize    = 100
)

// Worker polls the outbox and publishes pending entries in insertion order.
// Safe to run on several instances at once: pending rows are claimed with
// SKIP LOCKED.
type Worker struct {
	store     *auditpg.Store
	publisher Publisher
	logger    *slog.Logger

	pollInterval time.Duration
	batchSize    int
}

func NewWorker(store *auditpg.Store, publisher Publisher, logger *slog.Logger) *Worker {
	return &Worker{
		store:        store,
		publisher:    publisher,
		logger:       logger,
		pollInterval: defaultPollInterval,
		batchSize:    defaultBatchSize,
	}
}

// Run relays until ctx is cancelled. Publish failures leave the batch
// unmarked; the next poll retries, so delivery is at-least-once.
func (w *Worker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := w.relayBatch(ctx); err != nil {
				w.logger.ErrorContext(ctx, "outbox relay failed", "error", err.Error())
			}
		}
	}
}

func (w *Worker) relayBatch(ctx context.Context) error {
	tx, err := w.store.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	entries, err := w.store.PendingEntries(ctx, tx, w.batchSize)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return nil
	}

	published := make([]uuid.UUID, 0, len(entries))
	for _, entry := range entries {
		if err := w.publisher.Publish(ctx, entry.AggregateID, entry.Payload); err != nil {
			// Stop at the first failure so ordering within an aggregate holds;
			// already-published entries still get marked below.
			w.logger.WarnContext(ctx, "audit publish failed, will retry",
				"outbox_id", entry.ID.String(),
				"error", err.Error(),
			)
			break
		}
		published = append(published, entry.ID)
	}

	if len(published) == 0 {
		return nil
	}
	if err := w.store.MarkPublished(ctx, tx, published, time.Now()); err != nil {
		return err
	}
	return tx.Commit()
}
