package events

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Simran251393/fraud-detection-system/internal/ports"
)

// OutboxWorkerConfig tunes the relay loop.
type OutboxWorkerConfig struct {
	Interval   time.Duration
	BatchSize  int
	ClaimTTL   time.Duration
	MaxRetries int
}

// OutboxWorker relays committed outbox records to the event publisher.
type OutboxWorker struct {
	logger    *slog.Logger
	outbox    ports.OutboxRepository
	publisher ports.EventPublisher
	cfg       OutboxWorkerConfig
	nowFn     func() time.Time
}

func NewOutboxWorker(logger *slog.Logger, outbox ports.OutboxRepository, publisher ports.EventPublisher, cfg OutboxWorkerConfig) *OutboxWorker {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 2 * time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if cfg.ClaimTTL <= 0 {
		cfg.ClaimTTL = 30 * time.Second
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 5
	}
	return &OutboxWorker{
		logger:    logger.With("service", serviceName, "module", "events.outbox_worker", "layer", "adapter"),
		outbox:    outbox,
		publisher: publisher,
		cfg:       cfg,
		nowFn:     func() time.Time { return time.Now().UTC() },
	}
}

// Run relays batches until ctx is cancelled.
func (w *OutboxWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.cfg.Interval)
	defer ticker.Stop()

	for {
		if _, err := w.ProcessOnce(ctx); err != nil {
			w.logger.ErrorContext(ctx, "outbox iteration failed",
				"operation", "outbox_process_once",
				"outcome", "failure",
				"error", err,
			)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// BatchResult summarizes one relay pass.
type BatchResult struct {
	Claimed      int
	Published    int
	Failed       int
	DeadLettered int
}

// ProcessOnce claims one batch and attempts delivery of each record.
func (w *OutboxWorker) ProcessOnce(ctx context.Context) (BatchResult, error) {
	claimToken := uuid.NewString()
	records, err := w.outbox.ClaimUnpublished(ctx, w.cfg.BatchSize, claimToken, w.nowFn().Add(w.cfg.ClaimTTL))
	if err != nil {
		return BatchResult{}, err
	}

	result := BatchResult{Claimed: len(records)}
	for _, rec := range records {
		now := w.nowFn()
		if rec.RetryCount >= w.cfg.MaxRetries {
			result.DeadLettered++
			w.mark(ctx, rec, "dead_letter", w.outbox.MarkDeadLettered(ctx, rec.OutboxID, claimToken, "retry threshold reached before publish", now))
			continue
		}

		if err := w.publisher.Publish(ctx, rec.EventType, rec.PartitionKey, rec.Payload); err != nil {
			result.Failed++
			retries := rec.RetryCount + 1
			if retries >= w.cfg.MaxRetries {
				result.DeadLettered++
				w.logger.ErrorContext(ctx, "outbox message moved to dlq",
					"operation", "publish_event",
					"outcome", "failure",
					"outbox_id", rec.OutboxID,
					"event_type", rec.EventType,
					"retry_count", retries,
					"error", err,
				)
				w.mark(ctx, rec, "dead_letter", w.outbox.MarkDeadLettered(ctx, rec.OutboxID, claimToken, err.Error(), now))
				continue
			}

			w.logger.WarnContext(ctx, "outbox publish failed; retry scheduled",
				"operation", "publish_event",
				"outcome", "failure",
				"outbox_id", rec.OutboxID,
				"event_type", rec.EventType,
				"retry_count", retries,
				"error", err,
			)
			w.mark(ctx, rec, "failed", w.outbox.MarkFailed(ctx, rec.OutboxID, claimToken, err.Error(), now))
			continue
		}
		result.Published++
		w.mark(ctx, rec, "published", w.outbox.MarkPublished(ctx, rec.OutboxID, claimToken, now))
	}

	if result.Claimed > 0 {
		w.logger.InfoContext(ctx, "outbox batch processed",
			"operation", "outbox_process_once",
			"outcome", "success",
			"batch_size", result.Claimed,
			"published_count", result.Published,
			"failed_count", result.Failed,
			"dead_lettered_count", result.DeadLettered,
		)
	}
	return result, nil
}

func (w *OutboxWorker) mark(ctx context.Context, rec ports.OutboxRecord, state string, err error) {
	if err == nil {
		return
	}
	w.logger.WarnContext(ctx, "outbox bookkeeping update failed",
		"operation", "mark_"+state,
		"outcome", "failure",
		"outbox_id", rec.OutboxID,
		"error", err,
	)
}
