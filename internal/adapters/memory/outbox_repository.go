package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Simran251393/fraud-detection-system/internal/ports"
)

// OutboxRepository claims records in enqueue order.
type OutboxRepository struct {
	mu      sync.Mutex
	records map[uuid.UUID]*ports.OutboxRecord
	order   []uuid.UUID
}

func NewOutboxRepository() *OutboxRepository {
	return &OutboxRepository{records: make(map[uuid.UUID]*ports.OutboxRecord)}
}

func (r *OutboxRepository) Enqueue(_ context.Context, event ports.OutboxEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.records[event.EventID]; exists {
		return fmt.Errorf("outbox event %s already enqueued", event.EventID)
	}
	r.order = append(r.order, event.EventID)
	r.records[event.EventID] = &ports.OutboxRecord{
		OutboxID:     event.EventID,
		EventType:    event.EventType,
		PartitionKey: event.PartitionKey,
		Payload:      event.Payload,
		CreatedAt:    event.OccurredAt,
		FirstSeenAt:  event.OccurredAt,
	}
	return nil
}

func (r *OutboxRepository) ClaimUnpublished(_ context.Context, limit int, claimToken string, claimUntil time.Time) ([]ports.OutboxRecord, error) {
	if limit <= 0 {
		return nil, nil
	}
	if claimToken == "" {
		return nil, fmt.Errorf("claim token is required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	candidates := make([]*ports.OutboxRecord, 0)
	for _, id := range r.order {
		rec := r.records[id]
		if rec.PublishedAt != nil || rec.DeadLetteredAt != nil {
			continue
		}
		if rec.ClaimUntil != nil && !rec.ClaimUntil.Before(now) {
			continue
		}
		candidates = append(candidates, rec)
	}
	if len(candidates) > limit {
		candidates = candidates[:limit]
	}

	out := make([]ports.OutboxRecord, 0, len(candidates))
	for _, rec := range candidates {
		token := claimToken
		until := claimUntil
		rec.ClaimToken = &token
		rec.ClaimUntil = &until
		out = append(out, *rec)
	}
	return out, nil
}

func (r *OutboxRepository) MarkPublished(_ context.Context, outboxID uuid.UUID, claimToken string, at time.Time) error {
	return r.update(outboxID, claimToken, func(rec *ports.OutboxRecord) {
		rec.PublishedAt = &at
	})
}

func (r *OutboxRepository) MarkFailed(_ context.Context, outboxID uuid.UUID, claimToken, errMsg string, at time.Time) error {
	return r.update(outboxID, claimToken, func(rec *ports.OutboxRecord) {
		rec.RetryCount++
		rec.LastError = &errMsg
		rec.LastErrorAt = &at
	})
}

func (r *OutboxRepository) MarkDeadLettered(_ context.Context, outboxID uuid.UUID, claimToken, errMsg string, at time.Time) error {
	return r.update(outboxID, claimToken, func(rec *ports.OutboxRecord) {
		rec.RetryCount++
		rec.LastError = &errMsg
		rec.LastErrorAt = &at
		rec.DeadLetteredAt = &at
	})
}

// Pending reports records not yet published or dead-lettered.
func (r *OutboxRepository) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for _, id := range r.order {
		rec := r.records[id]
		if rec.PublishedAt == nil && rec.DeadLetteredAt == nil {
			n++
		}
	}
	return n
}

// EventTypes lists the types of every record in enqueue order.
func (r *OutboxRepository) EventTypes() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]string, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.records[id].EventType)
	}
	return out
}

func (r *OutboxRepository) update(outboxID uuid.UUID, claimToken string, apply func(*ports.OutboxRecord)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[outboxID]
	if !ok || rec.ClaimToken == nil || *rec.ClaimToken != claimToken {
		return nil
	}
	apply(rec)
	rec.ClaimToken = nil
	rec.ClaimUntil = nil
	return nil
}
