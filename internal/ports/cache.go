package ports

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/Simran251393/fraud-detection-system/internal/domain"
)

// LockoutState is the counter envelope for a policy key.
type LockoutState struct {
	FailedCount int
	LockedUntil *time.Time
}

// LockoutStore counts policy events per key inside a sliding window.
// The block policy uses it to flag identities with repeated blocked checks.
type LockoutStore interface {
	Get(ctx context.Context, key string) (LockoutState, error)
	RecordFailure(ctx context.Context, key string, now time.Time, threshold int, window time.Duration) (LockoutState, error)
	Clear(ctx context.Context, key string) error
}

// SessionRevocationStore keeps revocation markers with token-aligned TTL.
type SessionRevocationStore interface {
	MarkRevoked(ctx context.Context, sessionID uuid.UUID, expiresAt time.Time) error
	IsRevoked(ctx context.Context, sessionID uuid.UUID) (bool, error)
}

// StatsCache holds a short-lived stats snapshot.
type StatsCache interface {
	Get() (domain.Stats, bool)
	Set(stats domain.Stats)
	Invalidate()
}
