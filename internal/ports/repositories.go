package ports

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/Simran251393/fraud-detection-system/internal/domain"
)

// CreateIdentityParams carries the registration form after normalization.
type CreateIdentityParams struct {
	Email     string
	Name      string
	Phone     string
	CreatedAt time.Time
}

// IdentityRepository is the identity registry.
type IdentityRepository interface {
	Create(ctx context.Context, params CreateIdentityParams) (domain.Identity, error)
	GetByEmail(ctx context.Context, email string) (domain.Identity, error)
	GetByID(ctx context.Context, userID uuid.UUID) (domain.Identity, error)
	SetBlocked(ctx context.Context, userID uuid.UUID, blocked bool, at time.Time) (domain.Identity, error)
	// Delete removes an identity whose registration could not be completed.
	Delete(ctx context.Context, userID uuid.UUID) error
	Count(ctx context.Context) (int64, error)
	CountBlocked(ctx context.Context) (int64, error)
}

// CreateAttemptParams describes a freshly scored check.
// When Resolved is set the attempt is stored already resolved to false,
// which is how blocked attempts are written.
type CreateAttemptParams struct {
	UserID        *uuid.UUID
	Email         string
	Kind          domain.AttemptKind
	IPAddress     string
	DeviceInfo    string
	Assessment    domain.RiskAssessment
	AuthFlow      domain.AuthFlow
	ResolvedFalse bool
	FailureReason string
	ExpiresAt     *time.Time
	CreatedAt     time.Time
}

// AttemptRepository is the append-only attempt log.
//
// Create enforces at most one unresolved attempt per email atomically and
// returns domain.ErrDuplicateActiveAttempt when one exists. An unresolved
// attempt past its ExpiresAt is resolved to failure first and does not count;
// Create returns it as superseded, nil when there was none.
//
// Resolve, AttachOTP and RecordOTPFailure only act on unresolved attempts and
// return domain.ErrAlreadyResolved otherwise.
type AttemptRepository interface {
	Create(ctx context.Context, params CreateAttemptParams) (created domain.Attempt, superseded *domain.Attempt, err error)
	Resolve(ctx context.Context, attemptID int64, success bool, reason string, at time.Time) (domain.Attempt, error)
	Get(ctx context.Context, attemptID int64) (domain.Attempt, error)
	AttachOTP(ctx context.Context, attemptID int64, codeHash string, expiresAt time.Time) (domain.Attempt, error)
	RecordOTPFailure(ctx context.Context, attemptID int64) (domain.Attempt, error)
	ListRecent(ctx context.Context, limit int) ([]domain.Attempt, error)

	CountAll(ctx context.Context) (int64, error)
	CountBlocked(ctx context.Context) (int64, error)
	CountByRiskLevel(ctx context.Context) (map[domain.RiskLevel]int64, error)

	// History reads used by risk scoring.
	CountSince(ctx context.Context, email string, since time.Time) (int64, error)
	CountFailedSince(ctx context.Context, email string, since time.Time) (int64, error)
	SuccessfulDevices(ctx context.Context, email string) ([]string, error)
	LastSuccessful(ctx context.Context, email string) (*domain.Attempt, error)
}

// OutboxEvent is a domain event staged for asynchronous publishing.
type OutboxEvent struct {
	EventID      uuid.UUID
	EventType    string
	PartitionKey string
	Payload      []byte
	OccurredAt   time.Time
}

// OutboxRecord is a claimed outbox row with delivery bookkeeping.
type OutboxRecord struct {
	OutboxID       uuid.UUID
	EventType      string
	PartitionKey   string
	Payload        []byte
	RetryCount     int
	LastError      *string
	CreatedAt      time.Time
	PublishedAt    *time.Time
	LastErrorAt    *time.Time
	FirstSeenAt    time.Time
	ClaimToken     *string
	ClaimUntil     *time.Time
	DeadLetteredAt *time.Time
}

type OutboxRepository interface {
	Enqueue(ctx context.Context, event OutboxEvent) error
	ClaimUnpublished(ctx context.Context, limit int, claimToken string, claimUntil time.Time) ([]OutboxRecord, error)
	MarkPublished(ctx context.Context, outboxID uuid.UUID, claimToken string, at time.Time) error
	MarkFailed(ctx context.Context, outboxID uuid.UUID, claimToken, errMsg string, at time.Time) error
	MarkDeadLettered(ctx context.Context, outboxID uuid.UUID, claimToken, errMsg string, at time.Time) error
}
