//go:build integration

package postgres

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Simran251393/fraud-detection-system/internal/domain"
	"github.com/Simran251393/fraud-detection-system/internal/ports"
)

func setupTestRepositories(t *testing.T) Repositories {
	t.Helper()

	dbURL := os.Getenv("POSTGRES_URL")
	if dbURL == "" {
		t.Skip("POSTGRES_URL not set, skipping integration test")
	}

	ctx := context.Background()
	db, err := Connect(ctx, dbURL, 8)
	require.NoError(t, err)
	require.NoError(t, RunMigrations(ctx, db))
	require.NoError(t, db.Exec("TRUNCATE login_attempts, identities, risk_auth_outbox RESTART IDENTITY CASCADE").Error)

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return NewRepositories(db)
}

func pendingAttempt(email string, at time.Time) ports.CreateAttemptParams {
	expiresAt := at.Add(5 * time.Minute)
	return ports.CreateAttemptParams{
		Email:      email,
		Kind:       domain.AttemptKindLogin,
		IPAddress:  "198.51.100.7",
		DeviceInfo: "integration-test",
		Assessment: domain.RiskAssessment{
			Score:    10,
			Level:    domain.RiskLevelLow,
			Factors:  []string{"New device detected"},
			Location: domain.Location{City: "Berlin", Country: "Germany", Region: "Berlin"},
		},
		AuthFlow:  domain.AuthFlowPasswordless,
		ExpiresAt: &expiresAt,
		CreatedAt: at,
	}
}

func blockedAttempt(email string, at time.Time) ports.CreateAttemptParams {
	params := pendingAttempt(email, at)
	params.ExpiresAt = nil
	params.Assessment.Score = 90
	params.Assessment.Level = domain.RiskLevelHigh
	params.AuthFlow = domain.AuthFlowBlocked
	params.ResolvedFalse = true
	params.FailureReason = domain.FailureReasonHighRisk
	return params
}

func TestPostgresAttemptSupersedesExpiredPending(t *testing.T) {
	repos := setupTestRepositories(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Microsecond)

	first, superseded, err := repos.Attempts.Create(ctx, pendingAttempt("pg-supersede@example.com", now))
	require.NoError(t, err)
	assert.Nil(t, superseded)
	assert.Equal(t, domain.AttemptStatePasswordlessPending, first.State())
	assert.Equal(t, []string{"New device detected"}, first.Factors)
	assert.Equal(t, "Berlin", first.Location.City)

	_, _, err = repos.Attempts.Create(ctx, pendingAttempt("pg-supersede@example.com", now.Add(time.Minute)))
	require.ErrorIs(t, err, domain.ErrDuplicateActiveAttempt)

	second, superseded, err := repos.Attempts.Create(ctx, pendingAttempt("pg-supersede@example.com", now.Add(6*time.Minute)))
	require.NoError(t, err)
	require.NotNil(t, superseded)
	assert.Equal(t, first.ID, superseded.ID)
	assert.Equal(t, domain.FailureReasonSuperseded, superseded.FailureReason)
	assert.NotEqual(t, first.ID, second.ID)

	old, err := repos.Attempts.Get(ctx, first.ID)
	require.NoError(t, err)
	require.NotNil(t, old.Success)
	assert.False(t, *old.Success)
	require.NotNil(t, old.ResolvedAt)
	assert.True(t, old.ResolvedAt.Equal(now.Add(6*time.Minute)))
}

func TestPostgresBlockedAttemptRespectsActiveIndex(t *testing.T) {
	repos := setupTestRepositories(t)
	ctx := context.Background()
	now := time.Now().UTC()

	_, _, err := repos.Attempts.Create(ctx, pendingAttempt("pg-blocked@example.com", now))
	require.NoError(t, err)
	_, _, err = repos.Attempts.Create(ctx, blockedAttempt("pg-blocked@example.com", now))
	require.ErrorIs(t, err, domain.ErrDuplicateActiveAttempt)

	blocked, _, err := repos.Attempts.Create(ctx, blockedAttempt("pg-high@example.com", now))
	require.NoError(t, err)
	assert.Equal(t, domain.AttemptStateBlocked, blocked.State())
	assert.Equal(t, domain.FailureReasonHighRisk, blocked.FailureReason)

	_, _, err = repos.Attempts.Create(ctx, pendingAttempt("pg-high@example.com", now))
	require.NoError(t, err)

	n, err := repos.Attempts.CountBlocked(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestPostgresPendingTransitions(t *testing.T) {
	repos := setupTestRepositories(t)
	ctx := context.Background()
	now := time.Now().UTC()

	params := pendingAttempt("pg-otp@example.com", now)
	params.AuthFlow = domain.AuthFlowOTPVerification
	attempt, _, err := repos.Attempts.Create(ctx, params)
	require.NoError(t, err)

	withOTP, err := repos.Attempts.AttachOTP(ctx, attempt.ID, "$2a$04$hash", now.Add(2*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, "$2a$04$hash", withOTP.OTPCodeHash)

	failed, err := repos.Attempts.RecordOTPFailure(ctx, attempt.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, failed.OTPFailures)

	resolved, err := repos.Attempts.Resolve(ctx, attempt.ID, true, "", now.Add(time.Minute))
	require.NoError(t, err)
	assert.True(t, resolved.Succeeded())
	assert.Empty(t, resolved.OTPCodeHash)

	_, err = repos.Attempts.Resolve(ctx, attempt.ID, false, domain.FailureReasonOTPExpired, now.Add(2*time.Minute))
	assert.ErrorIs(t, err, domain.ErrAlreadyResolved)
	_, err = repos.Attempts.RecordOTPFailure(ctx, attempt.ID)
	assert.ErrorIs(t, err, domain.ErrAlreadyResolved)
	_, err = repos.Attempts.Resolve(ctx, attempt.ID+1000, true, "", now)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	devices, err := repos.Attempts.SuccessfulDevices(ctx, "pg-otp@example.com")
	require.NoError(t, err)
	assert.Equal(t, []string{"integration-test"}, devices)
}

func TestPostgresConcurrentCreateAdmitsOne(t *testing.T) {
	repos := setupTestRepositories(t)
	ctx := context.Background()
	now := time.Now().UTC()

	const workers = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		created   int
		duplicate int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := repos.Attempts.Create(ctx, pendingAttempt("pg-race@example.com", now))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				created++
			case assert.ErrorIs(t, err, domain.ErrDuplicateActiveAttempt):
				duplicate++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, created)
	assert.Equal(t, workers-1, duplicate)
}

func TestPostgresIdentityDeleteDetachesAttempts(t *testing.T) {
	repos := setupTestRepositories(t)
	ctx := context.Background()
	now := time.Now().UTC()

	identity, err := repos.Identities.Create(ctx, ports.CreateIdentityParams{Email: "pg-rollback@example.com", Name: "Rollback", CreatedAt: now})
	require.NoError(t, err)
	_, err = repos.Identities.Create(ctx, ports.CreateIdentityParams{Email: "pg-rollback@example.com", Name: "Again", CreatedAt: now})
	require.ErrorIs(t, err, domain.ErrConflict)

	params := pendingAttempt("pg-rollback@example.com", now)
	params.UserID = &identity.UserID
	attempt, _, err := repos.Attempts.Create(ctx, params)
	require.NoError(t, err)

	require.NoError(t, repos.Identities.Delete(ctx, identity.UserID))
	assert.ErrorIs(t, repos.Identities.Delete(ctx, identity.UserID), domain.ErrNotFound)
	assert.ErrorIs(t, repos.Identities.Delete(ctx, uuid.New()), domain.ErrNotFound)

	_, err = repos.Identities.GetByEmail(ctx, "pg-rollback@example.com")
	require.ErrorIs(t, err, domain.ErrNotFound)

	detached, err := repos.Attempts.Get(ctx, attempt.ID)
	require.NoError(t, err)
	assert.Nil(t, detached.UserID)

	_, err = repos.Identities.Create(ctx, ports.CreateIdentityParams{Email: "pg-rollback@example.com", Name: "Again", CreatedAt: now})
	require.NoError(t, err)
}

func TestPostgresOutboxClaimIsExclusive(t *testing.T) {
	repos := setupTestRepositories(t)
	ctx := context.Background()
	now := time.Now().UTC()

	eventID := uuid.New()
	require.NoError(t, repos.Outbox.Enqueue(ctx, ports.OutboxEvent{
		EventID:      eventID,
		EventType:    "attempt.created",
		PartitionKey: "pg-outbox@example.com",
		Payload:      []byte(`{"attempt_id":1}`),
		OccurredAt:   now,
	}))

	claimed, err := repos.Outbox.ClaimUnpublished(ctx, 10, "worker-a", now.Add(time.Minute))
	require.NoError(t, err)
	require.Len(t, claimed, 1)
	assert.Equal(t, eventID, claimed[0].OutboxID)

	again, err := repos.Outbox.ClaimUnpublished(ctx, 10, "worker-b", now.Add(time.Minute))
	require.NoError(t, err)
	assert.Empty(t, again)

	require.NoError(t, repos.Outbox.MarkPublished(ctx, eventID, "worker-a", now))
}
