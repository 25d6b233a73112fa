package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Simran251393/fraud-detection-system/internal/domain"
	"github.com/Simran251393/fraud-detection-system/internal/ports"
)

func pendingParams(email string, at time.Time) ports.CreateAttemptParams {
	expiresAt := at.Add(5 * time.Minute)
	return ports.CreateAttemptParams{
		Email:      email,
		Kind:       domain.AttemptKindLogin,
		DeviceInfo: "ua",
		Assessment: domain.RiskAssessment{Score: 10, Level: domain.RiskLevelLow, Factors: []string{"f"}},
		AuthFlow:   domain.AuthFlowPasswordless,
		ExpiresAt:  &expiresAt,
		CreatedAt:  at,
	}
}

func TestAttemptRepositoryResolvesOnce(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := NewAttemptRepository()
	now := time.Now().UTC()

	created, _, err := repo.Create(ctx, pendingParams("a@example.com", now))
	require.NoError(t, err)
	assert.Equal(t, int64(1), created.ID)

	resolved, err := repo.Resolve(ctx, created.ID, true, "", now)
	require.NoError(t, err)
	assert.True(t, resolved.Succeeded())

	_, err = repo.Resolve(ctx, created.ID, false, "late", now)
	assert.ErrorIs(t, err, domain.ErrAlreadyResolved)
	_, err = repo.RecordOTPFailure(ctx, created.ID)
	assert.ErrorIs(t, err, domain.ErrAlreadyResolved)

	stored, err := repo.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.True(t, stored.Succeeded())
	assert.Empty(t, stored.FailureReason)

	_, err = repo.Get(ctx, 99)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestAttemptRepositorySingleActiveAttempt(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := NewAttemptRepository()
	now := time.Now().UTC()

	first, superseded, err := repo.Create(ctx, pendingParams("b@example.com", now))
	require.NoError(t, err)
	assert.Nil(t, superseded)

	_, _, err = repo.Create(ctx, pendingParams("b@example.com", now.Add(time.Minute)))
	assert.ErrorIs(t, err, domain.ErrDuplicateActiveAttempt)

	_, _, err = repo.Create(ctx, pendingParams("c@example.com", now))
	assert.NoError(t, err)

	second, superseded, err := repo.Create(ctx, pendingParams("b@example.com", now.Add(6*time.Minute)))
	require.NoError(t, err)
	require.NotNil(t, superseded)
	assert.Equal(t, first.ID, superseded.ID)
	assert.True(t, superseded.Resolved())
	assert.Equal(t, domain.FailureReasonSuperseded, superseded.FailureReason)

	old, err := repo.Get(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.FailureReasonSuperseded, old.FailureReason)
	assert.NotEqual(t, first.ID, second.ID)
}

func TestAttemptRepositoryConcurrentCreate(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := NewAttemptRepository()
	now := time.Now().UTC()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		created int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, _, err := repo.Create(ctx, pendingParams("race@example.com", now)); err == nil {
				mu.Lock()
				created++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, created)
}

func TestAttemptRepositoryBlockedAttemptIsNotActive(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := NewAttemptRepository()
	now := time.Now().UTC()

	blocked, _, err := repo.Create(ctx, ports.CreateAttemptParams{
		Email:         "d@example.com",
		Kind:          domain.AttemptKindLogin,
		Assessment:    domain.RiskAssessment{Score: 90, Level: domain.RiskLevelHigh},
		AuthFlow:      domain.AuthFlowBlocked,
		ResolvedFalse: true,
		FailureReason: domain.FailureReasonHighRisk,
		CreatedAt:     now,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.AttemptStateBlocked, blocked.State())

	_, _, err = repo.Create(ctx, pendingParams("d@example.com", now))
	assert.NoError(t, err)

	blockedCount, err := repo.CountBlocked(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), blockedCount)

	failed, err := repo.CountFailedSince(ctx, "d@example.com", now.Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), failed)
}

func TestAttemptRepositoryHistoryQueries(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := NewAttemptRepository()
	base := time.Now().UTC().Add(-time.Hour)

	for i, device := range []string{"laptop", "phone", "laptop"} {
		at := base.Add(time.Duration(i) * time.Minute)
		params := pendingParams("e@example.com", at)
		params.DeviceInfo = device
		params.Assessment.Location = domain.Location{City: device, Country: "Spain"}
		a, _, err := repo.Create(ctx, params)
		require.NoError(t, err)
		_, err = repo.Resolve(ctx, a.ID, true, "", at)
		require.NoError(t, err)
	}

	devices, err := repo.SuccessfulDevices(ctx, "e@example.com")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"laptop", "phone"}, devices)

	last, err := repo.LastSuccessful(ctx, "e@example.com")
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.Equal(t, int64(3), last.ID)

	none, err := repo.LastSuccessful(ctx, "nobody@example.com")
	require.NoError(t, err)
	assert.Nil(t, none)

	recent, err := repo.ListRecent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, int64(3), recent[0].ID)

	byLevel, err := repo.CountByRiskLevel(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), byLevel[domain.RiskLevelLow])

	since, err := repo.CountSince(ctx, "e@example.com", base.Add(30*time.Second))
	require.NoError(t, err)
	assert.Equal(t, int64(2), since)
}

func TestAttemptRepositoryOTPBookkeeping(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := NewAttemptRepository()
	now := time.Now().UTC()

	params := pendingParams("f@example.com", now)
	params.AuthFlow = domain.AuthFlowOTPVerification
	a, _, err := repo.Create(ctx, params)
	require.NoError(t, err)

	withCode, err := repo.AttachOTP(ctx, a.ID, "hash", now.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, "hash", withCode.OTPCodeHash)

	failed, err := repo.RecordOTPFailure(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, failed.OTPFailures)

	resolved, err := repo.Resolve(ctx, a.ID, false, domain.FailureReasonOTPExpired, now)
	require.NoError(t, err)
	assert.Empty(t, resolved.OTPCodeHash)
	assert.Equal(t, domain.FailureReasonOTPExpired, resolved.FailureReason)
}
