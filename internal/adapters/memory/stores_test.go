package memory

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLockoutStoreWindow(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewLockoutStore()
	now := time.Now().UTC()

	state, err := store.RecordFailure(ctx, "block:a@example.com", now, 2, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, state.FailedCount)
	assert.Nil(t, state.LockedUntil)

	state, err = store.RecordFailure(ctx, "block:a@example.com", now.Add(time.Minute), 2, time.Hour)
	require.NoError(t, err)
	require.NotNil(t, state.LockedUntil)
	assert.Equal(t, now.Add(time.Minute).Add(time.Hour), *state.LockedUntil)

	got, err := store.Get(ctx, "block:a@example.com")
	require.NoError(t, err)
	assert.Equal(t, 2, got.FailedCount)

	state, err = store.RecordFailure(ctx, "block:a@example.com", now.Add(3*time.Hour), 2, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, state.FailedCount)
	assert.Nil(t, state.LockedUntil)

	require.NoError(t, store.Clear(ctx, "block:a@example.com"))
	got, err = store.Get(ctx, "block:a@example.com")
	require.NoError(t, err)
	assert.Zero(t, got.FailedCount)
}

func TestRevocationStoreForgetsExpiredSessions(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewRevocationStore()
	live, stale := uuid.New(), uuid.New()

	require.NoError(t, store.MarkRevoked(ctx, live, time.Now().Add(time.Hour)))
	require.NoError(t, store.MarkRevoked(ctx, stale, time.Now().Add(-time.Second)))

	revoked, err := store.IsRevoked(ctx, live)
	require.NoError(t, err)
	assert.True(t, revoked)

	revoked, err = store.IsRevoked(ctx, stale)
	require.NoError(t, err)
	assert.False(t, revoked)

	revoked, err = store.IsRevoked(ctx, uuid.New())
	require.NoError(t, err)
	assert.False(t, revoked)
}
