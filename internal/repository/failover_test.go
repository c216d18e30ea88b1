package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"routerider/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingStateRepository struct {
	err error
}

func (f *failingStateRepository) GetState(ctx context.Context, contact string) (*models.ContactState, error) {
	return nil, f.err
}

func (f *failingStateRepository) SetState(ctx context.Context, state *models.ContactState) error {
	return f.err
}

func (f *failingStateRepository) ClearState(ctx context.Context, contact string) error {
	return f.err
}

func (f *failingStateRepository) CheckRateLimit(ctx context.Context, contact string, limit int, window time.Duration) (bool, error) {
	return false, f.err
}

func (f *failingStateRepository) MarkProcessed(ctx context.Context, messageID string, ttl time.Duration) (bool, error) {
	return false, f.err
}

func TestFailover_UsesFallbackWhenPrimaryFails(t *testing.T) {
	primary := &failingStateRepository{err: errors.New("connection refused")}
	fallback := NewMemoryStateRepository(time.Hour)
	logger := zerolog.Nop()

	repo := NewFailoverStateRepository(primary, fallback, &logger)
	ctx := context.Background()

	state := &models.ContactState{Contact: "233200000001", Step: models.StateAwaitingTripDetails}
	require.NoError(t, repo.SetState(ctx, state))

	got, err := repo.GetState(ctx, "233200000001")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, models.StateAwaitingTripDetails, got.Step)

	fresh, err := repo.MarkProcessed(ctx, "wamid.x", time.Hour)
	require.NoError(t, err)
	assert.True(t, fresh)

	fresh, err = repo.MarkProcessed(ctx, "wamid.x", time.Hour)
	require.NoError(t, err)
	assert.False(t, fresh)
}

func TestFailover_PrefersHealthyPrimary(t *testing.T) {
	primary := NewMemoryStateRepository(time.Hour)
	fallback := NewMemoryStateRepository(time.Hour)
	logger := zerolog.Nop()

	repo := NewFailoverStateRepository(primary, fallback, &logger)
	ctx := context.Background()

	state := &models.ContactState{Contact: "233200000002", Step: models.StateAwaitingRideRequest}
	require.NoError(t, repo.SetState(ctx, state))

	// The write landed on the primary, not the fallback.
	got, err := primary.GetState(ctx, "233200000002")
	require.NoError(t, err)
	require.NotNil(t, got)

	got, err = fallback.GetState(ctx, "233200000002")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestFailover_StaysDownWithinRecoveryWindow(t *testing.T) {
	primary := &failingStateRepository{err: errors.New("down")}
	fallback := NewMemoryStateRepository(time.Hour)
	logger := zerolog.Nop()

	repo := NewFailoverStateRepository(primary, fallback, &logger)
	ctx := context.Background()

	// First call trips the breaker.
	_, err := repo.GetState(ctx, "233200000003")
	require.NoError(t, err)
	assert.True(t, repo.isDown.Load())

	// Subsequent calls inside the window go straight to the fallback.
	require.NoError(t, repo.SetState(ctx, &models.ContactState{Contact: "233200000003", Step: "x"}))
	got, err := repo.GetState(ctx, "233200000003")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, repo.isDown.Load())
}
