package repository

import (
	"context"
	"sync/atomic"
	"time"

	"routerider/internal/domain"
	"routerider/internal/models"

	"github.com/rs/zerolog"
)

const recoveryInterval = time.Minute

// FailoverStateRepository serves from the primary store until an operation
// fails, then switches to the fallback and probes the primary again after
// recoveryInterval.
type FailoverStateRepository struct {
	primary   domain.StateRepository
	fallback  domain.StateRepository
	logger    *zerolog.Logger
	isDown    atomic.Bool
	lastCheck atomic.Int64
}

func NewFailoverStateRepository(primary, fallback domain.StateRepository, logger *zerolog.Logger) *FailoverStateRepository {
	return &FailoverStateRepository{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
	}
}

func (r *FailoverStateRepository) markDown(err error) {
	r.logger.Error().Err(err).Msg("primary state store failed, switching to memory fallback")
	r.isDown.Store(true)
	r.lastCheck.Store(time.Now().UnixNano())
}

// shouldTryPrimary reports whether the next call goes to the primary: either
// it is healthy, or enough time passed to probe for recovery.
func (r *FailoverStateRepository) shouldTryPrimary() bool {
	if !r.isDown.Load() {
		return true
	}
	last := time.Unix(0, r.lastCheck.Load())
	if time.Since(last) > recoveryInterval {
		r.lastCheck.Store(time.Now().UnixNano())
		return true
	}
	return false
}

func (r *FailoverStateRepository) GetState(ctx context.Context, contact string) (*models.ContactState, error) {
	if r.shouldTryPrimary() {
		state, err := r.primary.GetState(ctx, contact)
		if err == nil {
			r.isDown.Store(false)
			return state, nil
		}
		r.markDown(err)
	}
	return r.fallback.GetState(ctx, contact)
}

func (r *FailoverStateRepository) SetState(ctx context.Context, state *models.ContactState) error {
	if r.shouldTryPrimary() {
		err := r.primary.SetState(ctx, state)
		if err == nil {
			r.isDown.Store(false)
			return nil
		}
		r.markDown(err)
	}
	return r.fallback.SetState(ctx, state)
}

func (r *FailoverStateRepository) ClearState(ctx context.Context, contact string) error {
	if r.shouldTryPrimary() {
		err := r.primary.ClearState(ctx, contact)
		if err == nil {
			r.isDown.Store(false)
			return nil
		}
		r.markDown(err)
	}
	return r.fallback.ClearState(ctx, contact)
}

func (r *FailoverStateRepository) CheckRateLimit(ctx context.Context, contact string, limit int, window time.Duration) (bool, error) {
	if r.shouldTryPrimary() {
		allowed, err := r.primary.CheckRateLimit(ctx, contact, limit, window)
		if err == nil {
			r.isDown.Store(false)
			return allowed, nil
		}
		r.markDown(err)
	}
	return r.fallback.CheckRateLimit(ctx, contact, limit, window)
}

func (r *FailoverStateRepository) MarkProcessed(ctx context.Context, messageID string, ttl time.Duration) (bool, error) {
	if r.shouldTryPrimary() {
		fresh, err := r.primary.MarkProcessed(ctx, messageID, ttl)
		if err == nil {
			r.isDown.Store(false)
			return fresh, nil
		}
		r.markDown(err)
	}
	return r.fallback.MarkProcessed(ctx, messageID, ttl)
}
