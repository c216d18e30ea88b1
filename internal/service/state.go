package service

import (
	"context"
	"time"

	"routerider/internal/domain"
	"routerider/internal/models"

	"github.com/rs/zerolog"
)

// StateService is the conversation-state facade the engine talks to.
type StateService struct {
	stateRepo domain.StateRepository
	dedupTTL  time.Duration
	logger    *zerolog.Logger
}

func NewStateService(stateRepo domain.StateRepository, logger *zerolog.Logger) *StateService {
	return &StateService{
		stateRepo: stateRepo,
		dedupTTL:  models.DedupTTL * time.Second,
		logger:    logger,
	}
}

func (s *StateService) GetContactState(ctx context.Context, contact string) (*models.ContactState, error) {
	state, err := s.stateRepo.GetState(ctx, contact)
	if err != nil {
		s.logger.Error().Err(err).Str("contact", contact).Msg("failed to get contact state")
		return nil, err
	}
	return state, nil
}

func (s *StateService) SetContactState(ctx context.Context, contact, step string) error {
	return s.stateRepo.SetState(ctx, &models.ContactState{Contact: contact, Step: step})
}

func (s *StateService) ClearContactState(ctx context.Context, contact string) error {
	return s.stateRepo.ClearState(ctx, contact)
}

func (s *StateService) CheckRateLimit(ctx context.Context, contact string, limit int, window time.Duration) (bool, error) {
	return s.stateRepo.CheckRateLimit(ctx, contact, limit, window)
}

// MarkProcessed returns false for a message id seen before.
func (s *StateService) MarkProcessed(ctx context.Context, messageID string) (bool, error) {
	return s.stateRepo.MarkProcessed(ctx, messageID, s.dedupTTL)
}
