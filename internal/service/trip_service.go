package service

import (
	"context"

	"routerider/internal/domain"
	"routerider/internal/events"
	"routerider/internal/models"

	"github.com/rs/zerolog"
)

type TripService struct {
	repo     domain.Repository
	eventBus domain.EventPublisher
	logger   *zerolog.Logger
}

func NewTripService(repo domain.Repository, eventBus domain.EventPublisher, logger *zerolog.Logger) *TripService {
	return &TripService{repo: repo, eventBus: eventBus, logger: logger}
}

// PostTrip stores a new active trip for the driver and announces it on the
// event bus.
func (s *TripService) PostTrip(ctx context.Context, driver *models.User, trip *models.Trip) error {
	if driver.Role != models.RoleDriver {
		return ErrNotDriver
	}
	trip.DriverUserID = driver.ID

	if err := s.repo.CreateTrip(ctx, trip); err != nil {
		return err
	}

	s.logger.Info().
		Int64("trip_id", trip.ID).
		Int64("driver_id", driver.ID).
		Str("route", trip.Origin+" - "+trip.Destination).
		Msg("trip posted")

	s.publishTripEvent(events.EventTripPosted, trip, driver.Phone)
	return nil
}

// CompleteTrip marks the trip completed. Only the posting driver may do
// this; a missing trip and a foreign trip fail the same way.
func (s *TripService) CompleteTrip(ctx context.Context, driver *models.User, tripID int64) (*models.Trip, error) {
	if driver.Role != models.RoleDriver {
		return nil, ErrNotDriver
	}

	changed, err := s.repo.SetTripStatus(ctx, tripID, driver.ID, models.TripStatusCompleted)
	if err != nil {
		return nil, err
	}
	if !changed {
		return nil, ErrNotOwner
	}

	trip, err := s.repo.GetTrip(ctx, tripID)
	if err != nil {
		return nil, err
	}

	s.logger.Info().Int64("trip_id", tripID).Int64("driver_id", driver.ID).Msg("trip completed")
	s.publishTripEvent(events.EventTripCompleted, trip, driver.Phone)
	return trip, nil
}

func (s *TripService) GetTrip(ctx context.Context, id int64) (*models.Trip, error) {
	return s.repo.GetTrip(ctx, id)
}

func (s *TripService) ListTrips(ctx context.Context, filter models.TripFilter) ([]*models.Trip, error) {
	return s.repo.ListTrips(ctx, filter)
}

func (s *TripService) publishTripEvent(eventType string, trip *models.Trip, driverPhone string) {
	if s.eventBus == nil {
		return
	}
	payload := events.TripEventPayload{
		TripID:      trip.ID,
		DriverID:    trip.DriverUserID,
		DriverPhone: driverPhone,
		Origin:      trip.Origin,
		Destination: trip.Destination,
		TripTime:    trip.TripTime,
		SeatsLeft:   trip.SeatsLeft(),
	}
	if trip.HasDate() {
		payload.TripDate = trip.TripDate.Format("2006-01-02")
	}
	if err := s.eventBus.PublishJSON(eventType, payload); err != nil {
		s.logger.Error().Err(err).Str("event_type", eventType).Int64("trip_id", trip.ID).Msg("publish event error")
	}
}
