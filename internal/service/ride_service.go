package service

import (
	"context"
	"errors"

	"routerider/internal/database"
	"routerider/internal/domain"
	"routerider/internal/events"
	"routerider/internal/matcher"
	"routerider/internal/models"

	"github.com/rs/zerolog"
)

type RideService struct {
	repo     domain.Repository
	eventBus domain.EventPublisher
	logger   *zerolog.Logger
}

func NewRideService(repo domain.Repository, eventBus domain.EventPublisher, logger *zerolog.Logger) *RideService {
	return &RideService{repo: repo, eventBus: eventBus, logger: logger}
}

// MatchResult is what a ride request produced: the stored request, plus the
// trip and booking when a match was found.
type MatchResult struct {
	Request *models.RideRequest
	Trip    *models.Trip
	Booking *models.Booking
}

func (r *MatchResult) Matched() bool {
	return r.Trip != nil && r.Booking != nil
}

// RequestRide stores the request and immediately tries to bind it to the
// best active trip on the route. The request survives either way; an
// unmatched request stays open for the periodic rematch sweep.
func (s *RideService) RequestRide(ctx context.Context, passenger *models.User, req *models.RideRequest) (*MatchResult, error) {
	req.PassengerUserID = passenger.ID

	if err := s.repo.CreateRideRequest(ctx, req); err != nil {
		return nil, err
	}

	result, err := s.tryMatch(ctx, req)
	if err != nil {
		return nil, err
	}
	if !result.Matched() {
		s.logger.Info().Int64("request_id", req.ID).Msg("no matching trip, request queued")
		s.publishUnmatched(req, passenger.Phone)
	}
	return result, nil
}

// tryMatch walks the candidates best first. A candidate that filled up or
// closed between scoring and reservation is skipped, not fatal.
func (s *RideService) tryMatch(ctx context.Context, req *models.RideRequest) (*MatchResult, error) {
	candidates, err := s.repo.FindActiveTripsByRoute(ctx, req.Origin, req.Destination)
	if err != nil {
		return nil, err
	}

	result := &MatchResult{Request: req}
	remaining := candidates
	for len(remaining) > 0 {
		best := matcher.Best(req, remaining)
		if best == nil {
			break
		}

		booking, err := s.repo.MatchRequest(ctx, req.ID, best.ID, models.DefaultSeatsPerRequest)
		switch {
		case err == nil:
			req.Matched = true
			req.MatchedTripID = best.ID
			result.Trip = best
			result.Booking = booking
			s.logger.Info().
				Int64("request_id", req.ID).
				Int64("trip_id", best.ID).
				Int64("booking_id", booking.ID).
				Msg("ride request matched")
			s.publishMatched(req, best, booking)
			return result, nil
		case errors.Is(err, database.ErrNotAvailable),
			errors.Is(err, database.ErrTripNotActive),
			errors.Is(err, database.ErrAlreadyBooked):
			remaining = without(remaining, best)
		case errors.Is(err, database.ErrAlreadyMatched):
			// A concurrent turn already served this request.
			return result, nil
		default:
			return nil, err
		}
	}
	return result, nil
}

// Rematch runs one sweep over open requests, matching what it can. Returns
// the requests matched during this sweep.
func (s *RideService) Rematch(ctx context.Context) ([]*MatchResult, error) {
	open, err := s.repo.ListUnmatchedRequests(ctx)
	if err != nil {
		return nil, err
	}

	var matched []*MatchResult
	for _, req := range open {
		result, err := s.tryMatch(ctx, req)
		if err != nil {
			s.logger.Error().Err(err).Int64("request_id", req.ID).Msg("rematch attempt failed")
			continue
		}
		if result.Matched() {
			matched = append(matched, result)
		}
	}
	return matched, nil
}

func (s *RideService) GetRideRequest(ctx context.Context, id int64) (*models.RideRequest, error) {
	return s.repo.GetRideRequest(ctx, id)
}

func (s *RideService) ListBookings(ctx context.Context, passengerID, tripID int64) ([]*models.Booking, error) {
	return s.repo.ListBookings(ctx, passengerID, tripID)
}

func (s *RideService) publishMatched(req *models.RideRequest, trip *models.Trip, booking *models.Booking) {
	if s.eventBus == nil {
		return
	}
	payload := events.MatchEventPayload{
		RequestID:   req.ID,
		TripID:      trip.ID,
		BookingID:   booking.ID,
		PassengerID: req.PassengerUserID,
		DriverPhone: trip.DriverPhone,
		Origin:      req.Origin,
		Destination: req.Destination,
		Seats:       booking.Seats,
	}
	if err := s.eventBus.PublishJSON(events.EventRideMatched, payload); err != nil {
		s.logger.Error().Err(err).Int64("request_id", req.ID).Msg("publish event error")
	}
}

func (s *RideService) publishUnmatched(req *models.RideRequest, passengerPhone string) {
	if s.eventBus == nil {
		return
	}
	payload := events.MatchEventPayload{
		RequestID:      req.ID,
		PassengerID:    req.PassengerUserID,
		PassengerPhone: passengerPhone,
		Origin:         req.Origin,
		Destination:    req.Destination,
	}
	if err := s.eventBus.PublishJSON(events.EventRideUnmatched, payload); err != nil {
		s.logger.Error().Err(err).Int64("request_id", req.ID).Msg("publish event error")
	}
}

func without(trips []*models.Trip, drop *models.Trip) []*models.Trip {
	out := trips[:0]
	for _, t := range trips {
		if t.ID != drop.ID {
			out = append(out, t)
		}
	}
	return out
}
