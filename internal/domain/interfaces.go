package domain

import (
	"context"
	"time"

	"routerider/internal/models"
)

// Repository is the durable entity store consumed by the engine and API.
type Repository interface {
	GetUserByPhone(ctx context.Context, phone string) (*models.User, error)
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
	CreateUser(ctx context.Context, phone, role, fullName string) (*models.User, error)
	EnsureUser(ctx context.Context, phone, role, fullName string) (*models.User, error)
	UpdateUserName(ctx context.Context, id int64, fullName string) error
	UpsertDriverProfile(ctx context.Context, profile *models.DriverProfile) error
	GetDriverProfile(ctx context.Context, userID int64) (*models.DriverProfile, error)

	CreateTrip(ctx context.Context, trip *models.Trip) error
	GetTrip(ctx context.Context, id int64) (*models.Trip, error)
	ListTrips(ctx context.Context, filter models.TripFilter) ([]*models.Trip, error)
	FindActiveTripsByRoute(ctx context.Context, origin, destination string) ([]*models.Trip, error)
	SetTripStatus(ctx context.Context, tripID, ownerID int64, status string) (bool, error)
	ReserveSeats(ctx context.Context, tripID int64, seats int) (bool, error)
	ReleaseSeats(ctx context.Context, tripID int64, seats int) error

	CreateBooking(ctx context.Context, booking *models.Booking) error
	GetBooking(ctx context.Context, id int64) (*models.Booking, error)
	ListBookings(ctx context.Context, passengerID, tripID int64) ([]*models.Booking, error)
	UpdateBookingStatus(ctx context.Context, id int64, status string) (*models.Booking, error)
	BookSeats(ctx context.Context, tripID, passengerID int64, seats int) (*models.Booking, error)

	CreateRideRequest(ctx context.Context, req *models.RideRequest) error
	GetRideRequest(ctx context.Context, id int64) (*models.RideRequest, error)
	ListUnmatchedRequests(ctx context.Context) ([]*models.RideRequest, error)
	MatchRequest(ctx context.Context, requestID, tripID int64, seats int) (*models.Booking, error)

	DriverStats(ctx context.Context, driverUserID int64) (*models.DriverStats, error)
	PassengerStats(ctx context.Context, passengerUserID int64) (*models.PassengerStats, error)
}

// StateRepository stores per-contact conversation state plus the inbound
// rate-limit and dedup bookkeeping that lives next to it.
type StateRepository interface {
	GetState(ctx context.Context, contact string) (*models.ContactState, error)
	SetState(ctx context.Context, state *models.ContactState) error
	ClearState(ctx context.Context, contact string) error
	CheckRateLimit(ctx context.Context, contact string, limit int, window time.Duration) (bool, error)
	// MarkProcessed records a gateway message id; false means it was seen
	// before and the delivery must be skipped.
	MarkProcessed(ctx context.Context, messageID string, ttl time.Duration) (bool, error)
}

// StateManager is the service-level view of conversation state.
type StateManager interface {
	GetContactState(ctx context.Context, contact string) (*models.ContactState, error)
	SetContactState(ctx context.Context, contact, step string) error
	ClearContactState(ctx context.Context, contact string) error
	CheckRateLimit(ctx context.Context, contact string, limit int, window time.Duration) (bool, error)
	MarkProcessed(ctx context.Context, messageID string) (bool, error)
}

// Notifier delivers outbound text messages. Fire-and-forget: transport
// failures are logged by the implementation, not surfaced to callers.
type Notifier interface {
	Notify(ctx context.Context, recipient, text string)
}

// EventPublisher publishes domain events for in-process subscribers.
type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}
