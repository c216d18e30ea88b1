package service

import (
	"context"
	"time"

	"routerider/internal/models"

	"github.com/stretchr/testify/mock"
)

type mockRepo struct {
	mock.Mock
}

func (m *mockRepo) GetUserByPhone(ctx context.Context, phone string) (*models.User, error) {
	args := m.Called(ctx, phone)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}
func (m *mockRepo) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}
func (m *mockRepo) CreateUser(ctx context.Context, phone, role, fullName string) (*models.User, error) {
	args := m.Called(ctx, phone, role, fullName)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}
func (m *mockRepo) EnsureUser(ctx context.Context, phone, role, fullName string) (*models.User, error) {
	args := m.Called(ctx, phone, role, fullName)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}
func (m *mockRepo) UpdateUserName(ctx context.Context, id int64, fullName string) error {
	return m.Called(ctx, id, fullName).Error(0)
}
func (m *mockRepo) UpsertDriverProfile(ctx context.Context, profile *models.DriverProfile) error {
	return m.Called(ctx, profile).Error(0)
}
func (m *mockRepo) GetDriverProfile(ctx context.Context, userID int64) (*models.DriverProfile, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.DriverProfile), args.Error(1)
}

func (m *mockRepo) CreateTrip(ctx context.Context, trip *models.Trip) error {
	return m.Called(ctx, trip).Error(0)
}
func (m *mockRepo) GetTrip(ctx context.Context, id int64) (*models.Trip, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Trip), args.Error(1)
}
func (m *mockRepo) ListTrips(ctx context.Context, filter models.TripFilter) ([]*models.Trip, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Trip), args.Error(1)
}
func (m *mockRepo) FindActiveTripsByRoute(ctx context.Context, origin, destination string) ([]*models.Trip, error) {
	args := m.Called(ctx, origin, destination)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Trip), args.Error(1)
}
func (m *mockRepo) SetTripStatus(ctx context.Context, tripID, ownerID int64, status string) (bool, error) {
	args := m.Called(ctx, tripID, ownerID, status)
	return args.Bool(0), args.Error(1)
}
func (m *mockRepo) ReserveSeats(ctx context.Context, tripID int64, seats int) (bool, error) {
	args := m.Called(ctx, tripID, seats)
	return args.Bool(0), args.Error(1)
}
func (m *mockRepo) ReleaseSeats(ctx context.Context, tripID int64, seats int) error {
	return m.Called(ctx, tripID, seats).Error(0)
}

func (m *mockRepo) CreateBooking(ctx context.Context, booking *models.Booking) error {
	return m.Called(ctx, booking).Error(0)
}
func (m *mockRepo) GetBooking(ctx context.Context, id int64) (*models.Booking, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Booking), args.Error(1)
}
func (m *mockRepo) ListBookings(ctx context.Context, passengerID, tripID int64) ([]*models.Booking, error) {
	args := m.Called(ctx, passengerID, tripID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Booking), args.Error(1)
}
func (m *mockRepo) UpdateBookingStatus(ctx context.Context, id int64, status string) (*models.Booking, error) {
	args := m.Called(ctx, id, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Booking), args.Error(1)
}
func (m *mockRepo) BookSeats(ctx context.Context, tripID, passengerID int64, seats int) (*models.Booking, error) {
	args := m.Called(ctx, tripID, passengerID, seats)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Booking), args.Error(1)
}

func (m *mockRepo) CreateRideRequest(ctx context.Context, req *models.RideRequest) error {
	return m.Called(ctx, req).Error(0)
}
func (m *mockRepo) GetRideRequest(ctx context.Context, id int64) (*models.RideRequest, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.RideRequest), args.Error(1)
}
func (m *mockRepo) ListUnmatchedRequests(ctx context.Context) ([]*models.RideRequest, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.RideRequest), args.Error(1)
}
func (m *mockRepo) MatchRequest(ctx context.Context, requestID, tripID int64, seats int) (*models.Booking, error) {
	args := m.Called(ctx, requestID, tripID, seats)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Booking), args.Error(1)
}

func (m *mockRepo) DriverStats(ctx context.Context, driverUserID int64) (*models.DriverStats, error) {
	args := m.Called(ctx, driverUserID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.DriverStats), args.Error(1)
}
func (m *mockRepo) PassengerStats(ctx context.Context, passengerUserID int64) (*models.PassengerStats, error) {
	args := m.Called(ctx, passengerUserID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PassengerStats), args.Error(1)
}

type mockStateRepo struct {
	mock.Mock
}

func (m *mockStateRepo) GetState(ctx context.Context, contact string) (*models.ContactState, error) {
	args := m.Called(ctx, contact)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ContactState), args.Error(1)
}
func (m *mockStateRepo) SetState(ctx context.Context, state *models.ContactState) error {
	return m.Called(ctx, state).Error(0)
}
func (m *mockStateRepo) ClearState(ctx context.Context, contact string) error {
	return m.Called(ctx, contact).Error(0)
}
func (m *mockStateRepo) CheckRateLimit(ctx context.Context, contact string, limit int, window time.Duration) (bool, error) {
	args := m.Called(ctx, contact, limit, window)
	return args.Bool(0), args.Error(1)
}
func (m *mockStateRepo) MarkProcessed(ctx context.Context, messageID string, ttl time.Duration) (bool, error) {
	args := m.Called(ctx, messageID, ttl)
	return args.Bool(0), args.Error(1)
}
