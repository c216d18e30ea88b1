package service

import (
	"context"
	"errors"

	"routerider/internal/database"
	"routerider/internal/domain"
	"routerider/internal/models"

	"github.com/rs/zerolog"
)

type UserService struct {
	repo   domain.Repository
	logger *zerolog.Logger
}

func NewUserService(repo domain.Repository, logger *zerolog.Logger) *UserService {
	return &UserService{repo: repo, logger: logger}
}

func (s *UserService) GetByPhone(ctx context.Context, phone string) (*models.User, error) {
	return s.repo.GetUserByPhone(ctx, phone)
}

// RegisterDriver creates or re-registers a driver and stores the vehicle
// profile. A phone already registered as a passenger is refused; roles are
// immutable once assigned. Re-registration by an existing driver just
// refreshes the profile.
func (s *UserService) RegisterDriver(ctx context.Context, phone, name, routeFrom, routeTo, carModel, plate string) (*models.User, error) {
	user, err := s.repo.GetUserByPhone(ctx, phone)
	switch {
	case err == nil:
		if user.Role != models.RoleDriver {
			return nil, ErrRoleConflict
		}
		if name != "" && user.FullName == "" {
			if err := s.repo.UpdateUserName(ctx, user.ID, name); err != nil {
				return nil, err
			}
			user.FullName = name
		}
	case errors.Is(err, database.ErrNotFound):
		user, err = s.repo.CreateUser(ctx, phone, models.RoleDriver, name)
		if err != nil {
			return nil, err
		}
	default:
		return nil, err
	}

	profile := &models.DriverProfile{
		UserID:    user.ID,
		RouteFrom: routeFrom,
		RouteTo:   routeTo,
		CarModel:  carModel,
		Plate:     plate,
	}
	if err := s.repo.UpsertDriverProfile(ctx, profile); err != nil {
		return nil, err
	}

	s.logger.Info().Int64("user_id", user.ID).Str("phone", phone).Msg("driver registered")
	return user, nil
}

// EnsurePassenger returns the user for phone, creating a passenger record on
// first contact. An existing driver stays a driver.
func (s *UserService) EnsurePassenger(ctx context.Context, phone string) (*models.User, error) {
	return s.repo.EnsureUser(ctx, phone, models.RolePassenger, "")
}

func (s *UserService) DriverStats(ctx context.Context, userID int64) (*models.DriverStats, error) {
	return s.repo.DriverStats(ctx, userID)
}

func (s *UserService) PassengerStats(ctx context.Context, userID int64) (*models.PassengerStats, error) {
	return s.repo.PassengerStats(ctx, userID)
}
