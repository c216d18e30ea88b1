package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"routerider/internal/models"
)

func (db *DB) GetUserByPhone(ctx context.Context, phone string) (*models.User, error) {
	query := `SELECT id, phone, role, COALESCE(full_name, ''), created_at
              FROM users WHERE phone = ?`
	return db.queryUser(ctx, query, phone)
}

func (db *DB) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	query := `SELECT id, phone, role, COALESCE(full_name, ''), created_at
              FROM users WHERE id = ?`
	return db.queryUser(ctx, query, id)
}

func (db *DB) queryUser(ctx context.Context, query string, args ...interface{}) (*models.User, error) {
	var user models.User
	err := db.QueryRowContext(ctx, query, args...).Scan(
		&user.ID, &user.Phone, &user.Role, &user.FullName, &user.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query user: %w", err)
	}
	return &user, nil
}

func (db *DB) CreateUser(ctx context.Context, phone, role, fullName string) (*models.User, error) {
	now := time.Now()
	result, err := db.ExecContext(ctx,
		`INSERT INTO users (phone, role, full_name, created_at) VALUES (?, ?, NULLIF(?, ''), ?)`,
		phone, role, fullName, now,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get last insert id: %w", err)
	}
	return &models.User{ID: id, Phone: phone, Role: role, FullName: fullName, CreatedAt: now}, nil
}

// UpdateUserName fills the display name only when it is still empty; a name
// set once is never overwritten.
func (db *DB) UpdateUserName(ctx context.Context, id int64, fullName string) error {
	if fullName == "" {
		return nil
	}
	_, err := db.ExecContext(ctx,
		`UPDATE users SET full_name = ? WHERE id = ? AND (full_name IS NULL OR full_name = '')`,
		fullName, id,
	)
	if err != nil {
		return fmt.Errorf("failed to update user name: %w", err)
	}
	return nil
}

// EnsureUser returns the existing user for phone or lazily creates one with
// the given role. The stored role is never changed for an existing user.
func (db *DB) EnsureUser(ctx context.Context, phone, role, fullName string) (*models.User, error) {
	user, err := db.GetUserByPhone(ctx, phone)
	if err == nil {
		if fullName != "" && user.FullName == "" {
			if err := db.UpdateUserName(ctx, user.ID, fullName); err != nil {
				return nil, err
			}
			user.FullName = fullName
		}
		return user, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	return db.CreateUser(ctx, phone, role, fullName)
}

// UpsertDriverProfile replaces all profile fields for the user.
func (db *DB) UpsertDriverProfile(ctx context.Context, profile *models.DriverProfile) error {
	query := `INSERT INTO driver_profiles (user_id, route_from, route_to, car_model, plate, created_at)
              VALUES (?, ?, ?, ?, ?, ?)
              ON CONFLICT(user_id) DO UPDATE SET
                route_from = excluded.route_from,
                route_to = excluded.route_to,
                car_model = excluded.car_model,
                plate = excluded.plate`
	_, err := db.ExecContext(ctx, query,
		profile.UserID, profile.RouteFrom, profile.RouteTo, profile.CarModel, profile.Plate, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert driver profile: %w", err)
	}
	return nil
}

func (db *DB) GetDriverProfile(ctx context.Context, userID int64) (*models.DriverProfile, error) {
	query := `SELECT id, user_id, COALESCE(route_from, ''), COALESCE(route_to, ''),
                     COALESCE(car_model, ''), COALESCE(plate, ''), verified, created_at
              FROM driver_profiles WHERE user_id = ?`
	var p models.DriverProfile
	err := db.QueryRowContext(ctx, query, userID).Scan(
		&p.ID, &p.UserID, &p.RouteFrom, &p.RouteTo, &p.CarModel, &p.Plate, &p.Verified, &p.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get driver profile: %w", err)
	}
	return &p, nil
}
