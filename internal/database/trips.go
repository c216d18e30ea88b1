package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"routerider/internal/models"
)

const tripColumns = `t.id, t.driver_user_id, t.origin, t.destination,
                     COALESCE(t.trip_date, ''), COALESCE(t.trip_time, ''),
                     t.seats_total, t.seats_booked, t.price_per_seat, t.status, t.created_at,
                     COALESCE(u.full_name, 'Driver'), u.phone`

func (db *DB) CreateTrip(ctx context.Context, trip *models.Trip) error {
	query := `INSERT INTO trips (
                driver_user_id, origin, destination, trip_date, trip_time,
                seats_total, seats_booked, price_per_seat, status, created_at
              ) VALUES (?, ?, ?, NULLIF(?, ''), NULLIF(?, ''), ?, 0, ?, ?, ?)`
	now := time.Now()
	if trip.Status == "" {
		trip.Status = models.TripStatusActive
	}
	result, err := db.ExecContext(ctx, query,
		trip.DriverUserID, trip.Origin, trip.Destination,
		formatDate(trip.TripDate), trip.TripTime,
		trip.SeatsTotal, trip.PricePerSeat, trip.Status, now,
	)
	if err != nil {
		return fmt.Errorf("failed to create trip: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	trip.ID = id
	trip.SeatsBooked = 0
	trip.CreatedAt = now
	return nil
}

func (db *DB) GetTrip(ctx context.Context, id int64) (*models.Trip, error) {
	query := `SELECT ` + tripColumns + `
              FROM trips t JOIN users u ON u.id = t.driver_user_id
              WHERE t.id = ?`
	row := db.QueryRowContext(ctx, query, id)
	trip, err := scanTrip(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get trip: %w", err)
	}
	return trip, nil
}

// ListTrips returns trips matching the filter, newest first.
func (db *DB) ListTrips(ctx context.Context, filter models.TripFilter) ([]*models.Trip, error) {
	query := `SELECT ` + tripColumns + `
              FROM trips t JOIN users u ON u.id = t.driver_user_id WHERE 1=1`
	var args []interface{}

	if filter.Status != "" {
		query += ` AND t.status = ?`
		args = append(args, filter.Status)
	}
	if filter.Origin != "" {
		query += ` AND LOWER(t.origin) = LOWER(?)`
		args = append(args, filter.Origin)
	}
	if filter.Destination != "" {
		query += ` AND LOWER(t.destination) = LOWER(?)`
		args = append(args, filter.Destination)
	}
	if !filter.Date.IsZero() {
		query += ` AND t.trip_date = ?`
		args = append(args, formatDate(filter.Date))
	}

	limit := filter.Limit
	if limit <= 0 || limit > models.DefaultListLimit {
		limit = models.DefaultListLimit
	}
	query += ` ORDER BY t.created_at DESC LIMIT ?`
	args = append(args, limit)

	return db.queryTrips(ctx, query, args...)
}

// FindActiveTripsByRoute returns active trips with seats left on the route,
// compared case-insensitively, oldest first so matching is deterministic.
func (db *DB) FindActiveTripsByRoute(ctx context.Context, origin, destination string) ([]*models.Trip, error) {
	query := `SELECT ` + tripColumns + `
              FROM trips t JOIN users u ON u.id = t.driver_user_id
              WHERE t.status = ?
                AND LOWER(t.origin) = LOWER(?)
                AND LOWER(t.destination) = LOWER(?)
                AND t.seats_total - t.seats_booked > 0
              ORDER BY t.created_at ASC, t.id ASC`
	return db.queryTrips(ctx, query, models.TripStatusActive, origin, destination)
}

// SetTripStatus updates the status only when ownerID owns the trip. Returns
// false when the trip does not exist or belongs to another driver; callers
// must not distinguish the two.
func (db *DB) SetTripStatus(ctx context.Context, tripID, ownerID int64, status string) (bool, error) {
	result, err := db.ExecContext(ctx,
		`UPDATE trips SET status = ? WHERE id = ? AND driver_user_id = ?`,
		status, tripID, ownerID,
	)
	if err != nil {
		return false, fmt.Errorf("failed to set trip status: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows > 0, nil
}

// ReserveSeats atomically takes seats from the trip. The conditional update
// is the only place seats_booked grows, so two concurrent reservations can
// never oversubscribe: the second one sees no matching row and returns false.
func (db *DB) ReserveSeats(ctx context.Context, tripID int64, seats int) (bool, error) {
	return db.reserveSeatsTx(ctx, db.DB, tripID, seats)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

func (db *DB) reserveSeatsTx(ctx context.Context, ex execer, tripID int64, seats int) (bool, error) {
	result, err := ex.ExecContext(ctx,
		`UPDATE trips SET seats_booked = seats_booked + ?
         WHERE id = ? AND status = ? AND seats_total - seats_booked >= ?`,
		seats, tripID, models.TripStatusActive, seats,
	)
	if err != nil {
		return false, fmt.Errorf("failed to reserve seats: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows > 0, nil
}

// ReleaseSeats gives seats back after a cancellation. Clamped so the counter
// never goes negative.
func (db *DB) ReleaseSeats(ctx context.Context, tripID int64, seats int) error {
	_, err := db.ExecContext(ctx,
		`UPDATE trips SET seats_booked = MAX(seats_booked - ?, 0) WHERE id = ?`,
		seats, tripID,
	)
	if err != nil {
		return fmt.Errorf("failed to release seats: %w", err)
	}
	return nil
}

func (db *DB) queryTrips(ctx context.Context, query string, args ...interface{}) ([]*models.Trip, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query trips: %w", err)
	}
	defer rows.Close()

	var trips []*models.Trip
	for rows.Next() {
		trip, err := scanTrip(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan trip: %w", err)
		}
		trips = append(trips, trip)
	}
	return trips, rows.Err()
}

func scanTrip(scan func(dest ...interface{}) error) (*models.Trip, error) {
	var trip models.Trip
	var dateStr string
	err := scan(
		&trip.ID, &trip.DriverUserID, &trip.Origin, &trip.Destination,
		&dateStr, &trip.TripTime,
		&trip.SeatsTotal, &trip.SeatsBooked, &trip.PricePerSeat, &trip.Status, &trip.CreatedAt,
		&trip.DriverName, &trip.DriverPhone,
	)
	if err != nil {
		return nil, err
	}
	trip.TripDate = parseStoredDate(dateStr)
	return &trip, nil
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02")
}

func parseStoredDate(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}
	}
	return t
}
