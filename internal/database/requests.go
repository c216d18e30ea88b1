package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"routerider/internal/models"
)

const requestColumns = `id, passenger_user_id, origin, destination,
                        COALESCE(ride_date, ''), COALESCE(ride_time, ''),
                        matched, COALESCE(matched_trip_id, 0), created_at`

func (db *DB) CreateRideRequest(ctx context.Context, req *models.RideRequest) error {
	now := time.Now()
	result, err := db.ExecContext(ctx,
		`INSERT INTO ride_requests (passenger_user_id, origin, destination, ride_date, ride_time, matched, created_at)
         VALUES (?, ?, ?, NULLIF(?, ''), NULLIF(?, ''), 0, ?)`,
		req.PassengerUserID, req.Origin, req.Destination,
		formatDate(req.RideDate), req.RideTime, now,
	)
	if err != nil {
		return fmt.Errorf("failed to create ride request: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	req.ID = id
	req.Matched = false
	req.CreatedAt = now
	return nil
}

func (db *DB) GetRideRequest(ctx context.Context, id int64) (*models.RideRequest, error) {
	row := db.QueryRowContext(ctx,
		`SELECT `+requestColumns+` FROM ride_requests WHERE id = ?`, id)
	req, err := scanRideRequest(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get ride request: %w", err)
	}
	return req, nil
}

// ListUnmatchedRequests returns open requests oldest first so the rematch
// sweep serves waiting passengers in arrival order.
func (db *DB) ListUnmatchedRequests(ctx context.Context) ([]*models.RideRequest, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+requestColumns+` FROM ride_requests
         WHERE matched = 0 ORDER BY created_at ASC, id ASC LIMIT ?`,
		models.DefaultListLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to query ride requests: %w", err)
	}
	defer rows.Close()

	var requests []*models.RideRequest
	for rows.Next() {
		req, err := scanRideRequest(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ride request: %w", err)
		}
		requests = append(requests, req)
	}
	return requests, rows.Err()
}

// MatchRequest binds a ride request to a trip: the seat reservation, the
// booking row and the matched flag commit in one transaction or not at all.
// A request that was matched concurrently returns ErrAlreadyMatched and
// leaves the trip untouched.
func (db *DB) MatchRequest(ctx context.Context, requestID, tripID int64, seats int) (*models.Booking, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var passengerID int64
	var matched bool
	err = tx.QueryRowContext(ctx,
		`SELECT passenger_user_id, matched FROM ride_requests WHERE id = ?`, requestID,
	).Scan(&passengerID, &matched)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load ride request in tx: %w", err)
	}
	if matched {
		return nil, ErrAlreadyMatched
	}

	var status string
	var price int
	err = tx.QueryRowContext(ctx,
		`SELECT status, price_per_seat FROM trips WHERE id = ?`, tripID,
	).Scan(&status, &price)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load trip in tx: %w", err)
	}
	if status != models.TripStatusActive {
		return nil, ErrTripNotActive
	}

	ok, err := db.reserveSeatsTx(ctx, tx, tripID, seats)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotAvailable
	}

	booking := &models.Booking{
		TripID:          tripID,
		PassengerUserID: passengerID,
		Seats:           seats,
		AmountPaid:      seats * price,
		Status:          models.BookingStatusPending,
		CreatedAt:       time.Now(),
	}
	if err := insertBooking(ctx, tx, booking); err != nil {
		return nil, err
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE ride_requests SET matched = 1, matched_trip_id = ? WHERE id = ?`,
		tripID, requestID,
	); err != nil {
		return nil, fmt.Errorf("failed to mark request matched: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit match: %w", err)
	}
	return booking, nil
}

func (db *DB) DriverStats(ctx context.Context, driverID int64) (*models.DriverStats, error) {
	var stats models.DriverStats
	err := db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(status = 'completed'), 0)
         FROM trips WHERE driver_user_id = ?`,
		driverID,
	).Scan(&stats.TripsPosted, &stats.TripsCompleted)
	if err != nil {
		return nil, fmt.Errorf("failed to query driver stats: %w", err)
	}
	return &stats, nil
}

func (db *DB) PassengerStats(ctx context.Context, passengerID int64) (*models.PassengerStats, error) {
	var stats models.PassengerStats
	err := db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(matched), 0)
         FROM ride_requests WHERE passenger_user_id = ?`,
		passengerID,
	).Scan(&stats.RideRequests, &stats.Matched)
	if err != nil {
		return nil, fmt.Errorf("failed to query passenger stats: %w", err)
	}
	return &stats, nil
}

func scanRideRequest(scan func(dest ...interface{}) error) (*models.RideRequest, error) {
	var req models.RideRequest
	var dateStr string
	err := scan(
		&req.ID, &req.PassengerUserID, &req.Origin, &req.Destination,
		&dateStr, &req.RideTime,
		&req.Matched, &req.MatchedTripID, &req.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	req.RideDate = parseStoredDate(dateStr)
	return &req, nil
}
