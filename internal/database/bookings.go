package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"routerider/internal/models"
)

const bookingColumns = `b.id, b.trip_id, b.passenger_user_id, b.seats, b.amount_paid,
                        b.status, b.created_at,
                        t.origin, t.destination, COALESCE(t.trip_date, ''), COALESCE(t.trip_time, ''),
                        COALESCE(d.full_name, 'Driver')`

// BookSeats reserves seats on a trip and records the booking in one
// transaction. The seat increment and the booking row always commit
// together, so seats_booked can never drift from the sum of bookings.
func (db *DB) BookSeats(ctx context.Context, tripID, passengerID int64, seats int) (*models.Booking, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

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

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit booking: %w", err)
	}
	return booking, nil
}

func insertBooking(ctx context.Context, ex execer, booking *models.Booking) error {
	result, err := ex.ExecContext(ctx,
		`INSERT INTO bookings (trip_id, passenger_user_id, seats, amount_paid, status, created_at)
         VALUES (?, ?, ?, ?, ?, ?)`,
		booking.TripID, booking.PassengerUserID, booking.Seats,
		booking.AmountPaid, booking.Status, booking.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrAlreadyBooked
		}
		return fmt.Errorf("failed to insert booking: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	booking.ID = id
	return nil
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func (db *DB) CreateBooking(ctx context.Context, booking *models.Booking) error {
	if booking.CreatedAt.IsZero() {
		booking.CreatedAt = time.Now()
	}
	if booking.Status == "" {
		booking.Status = models.BookingStatusPending
	}
	return insertBooking(ctx, db.DB, booking)
}

func (db *DB) GetBooking(ctx context.Context, id int64) (*models.Booking, error) {
	query := `SELECT ` + bookingColumns + `
              FROM bookings b
              JOIN trips t ON t.id = b.trip_id
              JOIN users d ON d.id = t.driver_user_id
              WHERE b.id = ?`
	row := db.QueryRowContext(ctx, query, id)
	booking, err := scanBooking(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}
	return booking, nil
}

// ListBookings filters by passenger and/or trip; zero ids mean "any".
func (db *DB) ListBookings(ctx context.Context, passengerID, tripID int64) ([]*models.Booking, error) {
	query := `SELECT ` + bookingColumns + `
              FROM bookings b
              JOIN trips t ON t.id = b.trip_id
              JOIN users d ON d.id = t.driver_user_id
              WHERE 1=1`
	var args []interface{}
	if passengerID != 0 {
		query += ` AND b.passenger_user_id = ?`
		args = append(args, passengerID)
	}
	if tripID != 0 {
		query += ` AND b.trip_id = ?`
		args = append(args, tripID)
	}
	query += ` ORDER BY b.created_at DESC LIMIT ?`
	args = append(args, models.DefaultListLimit)

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query bookings: %w", err)
	}
	defer rows.Close()

	var bookings []*models.Booking
	for rows.Next() {
		booking, err := scanBooking(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan booking: %w", err)
		}
		bookings = append(bookings, booking)
	}
	return bookings, rows.Err()
}

// UpdateBookingStatus transitions the booking and, when it moves into
// cancelled, gives the seats back to the trip in the same transaction.
func (db *DB) UpdateBookingStatus(ctx context.Context, id int64, status string) (*models.Booking, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var tripID int64
	var seats int
	var prev string
	err = tx.QueryRowContext(ctx,
		`SELECT trip_id, seats, status FROM bookings WHERE id = ?`, id,
	).Scan(&tripID, &seats, &prev)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load booking in tx: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE bookings SET status = ? WHERE id = ?`, status, id,
	); err != nil {
		return nil, fmt.Errorf("failed to update booking status: %w", err)
	}

	if status == models.BookingStatusCancelled && prev != models.BookingStatusCancelled {
		if _, err := tx.ExecContext(ctx,
			`UPDATE trips SET seats_booked = MAX(seats_booked - ?, 0) WHERE id = ?`,
			seats, tripID,
		); err != nil {
			return nil, fmt.Errorf("failed to release seats in tx: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit status update: %w", err)
	}
	return db.GetBooking(ctx, id)
}

func scanBooking(scan func(dest ...interface{}) error) (*models.Booking, error) {
	var b models.Booking
	var dateStr string
	err := scan(
		&b.ID, &b.TripID, &b.PassengerUserID, &b.Seats, &b.AmountPaid,
		&b.Status, &b.CreatedAt,
		&b.Origin, &b.Destination, &dateStr, &b.TripTime,
		&b.DriverName,
	)
	if err != nil {
		return nil, err
	}
	b.TripDate = parseStoredDate(dateStr)
	return &b, nil
}
