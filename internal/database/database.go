package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	_ "github.com/mattn/go-sqlite3"
)

type DB struct {
	*sql.DB
	logger *zerolog.Logger
}

func NewDB(path string, logger *zerolog.Logger) (*DB, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// busy_timeout keeps concurrent webhook turns from failing on the
	// sqlite write lock; foreign_keys is off by default in sqlite.
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := createTables(db); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	logger.Info().Str("path", path).Msg("database initialized")
	return &DB{DB: db, logger: logger}, nil
}

func createTables(db *sql.DB) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS users (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            phone TEXT UNIQUE NOT NULL,
            role TEXT NOT NULL CHECK (role IN ('driver','passenger')),
            full_name TEXT,
            created_at DATETIME DEFAULT CURRENT_TIMESTAMP
        )`,

		`CREATE TABLE IF NOT EXISTS driver_profiles (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            user_id INTEGER UNIQUE NOT NULL REFERENCES users(id) ON DELETE CASCADE,
            route_from TEXT,
            route_to TEXT,
            car_model TEXT,
            plate TEXT,
            verified BOOLEAN NOT NULL DEFAULT 0,
            created_at DATETIME DEFAULT CURRENT_TIMESTAMP
        )`,

		`CREATE TABLE IF NOT EXISTS trips (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            driver_user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
            origin TEXT NOT NULL,
            destination TEXT NOT NULL,
            trip_date DATE,
            trip_time TEXT,
            seats_total INTEGER NOT NULL CHECK (seats_total > 0),
            seats_booked INTEGER NOT NULL DEFAULT 0 CHECK (seats_booked >= 0),
            price_per_seat INTEGER NOT NULL CHECK (price_per_seat >= 0),
            status TEXT NOT NULL DEFAULT 'active' CHECK (status IN ('active','completed','cancelled')),
            created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
            CHECK (seats_booked <= seats_total)
        )`,

		`CREATE TABLE IF NOT EXISTS bookings (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            trip_id INTEGER NOT NULL REFERENCES trips(id) ON DELETE CASCADE,
            passenger_user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
            seats INTEGER NOT NULL DEFAULT 1 CHECK (seats > 0),
            amount_paid INTEGER NOT NULL DEFAULT 0 CHECK (amount_paid >= 0),
            status TEXT NOT NULL DEFAULT 'pending' CHECK (status IN ('pending','confirmed','cancelled','completed')),
            created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
            UNIQUE (trip_id, passenger_user_id)
        )`,

		`CREATE TABLE IF NOT EXISTS ride_requests (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            passenger_user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
            origin TEXT NOT NULL,
            destination TEXT NOT NULL,
            ride_date DATE,
            ride_time TEXT,
            matched BOOLEAN NOT NULL DEFAULT 0,
            matched_trip_id INTEGER REFERENCES trips(id),
            created_at DATETIME DEFAULT CURRENT_TIMESTAMP
        )`,

		`CREATE INDEX IF NOT EXISTS idx_users_phone ON users(phone)`,
		`CREATE INDEX IF NOT EXISTS idx_trips_route ON trips(origin, destination)`,
		`CREATE INDEX IF NOT EXISTS idx_trips_status ON trips(status)`,
		`CREATE INDEX IF NOT EXISTS idx_trips_driver ON trips(driver_user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_bookings_trip ON bookings(trip_id)`,
		`CREATE INDEX IF NOT EXISTS idx_bookings_passenger ON bookings(passenger_user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_requests_passenger ON ride_requests(passenger_user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_requests_matched ON ride_requests(matched)`,
	}

	for _, query := range queries {
		if _, err := db.Exec(query); err != nil {
			return fmt.Errorf("error executing query %s: %w", query, err)
		}
	}
	return nil
}

func (db *DB) Close() error {
	return db.DB.Close()
}
