package database

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"routerider/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) *DB {
	t.Helper()
	logger := zerolog.Nop()
	db, err := NewDB(filepath.Join(t.TempDir(), "test.db"), &logger)
	require.NoError(t, err)
	return db
}

func createTestDriver(t *testing.T, db *DB, phone string) *models.User {
	t.Helper()
	user, err := db.CreateUser(context.Background(), phone, models.RoleDriver, "Test Driver")
	require.NoError(t, err)
	return user
}

func createTestPassenger(t *testing.T, db *DB, phone string) *models.User {
	t.Helper()
	user, err := db.CreateUser(context.Background(), phone, models.RolePassenger, "Test Passenger")
	require.NoError(t, err)
	return user
}

func createTestTrip(t *testing.T, db *DB, driverID int64, seats int) *models.Trip {
	t.Helper()
	trip := &models.Trip{
		DriverUserID: driverID,
		Origin:       "Accra",
		Destination:  "Kumasi",
		TripDate:     time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC),
		TripTime:     "08:30",
		SeatsTotal:   seats,
		PricePerSeat: 50,
	}
	require.NoError(t, db.CreateTrip(context.Background(), trip))
	return trip
}

func TestNewDB_DirectoryCreation(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "nested", "dir", "rides.db")
	logger := zerolog.Nop()

	db, err := NewDB(dbPath, &logger)
	require.NoError(t, err)
	defer db.Close()

	assert.FileExists(t, dbPath)
}

func TestDB_Ping(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	assert.NoError(t, db.PingContext(context.Background()))
}
