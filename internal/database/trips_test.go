package database

import (
	"context"
	"testing"

	"routerider/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTripCreateAndGet(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	ctx := context.Background()
	driver := createTestDriver(t, db, "233201000001")
	trip := createTestTrip(t, db, driver.ID, 4)

	found, err := db.GetTrip(ctx, trip.ID)
	require.NoError(t, err)
	assert.Equal(t, "Accra", found.Origin)
	assert.Equal(t, "Kumasi", found.Destination)
	assert.Equal(t, "08:30", found.TripTime)
	assert.Equal(t, 4, found.SeatsTotal)
	assert.Equal(t, 0, found.SeatsBooked)
	assert.Equal(t, models.TripStatusActive, found.Status)
	assert.Equal(t, "Test Driver", found.DriverName)
	assert.True(t, found.HasDate())

	_, err = db.GetTrip(ctx, 12345)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTripWithoutDateOrTime(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	ctx := context.Background()
	driver := createTestDriver(t, db, "233201000002")

	trip := &models.Trip{
		DriverUserID: driver.ID,
		Origin:       "Tema",
		Destination:  "Accra",
		SeatsTotal:   2,
		PricePerSeat: 10,
	}
	require.NoError(t, db.CreateTrip(ctx, trip))

	found, err := db.GetTrip(ctx, trip.ID)
	require.NoError(t, err)
	assert.False(t, found.HasDate())
	assert.False(t, found.HasTime())
}

func TestListTrips_Filters(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	ctx := context.Background()
	driver := createTestDriver(t, db, "233201000003")

	createTestTrip(t, db, driver.ID, 4)
	other := &models.Trip{
		DriverUserID: driver.ID,
		Origin:       "Tamale",
		Destination:  "Bolgatanga",
		SeatsTotal:   3,
		PricePerSeat: 30,
	}
	require.NoError(t, db.CreateTrip(ctx, other))

	all, err := db.ListTrips(ctx, models.TripFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	// Origin comparison is case-insensitive.
	filtered, err := db.ListTrips(ctx, models.TripFilter{Origin: "accra"})
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	assert.Equal(t, "Kumasi", filtered[0].Destination)

	byStatus, err := db.ListTrips(ctx, models.TripFilter{Status: models.TripStatusCompleted})
	require.NoError(t, err)
	assert.Empty(t, byStatus)
}

func TestFindActiveTripsByRoute(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	ctx := context.Background()
	driver := createTestDriver(t, db, "233201000004")

	first := createTestTrip(t, db, driver.ID, 1)
	second := createTestTrip(t, db, driver.ID, 4)

	trips, err := db.FindActiveTripsByRoute(ctx, "ACCRA", "kumasi")
	require.NoError(t, err)
	require.Len(t, trips, 2)
	assert.Equal(t, first.ID, trips[0].ID)

	// A full trip drops out of the candidate set.
	ok, err := db.ReserveSeats(ctx, first.ID, 1)
	require.NoError(t, err)
	require.True(t, ok)

	trips, err = db.FindActiveTripsByRoute(ctx, "Accra", "Kumasi")
	require.NoError(t, err)
	require.Len(t, trips, 1)
	assert.Equal(t, second.ID, trips[0].ID)
}

func TestReserveSeats_CapacityAndStatus(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	ctx := context.Background()
	driver := createTestDriver(t, db, "233201000005")
	trip := createTestTrip(t, db, driver.ID, 2)

	ok, err := db.ReserveSeats(ctx, trip.ID, 2)
	require.NoError(t, err)
	assert.True(t, ok)

	// Over capacity.
	ok, err = db.ReserveSeats(ctx, trip.ID, 1)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, db.ReleaseSeats(ctx, trip.ID, 1))
	ok, err = db.ReserveSeats(ctx, trip.ID, 1)
	require.NoError(t, err)
	assert.True(t, ok)

	// Completed trips take no reservations.
	changed, err := db.SetTripStatus(ctx, trip.ID, driver.ID, models.TripStatusCompleted)
	require.NoError(t, err)
	require.True(t, changed)

	ok, err = db.ReserveSeats(ctx, trip.ID, 1)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSetTripStatus_OwnerOnly(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	ctx := context.Background()
	owner := createTestDriver(t, db, "233201000006")
	stranger := createTestDriver(t, db, "233201000007")
	trip := createTestTrip(t, db, owner.ID, 4)

	changed, err := db.SetTripStatus(ctx, trip.ID, stranger.ID, models.TripStatusCompleted)
	require.NoError(t, err)
	assert.False(t, changed)

	found, err := db.GetTrip(ctx, trip.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TripStatusActive, found.Status)

	changed, err = db.SetTripStatus(ctx, trip.ID, owner.ID, models.TripStatusCompleted)
	require.NoError(t, err)
	assert.True(t, changed)

	// Missing trip reports the same result as wrong owner.
	changed, err = db.SetTripStatus(ctx, 999, owner.ID, models.TripStatusCompleted)
	require.NoError(t, err)
	assert.False(t, changed)
}

func TestReleaseSeats_NeverNegative(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	ctx := context.Background()
	driver := createTestDriver(t, db, "233201000008")
	trip := createTestTrip(t, db, driver.ID, 4)

	require.NoError(t, db.ReleaseSeats(ctx, trip.ID, 3))

	found, err := db.GetTrip(ctx, trip.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, found.SeatsBooked)
	assert.Equal(t, 4, found.SeatsLeft())
}
