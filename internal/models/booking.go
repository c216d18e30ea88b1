package models

import "time"

// Booking links one Trip to one passenger. At most one booking exists per
// (trip, passenger) pair; AmountPaid is fixed at creation time.
type Booking struct {
	ID              int64     `json:"id"`
	TripID          int64     `json:"trip_id"`
	PassengerUserID int64     `json:"passenger_user_id"`
	Seats           int       `json:"seats"`
	AmountPaid      int       `json:"amount_paid"`
	Status          string    `json:"status"` // pending, confirmed, cancelled, completed
	CreatedAt       time.Time `json:"created_at"`

	// Joined trip info for API responses.
	Origin      string    `json:"origin,omitempty"`
	Destination string    `json:"destination,omitempty"`
	TripDate    time.Time `json:"trip_date,omitempty"`
	TripTime    string    `json:"trip_time,omitempty"`
	DriverName  string    `json:"driver_name,omitempty"`
}

// RideRequest is a passenger's ask to be matched to a trip. Matching is
// attempted once at creation; unmatched requests stay for the rematch sweep.
type RideRequest struct {
	ID              int64     `json:"id"`
	PassengerUserID int64     `json:"passenger_user_id"`
	Origin          string    `json:"origin"`
	Destination     string    `json:"destination"`
	RideDate        time.Time `json:"ride_date,omitempty"`
	RideTime        string    `json:"ride_time,omitempty"`
	Matched         bool      `json:"matched"`
	MatchedTripID   int64     `json:"matched_trip_id,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

// HasDate reports whether the passenger specified a preferred date.
func (r *RideRequest) HasDate() bool {
	return !r.RideDate.IsZero()
}

// HasTime reports whether the passenger specified a preferred time.
func (r *RideRequest) HasTime() bool {
	return r.RideTime != ""
}
