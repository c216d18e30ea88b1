package models

import "time"

// Trip is a driver-posted offering with a fixed seat inventory and price.
// TripDate and TripTime are optional; a zero value means "not specified".
type Trip struct {
	ID           int64     `json:"id"`
	DriverUserID int64     `json:"driver_user_id"`
	Origin       string    `json:"origin"`
	Destination  string    `json:"destination"`
	TripDate     time.Time `json:"trip_date,omitempty"`
	TripTime     string    `json:"trip_time,omitempty"` // HH:MM, 24-hour
	SeatsTotal   int       `json:"seats_total"`
	SeatsBooked  int       `json:"seats_booked"`
	PricePerSeat int       `json:"price_per_seat"`
	Status       string    `json:"status"` // active, completed, cancelled
	CreatedAt    time.Time `json:"created_at"`

	// Joined driver info for API responses.
	DriverName  string `json:"driver_name,omitempty"`
	DriverPhone string `json:"driver_phone,omitempty"`
}

// SeatsLeft is the capacity available for new bookings.
func (t *Trip) SeatsLeft() int {
	return t.SeatsTotal - t.SeatsBooked
}

// HasDate reports whether the driver specified a departure date.
func (t *Trip) HasDate() bool {
	return !t.TripDate.IsZero()
}

// HasTime reports whether the driver specified a departure time.
func (t *Trip) HasTime() bool {
	return t.TripTime != ""
}
