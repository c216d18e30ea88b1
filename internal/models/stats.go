package models

import "time"

// TripFilter narrows ListTrips. Zero values mean "no filter".
type TripFilter struct {
	Origin      string
	Destination string
	Date        time.Time
	Status      string
	Limit       int
}

type DriverStats struct {
	TripsPosted    int `json:"trips_posted"`
	TripsCompleted int `json:"trips_completed"`
}

type PassengerStats struct {
	RideRequests int `json:"ride_requests"`
	Matched      int `json:"matched"`
}
