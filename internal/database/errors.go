package database

import "errors"

var (
	// ErrNotFound no row matched the lookup.
	ErrNotFound = errors.New("not found")

	// ErrNotAvailable the trip has fewer seats left than requested.
	ErrNotAvailable = errors.New("not enough seats left")

	// ErrTripNotActive the trip is completed or cancelled.
	ErrTripNotActive = errors.New("trip is not active")

	// ErrAlreadyBooked a booking already exists for this (trip, passenger).
	ErrAlreadyBooked = errors.New("passenger already booked on this trip")

	// ErrAlreadyMatched the ride request was matched by a concurrent turn.
	ErrAlreadyMatched = errors.New("ride request already matched")
)
