package models

const (
	RoleDriver    = "driver"
	RolePassenger = "passenger"
)

const (
	TripStatusActive    = "active"
	TripStatusCompleted = "completed"
	TripStatusCancelled = "cancelled"
)

const (
	BookingStatusPending   = "pending"
	BookingStatusConfirmed = "confirmed"
	BookingStatusCancelled = "cancelled"
	BookingStatusCompleted = "completed"
)

// Conversation steps. A contact with no stored state is idle.
const (
	StateAwaitingDriverRegistration = "awaiting_driver_registration"
	StateAwaitingTripDetails        = "awaiting_trip_details"
	StateAwaitingRideRequest        = "awaiting_ride_request"
)

const (
	// DefaultStateTTL lifetime of a conversation state in Redis, seconds.
	// A contact stuck mid-flow returns to idle after this.
	DefaultStateTTL = 24 * 60 * 60

	// DedupTTL how long processed gateway message ids are remembered, seconds.
	DedupTTL = 24 * 60 * 60

	// RateLimitMessages inbound messages allowed per contact per window.
	RateLimitMessages = 20

	// RateLimitWindow rate limit window, seconds.
	RateLimitWindow = 60

	// DefaultListLimit cap for REST list endpoints.
	DefaultListLimit = 200

	// DefaultSeatsPerRequest seats reserved for a matched ride request.
	DefaultSeatsPerRequest = 1
)
