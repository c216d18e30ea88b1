package models

import "time"

// ContactState is the per-contact conversation state. It carries only the
// step tag: all collected data is re-derived from the raw text of the turn
// that completes the step, never accumulated across turns.
type ContactState struct {
	Contact string `json:"contact"`
	Step    string `json:"step"`
}

// User is an identity keyed by a stable contact identifier (phone number).
type User struct {
	ID        int64     `json:"id"`
	Phone     string    `json:"phone"`
	Role      string    `json:"role"` // driver | passenger
	FullName  string    `json:"full_name,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// DriverProfile is one-to-one with a User of role driver.
// Re-registering replaces all fields.
type DriverProfile struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	RouteFrom string    `json:"route_from"`
	RouteTo   string    `json:"route_to"`
	CarModel  string    `json:"car_model"`
	Plate     string    `json:"plate"`
	Verified  bool      `json:"verified"`
	CreatedAt time.Time `json:"created_at"`
}
