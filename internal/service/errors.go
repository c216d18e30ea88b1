package service

import "errors"

var (
	// ErrRoleConflict the phone is already registered under the other role.
	ErrRoleConflict = errors.New("phone already registered with a different role")

	// ErrNotDriver the operation needs a registered driver.
	ErrNotDriver = errors.New("user is not a registered driver")

	// ErrNotOwner the trip exists but belongs to another driver, or does not
	// exist. Callers surface both identically.
	ErrNotOwner = errors.New("trip not found or not owned by user")
)
