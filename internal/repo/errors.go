package repo

import "errors"

var (
	// ErrNotFound is returned when a queried row does not exist.
	ErrNotFound = errors.New("not found")
	// ErrDuplicateEmail is returned when a user insert violates the unique email constraint.
	ErrDuplicateEmail = errors.New("email already registered")
)
