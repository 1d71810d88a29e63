/*
errors.go - Centralized error types for the tally domain

PURPOSE:
  All sentinel errors in one place. The Store implementations translate
  database-level failures into these where a caller is expected to react
  (get-or-create races, missing rows); everything else propagates
  unmodified.

USAGE:
    if errors.Is(err, tally.ErrSessionExists) {
        // concurrent writer won the race; re-fetch
    }

SEE ALSO:
  - store.go: Store contract referencing these errors
  - store/sqlite/sqlite.go: Constraint-violation translation
*/
package tally

import "errors"

var (
	// ErrInvalidDate is returned for malformed or out-of-range date input.
	ErrInvalidDate = errors.New("invalid date")

	// ErrSessionExists is returned by InsertSession when a session with the
	// same name is already persisted. This is the expected outcome of the
	// get-or-create race; callers re-fetch instead of failing.
	ErrSessionExists = errors.New("session already exists")

	// ErrSessionNotFound is returned when a session lookup by name misses.
	ErrSessionNotFound = errors.New("session not found")

	// ErrRecordNotFound is returned when a record lookup by id misses.
	ErrRecordNotFound = errors.New("record not found")

	// ErrUserNotFound is returned when a user lookup misses.
	ErrUserNotFound = errors.New("user not found")

	// ErrUserExists is returned when creating a user with a taken id.
	ErrUserExists = errors.New("user already exists")
)

// IsNotFound returns true if the error indicates a missing row.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrSessionNotFound) ||
		errors.Is(err, ErrRecordNotFound) ||
		errors.Is(err, ErrUserNotFound)
}

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidDate) ||
		errors.Is(err, ErrUserExists)
}
