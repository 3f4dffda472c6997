package sessions

import "errors"

var (
	// ErrSessionNotFound is returned when no session matches the id
	ErrSessionNotFound = errors.New("session not found")

	// ErrInvalidTransition is returned when the requested status change is not permitted
	ErrInvalidTransition = errors.New("status change is not permitted from the current state")

	// ErrSlotUnavailable is returned when the requested time conflicts with an existing session
	ErrSlotUnavailable = errors.New("that time is no longer available")

	// ErrInvalidDuration is returned when the session duration is not positive
	ErrInvalidDuration = errors.New("session duration must be greater than zero")

	// ErrMissingPatient is returned when no patient is attached to the request
	ErrMissingPatient = errors.New("a patient is required")

	// ErrMissingPractice is returned when the practice scope is absent
	ErrMissingPractice = errors.New("a practice is required")

	// ErrMissingStart is returned when no start time is given
	ErrMissingStart = errors.New("a start time is required")

	// ErrUnknownStatus is returned when a status string is outside the closed set
	ErrUnknownStatus = errors.New("unknown session status")
)
