package booking

import "errors"

var (
	// ErrTokenNotFound is returned when no booking link matches the token
	ErrTokenNotFound = errors.New("booking link not found")

	// ErrTokenExpired is returned when the booking link is past its expiry
	ErrTokenExpired = errors.New("booking link has expired")

	// ErrTokenAlreadyUsed is returned when the booking link was already redeemed
	ErrTokenAlreadyUsed = errors.New("booking link has already been used")

	// ErrInvalidTTL is returned when a link is issued with a non-positive lifetime
	ErrInvalidTTL = errors.New("booking link lifetime must be greater than zero")

	// ErrMalformedSlot is returned when the requested date or time cannot be parsed
	ErrMalformedSlot = errors.New("requested date and time must be YYYY-MM-DD and HH:MM")
)
