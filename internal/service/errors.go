package service

import (
	"errors"
	"fmt"
)

var (
	// ErrPromoNotStarted is returned when redemption is attempted before the campaign window opens
	ErrPromoNotStarted = errors.New("promotion has not started")

	// ErrPromoEnded is returned when redemption is attempted after the campaign window closes
	ErrPromoEnded = errors.New("promotion has ended")

	// ErrIPBlocked is returned when an IP is locked out after too many failed attempts
	ErrIPBlocked = errors.New("too many attempts")

	// ErrInvalidCode is returned when the submitted code does not exist
	ErrInvalidCode = errors.New("invalid code")

	// ErrCodeUsed is returned when the submitted code has already been redeemed
	ErrCodeUsed = errors.New("code already used")

	// ErrCSVEmpty is returned when an uploaded CSV contains no usable lines
	ErrCSVEmpty = errors.New("csv contains no valid lines")

	// ErrJobNotFound is returned when an import job id is unknown
	ErrJobNotFound = errors.New("import job not found")

	// ErrInvalidLogin is returned when an admin login code does not verify
	ErrInvalidLogin = errors.New("invalid login code")

	// ErrInvalidRequest is returned when request data is invalid or incomplete
	ErrInvalidRequest = errors.New("invalid request")
)

// BlockedError carries the remaining lockout time alongside ErrIPBlocked,
// so handlers can surface it without a second guard query.
type BlockedError struct {
	MinutesRemaining int
}

func (e *BlockedError) Error() string {
	return fmt.Sprintf("too many attempts, try again in %d minutes", e.MinutesRemaining)
}

// Unwrap lets errors.Is(err, ErrIPBlocked) match.
func (e *BlockedError) Unwrap() error { return ErrIPBlocked }
