// Package domain holds the error kinds returned by the booking core.  Every
// kind is recoverable by the caller: handlers translate them into HTTP
// status codes, the worker and cron jobs log them.  ErrDoubleBooked is kept
// separate from persistence failures so a client can be told the dates are
// gone instead of being asked to retry.
package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidRange is returned when check-out is not after check-in.
	ErrInvalidRange = errors.New("invalid date range")
	// ErrInvalidGuestCount is returned when the guest count is below one
	// or above the property's capacity.
	ErrInvalidGuestCount = errors.New("invalid guest count")
	// ErrDoubleBooked is returned when the requested nights overlap a
	// non-cancelled booking on the same property.
	ErrDoubleBooked = errors.New("dates no longer available")
	// ErrInvalidTransition is matched by every *TransitionError.
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrTooEarly is returned when check-in or completion is attempted
	// before the booking's check-in or check-out date.
	ErrTooEarly = errors.New("transition attempted too early")
	// ErrBookingNotFound is returned when no booking matches the lookup.
	ErrBookingNotFound = errors.New("booking not found")
	// ErrAmountMismatch is returned for negative or out-of-tolerance amounts.
	ErrAmountMismatch = errors.New("amount mismatch")
	// ErrAlreadyRefunded is returned when a payment targets a fully
	// refunded booking.
	ErrAlreadyRefunded = errors.New("booking already refunded")
	// ErrPropertyNotFound is returned when the property does not exist.
	ErrPropertyNotFound = errors.New("property not found")
	// ErrPropertyUnavailable is returned for properties under maintenance.
	ErrPropertyUnavailable = errors.New("property unavailable")
)

// TransitionError reports a rejected status change.  It names both the
// current and the requested state.
type TransitionError struct {
	From string
	To   string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("invalid status transition from %s to %s", e.From, e.To)
}

// Is lets errors.Is(err, ErrInvalidTransition) match any TransitionError.
func (e *TransitionError) Is(target error) bool { return target == ErrInvalidTransition }

// ErrDuplicateReference is returned by a store when a transaction insert
// collides with an existing provider reference.  The ledger treats it as
// a concurrent replay of the same payment.
var ErrDuplicateReference = errors.New("duplicate provider reference")
