package reservation

import (
	"time"

	"github.com/iliyamo/shortlet-booking/internal/calendar"
	"github.com/iliyamo/shortlet-booking/internal/domain"
	"github.com/iliyamo/shortlet-booking/internal/model"
)

// transitions lists every allowed status change.  Anything missing here
// is rejected; completed and cancelled have no way out.
var transitions = map[model.BookingStatus][]model.BookingStatus{
	model.BookingPending:   {model.BookingConfirmed, model.BookingCancelled},
	model.BookingConfirmed: {model.BookingCheckedIn, model.BookingCancelled},
	model.BookingCheckedIn: {model.BookingCompleted, model.BookingCancelled},
	model.BookingCompleted: {},
	model.BookingCancelled: {},
}

// CanTransition reports whether from -> to is a listed transition.
func CanTransition(from, to model.BookingStatus) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no transition leaves s.
func IsTerminal(s model.BookingStatus) bool {
	return len(transitions[s]) == 0
}

// Transition moves b to the requested status.  today is the current
// calendar date in the property zone and gates check-in and completion.
// b is left untouched when an error is returned.
func Transition(b *model.Booking, to model.BookingStatus, today calendar.Date, now time.Time) error {
	if !CanTransition(b.Status, to) {
		return &domain.TransitionError{From: string(b.Status), To: string(to)}
	}
	stamp := now.UTC()
	switch to {
	case model.BookingConfirmed:
		b.ConfirmedAt = &stamp
	case model.BookingCheckedIn:
		if today.Before(b.CheckIn) {
			return domain.ErrTooEarly
		}
		b.CheckedInAt = &stamp
	case model.BookingCompleted:
		if today.Before(b.CheckOut) {
			return domain.ErrTooEarly
		}
		b.CompletedAt = &stamp
	case model.BookingCancelled:
		b.CancelledAt = &stamp
	}
	b.Status = to
	b.UpdatedAt = stamp
	return nil
}
