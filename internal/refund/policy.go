// Package refund evaluates the cancellation policy.  Evaluate is pure:
// policy values come from configuration and the amount paid to date is
// computed by the caller from the ledger.
package refund

import (
	"errors"

	"github.com/iliyamo/shortlet-booking/internal/calendar"
)

// Tier is the refund band a cancellation falls into.
type Tier string

const (
	TierFull    Tier = "full"
	TierPartial Tier = "partial"
	TierNone    Tier = "none"
)

// Policy holds the day thresholds of the cancellation policy.
type Policy struct {
	FullRefundDays       int    // days before check-in that still earn a full refund
	PartialRefundDays    int    // days before check-in that still earn a partial refund
	PartialRefundPercent int    // share of the amount paid refunded in the partial band
	NoRefundMessage      string // shown when no refund is due
}

// Validate rejects thresholds that would make the tiers overlap.
func (p Policy) Validate() error {
	if p.FullRefundDays < 0 || p.PartialRefundDays < 0 {
		return errors.New("refund: day thresholds must not be negative")
	}
	if p.PartialRefundDays > p.FullRefundDays {
		return errors.New("refund: partial threshold exceeds full threshold")
	}
	if p.PartialRefundPercent < 0 || p.PartialRefundPercent > 100 {
		return errors.New("refund: partial percent must be between 0 and 100")
	}
	return nil
}

// Decision is the outcome of evaluating a cancellation.
type Decision struct {
	Tier         Tier   `json:"tier"`
	DaysBefore   int    `json:"days_before"`
	AmountPaid   int64  `json:"amount_paid"`
	RefundAmount int64  `json:"refund_amount"`
	Message      string `json:"message,omitempty"`
}

// Evaluate returns the refund owed when a booking checking in on checkIn
// is cancelled on cancelledOn, given the net amount paid so far.
func Evaluate(p Policy, checkIn, cancelledOn calendar.Date, amountPaid int64) Decision {
	if amountPaid < 0 {
		amountPaid = 0
	}
	days := calendar.DaysBetween(cancelledOn, checkIn)
	dec := Decision{DaysBefore: days, AmountPaid: amountPaid}
	switch {
	case days >= p.FullRefundDays:
		dec.Tier = TierFull
		dec.RefundAmount = amountPaid
	case days >= p.PartialRefundDays:
		dec.Tier = TierPartial
		dec.RefundAmount = amountPaid * int64(clampPercent(p.PartialRefundPercent)) / 100
	default:
		dec.Tier = TierNone
		dec.Message = p.NoRefundMessage
	}
	return dec
}

func clampPercent(p int) int {
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}
