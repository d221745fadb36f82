package model

import (
	"time"

	"github.com/iliyamo/shortlet-booking/internal/calendar"
)

// BookingStatus is the lifecycle state of a reservation.
type BookingStatus string

const (
	BookingPending   BookingStatus = "pending"
	BookingConfirmed BookingStatus = "confirmed"
	BookingCheckedIn BookingStatus = "checked_in"
	BookingCompleted BookingStatus = "completed"
	BookingCancelled BookingStatus = "cancelled"
)

// Valid reports whether s is a known status.
func (s BookingStatus) Valid() bool {
	switch s {
	case BookingPending, BookingConfirmed, BookingCheckedIn, BookingCompleted, BookingCancelled:
		return true
	}
	return false
}

// PaymentStatus tracks how much of the booking total has been settled.
type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentPaid     PaymentStatus = "paid"
	PaymentPartial  PaymentStatus = "partial"
	PaymentRefunded PaymentStatus = "refunded"
)

// Booking is a stay reservation.  The monetary breakdown is a snapshot
// taken at creation; it is never recomputed from later property prices.
// TotalAmount always equals BaseAmount + CleaningFee + TaxAmount -
// DiscountAmount (clamped at zero).
//
// Fields:
//  ID                 – primary key identifier.
//  BookingNumber      – unique human-readable reference used for guest lookup.
//  PropertyID         – booked property.
//  CustomerID         – guest.
//  CheckIn            – first occupied night.
//  CheckOut           – departure day, not occupied.
//  Guests             – guest count.
//  Status             – lifecycle state.
//  PaymentStatus      – pending, paid, partial or refunded.
//  RefundAmount       – refund granted on cancellation.
//  RefundTier         – full, partial or none on cancellation.
//  CancellationReason – operator or guest supplied reason.
type Booking struct {
	ID                 uint64        `json:"id"`                            // bookings.id
	BookingNumber      string        `json:"booking_number"`                // bookings.booking_number
	PropertyID         uint64        `json:"property_id"`                   // bookings.property_id
	CustomerID         uint64        `json:"customer_id"`                   // bookings.customer_id
	CheckIn            calendar.Date `json:"check_in"`                      // bookings.check_in
	CheckOut           calendar.Date `json:"check_out"`                     // bookings.check_out
	Guests             int           `json:"guests"`                        // bookings.guests
	BaseAmount         int64         `json:"base_amount"`                   // bookings.base_amount
	CleaningFee        int64         `json:"cleaning_fee"`                  // bookings.cleaning_fee
	TaxAmount          int64         `json:"tax_amount"`                    // bookings.tax_amount
	DiscountAmount     int64         `json:"discount_amount"`               // bookings.discount_amount
	TotalAmount        int64         `json:"total_amount"`                  // bookings.total_amount
	Status             BookingStatus `json:"status"`                        // bookings.status
	PaymentStatus      PaymentStatus `json:"payment_status"`                // bookings.payment_status
	SpecialRequests    *string       `json:"special_requests,omitempty"`    // bookings.special_requests
	ArrivalTime        *string       `json:"arrival_time,omitempty"`        // bookings.arrival_time
	RefundAmount       int64         `json:"refund_amount"`                 // bookings.refund_amount
	RefundTier         *string       `json:"refund_tier,omitempty"`         // bookings.refund_tier
	CancellationReason *string       `json:"cancellation_reason,omitempty"` // bookings.cancellation_reason
	ConfirmedAt        *time.Time    `json:"confirmed_at,omitempty"`        // bookings.confirmed_at
	CheckedInAt        *time.Time    `json:"checked_in_at,omitempty"`       // bookings.checked_in_at
	CompletedAt        *time.Time    `json:"completed_at,omitempty"`        // bookings.completed_at
	CancelledAt        *time.Time    `json:"cancelled_at,omitempty"`        // bookings.cancelled_at
	CreatedAt          time.Time     `json:"created_at"`                    // bookings.created_at
	UpdatedAt          time.Time     `json:"updated_at"`                    // bookings.updated_at
}

// Range returns the booking's half-open stay.
func (b *Booking) Range() calendar.Range {
	return calendar.Range{CheckIn: b.CheckIn, CheckOut: b.CheckOut}
}

// Occupying reports whether the booking still holds its nights.
func (b *Booking) Occupying() bool {
	return b.Status != BookingCancelled
}

// BookingFilter narrows admin listings.  Zero values mean "any".
type BookingFilter struct {
	Status     BookingStatus
	PropertyID uint64
	Limit      int
	Offset     int
}
