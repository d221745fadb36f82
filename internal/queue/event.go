// Package queue carries booking events over RabbitMQ.  The API publishes
// after each commit; cmd/worker consumes and fans out to email, SMS and
// housekeeping.  Payloads are self-contained so consumers never query the
// primary database.
package queue

import (
	"time"

	"github.com/iliyamo/shortlet-booking/internal/refund"
	"github.com/iliyamo/shortlet-booking/internal/reservation"
)

// Durable queue names.  The routing key equals the queue name on the
// default exchange.
const (
	BookingConfirmedQueue = "booking.confirmed"
	PaymentReceivedQueue  = "payment.received"
	BookingCancelledQueue = "booking.cancelled"
	CheckoutQueue         = "housekeeping.checkout"
)

// Queues lists every queue the worker consumes.
var Queues = []string{BookingConfirmedQueue, PaymentReceivedQueue, BookingCancelledQueue, CheckoutQueue}

// BookingEvent is embedded in every payload.
type BookingEvent struct {
	BookingID     uint64 `json:"booking_id"`
	BookingNumber string `json:"booking_number"`
	PropertyID    uint64 `json:"property_id"`
	PropertyName  string `json:"property_name"`
	GuestName     string `json:"guest_name"`
	GuestEmail    string `json:"guest_email"`
	GuestPhone    string `json:"guest_phone,omitempty"`
	CheckIn       string `json:"check_in"`
	CheckOut      string `json:"check_out"`
	Guests        int    `json:"guests"`
	TotalAmount   int64  `json:"total_amount"`
	Status        string `json:"status"`
	PaymentStatus string `json:"payment_status"`
	OccurredAt    string `json:"occurred_at"`
}

// BookingConfirmedEvent is published when a booking reaches confirmed.
type BookingConfirmedEvent struct {
	BookingEvent
	ArrivalTime     string `json:"arrival_time,omitempty"`
	SpecialRequests string `json:"special_requests,omitempty"`
}

// PaymentReceivedEvent is published for every newly applied payment.
type PaymentReceivedEvent struct {
	BookingEvent
	TransactionID uint64 `json:"transaction_id"`
	Amount        int64  `json:"amount"`
	Reference     string `json:"reference"`
	Method        string `json:"method,omitempty"`
}

// BookingCancelledEvent is published when a booking is cancelled or
// rejected.
type BookingCancelledEvent struct {
	BookingEvent
	Reason       string `json:"reason,omitempty"`
	RefundTier   string `json:"refund_tier"`
	RefundAmount int64  `json:"refund_amount"`
	AmountPaid   int64  `json:"amount_paid"`
	DaysBefore   int    `json:"days_before"`
	Message      string `json:"message,omitempty"`
}

// CheckoutEvent asks housekeeping to turn the property around.
type CheckoutEvent struct {
	BookingEvent
	CompletedAt string `json:"completed_at"`
}

// NewBookingEvent flattens a booking context.
func NewBookingEvent(bc reservation.BookingContext, at time.Time) BookingEvent {
	b := bc.Booking
	return BookingEvent{
		BookingID:     b.ID,
		BookingNumber: b.BookingNumber,
		PropertyID:    b.PropertyID,
		PropertyName:  bc.PropertyName,
		GuestName:     bc.Customer.FullName,
		GuestEmail:    bc.Customer.Email,
		GuestPhone:    bc.Customer.Phone,
		CheckIn:       b.CheckIn.String(),
		CheckOut:      b.CheckOut.String(),
		Guests:        b.Guests,
		TotalAmount:   b.TotalAmount,
		Status:        string(b.Status),
		PaymentStatus: string(b.PaymentStatus),
		OccurredAt:    at.UTC().Format(time.RFC3339),
	}
}

func newCancelledEvent(bc reservation.BookingContext, d refund.Decision, at time.Time) BookingCancelledEvent {
	ev := BookingCancelledEvent{
		BookingEvent: NewBookingEvent(bc, at),
		RefundTier:   string(d.Tier),
		RefundAmount: d.RefundAmount,
		AmountPaid:   d.AmountPaid,
		DaysBefore:   d.DaysBefore,
		Message:      d.Message,
	}
	if bc.Booking.CancellationReason != nil {
		ev.Reason = *bc.Booking.CancellationReason
	}
	return ev
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
