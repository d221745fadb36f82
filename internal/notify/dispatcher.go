package notify

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/shortlet-booking/internal/logger"
	"github.com/iliyamo/shortlet-booking/internal/queue"
)

// Dispatcher consumes booking events and delivers the guest and
// housekeeping notifications.  Either sender may be nil; the channel is
// then skipped.
type Dispatcher struct {
	email             EmailSender
	sms               SMSSender
	currency          string
	housekeepingEmail string
}

// NewDispatcher wires the senders.
func NewDispatcher(email EmailSender, sms SMSSender, currency, housekeepingEmail string) *Dispatcher {
	if currency == "" {
		currency = "NGN"
	}
	return &Dispatcher{email: email, sms: sms, currency: currency, housekeepingEmail: housekeepingEmail}
}

// Register attaches a handler for every event queue.
func (d *Dispatcher) Register(c *queue.Consumer) {
	c.Handle(queue.BookingConfirmedQueue, queue.JSON(d.BookingConfirmed))
	c.Handle(queue.PaymentReceivedQueue, queue.JSON(d.PaymentReceived))
	c.Handle(queue.BookingCancelledQueue, queue.JSON(d.BookingCancelled))
	c.Handle(queue.CheckoutQueue, queue.JSON(d.Checkout))
}

func (d *Dispatcher) BookingConfirmed(ctx context.Context, ev queue.BookingConfirmedEvent) error {
	return d.toGuest(ctx, ev.BookingEvent, BookingConfirmed(ev, d.currency))
}

func (d *Dispatcher) PaymentReceived(ctx context.Context, ev queue.PaymentReceivedEvent) error {
	return d.toGuest(ctx, ev.BookingEvent, PaymentReceived(ev, d.currency))
}

func (d *Dispatcher) BookingCancelled(ctx context.Context, ev queue.BookingCancelledEvent) error {
	return d.toGuest(ctx, ev.BookingEvent, BookingCancelled(ev, d.currency))
}

// Checkout raises the cleaning task.  Without a housekeeping inbox the
// task is only logged.
func (d *Dispatcher) Checkout(ctx context.Context, ev queue.CheckoutEvent) error {
	logger.Log.WithFields(logrus.Fields{
		"booking_number": ev.BookingNumber,
		"property_id":    ev.PropertyID,
	}).Info("housekeeping task raised")
	if d.email == nil || d.housekeepingEmail == "" {
		return nil
	}
	return d.email.SendEmail(ctx, "Housekeeping", d.housekeepingEmail, CheckoutTask(ev))
}

// toGuest sends m by email and SMS.  A failure on one channel does not
// stop the other; the joined error fails the delivery.
func (d *Dispatcher) toGuest(ctx context.Context, ev queue.BookingEvent, m Message) error {
	entry := logger.Log.WithFields(logrus.Fields{"booking_number": ev.BookingNumber, "subject": m.Subject})
	var errs []error
	if d.email != nil && ev.GuestEmail != "" {
		if err := d.email.SendEmail(ctx, ev.GuestName, ev.GuestEmail, m); err != nil {
			entry.WithError(err).Warn("email delivery failed")
			errs = append(errs, err)
		}
	}
	if d.sms != nil && ev.GuestPhone != "" && m.SMS != "" {
		if err := d.sms.SendSMS(ctx, ev.GuestPhone, m.SMS); err != nil {
			entry.WithError(err).Warn("sms delivery failed")
			errs = append(errs, err)
		}
	}
	if len(errs) == 0 {
		entry.Debug("guest notified")
	}
	return errors.Join(errs...)
}
