package reservation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/shortlet-booking/internal/domain"
	"github.com/iliyamo/shortlet-booking/internal/logger"
	"github.com/iliyamo/shortlet-booking/internal/model"
	"github.com/iliyamo/shortlet-booking/internal/refund"
)

// Confirm approves a pending booking without payment (manager approval).
func (s *Service) Confirm(ctx context.Context, id uint64) (*model.Booking, error) {
	var bc BookingContext
	b, err := s.advance(ctx, id, model.BookingConfirmed, func(tx Tx, b *model.Booking) error {
		var err error
		bc, err = s.bookingContext(ctx, tx, b)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.emit("booking confirmed", b.ID, func() error { return s.notifier.BookingConfirmed(ctx, bc) })
	return b, nil
}

// CheckIn marks the guest as arrived.  It fails with ErrTooEarly before
// the check-in date.
func (s *Service) CheckIn(ctx context.Context, id uint64) (*model.Booking, error) {
	return s.advance(ctx, id, model.BookingCheckedIn, nil)
}

// Complete closes a stay on or after the check-out date and raises a
// checkout cleaning task with housekeeping.
func (s *Service) Complete(ctx context.Context, id uint64) (*model.Booking, error) {
	var bc BookingContext
	b, err := s.advance(ctx, id, model.BookingCompleted, func(tx Tx, b *model.Booking) error {
		var err error
		bc, err = s.bookingContext(ctx, tx, b)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.emit("checkout occurred", b.ID, func() error { return s.housekeeping.CheckoutOccurred(ctx, bc) })
	return b, nil
}

// advance applies a forward transition under a row lock.  Transitions
// that keep the booking on the calendar re-check availability first, so a
// stale read can never confirm an overlapping stay.
func (s *Service) advance(ctx context.Context, id uint64, to model.BookingStatus, after func(Tx, *model.Booking) error) (*model.Booking, error) {
	var out *model.Booking
	err := s.store.WithTx(ctx, func(tx Tx) error {
		b, err := tx.GetBooking(ctx, id, true)
		if err != nil {
			return err
		}
		if !CanTransition(b.Status, to) {
			return &domain.TransitionError{From: string(b.Status), To: string(to)}
		}
		if to == model.BookingConfirmed || to == model.BookingCheckedIn {
			if _, err := tx.LockProperty(ctx, b.PropertyID); err != nil {
				return err
			}
			if err := s.ensureAvailable(ctx, tx, b.PropertyID, b.Range(), b.ID); err != nil {
				return err
			}
		}
		if err := Transition(b, to, s.Today(), s.now()); err != nil {
			return err
		}
		if err := tx.UpdateBooking(ctx, b); err != nil {
			return fmt.Errorf("update booking: %w", err)
		}
		if after != nil {
			if err := after(tx, b); err != nil {
				return err
			}
		}
		out = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	logger.Log.WithFields(logrus.Fields{
		"booking_id": out.ID,
		"status":     out.Status,
	}).Info("booking status changed")
	return out, nil
}

// CancelResult describes a committed cancellation.
type CancelResult struct {
	Booking           *model.Booking     `json:"booking"`
	Refund            refund.Decision    `json:"refund"`
	RefundTransaction *model.Transaction `json:"refund_transaction,omitempty"`
}

// Cancel ends a pending, confirmed or checked-in booking.  For confirmed
// and checked-in bookings the refund policy is evaluated against the net
// amount paid, a refund expense is posted and the customer's spend is
// reduced, all in the same transaction that releases the nights.
func (s *Service) Cancel(ctx context.Context, id uint64, reason string) (*CancelResult, error) {
	return s.cancel(ctx, id, reason, "")
}

// Reject declines a pending booking.  No payment was taken, so nothing is
// refunded.
func (s *Service) Reject(ctx context.Context, id uint64, reason string) (*CancelResult, error) {
	return s.cancel(ctx, id, reason, model.BookingPending)
}

func (s *Service) cancel(ctx context.Context, id uint64, reason string, requireFrom model.BookingStatus) (*CancelResult, error) {
	var (
		res CancelResult
		bc  BookingContext
	)
	err := s.store.WithTx(ctx, func(tx Tx) error {
		b, err := tx.GetBooking(ctx, id, true)
		if err != nil {
			return err
		}
		if requireFrom != "" && b.Status != requireFrom {
			return &domain.TransitionError{From: string(b.Status), To: string(model.BookingCancelled)}
		}
		if !CanTransition(b.Status, model.BookingCancelled) {
			return &domain.TransitionError{From: string(b.Status), To: string(model.BookingCancelled)}
		}

		income, refunded, err := tx.PaymentTotals(ctx, b.ID)
		if err != nil {
			return fmt.Errorf("load payment totals: %w", err)
		}
		paid := income - refunded
		dec := s.decide(b, paid)

		if err := Transition(b, model.BookingCancelled, s.Today(), s.now()); err != nil {
			return err
		}
		tier := string(dec.Tier)
		b.RefundTier = &tier
		b.RefundAmount = dec.RefundAmount
		if reason != "" {
			b.CancellationReason = &reason
		}

		if dec.RefundAmount > 0 {
			bookingID := b.ID
			rt := &model.Transaction{
				Type:        model.TransactionExpense,
				Category:    model.CategoryRefund,
				Amount:      dec.RefundAmount,
				BookingID:   &bookingID,
				Description: fmt.Sprintf("%s refund for booking %s", dec.Tier, b.BookingNumber),
				CreatedAt:   s.now().UTC(),
			}
			if err := tx.InsertTransaction(ctx, rt); err != nil {
				return fmt.Errorf("insert refund transaction: %w", err)
			}
			if err := tx.AdjustCustomerTotals(ctx, b.CustomerID, 0, -dec.RefundAmount); err != nil {
				return fmt.Errorf("adjust customer totals: %w", err)
			}
			if dec.RefundAmount >= paid {
				b.PaymentStatus = model.PaymentRefunded
			} else {
				b.PaymentStatus = model.PaymentPartial
			}
			res.RefundTransaction = rt
		}

		if err := tx.UpdateBooking(ctx, b); err != nil {
			return fmt.Errorf("update booking: %w", err)
		}
		if err := tx.ReleaseNights(ctx, b.ID); err != nil {
			return fmt.Errorf("release nights: %w", err)
		}
		bc, err = s.bookingContext(ctx, tx, b)
		if err != nil {
			return err
		}
		res.Booking = b
		res.Refund = dec
		return nil
	})
	if err != nil {
		return nil, err
	}
	logger.Log.WithFields(logrus.Fields{
		"booking_id":    res.Booking.ID,
		"refund_tier":   res.Refund.Tier,
		"refund_amount": res.Refund.RefundAmount,
	}).Info("booking cancelled")
	s.emit("booking cancelled", res.Booking.ID, func() error { return s.notifier.BookingCancelled(ctx, bc, res.Refund) })
	return &res, nil
}

// decide evaluates the refund for b.  A pending booking with nothing paid
// carries no refund obligation.
func (s *Service) decide(b *model.Booking, paid int64) refund.Decision {
	if b.Status == model.BookingPending && paid <= 0 {
		return refund.Decision{Tier: refund.TierNone}
	}
	return refund.Evaluate(s.settings.Refund, b.CheckIn, s.Today(), paid)
}

// PreviewRefund reports what Cancel would refund right now.
func (s *Service) PreviewRefund(ctx context.Context, id uint64) (refund.Decision, error) {
	var dec refund.Decision
	err := s.store.WithTx(ctx, func(tx Tx) error {
		b, err := tx.GetBooking(ctx, id, false)
		if err != nil {
			return err
		}
		if !CanTransition(b.Status, model.BookingCancelled) {
			return &domain.TransitionError{From: string(b.Status), To: string(model.BookingCancelled)}
		}
		income, refunded, err := tx.PaymentTotals(ctx, b.ID)
		if err != nil {
			return err
		}
		dec = s.decide(b, income-refunded)
		return nil
	})
	return dec, err
}

// ExpireStalePending rejects pending bookings created more than ttl ago,
// freeing their nights.  Bookings that moved on concurrently are skipped.
func (s *Service) ExpireStalePending(ctx context.Context, ttl time.Duration) (int, error) {
	if ttl <= 0 {
		return 0, nil
	}
	var ids []uint64
	err := s.store.WithTx(ctx, func(tx Tx) error {
		var err error
		ids, err = tx.ListStalePending(ctx, s.now().UTC().Add(-ttl), 100)
		return err
	})
	if err != nil {
		return 0, err
	}
	expired := 0
	for _, id := range ids {
		if _, err := s.Reject(ctx, id, "payment not received in time"); err != nil {
			if errors.Is(err, domain.ErrInvalidTransition) {
				continue
			}
			return expired, err
		}
		expired++
	}
	return expired, nil
}
