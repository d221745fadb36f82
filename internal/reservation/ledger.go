package reservation

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/shortlet-booking/internal/domain"
	"github.com/iliyamo/shortlet-booking/internal/logger"
	"github.com/iliyamo/shortlet-booking/internal/model"
)

// ErrMissingReference is returned when a payment arrives without a
// provider reference to key idempotency on.
var ErrMissingReference = errors.New("payment reference is required")

// ErrReferenceConflict is returned when a provider reference already
// recorded against one booking is presented for another.
var ErrReferenceConflict = errors.New("payment reference belongs to another booking")

// PaymentInput is a verified payment handed over by the payment-provider
// collaborator.  The amount and reference are trusted.
type PaymentInput struct {
	BookingID uint64
	Amount    int64
	Reference string
	Method    string
}

// PaymentResult is the outcome of ApplyPayment.  Replayed is true when
// the reference had already been applied and nothing changed.
type PaymentResult struct {
	Transaction *model.Transaction `json:"transaction"`
	Booking     *model.Booking     `json:"booking"`
	Replayed    bool               `json:"replayed"`
}

// ApplyPayment records a payment against a booking exactly once per
// provider reference.  A pending booking becomes confirmed; the customer's
// cached totals are incremented in the same transaction.
func (s *Service) ApplyPayment(ctx context.Context, in PaymentInput) (*PaymentResult, error) {
	in.Reference = strings.TrimSpace(in.Reference)
	if in.Reference == "" {
		return nil, ErrMissingReference
	}
	res, confirmed, bc, err := s.applyPayment(ctx, in)
	if errors.Is(err, domain.ErrDuplicateReference) {
		// A concurrent delivery of the same event won the insert.  A
		// fresh transaction sees its row and replays it.
		res, confirmed, bc, err = s.applyPayment(ctx, in)
	}
	if err != nil {
		return nil, err
	}
	if res.Replayed {
		logger.Log.WithField("reference", in.Reference).Info("payment replay ignored")
		return res, nil
	}

	logger.Log.WithFields(logrus.Fields{
		"booking_id":     res.Booking.ID,
		"amount":         res.Transaction.Amount,
		"payment_status": res.Booking.PaymentStatus,
	}).Info("payment applied")
	s.emit("payment received", res.Booking.ID, func() error { return s.notifier.PaymentReceived(ctx, bc, *res.Transaction) })
	if confirmed {
		s.emit("booking confirmed", res.Booking.ID, func() error { return s.notifier.BookingConfirmed(ctx, bc) })
	}
	return res, nil
}

func (s *Service) applyPayment(ctx context.Context, in PaymentInput) (*PaymentResult, bool, BookingContext, error) {
	var (
		res       PaymentResult
		confirmed bool
		bc        BookingContext
	)
	err := s.store.WithTx(ctx, func(tx Tx) error {
		existing, err := tx.FindTransactionByReference(ctx, in.Reference)
		if err != nil {
			return fmt.Errorf("find transaction: %w", err)
		}
		if existing != nil {
			if existing.BookingID == nil {
				return domain.ErrBookingNotFound
			}
			if *existing.BookingID != in.BookingID {
				logger.Log.WithFields(logrus.Fields{
					"reference":        in.Reference,
					"booking_id":       in.BookingID,
					"owner_booking_id": *existing.BookingID,
				}).Warn("payment reference reused for a different booking")
				return ErrReferenceConflict
			}
			b, err := tx.GetBooking(ctx, *existing.BookingID, false)
			if err != nil {
				return err
			}
			res = PaymentResult{Transaction: existing, Booking: b, Replayed: true}
			return nil
		}

		b, err := tx.GetBooking(ctx, in.BookingID, true)
		if err != nil {
			return err
		}
		if b.PaymentStatus == model.PaymentRefunded {
			return domain.ErrAlreadyRefunded
		}
		if b.Status == model.BookingCancelled {
			return &domain.TransitionError{From: string(b.Status), To: string(model.BookingConfirmed)}
		}

		income, refunded, err := tx.PaymentTotals(ctx, b.ID)
		if err != nil {
			return fmt.Errorf("load payment totals: %w", err)
		}
		paid := income - refunded
		if in.Amount <= 0 || paid+in.Amount > s.acceptable(b.TotalAmount) {
			return domain.ErrAmountMismatch
		}

		bookingID := b.ID
		ref := in.Reference
		t := &model.Transaction{
			Type:              model.TransactionIncome,
			Category:          model.CategoryBooking,
			Amount:            in.Amount,
			BookingID:         &bookingID,
			ProviderReference: &ref,
			Description:       "Payment for booking " + b.BookingNumber,
			CreatedAt:         s.now().UTC(),
		}
		if m := strings.TrimSpace(in.Method); m != "" {
			t.PaymentMethod = &m
		}
		if err := tx.InsertTransaction(ctx, t); err != nil {
			return err
		}

		if paid+in.Amount >= b.TotalAmount {
			b.PaymentStatus = model.PaymentPaid
		} else {
			b.PaymentStatus = model.PaymentPartial
		}
		if b.Status == model.BookingPending {
			if _, err := tx.LockProperty(ctx, b.PropertyID); err != nil {
				return err
			}
			if err := s.ensureAvailable(ctx, tx, b.PropertyID, b.Range(), b.ID); err != nil {
				return err
			}
			if err := Transition(b, model.BookingConfirmed, s.Today(), s.now()); err != nil {
				return err
			}
			confirmed = true
		} else {
			b.UpdatedAt = s.now().UTC()
		}
		if err := tx.UpdateBooking(ctx, b); err != nil {
			return fmt.Errorf("update booking: %w", err)
		}

		firstPayment := 0
		if income == 0 {
			firstPayment = 1
		}
		if err := tx.AdjustCustomerTotals(ctx, b.CustomerID, firstPayment, in.Amount); err != nil {
			return fmt.Errorf("adjust customer totals: %w", err)
		}

		bc, err = s.bookingContext(ctx, tx, b)
		if err != nil {
			return err
		}
		res = PaymentResult{Transaction: t, Booking: b}
		return nil
	})
	if err != nil {
		return nil, false, BookingContext{}, err
	}
	return &res, confirmed, bc, nil
}

// acceptable is the largest cumulative payment accepted for total.
func (s *Service) acceptable(total int64) int64 {
	tol := s.settings.PaymentTolerancePercent
	if tol < 0 {
		tol = 0
	}
	return total + total*int64(tol)/100
}
