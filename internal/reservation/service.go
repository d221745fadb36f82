// Package reservation owns the booking lifecycle: availability checks,
// the status state machine, the payment ledger and cancellations.  Every
// multi-step operation runs inside one Store transaction; notifications
// are sent only after the commit and never undo it.
package reservation

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/shortlet-booking/internal/calendar"
	"github.com/iliyamo/shortlet-booking/internal/domain"
	"github.com/iliyamo/shortlet-booking/internal/logger"
	"github.com/iliyamo/shortlet-booking/internal/model"
	"github.com/iliyamo/shortlet-booking/internal/pricing"
	"github.com/iliyamo/shortlet-booking/internal/refund"
)

// Settings are the operator-configurable booking rules.
type Settings struct {
	InstantBooking          bool           // new bookings start confirmed
	CleaningFee             int64          // per stay, minor units
	TaxRate                 float64        // fraction of the base amount, e.g. 0.075
	PaymentTolerancePercent int            // overpayment accepted above the total
	MaxStayNights           int            // longest bookable stay; 0 means no limit
	Location                *time.Location // property-local zone
	Refund                  refund.Policy
}

// Service is the entry point of the booking core.
type Service struct {
	store        Store
	notifier     Notifier
	housekeeping Housekeeping
	settings     Settings
	now          func() time.Time
}

// Option customises a Service.
type Option func(*Service)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService wires the core.  Nil collaborators are replaced with no-ops.
func NewService(store Store, notifier Notifier, housekeeping Housekeeping, settings Settings, opts ...Option) *Service {
	if store == nil {
		panic("nil store passed to NewService")
	}
	if notifier == nil {
		notifier = noopNotifier{}
	}
	if housekeeping == nil {
		housekeeping = noopNotifier{}
	}
	if settings.Location == nil {
		settings.Location = time.UTC
	}
	s := &Service{
		store:        store,
		notifier:     notifier,
		housekeeping: housekeeping,
		settings:     settings,
		now:          time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Settings returns the active booking rules.
func (s *Service) Settings() Settings { return s.settings }

// Today is the current calendar date in the property zone.
func (s *Service) Today() calendar.Date {
	return calendar.DateOf(s.now(), s.settings.Location)
}

// Guest identifies the person making a booking.
type Guest struct {
	FullName string
	Email    string
	Phone    string
}

// QuoteRequest asks for a price preview.
type QuoteRequest struct {
	PropertyID uint64
	CheckIn    calendar.Date
	CheckOut   calendar.Date
	Guests     int
	Discount   int64
}

// CreateRequest asks for a new booking.
type CreateRequest struct {
	QuoteRequest
	Guest           Guest
	SpecialRequests *string
	ArrivalTime     *string
}

// Quote prices a stay without reserving anything.
func (s *Service) Quote(ctx context.Context, req QuoteRequest) (pricing.PriceBreakdown, error) {
	r, err := s.stayRange(req.CheckIn, req.CheckOut)
	if err != nil {
		return pricing.PriceBreakdown{}, err
	}
	var out pricing.PriceBreakdown
	err = s.store.WithTx(ctx, func(tx Tx) error {
		p, err := tx.GetProperty(ctx, req.PropertyID)
		if err != nil {
			return err
		}
		rules, err := tx.ActiveSeasonalRules(ctx)
		if err != nil {
			return fmt.Errorf("load seasonal rules: %w", err)
		}
		out, err = s.price(p, rules, r, req.Guests, req.Discount)
		return err
	})
	return out, err
}

// stayRange validates a requested stay, including the MaxStayNights cap.
func (s *Service) stayRange(checkIn, checkOut calendar.Date) (calendar.Range, error) {
	r, err := calendar.NewRange(checkIn, checkOut)
	if err != nil {
		return calendar.Range{}, err
	}
	if limit := s.settings.MaxStayNights; limit > 0 && r.Nights() > limit {
		return calendar.Range{}, fmt.Errorf("stay of %d nights exceeds the %d-night limit: %w", r.Nights(), limit, domain.ErrInvalidRange)
	}
	return r, nil
}

// price derives the tax from the base amount and runs the pricing engine.
func (s *Service) price(p *model.Property, rules []model.SeasonalRule, r calendar.Range, guests int, discount int64) (pricing.PriceBreakdown, error) {
	base := pricing.BaseAmount(p.PricePerNight, rules, r)
	tax := int64(math.Round(float64(base) * s.settings.TaxRate))
	return pricing.Quote(pricing.QuoteInput{
		PricePerNight: p.PricePerNight,
		MaxGuests:     p.MaxGuests,
		Rules:         rules,
		CheckIn:       r.CheckIn,
		CheckOut:      r.CheckOut,
		Guests:        guests,
		CleaningFee:   s.settings.CleaningFee,
		TaxAmount:     tax,
		Discount:      discount,
	})
}

// Create validates, prices and stores a booking.  The availability check
// and the insert share one transaction with the property row locked; the
// store's night-level unique key backs this up against any writer that
// bypasses the lock.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*model.Booking, error) {
	r, err := s.stayRange(req.CheckIn, req.CheckOut)
	if err != nil {
		return nil, err
	}
	email := strings.ToLower(strings.TrimSpace(req.Guest.Email))
	if email == "" {
		return nil, errors.New("guest email is required")
	}

	var (
		booking *model.Booking
		bc      BookingContext
	)
	err = s.store.WithTx(ctx, func(tx Tx) error {
		p, err := tx.LockProperty(ctx, req.PropertyID)
		if err != nil {
			return err
		}
		if p.Status == model.PropertyMaintenance {
			return domain.ErrPropertyUnavailable
		}
		rules, err := tx.ActiveSeasonalRules(ctx)
		if err != nil {
			return fmt.Errorf("load seasonal rules: %w", err)
		}
		quote, err := s.price(p, rules, r, req.Guests, req.Discount)
		if err != nil {
			return err
		}
		if err := s.ensureAvailable(ctx, tx, p.ID, r, 0); err != nil {
			return err
		}

		cust := &model.Customer{FullName: strings.TrimSpace(req.Guest.FullName), Email: email, Phone: strings.TrimSpace(req.Guest.Phone)}
		if err := tx.UpsertCustomer(ctx, cust); err != nil {
			return fmt.Errorf("upsert customer: %w", err)
		}

		now := s.now().UTC()
		b := &model.Booking{
			BookingNumber:   newBookingNumber(now),
			PropertyID:      p.ID,
			CustomerID:      cust.ID,
			CheckIn:         r.CheckIn,
			CheckOut:        r.CheckOut,
			Guests:          req.Guests,
			BaseAmount:      quote.BaseAmount,
			CleaningFee:     quote.CleaningFee,
			TaxAmount:       quote.TaxAmount,
			DiscountAmount:  quote.DiscountAmount,
			TotalAmount:     quote.TotalAmount,
			Status:          model.BookingPending,
			PaymentStatus:   model.PaymentPending,
			SpecialRequests: req.SpecialRequests,
			ArrivalTime:     req.ArrivalTime,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		if s.settings.InstantBooking {
			b.Status = model.BookingConfirmed
			b.ConfirmedAt = &now
		}
		if err := tx.InsertBooking(ctx, b); err != nil {
			return err
		}
		booking = b
		bc = BookingContext{Booking: *b, Customer: *cust, PropertyName: p.Name}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Log.WithFields(logrus.Fields{
		"booking_number": booking.BookingNumber,
		"property_id":    booking.PropertyID,
		"status":         booking.Status,
	}).Info("booking created")
	if booking.Status == model.BookingConfirmed {
		s.emit("booking confirmed", booking.ID, func() error { return s.notifier.BookingConfirmed(ctx, bc) })
	}
	return booking, nil
}

// IsAvailable reports whether [checkIn, checkOut) is free on the property,
// ignoring excludeID.  It is a read for previews only; Create repeats the
// check under lock.
func (s *Service) IsAvailable(ctx context.Context, propertyID uint64, checkIn, checkOut calendar.Date, excludeID uint64) (bool, error) {
	r, err := calendar.NewRange(checkIn, checkOut)
	if err != nil {
		return false, err
	}
	available := false
	err = s.store.WithTx(ctx, func(tx Tx) error {
		if _, err := tx.GetProperty(ctx, propertyID); err != nil {
			return err
		}
		clashes, err := tx.FindOverlappingBookings(ctx, propertyID, r, excludeID)
		if err != nil {
			return err
		}
		available = len(clashes) == 0
		return nil
	})
	return available, err
}

// BookedRanges lists the occupied stays on a property that touch
// [from, to), for availability calendars.
func (s *Service) BookedRanges(ctx context.Context, propertyID uint64, from, to calendar.Date) ([]calendar.Range, error) {
	window, err := calendar.NewRange(from, to)
	if err != nil {
		return nil, err
	}
	var out []calendar.Range
	err = s.store.WithTx(ctx, func(tx Tx) error {
		if _, err := tx.GetProperty(ctx, propertyID); err != nil {
			return err
		}
		bookings, err := tx.FindOverlappingBookings(ctx, propertyID, window, 0)
		if err != nil {
			return err
		}
		out = make([]calendar.Range, 0, len(bookings))
		for _, b := range bookings {
			out = append(out, b.Range())
		}
		return nil
	})
	return out, err
}

// ensureAvailable fails with ErrDoubleBooked when another non-cancelled
// booking overlaps r.
func (s *Service) ensureAvailable(ctx context.Context, tx Tx, propertyID uint64, r calendar.Range, excludeID uint64) error {
	clashes, err := tx.FindOverlappingBookings(ctx, propertyID, r, excludeID)
	if err != nil {
		return fmt.Errorf("check availability: %w", err)
	}
	for _, c := range clashes {
		if c.Occupying() && c.ID != excludeID && r.Overlaps(c.Range()) {
			return domain.ErrDoubleBooked
		}
	}
	return nil
}

// Get returns a booking by ID.
func (s *Service) Get(ctx context.Context, id uint64) (*model.Booking, error) {
	var b *model.Booking
	err := s.store.WithTx(ctx, func(tx Tx) error {
		var err error
		b, err = tx.GetBooking(ctx, id, false)
		return err
	})
	return b, err
}

// BookingDetail bundles a booking with its ledger rows and guest.
type BookingDetail struct {
	Booking      *model.Booking      `json:"booking"`
	Customer     *model.Customer     `json:"customer"`
	Transactions []model.Transaction `json:"transactions"`
	AmountPaid   int64               `json:"amount_paid"`
}

// Detail returns a booking with its customer and transactions.
func (s *Service) Detail(ctx context.Context, id uint64) (*BookingDetail, error) {
	var out BookingDetail
	err := s.store.WithTx(ctx, func(tx Tx) error {
		b, err := tx.GetBooking(ctx, id, false)
		if err != nil {
			return err
		}
		c, err := tx.GetCustomer(ctx, b.CustomerID)
		if err != nil {
			return err
		}
		txs, err := tx.ListTransactions(ctx, id)
		if err != nil {
			return err
		}
		income, refunded, err := tx.PaymentTotals(ctx, id)
		if err != nil {
			return err
		}
		out = BookingDetail{Booking: b, Customer: c, Transactions: txs, AmountPaid: income - refunded}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// GetByNumber serves unauthenticated guest lookups.  The email must match
// the booking's customer; a mismatch is reported as not found so booking
// numbers cannot be probed.
func (s *Service) GetByNumber(ctx context.Context, number, email string) (*model.Booking, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	var b *model.Booking
	err := s.store.WithTx(ctx, func(tx Tx) error {
		found, err := tx.GetBookingByNumber(ctx, strings.ToUpper(strings.TrimSpace(number)))
		if err != nil {
			return err
		}
		c, err := tx.GetCustomer(ctx, found.CustomerID)
		if err != nil {
			return err
		}
		if email == "" || !strings.EqualFold(c.Email, email) {
			return domain.ErrBookingNotFound
		}
		b = found
		return nil
	})
	return b, err
}

// List returns bookings matching f, newest first.
func (s *Service) List(ctx context.Context, f model.BookingFilter) ([]model.Booking, error) {
	if f.Limit <= 0 || f.Limit > 200 {
		f.Limit = 50
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	var out []model.Booking
	err := s.store.WithTx(ctx, func(tx Tx) error {
		var err error
		out, err = tx.ListBookings(ctx, f)
		return err
	})
	return out, err
}

// bookingContext loads what collaborators need to describe b.
func (s *Service) bookingContext(ctx context.Context, tx Tx, b *model.Booking) (BookingContext, error) {
	c, err := tx.GetCustomer(ctx, b.CustomerID)
	if err != nil {
		return BookingContext{}, fmt.Errorf("load customer: %w", err)
	}
	p, err := tx.GetProperty(ctx, b.PropertyID)
	if err != nil {
		return BookingContext{}, fmt.Errorf("load property: %w", err)
	}
	return BookingContext{Booking: *b, Customer: *c, PropertyName: p.Name}, nil
}

// emit runs a post-commit side effect and logs its failure.
func (s *Service) emit(event string, bookingID uint64, fn func() error) {
	if err := fn(); err != nil {
		logger.Log.WithError(err).WithFields(logrus.Fields{
			"event":      event,
			"booking_id": bookingID,
		}).Warn("side effect failed; booking state is unaffected")
	}
}

// newBookingNumber returns a reference such as SL-251224-3F2A9C1B.
func newBookingNumber(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return "SL-" + now.Format("060102") + "-" + suffix
}
