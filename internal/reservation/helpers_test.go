package reservation_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/iliyamo/shortlet-booking/internal/calendar"
	"github.com/iliyamo/shortlet-booking/internal/model"
	"github.com/iliyamo/shortlet-booking/internal/refund"
	"github.com/iliyamo/shortlet-booking/internal/repository"
	"github.com/iliyamo/shortlet-booking/internal/reservation"
)

func date(t *testing.T, s string) calendar.Date {
	t.Helper()
	v, err := calendar.ParseDate(s)
	require.NoError(t, err)
	return v
}

// clock is a settable time source.
type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

// recorder captures every notification and can be told to fail.
type recorder struct {
	mu        sync.Mutex
	events    []string
	refunds   []refund.Decision
	payments  []model.Transaction
	contexts  []reservation.BookingContext
	failWith  error
	checkouts int
}

func (r *recorder) record(name string, bc reservation.BookingContext) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, name)
	r.contexts = append(r.contexts, bc)
	return r.failWith
}

func (r *recorder) BookingConfirmed(_ context.Context, bc reservation.BookingContext) error {
	return r.record("confirmed", bc)
}

func (r *recorder) PaymentReceived(_ context.Context, bc reservation.BookingContext, t model.Transaction) error {
	r.mu.Lock()
	r.payments = append(r.payments, t)
	r.mu.Unlock()
	return r.record("payment", bc)
}

func (r *recorder) BookingCancelled(_ context.Context, bc reservation.BookingContext, d refund.Decision) error {
	r.mu.Lock()
	r.refunds = append(r.refunds, d)
	r.mu.Unlock()
	return r.record("cancelled", bc)
}

func (r *recorder) CheckoutOccurred(_ context.Context, bc reservation.BookingContext) error {
	r.mu.Lock()
	r.checkouts++
	r.mu.Unlock()
	return r.record("checkout", bc)
}

func (r *recorder) Events() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

var errNotifier = errors.New("smtp down")

type fixture struct {
	store    *repository.MemoryStore
	svc      *reservation.Service
	clock    *clock
	notes    *recorder
	property model.Property
}

func defaultSettings() reservation.Settings {
	return reservation.Settings{
		PaymentTolerancePercent: 2,
		Refund: refund.Policy{
			FullRefundDays:       7,
			PartialRefundDays:    3,
			PartialRefundPercent: 50,
			NoRefundMessage:      "Cancellations within 3 days of check-in are not refundable.",
		},
	}
}

func newFixture(t *testing.T, settings reservation.Settings) *fixture {
	t.Helper()
	store := repository.NewMemoryStore()
	p := store.AddProperty(model.Property{
		Name:          "Lekki Loft",
		Location:      "Lekki Phase 1",
		PricePerNight: 50000,
		Bedrooms:      2,
		Bathrooms:     2,
		MaxGuests:     4,
	})
	store.AddSeasonalRule(model.SeasonalRule{
		Label:      "Festive",
		StartDate:  date(t, "2025-12-20"),
		EndDate:    date(t, "2026-01-05"),
		Multiplier: 1.5,
		Active:     true,
	})
	c := &clock{now: time.Date(2025, 12, 1, 10, 0, 0, 0, time.UTC)}
	notes := &recorder{}
	svc := reservation.NewService(store, notes, notes, settings, reservation.WithClock(c.Now))
	return &fixture{store: store, svc: svc, clock: c, notes: notes, property: p}
}

func (f *fixture) request(t *testing.T, in, out string) reservation.CreateRequest {
	return reservation.CreateRequest{
		QuoteRequest: reservation.QuoteRequest{
			PropertyID: f.property.ID,
			CheckIn:    date(t, in),
			CheckOut:   date(t, out),
			Guests:     2,
		},
		Guest: reservation.Guest{FullName: "Ada Obi", Email: "ada@example.com", Phone: "+2348000000000"},
	}
}

func (f *fixture) create(t *testing.T, in, out string) *model.Booking {
	t.Helper()
	b, err := f.svc.Create(context.Background(), f.request(t, in, out))
	require.NoError(t, err)
	return b
}

// paid creates a booking and settles it in full.
func (f *fixture) paid(t *testing.T, in, out, ref string) *model.Booking {
	t.Helper()
	b := f.create(t, in, out)
	res, err := f.svc.ApplyPayment(context.Background(), reservation.PaymentInput{
		BookingID: b.ID, Amount: b.TotalAmount, Reference: ref, Method: "card",
	})
	require.NoError(t, err)
	return res.Booking
}
