package reservation

import (
	"context"
	"time"

	"github.com/iliyamo/shortlet-booking/internal/calendar"
	"github.com/iliyamo/shortlet-booking/internal/model"
	"github.com/iliyamo/shortlet-booking/internal/refund"
)

// Store runs fn inside a single all-or-nothing unit of work.  The store
// commits only when fn returns nil.
type Store interface {
	WithTx(ctx context.Context, fn func(tx Tx) error) error
}

// Tx is the persistence surface the booking core needs.  Implementations
// must make LockProperty serialise concurrent writers for the same
// property and must fail InsertBooking with domain.ErrDoubleBooked when
// any of the booking's nights is already held by another booking.
type Tx interface {
	GetProperty(ctx context.Context, id uint64) (*model.Property, error)
	LockProperty(ctx context.Context, id uint64) (*model.Property, error)
	ActiveSeasonalRules(ctx context.Context) ([]model.SeasonalRule, error)

	FindOverlappingBookings(ctx context.Context, propertyID uint64, r calendar.Range, excludeID uint64) ([]model.Booking, error)
	InsertBooking(ctx context.Context, b *model.Booking) error
	ReleaseNights(ctx context.Context, bookingID uint64) error
	GetBooking(ctx context.Context, id uint64, forUpdate bool) (*model.Booking, error)
	GetBookingByNumber(ctx context.Context, number string) (*model.Booking, error)
	ListBookings(ctx context.Context, f model.BookingFilter) ([]model.Booking, error)
	ListStalePending(ctx context.Context, createdBefore time.Time, limit int) ([]uint64, error)
	UpdateBooking(ctx context.Context, b *model.Booking) error

	GetCustomer(ctx context.Context, id uint64) (*model.Customer, error)
	UpsertCustomer(ctx context.Context, c *model.Customer) error
	AdjustCustomerTotals(ctx context.Context, customerID uint64, bookings int, spent int64) error

	FindTransactionByReference(ctx context.Context, ref string) (*model.Transaction, error)
	InsertTransaction(ctx context.Context, t *model.Transaction) error
	ListTransactions(ctx context.Context, bookingID uint64) ([]model.Transaction, error)
	PaymentTotals(ctx context.Context, bookingID uint64) (income, refunded int64, err error)
}

// BookingContext is what downstream collaborators receive with every
// event, so they never have to query the primary database.
type BookingContext struct {
	Booking      model.Booking
	Customer     model.Customer
	PropertyName string
}

// Notifier receives guest-facing events after a commit.  Calls are best
// effort; returned errors are logged and otherwise ignored.
type Notifier interface {
	BookingConfirmed(ctx context.Context, bc BookingContext) error
	PaymentReceived(ctx context.Context, bc BookingContext, t model.Transaction) error
	BookingCancelled(ctx context.Context, bc BookingContext, d refund.Decision) error
}

// Housekeeping receives checkout events so a cleaning task can be raised.
type Housekeeping interface {
	CheckoutOccurred(ctx context.Context, bc BookingContext) error
}

type noopNotifier struct{}

func (noopNotifier) BookingConfirmed(context.Context, BookingContext) error { return nil }
func (noopNotifier) PaymentReceived(context.Context, BookingContext, model.Transaction) error {
	return nil
}
func (noopNotifier) BookingCancelled(context.Context, BookingContext, refund.Decision) error {
	return nil
}
func (noopNotifier) CheckoutOccurred(context.Context, BookingContext) error { return nil }
