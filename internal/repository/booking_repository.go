package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/iliyamo/shortlet-booking/internal/calendar"
	"github.com/iliyamo/shortlet-booking/internal/domain"
	"github.com/iliyamo/shortlet-booking/internal/model"
)

const bookingColumns = `id, booking_number, property_id, customer_id, check_in, check_out, guests,
       base_amount, cleaning_fee, tax_amount, discount_amount, total_amount,
       status, payment_status, special_requests, arrival_time,
       refund_amount, refund_tier, cancellation_reason,
       confirmed_at, checked_in_at, completed_at, cancelled_at, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBooking(row rowScanner) (*model.Booking, error) {
	var b model.Booking
	err := row.Scan(
		&b.ID, &b.BookingNumber, &b.PropertyID, &b.CustomerID, &b.CheckIn, &b.CheckOut, &b.Guests,
		&b.BaseAmount, &b.CleaningFee, &b.TaxAmount, &b.DiscountAmount, &b.TotalAmount,
		&b.Status, &b.PaymentStatus, &b.SpecialRequests, &b.ArrivalTime,
		&b.RefundAmount, &b.RefundTier, &b.CancellationReason,
		&b.ConfirmedAt, &b.CheckedInAt, &b.CompletedAt, &b.CancelledAt, &b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (t *sqlTx) FindOverlappingBookings(ctx context.Context, propertyID uint64, r calendar.Range, excludeID uint64) ([]model.Booking, error) {
	// [a, b) and [c, d) overlap iff a < d and c < b.
	rows, err := t.tx.QueryContext(ctx,
		`SELECT `+bookingColumns+` FROM bookings
		 WHERE property_id = ? AND id <> ? AND status <> 'cancelled'
		   AND check_in < ? AND check_out > ?
		 ORDER BY check_in, id`,
		propertyID, excludeID, r.CheckOut, r.CheckIn,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *b)
	}
	return out, rows.Err()
}

// InsertBooking writes the booking row and one booking_nights row per
// occupied night.  A unique-key hit on the nights is a lost race.
func (t *sqlTx) InsertBooking(ctx context.Context, b *model.Booking) error {
	res, err := t.tx.ExecContext(ctx,
		`INSERT INTO bookings (booking_number, property_id, customer_id, check_in, check_out, guests,
		        base_amount, cleaning_fee, tax_amount, discount_amount, total_amount,
		        status, payment_status, special_requests, arrival_time, confirmed_at, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.BookingNumber, b.PropertyID, b.CustomerID, b.CheckIn, b.CheckOut, b.Guests,
		b.BaseAmount, b.CleaningFee, b.TaxAmount, b.DiscountAmount, b.TotalAmount,
		b.Status, b.PaymentStatus, b.SpecialRequests, b.ArrivalTime, b.ConfirmedAt, b.CreatedAt, b.UpdatedAt,
	)
	if err != nil {
		return mapDuplicate(err, domain.ErrDuplicateReference)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	b.ID = uint64(id)

	nights := b.Range().NightList()
	if len(nights) == 0 {
		return nil
	}
	var sb strings.Builder
	sb.WriteString(`INSERT INTO booking_nights (property_id, night, booking_id) VALUES `)
	args := make([]any, 0, len(nights)*3)
	for i, n := range nights {
		if i > 0 {
			sb.WriteString(",")
		}
		sb.WriteString("(?, ?, ?)")
		args = append(args, b.PropertyID, n, b.ID)
	}
	if _, err := t.tx.ExecContext(ctx, sb.String(), args...); err != nil {
		return mapDuplicate(err, domain.ErrDoubleBooked)
	}
	return nil
}

func (t *sqlTx) ReleaseNights(ctx context.Context, bookingID uint64) error {
	_, err := t.tx.ExecContext(ctx, `DELETE FROM booking_nights WHERE booking_id = ?`, bookingID)
	return err
}

func (t *sqlTx) GetBooking(ctx context.Context, id uint64, forUpdate bool) (*model.Booking, error) {
	q := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = ?`
	if forUpdate {
		q += ` FOR UPDATE`
	}
	b, err := scanBooking(t.tx.QueryRowContext(ctx, q, id))
	if err != nil {
		return nil, notFound(err, domain.ErrBookingNotFound)
	}
	return b, nil
}

func (t *sqlTx) GetBookingByNumber(ctx context.Context, number string) (*model.Booking, error) {
	b, err := scanBooking(t.tx.QueryRowContext(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE booking_number = ?`, number))
	if err != nil {
		return nil, notFound(err, domain.ErrBookingNotFound)
	}
	return b, nil
}

func (t *sqlTx) ListBookings(ctx context.Context, f model.BookingFilter) ([]model.Booking, error) {
	var (
		where []string
		args  []any
	)
	if f.Status != "" {
		where = append(where, "status = ?")
		args = append(args, f.Status)
	}
	if f.PropertyID != 0 {
		where = append(where, "property_id = ?")
		args = append(args, f.PropertyID)
	}
	q := `SELECT ` + bookingColumns + ` FROM bookings`
	if len(where) > 0 {
		q += ` WHERE ` + strings.Join(where, " AND ")
	}
	q += ` ORDER BY id DESC LIMIT ? OFFSET ?`
	args = append(args, f.Limit, f.Offset)

	rows, err := t.tx.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Booking{}
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *b)
	}
	return out, rows.Err()
}

func (t *sqlTx) ListStalePending(ctx context.Context, createdBefore time.Time, limit int) ([]uint64, error) {
	rows, err := t.tx.QueryContext(ctx,
		`SELECT id FROM bookings
		 WHERE status = 'pending' AND payment_status = 'pending' AND created_at < ?
		 ORDER BY id LIMIT ?`,
		createdBefore.UTC(), limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []uint64
	for rows.Next() {
		var id uint64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// UpdateBooking persists the mutable columns.  The dates, guest count and
// monetary snapshot are immutable after creation.
func (t *sqlTx) UpdateBooking(ctx context.Context, b *model.Booking) error {
	res, err := t.tx.ExecContext(ctx,
		`UPDATE bookings SET status = ?, payment_status = ?, refund_amount = ?, refund_tier = ?,
		        cancellation_reason = ?, confirmed_at = ?, checked_in_at = ?, completed_at = ?,
		        cancelled_at = ?, updated_at = ?
		 WHERE id = ?`,
		b.Status, b.PaymentStatus, b.RefundAmount, b.RefundTier,
		b.CancellationReason, b.ConfirmedAt, b.CheckedInAt, b.CompletedAt,
		b.CancelledAt, b.UpdatedAt, b.ID,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		// RowsAffected is 0 for unchanged rows too; confirm it exists.
		var exists int
		if err := t.tx.QueryRowContext(ctx, `SELECT 1 FROM bookings WHERE id = ?`, b.ID).Scan(&exists); err != nil {
			return fmt.Errorf("update booking %d: %w", b.ID, notFound(err, domain.ErrBookingNotFound))
		}
	}
	return nil
}
