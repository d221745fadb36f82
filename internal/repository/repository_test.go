package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/shortlet-booking/internal/calendar"
	"github.com/iliyamo/shortlet-booking/internal/domain"
	"github.com/iliyamo/shortlet-booking/internal/model"
	"github.com/iliyamo/shortlet-booking/internal/reservation"
)

func TestErrorMapping(t *testing.T) {
	dup := &mysql.MySQLError{Number: 1062, Message: "Duplicate entry '1-2025-12-24' for key 'uq_property_night'"}
	other := &mysql.MySQLError{Number: 1213, Message: "Deadlock found"}

	assert.True(t, isDuplicate(dup))
	assert.True(t, isDuplicate(fmt.Errorf("insert: %w", dup)))
	assert.False(t, isDuplicate(other))
	assert.False(t, isDuplicate(errors.New("1062")))

	assert.ErrorIs(t, mapDuplicate(dup, domain.ErrDoubleBooked), domain.ErrDoubleBooked)
	assert.Equal(t, other, mapDuplicate(other, domain.ErrDoubleBooked))
	assert.ErrorIs(t, notFound(sql.ErrNoRows, domain.ErrBookingNotFound), domain.ErrBookingNotFound)
	assert.Equal(t, other, notFound(other, domain.ErrBookingNotFound))
}

func d(s string) calendar.Date {
	v, err := calendar.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return v
}

func TestMemoryStore_NightUniqueness(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	p := s.AddProperty(model.Property{Name: "Loft", PricePerNight: 10000, MaxGuests: 2})

	insert := func(number, in, out string) error {
		return s.WithTx(ctx, func(tx reservation.Tx) error {
			return tx.InsertBooking(ctx, &model.Booking{
				BookingNumber: number, PropertyID: p.ID, CheckIn: d(in), CheckOut: d(out),
				Status: model.BookingPending, PaymentStatus: model.PaymentPending,
			})
		})
	}

	require.NoError(t, insert("A", "2025-06-01", "2025-06-05"))
	assert.ErrorIs(t, insert("B", "2025-06-04", "2025-06-06"), domain.ErrDoubleBooked)
	// Check-out day is free for the next arrival.
	require.NoError(t, insert("C", "2025-06-05", "2025-06-07"))
	assert.Len(t, s.Bookings(), 2)

	require.NoError(t, s.WithTx(ctx, func(tx reservation.Tx) error {
		return tx.ReleaseNights(ctx, s.Bookings()[0].ID)
	}))
	require.NoError(t, insert("D", "2025-06-04", "2025-06-05"))
}

func TestMemoryStore_RollbackOnError(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	boom := errors.New("boom")

	err := s.WithTx(ctx, func(tx reservation.Tx) error {
		c := &model.Customer{FullName: "Ada", Email: "ADA@example.com"}
		require.NoError(t, tx.UpsertCustomer(ctx, c))
		assert.Equal(t, "ada@example.com", c.Email)
		return boom
	})
	assert.ErrorIs(t, err, boom)

	_, ok := s.Customer(1)
	assert.False(t, ok)
}

func TestMemoryStore_ReferenceUniqueness(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	ref := "pi_123"

	require.NoError(t, s.WithTx(ctx, func(tx reservation.Tx) error {
		return tx.InsertTransaction(ctx, &model.Transaction{Type: model.TransactionIncome, Amount: 100, ProviderReference: &ref})
	}))
	err := s.WithTx(ctx, func(tx reservation.Tx) error {
		return tx.InsertTransaction(ctx, &model.Transaction{Type: model.TransactionIncome, Amount: 100, ProviderReference: &ref})
	})
	assert.ErrorIs(t, err, domain.ErrDuplicateReference)

	require.NoError(t, s.WithTx(ctx, func(tx reservation.Tx) error {
		found, err := tx.FindTransactionByReference(ctx, ref)
		require.NoError(t, err)
		require.NotNil(t, found)
		missing, err := tx.FindTransactionByReference(ctx, "pi_missing")
		require.NoError(t, err)
		assert.Nil(t, missing)
		return nil
	}))
}

func TestMemoryStore_PaymentTotals(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	id := uint64(7)
	other := uint64(8)

	require.NoError(t, s.WithTx(ctx, func(tx reservation.Tx) error {
		for _, tr := range []model.Transaction{
			{Type: model.TransactionIncome, Category: model.CategoryBooking, Amount: 5000, BookingID: &id},
			{Type: model.TransactionIncome, Category: model.CategoryBooking, Amount: 2500, BookingID: &id},
			{Type: model.TransactionExpense, Category: model.CategoryRefund, Amount: 1000, BookingID: &id},
			{Type: model.TransactionExpense, Category: "maintenance", Amount: 300, BookingID: &id},
			{Type: model.TransactionIncome, Category: model.CategoryBooking, Amount: 9999, BookingID: &other},
		} {
			tr := tr
			if err := tx.InsertTransaction(ctx, &tr); err != nil {
				return err
			}
		}
		return nil
	}))

	require.NoError(t, s.WithTx(ctx, func(tx reservation.Tx) error {
		income, refunded, err := tx.PaymentTotals(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, int64(7500), income)
		assert.Equal(t, int64(1000), refunded)
		return nil
	}))
}
