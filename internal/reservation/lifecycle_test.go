package reservation_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/shortlet-booking/internal/domain"
	"github.com/iliyamo/shortlet-booking/internal/model"
	"github.com/iliyamo/shortlet-booking/internal/refund"
)

func TestCancel_RefundTiers(t *testing.T) {
	cases := []struct {
		name       string
		today      time.Time
		tier       refund.Tier
		refund     int64
		payment    model.PaymentStatus
		spentAfter int64
	}{
		{"ten days out", time.Date(2025, 12, 1, 12, 0, 0, 0, time.UTC), refund.TierFull, 100000, model.PaymentRefunded, 0},
		{"five days out", time.Date(2025, 12, 6, 12, 0, 0, 0, time.UTC), refund.TierPartial, 50000, model.PaymentPartial, 50000},
		{"one day out", time.Date(2025, 12, 10, 12, 0, 0, 0, time.UTC), refund.TierNone, 0, model.PaymentPaid, 100000},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t, defaultSettings())
			ctx := context.Background()
			b := f.paid(t, "2025-12-11", "2025-12-13", "pi_"+tc.name)
			require.Equal(t, int64(100000), b.TotalAmount)

			f.clock.Set(tc.today)
			res, err := f.svc.Cancel(ctx, b.ID, "guest request")
			require.NoError(t, err)

			assert.Equal(t, tc.tier, res.Refund.Tier)
			assert.Equal(t, tc.refund, res.Refund.RefundAmount)
			assert.Equal(t, model.BookingCancelled, res.Booking.Status)
			assert.Equal(t, tc.payment, res.Booking.PaymentStatus)
			require.NotNil(t, res.Booking.RefundTier)
			assert.Equal(t, string(tc.tier), *res.Booking.RefundTier)
			require.NotNil(t, res.Booking.CancellationReason)
			require.NotNil(t, res.Booking.CancelledAt)

			det, err := f.svc.Detail(ctx, b.ID)
			require.NoError(t, err)
			assert.Equal(t, tc.spentAfter, det.Customer.TotalSpent)
			assert.Equal(t, 100000-tc.refund, det.AmountPaid)
			if tc.refund > 0 {
				require.NotNil(t, res.RefundTransaction)
				assert.Equal(t, model.TransactionExpense, res.RefundTransaction.Type)
				assert.Equal(t, model.CategoryRefund, res.RefundTransaction.Category)
				assert.Len(t, det.Transactions, 2)
			} else {
				assert.Nil(t, res.RefundTransaction)
				assert.NotEmpty(t, res.Refund.Message)
				assert.Len(t, det.Transactions, 1)
			}

			events := f.notes.Events()
			assert.Equal(t, "cancelled", events[len(events)-1])
		})
	}
}

func TestCancel_CheckedInStay(t *testing.T) {
	f := newFixture(t, defaultSettings())
	ctx := context.Background()
	b := f.paid(t, "2025-12-11", "2025-12-15", "pi_stay")
	require.Equal(t, model.BookingConfirmed, b.Status)

	f.clock.Set(time.Date(2025, 12, 11, 15, 0, 0, 0, time.UTC))
	_, err := f.svc.CheckIn(ctx, b.ID)
	require.NoError(t, err)

	f.clock.Set(time.Date(2025, 12, 13, 9, 0, 0, 0, time.UTC))
	res, err := f.svc.Cancel(ctx, b.ID, "left early")
	require.NoError(t, err)

	assert.Equal(t, model.BookingCancelled, res.Booking.Status)
	assert.Equal(t, refund.TierNone, res.Refund.Tier)
	assert.Equal(t, -2, res.Refund.DaysBefore)
	assert.Equal(t, b.TotalAmount, res.Refund.AmountPaid)
	assert.Zero(t, res.Refund.RefundAmount)
	assert.Nil(t, res.RefundTransaction)
	assert.Equal(t, model.PaymentPaid, res.Booking.PaymentStatus)
	require.NotNil(t, res.Booking.RefundTier)
	assert.Equal(t, string(refund.TierNone), *res.Booking.RefundTier)

	events := f.notes.Events()
	assert.Equal(t, "cancelled", events[len(events)-1])
	f.notes.mu.Lock()
	last := f.notes.refunds[len(f.notes.refunds)-1]
	f.notes.mu.Unlock()
	assert.Equal(t, refund.TierNone, last.Tier)

	// The remaining nights are back on the calendar.
	next := f.create(t, "2025-12-13", "2025-12-15")
	assert.Equal(t, model.BookingPending, next.Status)
}

func TestCancel_PartialRefundMarksPaymentPartial(t *testing.T) {
	f := newFixture(t, defaultSettings())
	b := f.paid(t, "2025-12-11", "2025-12-13", "pi_partial")

	f.clock.Set(time.Date(2025, 12, 6, 12, 0, 0, 0, time.UTC))
	res, err := f.svc.Cancel(context.Background(), b.ID, "")
	require.NoError(t, err)
	assert.Equal(t, refund.TierPartial, res.Refund.Tier)
	assert.Equal(t, model.PaymentPartial, res.Booking.PaymentStatus)
}

func TestCancel_FreesNightsAndIsTerminal(t *testing.T) {
	f := newFixture(t, defaultSettings())
	ctx := context.Background()
	b := f.paid(t, "2025-12-11", "2025-12-13", "pi_x")

	_, err := f.svc.Cancel(ctx, b.ID, "")
	require.NoError(t, err)

	_, err = f.svc.Cancel(ctx, b.ID, "")
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	_, err = f.svc.Confirm(ctx, b.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	free, err := f.svc.IsAvailable(ctx, f.property.ID, date(t, "2025-12-11"), date(t, "2025-12-13"), 0)
	require.NoError(t, err)
	assert.True(t, free)
}

func TestCancel_UnpaidPendingRefundsNothing(t *testing.T) {
	f := newFixture(t, defaultSettings())
	b := f.create(t, "2025-12-11", "2025-12-13")

	res, err := f.svc.Cancel(context.Background(), b.ID, "")
	require.NoError(t, err)
	assert.Equal(t, refund.TierNone, res.Refund.Tier)
	assert.Zero(t, res.Refund.RefundAmount)
	assert.Equal(t, model.PaymentPending, res.Booking.PaymentStatus)
	assert.Len(t, f.store.Transactions(), 0)
}

func TestPreviewRefund_MatchesCancel(t *testing.T) {
	f := newFixture(t, defaultSettings())
	ctx := context.Background()
	b := f.paid(t, "2025-12-11", "2025-12-13", "pi_p")
	f.clock.Set(time.Date(2025, 12, 7, 8, 0, 0, 0, time.UTC))

	preview, err := f.svc.PreviewRefund(ctx, b.ID)
	require.NoError(t, err)
	res, err := f.svc.Cancel(ctx, b.ID, "")
	require.NoError(t, err)
	assert.Equal(t, preview, res.Refund)
	assert.Equal(t, 4, preview.DaysBefore)

	_, err = f.svc.PreviewRefund(ctx, b.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestConfirmCheckInComplete(t *testing.T) {
	f := newFixture(t, defaultSettings())
	ctx := context.Background()
	b := f.create(t, "2025-12-03", "2025-12-05")

	_, err := f.svc.CheckIn(ctx, b.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition, "pending cannot check in")

	confirmed, err := f.svc.Confirm(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, model.BookingConfirmed, confirmed.Status)
	assert.Equal(t, []string{"confirmed"}, f.notes.Events())

	_, err = f.svc.CheckIn(ctx, b.ID)
	assert.ErrorIs(t, err, domain.ErrTooEarly)

	f.clock.Set(time.Date(2025, 12, 3, 15, 0, 0, 0, time.UTC))
	in, err := f.svc.CheckIn(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, model.BookingCheckedIn, in.Status)

	f.clock.Set(time.Date(2025, 12, 4, 11, 0, 0, 0, time.UTC))
	_, err = f.svc.Complete(ctx, b.ID)
	assert.ErrorIs(t, err, domain.ErrTooEarly)
	got, err := f.svc.Get(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, model.BookingCheckedIn, got.Status)

	f.clock.Set(time.Date(2025, 12, 5, 11, 0, 0, 0, time.UTC))
	done, err := f.svc.Complete(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, model.BookingCompleted, done.Status)
	assert.Equal(t, 1, f.notes.checkouts)

	_, err = f.svc.Cancel(ctx, b.ID, "")
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestCheckIn_UsesPropertyTimezone(t *testing.T) {
	settings := defaultSettings()
	settings.Location = time.FixedZone("WAT", 3600)
	f := newFixture(t, settings)
	ctx := context.Background()
	b := f.paid(t, "2025-12-03", "2025-12-05", "pi_tz")

	// 23:30 UTC on the 2nd is already the 3rd in Lagos.
	f.clock.Set(time.Date(2025, 12, 2, 23, 30, 0, 0, time.UTC))
	_, err := f.svc.CheckIn(ctx, b.ID)
	require.NoError(t, err)
}

func TestReject_OnlyPending(t *testing.T) {
	f := newFixture(t, defaultSettings())
	ctx := context.Background()
	pending := f.create(t, "2025-12-11", "2025-12-13")
	paid := f.paid(t, "2025-12-14", "2025-12-16", "pi_r")

	res, err := f.svc.Reject(ctx, pending.ID, "not suitable")
	require.NoError(t, err)
	assert.Equal(t, model.BookingCancelled, res.Booking.Status)

	_, err = f.svc.Reject(ctx, paid.ID, "")
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestExpireStalePending(t *testing.T) {
	f := newFixture(t, defaultSettings())
	ctx := context.Background()
	stale := f.create(t, "2025-12-11", "2025-12-13")
	settled := f.paid(t, "2025-12-14", "2025-12-16", "pi_s")

	f.clock.Set(f.clock.Now().Add(30 * time.Minute))
	fresh := f.create(t, "2025-12-20", "2025-12-21")

	f.clock.Set(f.clock.Now().Add(45 * time.Minute))
	n, err := f.svc.ExpireStalePending(ctx, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := f.svc.Get(ctx, stale.ID)
	require.NoError(t, err)
	assert.Equal(t, model.BookingCancelled, got.Status)

	for _, id := range []uint64{settled.ID, fresh.ID} {
		got, err := f.svc.Get(ctx, id)
		require.NoError(t, err)
		assert.NotEqual(t, model.BookingCancelled, got.Status)
	}

	n, err = f.svc.ExpireStalePending(ctx, 0)
	require.NoError(t, err)
	assert.Zero(t, n)
}
