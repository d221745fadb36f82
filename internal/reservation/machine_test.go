package reservation_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/shortlet-booking/internal/domain"
	"github.com/iliyamo/shortlet-booking/internal/model"
	"github.com/iliyamo/shortlet-booking/internal/reservation"
)

var allStatuses = []model.BookingStatus{
	model.BookingPending,
	model.BookingConfirmed,
	model.BookingCheckedIn,
	model.BookingCompleted,
	model.BookingCancelled,
}

func TestCanTransition_Table(t *testing.T) {
	allowed := map[[2]model.BookingStatus]bool{
		{model.BookingPending, model.BookingConfirmed}:   true,
		{model.BookingPending, model.BookingCancelled}:   true,
		{model.BookingConfirmed, model.BookingCheckedIn}: true,
		{model.BookingConfirmed, model.BookingCancelled}: true,
		{model.BookingCheckedIn, model.BookingCompleted}: true,
		{model.BookingCheckedIn, model.BookingCancelled}: true,
	}
	for _, from := range allStatuses {
		for _, to := range allStatuses {
			want := allowed[[2]model.BookingStatus{from, to}]
			assert.Equal(t, want, reservation.CanTransition(from, to), "%s -> %s", from, to)
		}
	}
	assert.True(t, reservation.IsTerminal(model.BookingCompleted))
	assert.True(t, reservation.IsTerminal(model.BookingCancelled))
	assert.False(t, reservation.IsTerminal(model.BookingPending))
}

func TestTransition_RejectsUnlistedMoves(t *testing.T) {
	now := time.Date(2025, 12, 1, 9, 0, 0, 0, time.UTC)
	today := date(t, "2025-12-01")

	b := &model.Booking{Status: model.BookingCompleted, CheckIn: date(t, "2025-11-20"), CheckOut: date(t, "2025-11-22")}
	err := reservation.Transition(b, model.BookingCancelled, today, now)
	require.ErrorIs(t, err, domain.ErrInvalidTransition)

	var te *domain.TransitionError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "completed", te.From)
	assert.Equal(t, "cancelled", te.To)
	assert.Equal(t, model.BookingCompleted, b.Status)
	assert.Nil(t, b.CancelledAt)
}

func TestTransition_DateGates(t *testing.T) {
	now := time.Date(2025, 12, 1, 9, 0, 0, 0, time.UTC)
	b := &model.Booking{Status: model.BookingConfirmed, CheckIn: date(t, "2025-12-03"), CheckOut: date(t, "2025-12-05")}

	assert.ErrorIs(t, reservation.Transition(b, model.BookingCheckedIn, date(t, "2025-12-02"), now), domain.ErrTooEarly)
	assert.Equal(t, model.BookingConfirmed, b.Status)

	require.NoError(t, reservation.Transition(b, model.BookingCheckedIn, date(t, "2025-12-03"), now))
	require.NotNil(t, b.CheckedInAt)

	assert.ErrorIs(t, reservation.Transition(b, model.BookingCompleted, date(t, "2025-12-04"), now), domain.ErrTooEarly)
	require.NoError(t, reservation.Transition(b, model.BookingCompleted, date(t, "2025-12-05"), now))
	assert.Equal(t, model.BookingCompleted, b.Status)
	require.NotNil(t, b.CompletedAt)
	assert.Equal(t, now, *b.CompletedAt)
}
