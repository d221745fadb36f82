package refund

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/shortlet-booking/internal/calendar"
)

var standard = Policy{
	FullRefundDays:       7,
	PartialRefundDays:    2,
	PartialRefundPercent: 50,
	NoRefundMessage:      "Cancellations within 48 hours of check-in are non-refundable.",
}

func TestEvaluate_Tiers(t *testing.T) {
	checkIn := calendar.NewDate(2025, 6, 20)
	cases := []struct {
		name       string
		daysBefore int
		tier       Tier
		refund     int64
		message    string
	}{
		{"eight days out", 8, TierFull, 100000, ""},
		{"exactly full threshold", 7, TierFull, 100000, ""},
		{"three days out", 3, TierPartial, 50000, ""},
		{"exactly partial threshold", 2, TierPartial, 50000, ""},
		{"day before", 1, TierNone, 0, standard.NoRefundMessage},
		{"same day", 0, TierNone, 0, standard.NoRefundMessage},
		{"after check-in", -2, TierNone, 0, standard.NoRefundMessage},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			dec := Evaluate(standard, checkIn, checkIn.AddDays(-tc.daysBefore), 100000)
			assert.Equal(t, tc.tier, dec.Tier)
			assert.Equal(t, tc.refund, dec.RefundAmount)
			assert.Equal(t, tc.daysBefore, dec.DaysBefore)
			assert.Equal(t, tc.message, dec.Message)
		})
	}
}

func TestEvaluate_UsesAmountPaidNotTotal(t *testing.T) {
	checkIn := calendar.NewDate(2025, 6, 20)
	dec := Evaluate(standard, checkIn, checkIn.AddDays(-10), 30000)
	assert.Equal(t, int64(30000), dec.RefundAmount)

	dec = Evaluate(standard, checkIn, checkIn.AddDays(-3), 30001)
	assert.Equal(t, int64(15000), dec.RefundAmount)

	dec = Evaluate(standard, checkIn, checkIn.AddDays(-10), -5)
	assert.Equal(t, int64(0), dec.RefundAmount)
}

func TestEvaluate_MonotonicInDaysBefore(t *testing.T) {
	checkIn := calendar.NewDate(2025, 6, 20)
	prev := int64(-1)
	for days := -5; days <= 30; days++ {
		dec := Evaluate(standard, checkIn, checkIn.AddDays(-days), 123457)
		if prev >= 0 {
			assert.GreaterOrEqual(t, dec.RefundAmount, prev, "days=%d", days)
		}
		prev = dec.RefundAmount
	}
}

func TestPolicy_Validate(t *testing.T) {
	require.NoError(t, standard.Validate())

	bad := standard
	bad.PartialRefundDays = 9
	assert.Error(t, bad.Validate())

	bad = standard
	bad.PartialRefundPercent = 120
	assert.Error(t, bad.Validate())

	bad = standard
	bad.FullRefundDays = -1
	assert.Error(t, bad.Validate())
}
