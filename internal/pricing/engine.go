// Package pricing turns a property's base nightly rate and the seasonal
// multiplier rules into a price breakdown for a stay.  Quote is pure: it
// reads nothing but its input, so handlers may call it freely to preview a
// price before a booking is committed.
package pricing

import (
	"math"
	"sort"

	"github.com/iliyamo/shortlet-booking/internal/calendar"
	"github.com/iliyamo/shortlet-booking/internal/domain"
	"github.com/iliyamo/shortlet-booking/internal/model"
)

// QuoteInput carries everything a quote depends on.  All amounts are in
// minor currency units.  TaxAmount is supplied by the caller; the engine
// does not know the tax rate.
type QuoteInput struct {
	PricePerNight int64
	MaxGuests     int
	Rules         []model.SeasonalRule
	CheckIn       calendar.Date
	CheckOut      calendar.Date
	Guests        int
	CleaningFee   int64
	TaxAmount     int64
	Discount      int64
}

// NightPrice is the price of a single night.
type NightPrice struct {
	Night      calendar.Date `json:"night"`
	Multiplier float64       `json:"multiplier"`
	RuleID     *uint64       `json:"rule_id,omitempty"`
	Amount     int64         `json:"amount"`
}

// PriceBreakdown is the result of a quote.  TotalAmount is
// BaseAmount + CleaningFee + TaxAmount - DiscountAmount, never negative.
type PriceBreakdown struct {
	Nights         int          `json:"nights"`
	Nightly        []NightPrice `json:"nightly"`
	BaseAmount     int64        `json:"base_amount"`
	CleaningFee    int64        `json:"cleaning_fee"`
	TaxAmount      int64        `json:"tax_amount"`
	DiscountAmount int64        `json:"discount_amount"`
	TotalAmount    int64        `json:"total_amount"`
}

// Quote prices the stay described by in.
func Quote(in QuoteInput) (PriceBreakdown, error) {
	nights, err := calendar.Nights(in.CheckIn, in.CheckOut)
	if err != nil {
		return PriceBreakdown{}, err
	}
	if in.Guests < 1 || in.Guests > in.MaxGuests {
		return PriceBreakdown{}, domain.ErrInvalidGuestCount
	}
	if in.PricePerNight < 0 || in.CleaningFee < 0 || in.TaxAmount < 0 || in.Discount < 0 {
		return PriceBreakdown{}, domain.ErrAmountMismatch
	}

	nightly := PriceNights(in.PricePerNight, in.Rules, calendar.Range{CheckIn: in.CheckIn, CheckOut: in.CheckOut})
	var base int64
	for _, n := range nightly {
		base += n.Amount
	}

	total := base + in.CleaningFee + in.TaxAmount - in.Discount
	if total < 0 {
		total = 0
	}
	return PriceBreakdown{
		Nights:         nights,
		Nightly:        nightly,
		BaseAmount:     base,
		CleaningFee:    in.CleaningFee,
		TaxAmount:      in.TaxAmount,
		DiscountAmount: in.Discount,
		TotalAmount:    total,
	}, nil
}

// BaseAmount sums the nightly prices of r.  Callers use it to derive a tax
// amount before quoting.
func BaseAmount(pricePerNight int64, rules []model.SeasonalRule, r calendar.Range) int64 {
	var base int64
	for _, n := range PriceNights(pricePerNight, rules, r) {
		base += n.Amount
	}
	return base
}

// PriceNights prices every night of r.
func PriceNights(pricePerNight int64, rules []model.SeasonalRule, r calendar.Range) []NightPrice {
	active := activeRules(rules)
	out := make([]NightPrice, 0, r.Nights())
	r.EachNight(func(night calendar.Date) {
		np := NightPrice{Night: night, Multiplier: 1}
		if rule, ok := ruleFor(active, night); ok {
			id := rule.ID
			np.Multiplier = rule.Multiplier
			np.RuleID = &id
		}
		np.Amount = applyMultiplier(pricePerNight, np.Multiplier)
		out = append(out, np)
	})
	return out
}

// activeRules keeps active rules with a positive multiplier, ordered so
// the most specific rule (latest start) comes first.  Equal starts fall
// back to the lower ID.
func activeRules(rules []model.SeasonalRule) []model.SeasonalRule {
	out := make([]model.SeasonalRule, 0, len(rules))
	for _, r := range rules {
		if r.Active && r.Multiplier > 0 && !r.EndDate.Before(r.StartDate) {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if c := out[i].StartDate.Compare(out[j].StartDate); c != 0 {
			return c > 0
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func ruleFor(sorted []model.SeasonalRule, night calendar.Date) (model.SeasonalRule, bool) {
	for _, r := range sorted {
		if r.Covers(night) {
			return r, true
		}
	}
	return model.SeasonalRule{}, false
}

func applyMultiplier(amount int64, multiplier float64) int64 {
	if multiplier == 1 {
		return amount
	}
	return int64(math.Round(float64(amount) * multiplier))
}
