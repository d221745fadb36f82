package model

import "github.com/iliyamo/shortlet-booking/internal/calendar"

// SeasonalRule scales the base nightly rate for nights between StartDate
// and EndDate, both inclusive.  Rules may overlap; the pricing engine
// resolves ties.
type SeasonalRule struct {
	ID         uint64        `json:"id"`         // seasonal_pricing.id
	Label      string        `json:"label"`      // seasonal_pricing.label
	StartDate  calendar.Date `json:"start_date"` // seasonal_pricing.start_date
	EndDate    calendar.Date `json:"end_date"`   // seasonal_pricing.end_date
	Multiplier float64       `json:"multiplier"` // seasonal_pricing.multiplier
	Active     bool          `json:"active"`     // seasonal_pricing.active
}

// Covers reports whether night d falls inside the rule's inclusive range.
func (r SeasonalRule) Covers(d calendar.Date) bool {
	return !d.Before(r.StartDate) && !d.After(r.EndDate)
}
