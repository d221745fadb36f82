package calendar

import "github.com/iliyamo/shortlet-booking/internal/domain"

// Range is a half-open stay: CheckIn is the first occupied night and
// CheckOut is the departure day, which is not occupied.
type Range struct {
	CheckIn  Date `json:"check_in"`
	CheckOut Date `json:"check_out"`
}

// NewRange validates and returns a Range.
func NewRange(checkIn, checkOut Date) (Range, error) {
	if checkIn.IsZero() || checkOut.IsZero() || !checkOut.After(checkIn) {
		return Range{}, domain.ErrInvalidRange
	}
	return Range{CheckIn: checkIn, CheckOut: checkOut}, nil
}

// Nights returns the number of occupied nights.
func (r Range) Nights() int {
	n, err := Nights(r.CheckIn, r.CheckOut)
	if err != nil {
		return 0
	}
	return n
}

// Overlaps reports whether r and o share a night.
func (r Range) Overlaps(o Range) bool {
	return Overlaps(r.CheckIn, r.CheckOut, o.CheckIn, o.CheckOut)
}

// Contains reports whether night d is occupied by r.
func (r Range) Contains(d Date) bool {
	return !d.Before(r.CheckIn) && d.Before(r.CheckOut)
}

// EachNight calls fn for every occupied night in order.
func (r Range) EachNight(fn func(Date)) {
	for d := r.CheckIn; d.Before(r.CheckOut); d = d.AddDays(1) {
		fn(d)
	}
}

// NightList returns the occupied nights.
func (r Range) NightList() []Date {
	out := make([]Date, 0, r.Nights())
	r.EachNight(func(d Date) { out = append(out, d) })
	return out
}
