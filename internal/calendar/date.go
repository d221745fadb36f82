// Package calendar provides calendar-date arithmetic and half-open range
// overlap tests used for occupancy accounting.  Dates carry no time
// component; all of them live in the single property-local zone configured
// for the deployment, so no conversion happens past DateOf.
package calendar

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/iliyamo/shortlet-booking/internal/domain"
)

// Layout is the wire and storage format of a Date.
const Layout = "2006-01-02"

// Date is a calendar date.  The zero value is not a valid date.
type Date struct {
	t time.Time // always midnight UTC
}

// NewDate builds a Date from its components.  Out-of-range values are
// normalised the same way time.Date does.
func NewDate(year int, month time.Month, day int) Date {
	return Date{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(Layout, s)
	if err != nil {
		return Date{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return Date{t: t}, nil
}

// DateOf returns the calendar date of t as observed in loc.  A nil loc
// means UTC.
func DateOf(t time.Time, loc *time.Location) Date {
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := t.In(loc).Date()
	return NewDate(y, m, d)
}

func (d Date) IsZero() bool       { return d.t.IsZero() }
func (d Date) Time() time.Time    { return d.t }
func (d Date) AddDays(n int) Date { return Date{t: d.t.AddDate(0, 0, n)} }
func (d Date) Before(o Date) bool { return d.t.Before(o.t) }
func (d Date) After(o Date) bool  { return d.t.After(o.t) }
func (d Date) Equal(o Date) bool  { return d.t.Equal(o.t) }
func (d Date) Compare(o Date) int { return d.t.Compare(o.t) }
func (d Date) String() string     { return d.t.Format(Layout) }

func (d Date) MarshalText() ([]byte, error) {
	if d.IsZero() {
		return []byte{}, nil
	}
	return []byte(d.String()), nil
}

// UnmarshalText accepts YYYY-MM-DD; an empty value yields the zero Date.
func (d *Date) UnmarshalText(b []byte) error {
	if len(b) == 0 {
		*d = Date{}
		return nil
	}
	p, err := ParseDate(string(b))
	if err != nil {
		return err
	}
	*d = p
	return nil
}

// MarshalJSON encodes the zero Date as null.
func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*d = Date{}
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	return d.UnmarshalText([]byte(s))
}

// Value stores the date as a DATE column value.
func (d Date) Value() (driver.Value, error) {
	if d.IsZero() {
		return nil, nil
	}
	return d.t, nil
}

// Scan reads DATE columns returned either as time.Time (parseTime=true)
// or as raw bytes.
func (d *Date) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*d = Date{}
		return nil
	case time.Time:
		*d = DateOf(v, time.UTC)
		return nil
	case []byte:
		return d.UnmarshalText(v)
	case string:
		return d.UnmarshalText([]byte(v))
	}
	return fmt.Errorf("calendar: cannot scan %T into Date", src)
}

// Overlaps reports whether [aStart, aEnd) and [bStart, bEnd) share at
// least one night.
func Overlaps(aStart, aEnd, bStart, bEnd Date) bool {
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}

// Nights returns the number of nights between check-in and check-out.
func Nights(checkIn, checkOut Date) (int, error) {
	if !checkOut.After(checkIn) {
		return 0, domain.ErrInvalidRange
	}
	return DaysBetween(checkIn, checkOut), nil
}

// secondsPerDay is exact here: dates are UTC midnights, which have no
// DST shifts.
const secondsPerDay = 86400

// DaysBetween returns the whole number of calendar days from `from` to
// `to`; the result is negative when `to` is earlier.  It works on Unix
// seconds so spans beyond time.Duration's range stay exact.
func DaysBetween(from, to Date) int {
	return int((to.t.Unix() - from.t.Unix()) / secondsPerDay)
}
