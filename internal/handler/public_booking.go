package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/shortlet-booking/internal/calendar"
	"github.com/iliyamo/shortlet-booking/internal/reservation"
)

// PublicHandler serves the guest-facing booking endpoints.  None of them
// require authentication; lookups are guarded by the booking number and
// email pair.
type PublicHandler struct {
	Bookings *reservation.Service
}

// NewPublicHandler panics on a nil service.
func NewPublicHandler(svc *reservation.Service) *PublicHandler {
	if svc == nil {
		panic("nil service passed to NewPublicHandler")
	}
	return &PublicHandler{Bookings: svc}
}

type quoteRequest struct {
	PropertyID uint64 `json:"property_id" validate:"required"`
	CheckIn    string `json:"check_in" validate:"required,datetime=2006-01-02"`
	CheckOut   string `json:"check_out" validate:"required,datetime=2006-01-02"`
	Guests     int    `json:"guests" validate:"required,min=1"`
}

func (q quoteRequest) toService() (reservation.QuoteRequest, error) {
	in, err := calendar.ParseDate(q.CheckIn)
	if err != nil {
		return reservation.QuoteRequest{}, badRequest("check_in must be YYYY-MM-DD")
	}
	out, err := calendar.ParseDate(q.CheckOut)
	if err != nil {
		return reservation.QuoteRequest{}, badRequest("check_out must be YYYY-MM-DD")
	}
	return reservation.QuoteRequest{PropertyID: q.PropertyID, CheckIn: in, CheckOut: out, Guests: q.Guests}, nil
}

type createBookingRequest struct {
	quoteRequest
	FullName        string  `json:"full_name" validate:"required,max=150"`
	Email           string  `json:"email" validate:"required,email,max=190"`
	Phone           string  `json:"phone" validate:"omitempty,e164"`
	SpecialRequests *string `json:"special_requests" validate:"omitempty,max=1000"`
	ArrivalTime     *string `json:"arrival_time" validate:"omitempty,datetime=15:04"`
}

func (b createBookingRequest) createRequest(q reservation.QuoteRequest) reservation.CreateRequest {
	return reservation.CreateRequest{
		QuoteRequest:    q,
		Guest:           reservation.Guest{FullName: b.FullName, Email: b.Email, Phone: b.Phone},
		SpecialRequests: b.SpecialRequests,
		ArrivalTime:     b.ArrivalTime,
	}
}

// Availability handles GET /v1/properties/:id/availability.
func (h *PublicHandler) Availability(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return fail(c, err)
	}
	in, err := queryDate(c, "check_in")
	if err != nil {
		return fail(c, err)
	}
	out, err := queryDate(c, "check_out")
	if err != nil {
		return fail(c, err)
	}
	ok, err := h.Bookings.IsAvailable(c.Request().Context(), id, in, out, 0)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"property_id": id,
		"check_in":    in,
		"check_out":   out,
		"available":   ok,
	})
}

// BookedDates handles GET /v1/properties/:id/booked-dates.  The window
// defaults to 90 days from today.
func (h *PublicHandler) BookedDates(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return fail(c, err)
	}
	from := h.Bookings.Today()
	if c.QueryParam("from") != "" {
		if from, err = queryDate(c, "from"); err != nil {
			return fail(c, err)
		}
	}
	to := from.AddDays(90)
	if c.QueryParam("to") != "" {
		if to, err = queryDate(c, "to"); err != nil {
			return fail(c, err)
		}
	}
	ranges, err := h.Bookings.BookedRanges(c.Request().Context(), id, from, to)
	if err != nil {
		return fail(c, err)
	}
	nights := make([]calendar.Date, 0)
	for _, r := range ranges {
		r.EachNight(func(d calendar.Date) {
			if !d.Before(from) && d.Before(to) {
				nights = append(nights, d)
			}
		})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"property_id": id,
		"from":        from,
		"to":          to,
		"ranges":      ranges,
		"nights":      nights,
	})
}

// Quote handles POST /v1/quotes.
func (h *PublicHandler) Quote(c echo.Context) error {
	var body quoteRequest
	if err := bind(c, &body); err != nil {
		return fail(c, err)
	}
	req, err := body.toService()
	if err != nil {
		return fail(c, err)
	}
	q, err := h.Bookings.Quote(c.Request().Context(), req)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, q)
}

// Create handles POST /v1/bookings.  A 409 means the dates were taken
// between the guest's quote and this request.
func (h *PublicHandler) Create(c echo.Context) error {
	var body createBookingRequest
	if err := bind(c, &body); err != nil {
		return fail(c, err)
	}
	q, err := body.toService()
	if err != nil {
		return fail(c, err)
	}
	b, err := h.Bookings.Create(c.Request().Context(), body.createRequest(q))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, b)
}

// Lookup handles GET /v1/bookings/lookup?booking_number=&email=.
func (h *PublicHandler) Lookup(c echo.Context) error {
	number, email := c.QueryParam("booking_number"), c.QueryParam("email")
	if number == "" || email == "" {
		return fail(c, badRequest("booking_number and email are required"))
	}
	b, err := h.Bookings.GetByNumber(c.Request().Context(), number, email)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, b)
}
