package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/shortlet-booking/internal/logger"
	"github.com/iliyamo/shortlet-booking/internal/middleware"
	"github.com/iliyamo/shortlet-booking/internal/model"
	"github.com/iliyamo/shortlet-booking/internal/reservation"
)

// AdminHandler serves the staff booking console.  JWT authentication and
// role checks run in middleware before any method here.
type AdminHandler struct {
	Bookings *reservation.Service
}

// NewAdminHandler panics on a nil service.
func NewAdminHandler(svc *reservation.Service) *AdminHandler {
	if svc == nil {
		panic("nil service passed to NewAdminHandler")
	}
	return &AdminHandler{Bookings: svc}
}

// List handles GET /v1/admin/bookings?status=&property_id=&limit=&offset=.
func (h *AdminHandler) List(c echo.Context) error {
	f := model.BookingFilter{Status: model.BookingStatus(c.QueryParam("status"))}
	if f.Status != "" && !f.Status.Valid() {
		return fail(c, badRequest("invalid status"))
	}
	if raw := c.QueryParam("property_id"); raw != "" {
		n, err := queryInt(c, "property_id")
		if err != nil {
			return fail(c, err)
		}
		f.PropertyID = uint64(n)
	}
	var err error
	if f.Limit, err = queryInt(c, "limit"); err != nil {
		return fail(c, err)
	}
	if f.Offset, err = queryInt(c, "offset"); err != nil {
		return fail(c, err)
	}
	list, err := h.Bookings.List(c.Request().Context(), f)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"bookings": list, "count": len(list)})
}

// Detail handles GET /v1/admin/bookings/:id.
func (h *AdminHandler) Detail(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return fail(c, err)
	}
	d, err := h.Bookings.Detail(c.Request().Context(), id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, d)
}

// Staff may price a stay with a flat discount in minor units.  Guests
// cannot; the public request types carry no such field.
type adminQuoteRequest struct {
	quoteRequest
	Discount int64 `json:"discount" validate:"omitempty,gte=0"`
}

type adminBookingRequest struct {
	createBookingRequest
	Discount int64 `json:"discount" validate:"omitempty,gte=0"`
}

// Quote handles POST /v1/admin/quotes.
func (h *AdminHandler) Quote(c echo.Context) error {
	var body adminQuoteRequest
	if err := bind(c, &body); err != nil {
		return fail(c, err)
	}
	req, err := body.toService()
	if err != nil {
		return fail(c, err)
	}
	req.Discount = body.Discount
	q, err := h.Bookings.Quote(c.Request().Context(), req)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, q)
}

// Create handles POST /v1/admin/bookings for stays arranged by staff,
// such as phone or walk-in reservations.
func (h *AdminHandler) Create(c echo.Context) error {
	var body adminBookingRequest
	if err := bind(c, &body); err != nil {
		return fail(c, err)
	}
	q, err := body.toService()
	if err != nil {
		return fail(c, err)
	}
	q.Discount = body.Discount
	b, err := h.Bookings.Create(c.Request().Context(), body.createRequest(q))
	if err != nil {
		return fail(c, err)
	}
	audit(c, "create", b.ID)
	return c.JSON(http.StatusCreated, b)
}

// RefundPreview handles GET /v1/admin/bookings/:id/refund-preview.
func (h *AdminHandler) RefundPreview(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return fail(c, err)
	}
	d, err := h.Bookings.PreviewRefund(c.Request().Context(), id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, d)
}

func (h *AdminHandler) Confirm(c echo.Context) error  { return h.transition(c, "confirm", h.Bookings.Confirm) }
func (h *AdminHandler) CheckIn(c echo.Context) error  { return h.transition(c, "check_in", h.Bookings.CheckIn) }
func (h *AdminHandler) Complete(c echo.Context) error { return h.transition(c, "complete", h.Bookings.Complete) }

func (h *AdminHandler) transition(c echo.Context, action string, fn func(context.Context, uint64) (*model.Booking, error)) error {
	id, err := pathID(c, "id")
	if err != nil {
		return fail(c, err)
	}
	b, err := fn(c.Request().Context(), id)
	if err != nil {
		return fail(c, err)
	}
	audit(c, action, id)
	return c.JSON(http.StatusOK, b)
}

type reasonRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}

// Cancel handles POST /v1/admin/bookings/:id/cancel.
func (h *AdminHandler) Cancel(c echo.Context) error {
	return h.cancel(c, "cancel", h.Bookings.Cancel)
}

// Reject handles POST /v1/admin/bookings/:id/reject.  Only pending
// bookings can be rejected.
func (h *AdminHandler) Reject(c echo.Context) error {
	return h.cancel(c, "reject", h.Bookings.Reject)
}

func (h *AdminHandler) cancel(c echo.Context, action string, fn func(context.Context, uint64, string) (*reservation.CancelResult, error)) error {
	id, err := pathID(c, "id")
	if err != nil {
		return fail(c, err)
	}
	var body reasonRequest
	if c.Request().ContentLength != 0 {
		if err := bind(c, &body); err != nil {
			return fail(c, err)
		}
	}
	res, err := fn(c.Request().Context(), id, body.Reason)
	if err != nil {
		return fail(c, err)
	}
	audit(c, action, id)
	return c.JSON(http.StatusOK, res)
}

type manualPaymentRequest struct {
	Amount    int64  `json:"amount" validate:"required,gt=0"`
	Reference string `json:"reference" validate:"required,max=120"`
	Method    string `json:"method" validate:"required,oneof=cash bank_transfer card pos"`
}

// RecordPayment handles POST /v1/admin/bookings/:id/payments for money
// taken outside the card provider.  The reference keys idempotency, so a
// retried request returns the original transaction.
func (h *AdminHandler) RecordPayment(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return fail(c, err)
	}
	var body manualPaymentRequest
	if err := bind(c, &body); err != nil {
		return fail(c, err)
	}
	res, err := h.Bookings.ApplyPayment(c.Request().Context(), reservation.PaymentInput{
		BookingID: id,
		Amount:    body.Amount,
		Reference: body.Reference,
		Method:    body.Method,
	})
	if err != nil {
		return fail(c, err)
	}
	audit(c, "record_payment", id)
	status := http.StatusCreated
	if res.Replayed {
		status = http.StatusOK
	}
	return c.JSON(status, res)
}

func audit(c echo.Context, action string, bookingID uint64) {
	logger.Log.WithFields(logrus.Fields{
		"action":     action,
		"booking_id": bookingID,
		"staff":      c.Get(middleware.ContextUserID),
	}).Info("admin action")
}
