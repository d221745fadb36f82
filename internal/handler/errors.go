package handler

import (
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/shortlet-booking/internal/domain"
	"github.com/iliyamo/shortlet-booking/internal/logger"
	"github.com/iliyamo/shortlet-booking/internal/repository"
	"github.com/iliyamo/shortlet-booking/internal/reservation"
)

// statusFor maps a service error onto an HTTP status.  Unknown errors are
// internal.
func statusFor(err error) int {
	var verr validator.ValidationErrors
	switch {
	case errors.As(err, &verr),
		errors.Is(err, domain.ErrInvalidRange),
		errors.Is(err, domain.ErrInvalidGuestCount),
		errors.Is(err, reservation.ErrMissingReference),
		errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrBookingNotFound),
		errors.Is(err, domain.ErrPropertyNotFound),
		errors.Is(err, repository.ErrCustomerNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrDoubleBooked),
		errors.Is(err, domain.ErrInvalidTransition),
		errors.Is(err, domain.ErrAlreadyRefunded),
		errors.Is(err, reservation.ErrReferenceConflict),
		errors.Is(err, domain.ErrPropertyUnavailable):
		return http.StatusConflict
	case errors.Is(err, domain.ErrTooEarly),
		errors.Is(err, domain.ErrAmountMismatch):
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

// errBadRequest wraps request-shape problems found by the handlers.
var errBadRequest = errors.New("bad request")

type badRequest string

func (b badRequest) Error() string { return string(b) }
func (b badRequest) Unwrap() error { return errBadRequest }

// fail writes the JSON error body for err.  Internal errors are logged and
// hidden from the caller.
func fail(c echo.Context, err error) error {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		logger.Log.WithError(err).WithField("route", c.Path()).Error("request failed")
		return c.JSON(status, echo.Map{"error": "internal error"})
	}
	var verr validator.ValidationErrors
	if errors.As(err, &verr) {
		fields := make(map[string]string, len(verr))
		for _, fe := range verr {
			fields[fe.Field()] = fe.Tag()
		}
		return c.JSON(status, echo.Map{"error": "validation failed", "fields": fields})
	}
	return c.JSON(status, echo.Map{"error": err.Error()})
}
