package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"

	"github.com/iliyamo/shortlet-booking/internal/domain"
	"github.com/iliyamo/shortlet-booking/internal/logger"
	"github.com/iliyamo/shortlet-booking/internal/reservation"
)

// MetadataBookingID is the PaymentIntent metadata key the checkout page
// sets to the booking's ID.
const MetadataBookingID = "booking_id"

// maxWebhookBody bounds the event payload read.
const maxWebhookBody = 64 << 10

// StripeWebhookHandler turns verified payment_intent.succeeded events into
// ledger payments.  The PaymentIntent ID is the provider reference, so
// Stripe's at-least-once redelivery is absorbed by ApplyPayment.
type StripeWebhookHandler struct {
	Bookings *reservation.Service
	secret   string
}

// NewStripeWebhookHandler panics on a nil service.
func NewStripeWebhookHandler(svc *reservation.Service, secret string) *StripeWebhookHandler {
	if svc == nil {
		panic("nil service passed to NewStripeWebhookHandler")
	}
	return &StripeWebhookHandler{Bookings: svc, secret: secret}
}

// Handle serves POST /v1/payments/stripe/webhook.  Anything other than 2xx
// makes Stripe retry, so only transient failures return 5xx; events that
// can never apply are acknowledged and logged.
func (h *StripeWebhookHandler) Handle(c echo.Context) error {
	sig := c.Request().Header.Get("Stripe-Signature")
	if sig == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "missing Stripe-Signature header"})
	}
	payload, err := io.ReadAll(io.LimitReader(c.Request().Body, maxWebhookBody))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "failed to read webhook body"})
	}
	event, err := webhook.ConstructEvent(payload, sig, h.secret)
	if err != nil {
		logger.Log.WithError(err).Warn("stripe webhook: signature verification failed")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid signature"})
	}

	log := logger.Log.WithFields(logrus.Fields{"event_id": event.ID, "event_type": event.Type})
	switch event.Type {
	case stripe.EventTypePaymentIntentSucceeded:
		var pi stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
			log.WithError(err).Error("stripe webhook: could not parse payment intent")
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid payment intent"})
		}
		return h.paymentSucceeded(c, log, &pi)
	default:
		log.Debug("stripe webhook: event ignored")
	}
	return c.JSON(http.StatusOK, echo.Map{"received": true})
}

func (h *StripeWebhookHandler) paymentSucceeded(c echo.Context, log *logrus.Entry, pi *stripe.PaymentIntent) error {
	log = log.WithField("payment_intent", pi.ID)
	bookingID, err := strconv.ParseUint(pi.Metadata[MetadataBookingID], 10, 64)
	if err != nil || bookingID == 0 {
		log.Warn("stripe webhook: payment intent has no booking_id metadata")
		return c.JSON(http.StatusOK, echo.Map{"received": true, "applied": false})
	}
	amount := pi.AmountReceived
	if amount == 0 {
		amount = pi.Amount
	}
	method := "card"
	if len(pi.PaymentMethodTypes) > 0 {
		method = pi.PaymentMethodTypes[0]
	}

	res, err := h.Bookings.ApplyPayment(c.Request().Context(), reservation.PaymentInput{
		BookingID: bookingID,
		Amount:    amount,
		Reference: pi.ID,
		Method:    method,
	})
	if err != nil {
		if statusFor(err) == http.StatusInternalServerError {
			log.WithError(err).Error("stripe webhook: apply payment failed")
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
		}
		// Permanent rejections need an operator, not a retry.
		entry := log.WithError(err).WithField("booking_id", bookingID)
		if errors.Is(err, domain.ErrAmountMismatch) || errors.Is(err, domain.ErrInvalidTransition) ||
			errors.Is(err, reservation.ErrReferenceConflict) {
			entry.Error("stripe webhook: payment rejected, manual review needed")
		} else {
			entry.Warn("stripe webhook: payment not applied")
		}
		return c.JSON(http.StatusOK, echo.Map{"received": true, "applied": false, "error": err.Error()})
	}
	log.WithFields(logrus.Fields{"booking_id": bookingID, "replayed": res.Replayed}).Info("stripe webhook: payment applied")
	return c.JSON(http.StatusOK, echo.Map{"received": true, "applied": true, "replayed": res.Replayed})
}
