// Package router wires handlers and middleware onto the Echo instance.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/shortlet-booking/internal/config"
	"github.com/iliyamo/shortlet-booking/internal/handler"
	"github.com/iliyamo/shortlet-booking/internal/middleware"
	"github.com/iliyamo/shortlet-booking/internal/reservation"
)

// Deps carries what the routes need.  Redis may be nil, in which case
// rate limiting and the calendar cache are disabled.
type Deps struct {
	Service   *reservation.Service
	Config    config.Config
	RateLimit config.RateLimitConfig
	Cache     config.CacheConfig
	Redis     *redis.Client
}

// RegisterRoutes registers unauthenticated infrastructure routes.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterPublic registers the guest-facing booking API under /v1.  Writes
// are rate limited; calendar reads are cached briefly.
func RegisterPublic(e *echo.Echo, d Deps) {
	p := handler.NewPublicHandler(d.Service)
	limit := middleware.RateLimit(d.RateLimit, d.Redis)
	cache := middleware.CalendarCache(d.Cache, d.Redis)

	g := e.Group("/v1")
	g.GET("/properties/:id/availability", p.Availability, cache)
	g.GET("/properties/:id/booked-dates", p.BookedDates, cache)
	g.POST("/quotes", p.Quote, limit)
	g.POST("/bookings", p.Create, limit)
	g.GET("/bookings/lookup", p.Lookup, limit)
}

// RegisterAdmin registers the staff console under /v1/admin.  Every route
// requires a valid token with the admin or manager role.
func RegisterAdmin(e *echo.Echo, d Deps) {
	a := handler.NewAdminHandler(d.Service)

	g := e.Group("/v1/admin")
	g.Use(middleware.JWTAuth(d.Config.JWTSecret))
	g.Use(middleware.RequireRole(middleware.RoleAdmin, middleware.RoleManager))

	g.POST("/quotes", a.Quote)
	g.GET("/bookings", a.List)
	g.POST("/bookings", a.Create)
	g.GET("/bookings/:id", a.Detail)
	g.GET("/bookings/:id/refund-preview", a.RefundPreview)
	g.POST("/bookings/:id/confirm", a.Confirm)
	g.POST("/bookings/:id/reject", a.Reject)
	g.POST("/bookings/:id/check-in", a.CheckIn)
	g.POST("/bookings/:id/complete", a.Complete)
	g.POST("/bookings/:id/cancel", a.Cancel)
	g.POST("/bookings/:id/payments", a.RecordPayment)
}

// RegisterPayments registers provider webhooks.  They authenticate by
// signature, not by token, and are never rate limited.  Without a signing
// secret no webhook route exists.
func RegisterPayments(e *echo.Echo, d Deps) {
	if d.Config.StripeWebhookSecret == "" {
		return
	}
	w := handler.NewStripeWebhookHandler(d.Service, d.Config.StripeWebhookSecret)
	e.POST("/v1/payments/stripe/webhook", w.Handle)
}

// New builds the Echo instance with every route group.
func New(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewValidator()
	e.Use(middleware.RequestLogger())

	RegisterRoutes(e)
	RegisterPublic(e, d)
	RegisterAdmin(e, d)
	RegisterPayments(e, d)
	return e
}
