package router

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/shortlet-booking/internal/config"
	"github.com/iliyamo/shortlet-booking/internal/model"
	"github.com/iliyamo/shortlet-booking/internal/repository"
	"github.com/iliyamo/shortlet-booking/internal/reservation"
)

func newRouter(t *testing.T) http.Handler {
	t.Helper()
	store := repository.NewMemoryStore()
	store.AddProperty(model.Property{Name: "Lekki Loft", PricePerNight: 50000, MaxGuests: 4})
	svc := reservation.NewService(store, nil, nil, reservation.Settings{})
	return New(Deps{
		Service: svc,
		Config:  config.Config{JWTSecret: "secret", StripeWebhookSecret: "whsec"},
	})
}

func token(t *testing.T, role string) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "7", "role": role, "exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte("secret"))
	require.NoError(t, err)
	return "Bearer " + s
}

func get(h http.Handler, path, auth string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRoutes(t *testing.T) {
	h := newRouter(t)

	assert.Equal(t, http.StatusOK, get(h, "/healthz", "").Code)
	assert.Equal(t, http.StatusOK, get(h, "/v1/properties/1/booked-dates?from=2025-12-01&to=2025-12-31", "").Code)

	assert.Equal(t, http.StatusUnauthorized, get(h, "/v1/admin/bookings", "").Code)
	assert.Equal(t, http.StatusForbidden, get(h, "/v1/admin/bookings", token(t, "staff")).Code)
	assert.Equal(t, http.StatusOK, get(h, "/v1/admin/bookings", token(t, "manager")).Code)

	req := httptest.NewRequest(http.MethodPost, "/v1/payments/stripe/webhook", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "unsigned webhooks are refused")
}
