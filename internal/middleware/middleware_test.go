package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/shortlet-booking/internal/config"
)

const secret = "test-secret"

func sign(t *testing.T, method jwt.SigningMethod, key any, claims jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return s
}

func serve(t *testing.T, mw []echo.MiddlewareFunc, header string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	e.GET("/admin", func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{"user": c.Get(ContextUserID), "role": c.Get(ContextRole)})
	}, mw...)
	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestJWTAuth(t *testing.T) {
	valid := sign(t, jwt.SigningMethodHS256, []byte(secret), jwt.MapClaims{
		"sub": "42", "role": RoleManager, "exp": time.Now().Add(time.Hour).Unix(),
	})
	rec := serve(t, []echo.MiddlewareFunc{JWTAuth(secret)}, "Bearer "+valid)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"user":"42","role":"manager"}`, rec.Body.String())

	cases := map[string]string{
		"missing":      "",
		"not bearer":   "Basic abc",
		"wrong secret": "Bearer " + sign(t, jwt.SigningMethodHS256, []byte("other"), jwt.MapClaims{"exp": time.Now().Add(time.Hour).Unix()}),
		"expired":      "Bearer " + sign(t, jwt.SigningMethodHS256, []byte(secret), jwt.MapClaims{"exp": time.Now().Add(-time.Hour).Unix()}),
		"no exp":       "Bearer " + sign(t, jwt.SigningMethodHS256, []byte(secret), jwt.MapClaims{"sub": "42"}),
		"wrong alg":    "Bearer " + sign(t, jwt.SigningMethodHS512, []byte(secret), jwt.MapClaims{"exp": time.Now().Add(time.Hour).Unix()}),
	}
	for name, header := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, http.StatusUnauthorized, serve(t, []echo.MiddlewareFunc{JWTAuth(secret)}, header).Code)
		})
	}
}

func TestRequireRole(t *testing.T) {
	token := func(role string) string {
		return "Bearer " + sign(t, jwt.SigningMethodHS256, []byte(secret), jwt.MapClaims{
			"sub": "1", "role": role, "exp": time.Now().Add(time.Hour).Unix(),
		})
	}
	chain := []echo.MiddlewareFunc{JWTAuth(secret), RequireRole(RoleAdmin, RoleManager)}

	assert.Equal(t, http.StatusOK, serve(t, chain, token(RoleAdmin)).Code)
	assert.Equal(t, http.StatusOK, serve(t, chain, token(RoleManager)).Code)
	rec := serve(t, chain, token(RoleStaff))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.JSONEq(t, `{"error":"forbidden"}`, rec.Body.String())
	assert.Equal(t, http.StatusForbidden, serve(t, []echo.MiddlewareFunc{RequireRole(RoleAdmin)}, "").Code)
}

func TestParseBucket(t *testing.T) {
	allowed, remaining, retry, ok := parseBucket([]any{int64(1), int64(7), int64(0)})
	assert.True(t, ok)
	assert.True(t, allowed)
	assert.Equal(t, int64(7), remaining)
	assert.Zero(t, retry)

	allowed, _, retry, ok = parseBucket([]any{int64(0), "0", float64(1500)})
	assert.True(t, ok)
	assert.False(t, allowed)
	assert.Equal(t, int64(1500), retry)

	_, _, _, ok = parseBucket([]any{int64(1)})
	assert.False(t, ok)
	_, _, _, ok = parseBucket("nope")
	assert.False(t, ok)
}

func TestRateKey(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/v1/quotes", nil)
	req.Header.Set("X-Real-IP", "10.0.0.9")
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetPath("/v1/quotes")

	assert.Equal(t, "rl:ip:10.0.0.9", rateKey(config.RateLimitConfig{Prefix: "rl", KeyStrategy: "ip"}, c))
	assert.Equal(t, "rl:ip:10.0.0.9:route:POST /v1/quotes", rateKey(config.RateLimitConfig{Prefix: "rl", KeyStrategy: "IP_ROUTE"}, c))
	assert.Equal(t, "rl:ip:10.0.0.9:user:anon:route:POST /v1/quotes", rateKey(config.RateLimitConfig{Prefix: "rl"}, c))

	c.Set(ContextUserID, float64(12))
	assert.Equal(t, "rl:ip:10.0.0.9:user:12:route:POST /v1/quotes", rateKey(config.RateLimitConfig{Prefix: "rl"}, c))
}

func TestWithoutRedis_PassThrough(t *testing.T) {
	mw := []echo.MiddlewareFunc{
		RateLimit(config.RateLimitConfig{Enabled: true, Capacity: 1}, nil),
		CalendarCache(config.CacheConfig{Enabled: true, TTL: time.Second, Prefix: "cal"}, nil),
	}
	for i := 0; i < 3; i++ {
		rec := serve(t, mw, "")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Empty(t, rec.Header().Get("X-Cache"))
	}
}

func TestCacheKey_ScopedByQuery(t *testing.T) {
	e := echo.New()
	ctx := func(target string) echo.Context {
		return e.NewContext(httptest.NewRequest(http.MethodGet, target, nil), httptest.NewRecorder())
	}
	a := cacheKey("cal", ctx("/v1/properties/1/booked-dates?from=2025-12-01&to=2025-12-31"))
	b := cacheKey("cal", ctx("/v1/properties/1/booked-dates?from=2025-12-01&to=2026-01-31"))
	assert.NotEqual(t, a, b)
	assert.Equal(t, a, cacheKey("cal", ctx("/v1/properties/1/booked-dates?from=2025-12-01&to=2025-12-31")))
	assert.Regexp(t, `^cal:[0-9a-f]{40}$`, a)
}

func TestRequestLogger_SetsRequestID(t *testing.T) {
	rec := serve(t, []echo.MiddlewareFunc{RequestLogger()}, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(echo.HeaderXRequestID))
}
