package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/seat-hold-reservation/internal/config"
	"github.com/iliyamo/seat-hold-reservation/internal/metrics"
	"github.com/iliyamo/seat-hold-reservation/internal/utils"
)

const testSecret = "test-secret"

func adminEcho() *echo.Echo {
	e := echo.New()
	g := e.Group("/admin", JWTAuth(testSecret), RequireRole(utils.RoleAdmin))
	g.GET("/ping", func(c echo.Context) error {
		return c.String(http.StatusOK, c.Get(CtxUserID).(string))
	})
	return e
}

func do(e *echo.Echo, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/admin/ping", nil)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestJWTAuth(t *testing.T) {
	e := adminEcho()

	t.Run("admin token passes", func(t *testing.T) {
		tok, err := utils.NewAccessToken(testSecret, "ops", utils.RoleAdmin, 5)
		require.NoError(t, err)
		rec := do(e, tok.Token)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "ops", rec.Body.String())
	})

	t.Run("missing token", func(t *testing.T) {
		assert.Equal(t, http.StatusUnauthorized, do(e, "").Code)
	})

	t.Run("wrong secret", func(t *testing.T) {
		tok, err := utils.NewAccessToken("other", "ops", utils.RoleAdmin, 5)
		require.NoError(t, err)
		assert.Equal(t, http.StatusUnauthorized, do(e, tok.Token).Code)
	})

	t.Run("other signing method", func(t *testing.T) {
		raw, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"sub": "ops", "role": utils.RoleAdmin}).
			SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)
		assert.Equal(t, http.StatusUnauthorized, do(e, raw).Code)
	})

	t.Run("wrong role", func(t *testing.T) {
		tok, err := utils.NewAccessToken(testSecret, "someone", "CUSTOMER", 5)
		require.NoError(t, err)
		assert.Equal(t, http.StatusForbidden, do(e, tok.Token).Code)
	})
}

func TestPrometheusMiddleware(t *testing.T) {
	m := metrics.Nop()
	e := echo.New()
	e.Use(PrometheusMiddleware(m))
	e.GET("/v1/events/:eventId/seats", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/events/ev-1/seats", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	got := testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues(http.MethodGet, "/v1/events/:eventId/seats", "200"))
	assert.Equal(t, float64(1), got)
}

func TestRequestIDMiddleware(t *testing.T) {
	e := echo.New()
	e.Use(RequestIDMiddleware())
	e.GET("/", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) })

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NotEmpty(t, rec.Header().Get(echo.HeaderXRequestID))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(echo.HeaderXRequestID, "abc")
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, "abc", rec.Header().Get(echo.HeaderXRequestID))
}

func TestRedisMiddlewaresPassThroughWithoutRedis(t *testing.T) {
	e := echo.New()
	e.Use(NewTokenBucket(config.RateLimitConfig{Enabled: true}, nil))
	e.Use(NewRedisCache(config.CacheConfig{Enabled: true, TTL: 1}, nil))
	e.GET("/", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("X-Cache"))
}

func TestPayloadRoundTrip(t *testing.T) {
	h := http.Header{}
	h.Set("Content-Type", "application/json")
	bs, err := encodePayload(http.StatusOK, h, []byte(`{"a":1}`))
	require.NoError(t, err)

	status, hdr, body, ok := decodePayload(bs)
	require.True(t, ok)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "application/json", hdr.Get("Content-Type"))
	assert.Equal(t, `{"a":1}`, string(body))

	_, _, _, ok = decodePayload([]byte{0, 1})
	assert.False(t, ok)
}
