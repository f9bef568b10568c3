package middleware

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/golang-jwt/jwt/v5"
	"github.com/jonboulle/clockwork"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/cinema-checkout/internal/config"
	"github.com/iliyamo/cinema-checkout/internal/metrics"
)

const secret = "test-secret"

func discard() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func sign(t *testing.T, key string, claims jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(key))
	require.NoError(t, err)
	return s
}

func whoami(c echo.Context) error {
	id := Identity(c)
	if id == nil {
		return c.String(http.StatusOK, "anonymous")
	}
	return c.String(http.StatusOK, id.UserID+"|"+id.Token)
}

func serve(e *echo.Echo, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestJWTAuthHeader(t *testing.T) {
	e := echo.New()
	e.GET("/me", whoami, JWTAuth(secret))
	tok := sign(t, secret, jwt.MapClaims{"sub": "u42", "exp": time.Now().Add(time.Hour).Unix()})

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rec := serve(e, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "u42|"+tok, rec.Body.String())
}

func TestJWTAuthQueryParamAndNumericSubject(t *testing.T) {
	e := echo.New()
	e.GET("/ws", whoami, JWTAuth(secret))
	tok := sign(t, secret, jwt.MapClaims{"user_id": float64(100)})

	rec := serve(e, httptest.NewRequest(http.MethodGet, "/ws?access_token="+tok, nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "100|"+tok, rec.Body.String())
}

func TestJWTAuthRejects(t *testing.T) {
	e := echo.New()
	e.GET("/me", whoami, JWTAuth(secret))

	cases := map[string]string{
		"missing":      "",
		"wrong secret": "Bearer " + sign(t, "other", jwt.MapClaims{"sub": "u1"}),
		"expired":      "Bearer " + sign(t, secret, jwt.MapClaims{"sub": "u1", "exp": time.Now().Add(-time.Hour).Unix()}),
		"no subject":   "Bearer " + sign(t, secret, jwt.MapClaims{"role": "customer"}),
		"garbage":      "Bearer abc.def.ghi",
	}
	for name, header := range cases {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if header != "" {
				req.Header.Set("Authorization", header)
			}
			assert.Equal(t, http.StatusUnauthorized, serve(e, req).Code)
		})
	}
}

func TestOptionalJWT(t *testing.T) {
	e := echo.New()
	e.GET("/result", whoami, OptionalJWT(secret))

	rec := serve(e, httptest.NewRequest(http.MethodGet, "/result", nil))
	assert.Equal(t, "anonymous", rec.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/result", nil)
	req.Header.Set("Authorization", "Bearer nope")
	assert.Equal(t, http.StatusUnauthorized, serve(e, req).Code)
}

func newLimited(t *testing.T) (*echo.Echo, *RateLimiter, redismock.ClientMock) {
	t.Helper()
	rdb, mock := redismock.NewClientMock()
	cfg := config.RateLimitConfig{
		Enabled: true, Capacity: 60, RefillTokens: 1, RefillInterval: time.Second,
		TTL: 10 * time.Minute, KeyStrategy: "ip_user", Prefix: "rl",
	}
	l := NewRateLimiter(cfg, rdb, clockwork.NewFakeClockAt(time.Date(2025, 3, 1, 19, 0, 0, 0, time.UTC)), discard())
	e := echo.New()
	e.GET("/v1/showtimes/:id", func(c echo.Context) error { return c.NoContent(http.StatusOK) }, l.Middleware())
	return e, l, mock
}

func limitedRequest() *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/v1/showtimes/abc", nil)
	req.RemoteAddr = "192.0.2.1:5555"
	return req
}

func TestRateLimitAllows(t *testing.T) {
	e, l, mock := newLimited(t)
	mock.ExpectEvalSha(tokenBucket.Hash(), []string{"rl:ip:192.0.2.1:user:anon"}, l.args()...).
		SetVal([]interface{}{int64(1), int64(59), int64(0)})

	rec := serve(e, limitedRequest())

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "59", rec.Header().Get("X-RateLimit-Remaining"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRateLimitBlocks(t *testing.T) {
	e, l, mock := newLimited(t)
	mock.ExpectEvalSha(tokenBucket.Hash(), []string{"rl:ip:192.0.2.1:user:anon"}, l.args()...).
		SetVal([]interface{}{int64(0), int64(0), int64(1500)})

	rec := serve(e, limitedRequest())

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "2", rec.Header().Get("Retry-After"))
	assert.JSONEq(t, `{"error":"too_many_requests","message":"rate limit exceeded","retry_after":2}`, rec.Body.String())
}

func TestRateLimitFailsOpen(t *testing.T) {
	e, l, mock := newLimited(t)
	mock.ExpectEvalSha(tokenBucket.Hash(), []string{"rl:ip:192.0.2.1:user:anon"}, l.args()...).
		SetErr(errors.New("connection refused"))

	assert.Equal(t, http.StatusOK, serve(e, limitedRequest()).Code)
}

func TestRateLimitDisabledWithoutRedis(t *testing.T) {
	l := NewRateLimiter(config.RateLimitConfig{Enabled: true}, nil, nil, discard())
	e := echo.New()
	e.GET("/", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) }, l.Middleware())
	assert.Equal(t, http.StatusNoContent, serve(e, httptest.NewRequest(http.MethodGet, "/", nil)).Code)
}

func TestRequestLogSetsRequestID(t *testing.T) {
	e := echo.New()
	e.Use(RequestLog(discard(), metrics.New(prometheus.NewRegistry())))
	e.GET("/healthz", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	rec := serve(e, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Len(t, rec.Header().Get(echo.HeaderXRequestID), 36)

	req := httptest.NewRequest(http.MethodGet, "/missing", nil)
	req.Header.Set(echo.HeaderXRequestID, "req-1")
	rec = serve(e, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "req-1", rec.Header().Get(echo.HeaderXRequestID))
}
