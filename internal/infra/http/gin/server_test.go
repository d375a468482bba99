package ginserver

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	gin "github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sawa/internal/app/commands"
	"sawa/internal/app/middleware"
	"sawa/internal/app/principal"
	"sawa/internal/app/validation"
	"sawa/internal/domain/cancellation"
	"sawa/internal/domain/commission"
	"sawa/internal/domain/offers"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestStatusFor(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{validation.Errors{{Field: "x", Reason: "y"}}, http.StatusBadRequest},
		{commission.ErrUnknownHostType, http.StatusBadRequest},
		{middleware.ErrUnauthenticated, http.StatusUnauthorized},
		{middleware.ErrForbidden, http.StatusForbidden},
		{middleware.ErrIdempotencyMismatch, http.StatusUnprocessableEntity},
		{offers.ErrOfferNotOwned, http.StatusForbidden},
		{commission.ErrProfileNotFound, http.StatusNotFound},
		{cancellation.ErrRecordNotFound, http.StatusNotFound},
		{cancellation.ErrAlreadyCancelled, http.StatusConflict},
		{offers.ErrInvalidState, http.StatusConflict},
		{fmt.Errorf("wrap: %w", commands.ErrHandlerNotFound), http.StatusNotImplemented},
		{errors.New("disk on fire"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, statusFor(tc.err), tc.err.Error())
	}
}

func TestRespondError_HidesInternalErrors(t *testing.T) {
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	respondError(c, nil, errors.New("mongo: connection refused"))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "mongo")
}

type stubKeys map[string]principal.Principal

func (s stubKeys) Resolve(token string) (principal.Principal, error) {
	p, ok := s[token]
	if !ok {
		return principal.Principal{}, errors.New("unknown")
	}
	return p, nil
}

func whoAmI(c *gin.Context) {
	p, ok := currentPrincipal(c)
	fromCtx, _ := principal.FromContext(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{"id": p.ID, "authenticated": ok, "ctx": fromCtx.ID})
}

func TestAuthMiddleware(t *testing.T) {
	router := gin.New()
	router.Use(AuthMiddleware{Keys: stubKeys{"good": {ID: "host-1", Roles: []principal.Role{principal.RoleHost}}}}.Handle)
	router.GET("/me", whoAmI)

	send := func(header string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec
	}

	anon := send("")
	require.Equal(t, http.StatusOK, anon.Code)
	assert.JSONEq(t, `{"id":"","authenticated":false,"ctx":""}`, anon.Body.String())

	ok := send("bearer good")
	require.Equal(t, http.StatusOK, ok.Code)
	assert.JSONEq(t, `{"id":"host-1","authenticated":true,"ctx":"host-1"}`, ok.Body.String())

	assert.Equal(t, http.StatusUnauthorized, send("Bearer bad").Code)
	assert.Equal(t, http.StatusOK, send("Basic abc").Code)
}

type countingLimiter struct {
	allowed int
	reset   time.Time
	keys    []string
}

func (l *countingLimiter) Take(key string) (bool, time.Time) {
	l.keys = append(l.keys, key)
	if l.allowed <= 0 {
		return false, l.reset
	}
	l.allowed--
	return true, l.reset
}

func TestRateLimit(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	limiter := &countingLimiter{allowed: 1, reset: now.Add(1500 * time.Millisecond)}
	router := gin.New()
	router.Use(func(c *gin.Context) {
		if c.GetHeader("X-Caller") != "" {
			setPrincipal(c, principal.Principal{ID: c.GetHeader("X-Caller")})
		}
	})
	router.Use(RateLimit(limiter, func() time.Time { return now }))
	router.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })

	first := httptest.NewRecorder()
	router.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, "1700000001", first.Header().Get(headerRateLimitReset))

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("X-Caller", "key-7")
	second := httptest.NewRecorder()
	router.ServeHTTP(second, req)
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.Equal(t, "2", second.Header().Get("Retry-After"))

	require.Len(t, limiter.keys, 2)
	assert.Contains(t, limiter.keys[0], "ip:")
	assert.Equal(t, "key:key-7", limiter.keys[1])
}

func TestRateLimit_NilLimiterAllows(t *testing.T) {
	router := gin.New()
	router.Use(RateLimit(nil, nil))
	router.GET("/ping", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestCorsConfig(t *testing.T) {
	assert.True(t, corsConfig([]string{"*"}).AllowAllOrigins)
	restricted := corsConfig([]string{"https://sawa.example"})
	assert.False(t, restricted.AllowAllOrigins)
	assert.Equal(t, []string{"https://sawa.example"}, restricted.AllowOrigins)
	assert.Contains(t, restricted.AllowHeaders, headerIdempotencyKey)
}

func TestExtractBearerToken(t *testing.T) {
	assert.Equal(t, "abc.def", extractBearerToken("Bearer  abc.def "))
	assert.Empty(t, extractBearerToken("Bearer"))
	assert.Empty(t, extractBearerToken("Token abc"))
}
