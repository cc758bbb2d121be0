package middleware

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRateLimiter_Allow(t *testing.T) {
	clk := clock.NewMock()
	l := NewRateLimiter(RateLimiterConfig{RPS: 1, Burst: 2}, clk)

	assert.True(t, l.Allow("1.2.3.4"))
	assert.True(t, l.Allow("1.2.3.4"))
	assert.False(t, l.Allow("1.2.3.4"), "burst exhausted")
	assert.True(t, l.Allow("5.6.7.8"), "clients have separate buckets")

	clk.Add(time.Second)
	assert.True(t, l.Allow("1.2.3.4"), "one token refilled")
	assert.False(t, l.Allow("1.2.3.4"))
}

func TestRateLimiter_ForgetsIdleClients(t *testing.T) {
	clk := clock.NewMock()
	l := NewRateLimiter(RateLimiterConfig{RPS: 1, Burst: 1, IdleTTL: time.Minute}, clk)

	l.Allow("a")
	l.Allow("b")
	require.Equal(t, 2, l.Len())

	clk.Add(2 * time.Minute)
	l.Allow("c")

	assert.Equal(t, 1, l.Len())
}

func TestRateLimiter_Defaults(t *testing.T) {
	l := NewRateLimiter(RateLimiterConfig{}, nil)

	assert.True(t, l.Allow("x"))
	assert.False(t, l.Allow("x"))
}

func TestRateLimit_Middleware(t *testing.T) {
	l := NewRateLimiter(RateLimiterConfig{RPS: 0.5, Burst: 1}, clock.NewMock())
	h := RateLimit(l, discardLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	send := func(remote string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/v1/videos/search", nil)
		req.RemoteAddr = remote
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	assert.Equal(t, http.StatusOK, send("10.0.0.1:5000").Code)

	rec := send("10.0.0.1:6000")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code, "port must not affect the client key")
	assert.Equal(t, "2", rec.Header().Get("Retry-After"))
	assert.JSONEq(t, `{"error":"rate_limited","message":"Too many requests"}`, rec.Body.String())

	assert.Equal(t, http.StatusOK, send("10.0.0.2:5000").Code)
}

func TestClientKey(t *testing.T) {
	tests := []struct {
		remote string
		want   string
	}{
		{"192.168.1.1:1234", "192.168.1.1"},
		{"[::1]:80", "::1"},
		{"10.0.0.9", "10.0.0.9"},
		{"", "unknown"},
	}
	for _, tt := range tests {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.RemoteAddr = tt.remote
		assert.Equal(t, tt.want, clientKey(r), tt.remote)
	}
}

func TestRecoverer(t *testing.T) {
	h := Recoverer(discardLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"internal_error","message":"An unexpected error occurred"}`, rec.Body.String())
}

func TestRequestIDAndLogger(t *testing.T) {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(RequestID)
	r.Use(Logger(discardLogger()))

	var seen, route string
	r.Get("/v1/videos/{id}/related", func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
		route = routePattern(r)
		w.WriteHeader(http.StatusTeapot)
	})

	req := httptest.NewRequest(http.MethodGet, "/v1/videos/abc/related", nil)
	req.Header.Set("X-Request-Id", "req-123")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Equal(t, "req-123", seen)
	assert.Equal(t, "req-123", rec.Header().Get(RequestIDHeader))
	assert.Equal(t, "/v1/videos/{id}/related", route)
}
