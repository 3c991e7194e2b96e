package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ipelms/ipelms/internal/config"
)

func TestWindowStoreHit(t *testing.T) {
	s := NewWindowStore()
	base := time.Now()
	s.now = func() time.Time { return base }

	const max = 3
	win := time.Minute

	for i := 0; i < max; i++ {
		allowed, _ := s.Hit("k", max, win)
		assert.True(t, allowed, "hit %d should be allowed", i+1)
	}

	allowed, retryAfter := s.Hit("k", max, win)
	assert.False(t, allowed)
	assert.Equal(t, win, retryAfter)

	// a different key has its own window
	allowed, _ = s.Hit("other", max, win)
	assert.True(t, allowed)

	// partway through the window the retry hint shrinks
	s.now = func() time.Time { return base.Add(40 * time.Second) }
	allowed, retryAfter = s.Hit("k", max, win)
	assert.False(t, allowed)
	assert.Equal(t, 20*time.Second, retryAfter)

	// once the window has elapsed the counter starts over
	s.now = func() time.Time { return base.Add(win) }
	allowed, _ = s.Hit("k", max, win)
	assert.True(t, allowed)
}

func TestWindowStoreRejectedHitsStillCount(t *testing.T) {
	s := NewWindowStore()
	base := time.Now()
	s.now = func() time.Time { return base }

	for i := 0; i < 5; i++ {
		s.Hit("k", 1, time.Minute)
	}
	// still inside the same window, still rejected
	s.now = func() time.Time { return base.Add(30 * time.Second) }
	allowed, _ := s.Hit("k", 1, time.Minute)
	assert.False(t, allowed)
}

func TestRateLimitMiddleware(t *testing.T) {
	store := NewWindowStore()
	base := time.Now()
	store.now = func() time.Time { return base }

	cfg := config.RateLimitConfig{Enabled: true, MaxRequests: 2, Window: time.Minute}
	mw := RateLimit(store, cfg, "login")
	e := echo.New()
	h := mw(func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	do := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		err := h(c)
		if err != nil {
			e.HTTPErrorHandler(err, c)
		}
		return rec
	}

	assert.Equal(t, http.StatusOK, do().Code)
	assert.Equal(t, http.StatusOK, do().Code)

	rec := do()
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))

	// a different client address is not throttled
	req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
	req.RemoteAddr = "10.0.0.2:1234"
	rec = httptest.NewRecorder()
	c := e.NewContext(req, rec)
	require.NoError(t, h(c))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRateLimitDisabled(t *testing.T) {
	store := NewWindowStore()
	cfg := config.RateLimitConfig{Enabled: false, MaxRequests: 1, Window: time.Minute}
	mw := RateLimit(store, cfg, "login")
	e := echo.New()
	h := mw(func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	for i := 0; i < 10; i++ {
		req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
		rec := httptest.NewRecorder()
		require.NoError(t, h(e.NewContext(req, rec)))
		assert.Equal(t, http.StatusOK, rec.Code)
	}
}
