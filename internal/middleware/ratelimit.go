package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/ipelms/ipelms/internal/config"
)

// WindowStore is the shared fixed-window counter state. It is constructed
// once at process start and injected into the middleware rather than
// reached through a package global, and a single mutex guards the map since
// requests are served concurrently.
//
// Fixed-window counting is deliberately imprecise: a window starts on its
// first hit and resets once the window length has elapsed since that
// start, regardless of how hits were distributed, so bursts of up to twice
// the limit are possible across a window boundary. That matches the
// existing throttling behavior and is kept rather than upgraded to a
// token bucket.
type WindowStore struct {
	mu      sync.Mutex
	windows map[string]*window
	now     func() time.Time // overridable in tests
}

type window struct {
	count int
	start time.Time
}

func NewWindowStore() *WindowStore {
	return &WindowStore{windows: make(map[string]*window), now: time.Now}
}

// Hit records one request under key and reports whether it is within the
// limit. The counter increments even on the rejected request. retryAfter
// is how long until the active window resets.
func (s *WindowStore) Hit(key string, max int, windowLen time.Duration) (allowed bool, retryAfter time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	w, ok := s.windows[key]
	if !ok || now.Sub(w.start) >= windowLen {
		s.windows[key] = &window{count: 1, start: now}
		return true, 0
	}
	w.count++
	if w.count <= max {
		return true, 0
	}
	return false, windowLen - now.Sub(w.start)
}

// RateLimit throttles an endpoint by (client IP, endpoint name). Exceeding
// the limit answers 429 with a Retry-After header.
func RateLimit(store *WindowStore, cfg config.RateLimitConfig, name string) echo.MiddlewareFunc {
	if !cfg.Enabled {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ip := c.RealIP()
			if ip == "" {
				ip = "unknown"
			}
			key := ip + ":" + name
			allowed, retryAfter := store.Hit(key, cfg.MaxRequests, cfg.Window)
			if !allowed {
				secs := int(math.Ceil(retryAfter.Seconds()))
				if secs < 0 {
					secs = 0
				}
				c.Response().Header().Set("Retry-After", strconv.Itoa(secs))
				return echo.NewHTTPError(http.StatusTooManyRequests, "too many requests, slow down")
			}
			return next(c)
		}
	}
}
