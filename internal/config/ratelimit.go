package config

import "time"

// RateLimitConfig controls the fixed-window request throttle applied to
// abuse-prone endpoints (login, registration, uploads). The counters are
// process-local: in a multi-process deployment each process enforces the
// limit independently. That is a known limitation of the scheme, carried
// over deliberately rather than fixed.
type RateLimitConfig struct {
	Enabled     bool          // master switch
	MaxRequests int           // requests allowed per window
	Window      time.Duration // fixed window length
}

// LoadRateLimitConfig reads rate-limit knobs from the environment and
// normalizes out-of-range values.
func LoadRateLimitConfig() RateLimitConfig {
	cfg := RateLimitConfig{
		Enabled:     envBool("RATE_LIMIT_ENABLED", true),
		MaxRequests: envInt("RATE_LIMIT_MAX_REQUESTS", 8),
		Window:      envDur("RATE_LIMIT_WINDOW", time.Minute),
	}
	if cfg.MaxRequests < 1 {
		cfg.MaxRequests = 1
	}
	if cfg.Window <= 0 {
		cfg.Window = time.Minute
	}
	return cfg
}
