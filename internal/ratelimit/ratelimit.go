package ratelimit

import (
	"context"
	"time"
)

// Limiter bounds attempts per key per window. Allow reports whether the
// request may proceed; a non-nil error means the backing store failed
// and the caller decides whether to fail open.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// Config bounds a fixed counting window.
type Config struct {
	Requests int
	Window   time.Duration
}

// DefaultConfig allows five attempts per fifteen minutes, matching the
// brute-force protection on the anonymous auth endpoints.
func DefaultConfig() Config {
	return Config{
		Requests: 5,
		Window:   15 * time.Minute,
	}
}

func (c Config) withDefaults() Config {
	if c.Requests < 1 {
		c.Requests = DefaultConfig().Requests
	}
	if c.Window <= 0 {
		c.Window = DefaultConfig().Window
	}
	return c
}
