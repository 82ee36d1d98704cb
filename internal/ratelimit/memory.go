package ratelimit

import (
	"context"
	"sync"
	"time"
)

// MemoryLimiter is a fixed-window counter held in process memory. Fine
// for a single instance and for tests; counters are not shared across
// processes, so multi-instance deployments should use the Redis
// limiter.
type MemoryLimiter struct {
	mu      sync.Mutex
	config  Config
	windows map[string]*window
}

type window struct {
	count   int
	resetAt time.Time
}

func NewMemoryLimiter(config Config) *MemoryLimiter {
	return &MemoryLimiter{
		config:  config.withDefaults(),
		windows: make(map[string]*window),
	}
}

func (l *MemoryLimiter) Allow(_ context.Context, key string) (bool, error) {
	now := time.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.windows[key]
	if !ok || now.After(w.resetAt) {
		l.windows[key] = &window{count: 1, resetAt: now.Add(l.config.Window)}
		return true, nil
	}

	w.count++
	return w.count <= l.config.Requests, nil
}

// Reset clears the window for a key.
func (l *MemoryLimiter) Reset(_ context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.windows, key)
	return nil
}
