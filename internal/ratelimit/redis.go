package ratelimit

import (
	"context"
	"fmt"

	"github.com/go-redis/redis/v8"
)

// RedisLimiter is a fixed-window counter backed by Redis, so the limit
// holds across process instances. INCR and EXPIRE run in one pipeline.
type RedisLimiter struct {
	client *redis.Client
	config Config
	prefix string
}

func NewRedisLimiter(client *redis.Client, config Config, prefix string) *RedisLimiter {
	if prefix == "" {
		prefix = "ratelimit"
	}
	return &RedisLimiter{
		client: client,
		config: config.withDefaults(),
		prefix: prefix,
	}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	redisKey := fmt.Sprintf("%s:%s", l.prefix, key)

	pipe := l.client.Pipeline()
	incr := pipe.Incr(ctx, redisKey)
	pipe.Expire(ctx, redisKey, l.config.Window)

	if _, err := pipe.Exec(ctx); err != nil {
		// Fail open on store errors so a Redis outage does not lock
		// everyone out; the caller may log the error.
		return true, fmt.Errorf("ratelimit: redis: %w", err)
	}

	return incr.Val() <= int64(l.config.Requests), nil
}

// Reset clears the window for a key.
func (l *RedisLimiter) Reset(ctx context.Context, key string) error {
	return l.client.Del(ctx, fmt.Sprintf("%s:%s", l.prefix, key)).Err()
}
