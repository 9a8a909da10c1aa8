// Package ratelimit throttles public auth endpoints with fixed windows kept in Redis.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "ratelimit:ip:"

// Limiter counts requests per client IP and purpose in fixed windows
type Limiter struct {
	client      redis.Cmdable
	maxRequests int
	window      time.Duration
}

func NewLimiter(client redis.Cmdable, maxRequests int, window time.Duration) *Limiter {
	return &Limiter{
		client:      client,
		maxRequests: maxRequests,
		window:      window,
	}
}

func key(ip, purpose string) string {
	return keyPrefix + purpose + ":" + ip
}

// AllowIPRequestWithPurpose counts one request and reports whether it fits in
// the current window. The decision comes from the counter INCR returns, so
// concurrent requests cannot overshoot maxRequests. The first request of a
// window starts its expiry.
func (l *Limiter) AllowIPRequestWithPurpose(ctx context.Context, ip, purpose string) (bool, error) {
	k := key(ip, purpose)

	count, err := l.client.Incr(ctx, k).Result()
	if err != nil {
		return false, fmt.Errorf("failed to increment rate limit counter: %w", err)
	}

	if count == 1 {
		if err := l.client.Expire(ctx, k, l.window).Err(); err != nil {
			return false, fmt.Errorf("failed to set rate limit window: %w", err)
		}
	}

	return count <= int64(l.maxRequests), nil
}

// Noop never limits. It is used when rate limiting is disabled.
type Noop struct{}

func (Noop) AllowIPRequestWithPurpose(context.Context, string, string) (bool, error) {
	return true, nil
}
