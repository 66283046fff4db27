package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	defaultRateLimit  = 20
	defaultRateWindow = time.Minute
)

// LoginThrottle bounds login attempts per client address with a fixed-window
// Redis counter (INCR + EXPIRE). It protects against credential stuffing
// from a single source; the per-account lockout handles the rest.
type LoginThrottle struct {
	client *redis.Client
	limit  int64
	window time.Duration
}

// NewLoginThrottle creates a LoginThrottle wrapping the given Redis client.
func NewLoginThrottle(client *redis.Client, limit int, window time.Duration) *LoginThrottle {
	if limit <= 0 {
		limit = defaultRateLimit
	}
	if window <= 0 {
		window = defaultRateWindow
	}
	return &LoginThrottle{client: client, limit: int64(limit), window: window}
}

// Allow reports whether another attempt from ip may proceed. Errors signal
// that Redis is unreachable; callers treat that as "allow" and log it, so
// the throttle degrades open rather than blocking all logins.
func (t *LoginThrottle) Allow(ctx context.Context, ip string) (bool, error) {
	if ip == "" {
		return true, nil
	}

	key := t.key(ip)
	n, err := t.client.Incr(ctx, key).Result()
	if err != nil {
		return true, fmt.Errorf("login throttle: %w", err)
	}
	if n == 1 {
		if err := t.client.Expire(ctx, key, t.window).Err(); err != nil {
			return true, fmt.Errorf("login throttle: %w", err)
		}
	}
	return n <= t.limit, nil
}

func (t *LoginThrottle) key(ip string) string {
	return "login_rate:" + ip
}
