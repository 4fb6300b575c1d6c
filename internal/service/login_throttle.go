package service

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// LoginThrottle counts failed login attempts per email+IP in Redis and
// blocks further attempts once the limit is reached within the window.
// A nil throttle disables throttling.
type LoginThrottle struct {
	client      *redis.Client
	maxAttempts int
	window      time.Duration
	onThrottled func()
}

// NewLoginThrottle constructs a throttle over the given Redis client.
func NewLoginThrottle(client *redis.Client, maxAttempts int, window time.Duration) *LoginThrottle {
	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	if window <= 0 {
		window = 15 * time.Minute
	}
	return &LoginThrottle{client: client, maxAttempts: maxAttempts, window: window}
}

// OnThrottled registers a callback fired whenever an attempt is rejected.
func (t *LoginThrottle) OnThrottled(fn func()) {
	if t == nil {
		return
	}
	t.onThrottled = fn
}

func (t *LoginThrottle) key(email, ip string) string {
	return fmt.Sprintf("login_attempts:%s:%s", email, ip)
}

// Allow reports whether another attempt is permitted. Redis outages fail
// open: an unavailable throttle never locks everyone out.
func (t *LoginThrottle) Allow(ctx context.Context, email, ip string) bool {
	if t == nil || t.client == nil {
		return true
	}
	count, err := t.client.Get(ctx, t.key(email, ip)).Int()
	if err != nil {
		return true
	}
	if count >= t.maxAttempts {
		if t.onThrottled != nil {
			t.onThrottled()
		}
		return false
	}
	return true
}

// Fail records a failed attempt.
func (t *LoginThrottle) Fail(ctx context.Context, email, ip string) {
	if t == nil || t.client == nil {
		return
	}
	key := t.key(email, ip)
	count, err := t.client.Incr(ctx, key).Result()
	if err != nil {
		return
	}
	if count == 1 {
		t.client.Expire(ctx, key, t.window)
	}
}

// Reset clears the counter after a successful login.
func (t *LoginThrottle) Reset(ctx context.Context, email, ip string) {
	if t == nil || t.client == nil {
		return
	}
	t.client.Del(ctx, t.key(email, ip))
}
