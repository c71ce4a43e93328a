package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	DefaultLimit  = 30
	DefaultWindow = time.Minute
)

// Limiter is a fixed-window request counter kept in Redis. A nil
// *Limiter, or one built without a client, never limits.
type Limiter struct {
	client *redis.Client
	limit  int64
	window time.Duration
}

// NewLimiter creates a limiter allowing limit requests per window and
// subject. Non-positive values fall back to the defaults.
func NewLimiter(client *redis.Client, limit int, window time.Duration) *Limiter {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if window <= 0 {
		window = DefaultWindow
	}
	return &Limiter{client: client, limit: int64(limit), window: window}
}

func rateLimitKey(purpose, subject string) string {
	return fmt.Sprintf("ratelimit:%s:%s", purpose, subject)
}

// incrWindow bumps the counter and starts the window on the first hit.
// A key left without a TTL gets one too, so a counter can never stick.
var incrWindow = redis.NewScript(`
local count = redis.call("INCR", KEYS[1])
if count == 1 or redis.call("PTTL", KEYS[1]) < 0 then
	redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return count
`)

// recordRequest counts one request for subject and purpose and returns
// the count in the current window.
func (l *Limiter) recordRequest(ctx context.Context, subject, purpose string) (int64, error) {
	count, err := incrWindow.Run(ctx, l.client, []string{rateLimitKey(purpose, subject)}, l.window.Milliseconds()).Int64()
	if err != nil {
		return 0, fmt.Errorf("failed to record request: %w", err)
	}
	return count, nil
}

// Allow records a request and reports whether it is within the limit.
// Counting and checking happen in one round trip, so concurrent callers
// never see the same count. On error the request is allowed.
func (l *Limiter) Allow(ctx context.Context, subject, purpose string) (bool, error) {
	if l == nil || l.client == nil {
		return true, nil
	}

	count, err := l.recordRequest(ctx, subject, purpose)
	if err != nil {
		return true, err
	}
	return count <= l.limit, nil
}
