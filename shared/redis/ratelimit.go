package redis

import (
	"context"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

var fixedWindowScript = goredis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
local ttl = redis.call("PTTL", KEYS[1])
if ttl < 0 then
  ttl = tonumber(ARGV[1])
end
return {current, ttl}
`)

// RateLimiter is a fixed-window counter per (scope, subject) kept in Redis so
// every replica shares it.
type RateLimiter struct {
	client *goredis.Client
	prefix string
	limit  int
	window time.Duration
}

// NewRateLimiter allows limit hits per window. A non-positive limit disables
// limiting.
func NewRateLimiter(client *goredis.Client, prefix string, limit int, window time.Duration) *RateLimiter {
	prefix = strings.TrimSuffix(strings.TrimSpace(prefix), ":")
	if prefix == "" {
		prefix = "avs:rate_limit"
	}
	if window < time.Second {
		window = time.Second
	}
	return &RateLimiter{client: client, prefix: prefix, limit: limit, window: window}
}

// Allow records one hit and reports whether it is within the limit. When it
// is not, retryAfter is the time left in the current window.
func (r *RateLimiter) Allow(ctx context.Context, scope, subject string) (allowed bool, retryAfter time.Duration, err error) {
	if r == nil || r.limit <= 0 {
		return true, 0, nil
	}
	scope = strings.TrimSpace(scope)
	subject = strings.ToLower(strings.TrimSpace(subject))
	if scope == "" || subject == "" {
		return true, 0, nil
	}

	key := fmt.Sprintf("%s:%s:%s", r.prefix, scope, subject)
	raw, err := fixedWindowScript.Run(ctx, r.client, []string{key}, r.window.Milliseconds()).Result()
	if err != nil {
		return false, 0, fmt.Errorf("rate limit script: %w", err)
	}
	values, ok := raw.([]interface{})
	if !ok || len(values) != 2 {
		return false, 0, fmt.Errorf("unexpected rate limit response: %T", raw)
	}
	count, ok := values[0].(int64)
	if !ok {
		return false, 0, fmt.Errorf("unexpected rate limit count type: %T", values[0])
	}
	ttlMs, ok := values[1].(int64)
	if !ok {
		return false, 0, fmt.Errorf("unexpected rate limit ttl type: %T", values[1])
	}
	if count > int64(r.limit) {
		return false, time.Duration(ttlMs) * time.Millisecond, nil
	}
	return true, 0, nil
}
