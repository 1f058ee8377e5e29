package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// incrWithExpiry counts a hit and stamps the window TTL on first use, so
// abandoned keys clean themselves up.
var incrWithExpiry = redis.NewScript(`
local hits = redis.call("INCR", KEYS[1])
if hits == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return hits
`)

// FixedWindowLimiter caps hits per key within fixed time windows, shared
// across instances through Redis. The forum keys it by client IP on the
// register and login endpoints.
type FixedWindowLimiter struct {
	limit    int
	windowMs int64
	prefix   string
	rdb      *redis.Client
}

// NewRedisFixedWindowLimiter connects a limiter to Redis. The prefix
// namespaces keys so the register and login limiters never collide.
func NewRedisFixedWindowLimiter(addr, password, prefix string, limit int, window time.Duration) (*FixedWindowLimiter, error) {
	if limit <= 0 || window.Milliseconds() <= 0 {
		return nil, errors.New("rate limiter requires positive limit and window")
	}
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return nil, errors.New("rate limiter redis addr is required")
	}
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = "forumhub:ratelimit"
	}
	return &FixedWindowLimiter{
		limit:    limit,
		windowMs: window.Milliseconds(),
		prefix:   prefix,
		rdb: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
		}),
	}, nil
}

// Allow reports whether the key still has quota in the current window.
// Redis errors and unkeyable callers count as a deny.
func (l *FixedWindowLimiter) Allow(key string) bool {
	if l == nil {
		return false
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return false
	}
	slot := time.Now().UTC().UnixMilli() / l.windowMs
	redisKey := fmt.Sprintf("%s:%s:%d", l.prefix, key, slot)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	hits, err := incrWithExpiry.Run(ctx, l.rdb, []string{redisKey}, l.windowMs).Int64()
	if err != nil {
		return false
	}
	return hits <= int64(l.limit)
}
