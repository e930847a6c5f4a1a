package bot

import (
	"context"
	"fmt"
	"time"
)

// UserLimiter enforces a fixed-window command budget per Telegram user,
// counted in redis so the limit survives restarts and covers multiple
// bot instances.
type UserLimiter struct {
	redis  RedisClient
	limit  int
	window time.Duration
	clock  func() time.Time
}

// NewUserLimiter builds a limiter. Non-positive values take the
// defaults of 30 commands per minute.
func NewUserLimiter(redis RedisClient, limit int, window time.Duration) *UserLimiter {
	if limit <= 0 {
		limit = 30
	}
	if window <= 0 {
		window = time.Minute
	}
	return &UserLimiter{
		redis:  redis,
		limit:  limit,
		window: window,
		clock:  time.Now,
	}
}

// Allow consumes one command slot for the user and reports whether the
// command may proceed. Redis failures deny the command.
func (l *UserLimiter) Allow(ctx context.Context, userID int64) (bool, error) {
	if l == nil || l.redis == nil {
		return false, fmt.Errorf("limiter is not initialized")
	}

	now := l.clock().UTC()
	key := fmt.Sprintf("ratelimit:user:%d:%d", userID, now.Truncate(l.window).Unix())

	count, err := l.redis.Incr(ctx, key)
	if err != nil {
		return false, fmt.Errorf("count command: %w", err)
	}
	if count == 1 {
		if _, err := l.redis.Expire(ctx, key, l.window); err != nil {
			return false, fmt.Errorf("expire window: %w", err)
		}
	}

	return count <= int64(l.limit), nil
}

// SetClock replaces the time source. Intended for tests.
func (l *UserLimiter) SetClock(clock func() time.Time) {
	if clock != nil {
		l.clock = clock
	}
}
