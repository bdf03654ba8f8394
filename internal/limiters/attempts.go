package limiters

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	defaultMaxAttempts = 5
	defaultCooldown    = time.Minute
	defaultPrefix      = "otp"
)

var (
	ErrRateLimited = errors.New("verification rate limited")
	ErrUnavailable = errors.New("verification limiter unavailable")
)

// Config holds the thresholds for an [AttemptLimiter].
type Config struct {
	MaxAttempts int
	Cooldown    time.Duration
	Prefix      string
}

// AttemptLimiter is a fixed-window failure counter keyed by item ID. The
// window opens on the first failure and lasts Cooldown.
type AttemptLimiter struct {
	redis       redis.UniversalClient
	maxAttempts int64
	cooldown    time.Duration
	prefix      string
}

// NewAttemptLimiter creates a limiter. Zero-value fields in cfg fall back to
// defaults (5 attempts / 60s, prefix "otp").
func NewAttemptLimiter(redisClient redis.UniversalClient, cfg Config) *AttemptLimiter {
	max := cfg.MaxAttempts
	if max <= 0 {
		max = defaultMaxAttempts
	}
	cd := cfg.Cooldown
	if cd <= 0 {
		cd = defaultCooldown
	}
	prefix := cfg.Prefix
	if prefix == "" {
		prefix = defaultPrefix
	}
	return &AttemptLimiter{redis: redisClient, maxAttempts: int64(max), cooldown: cd, prefix: prefix}
}

func (l *AttemptLimiter) key(itemID string) string {
	return l.prefix + ":att:" + itemID
}

// Check returns ErrRateLimited when the item has no attempts left.
func (l *AttemptLimiter) Check(ctx context.Context, itemID string) error {
	if l == nil {
		return nil
	}
	count, err := l.redis.Get(ctx, l.key(itemID)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if count >= l.maxAttempts {
		return ErrRateLimited
	}
	return nil
}

// RecordFailure counts one failed attempt. It returns ErrRateLimited when this
// failure spent the last attempt.
func (l *AttemptLimiter) RecordFailure(ctx context.Context, itemID string) error {
	if l == nil {
		return nil
	}
	count, err := l.redis.Incr(ctx, l.key(itemID)).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if count == 1 {
		if err := l.redis.Expire(ctx, l.key(itemID), l.cooldown).Err(); err != nil {
			return fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
	}
	if count >= l.maxAttempts {
		return ErrRateLimited
	}
	return nil
}

// Reset clears the failure counter after a successful verification.
func (l *AttemptLimiter) Reset(ctx context.Context, itemID string) error {
	if l == nil {
		return nil
	}
	if err := l.redis.Del(ctx, l.key(itemID)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// Remaining returns how many failures the item may still record before it is
// limited.
func (l *AttemptLimiter) Remaining(ctx context.Context, itemID string) (int, error) {
	if l == nil {
		return 0, nil
	}
	count, err := l.redis.Get(ctx, l.key(itemID)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return int(l.maxAttempts), nil
		}
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	left := l.maxAttempts - count
	if left < 0 {
		left = 0
	}
	return int(left), nil
}
