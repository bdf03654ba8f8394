package stores

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	ErrReplayed       = errors.New("counter already accepted")
	ErrReplayBackend  = errors.New("replay guard backend unavailable")
	ErrReplayConflict = errors.New("replay guard contention")
)

// ReplayGuard records the last accepted counter of each item.
type ReplayGuard struct {
	redis  redis.UniversalClient
	prefix string
}

// NewReplayGuard creates a guard whose keys live under prefix.
func NewReplayGuard(redisClient redis.UniversalClient, prefix string) *ReplayGuard {
	if prefix == "" {
		prefix = "otp"
	}
	return &ReplayGuard{
		redis:  redisClient,
		prefix: prefix,
	}
}

func (g *ReplayGuard) key(itemID string) string {
	return g.prefix + ":used:" + itemID
}

// LastAccepted returns the last accepted counter for itemID, or ok=false when
// none is recorded.
func (g *ReplayGuard) LastAccepted(ctx context.Context, itemID string) (uint64, bool, error) {
	raw, err := g.redis.Get(ctx, g.key(itemID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("%w: %v", ErrReplayBackend, err)
	}
	last, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("%w: corrupt counter: %v", ErrReplayBackend, err)
	}
	return last, true, nil
}

// Accept records counter as used for itemID. It fails with ErrReplayed unless
// counter is strictly greater than the last accepted one. ttl bounds how long
// the record is kept.
func (g *ReplayGuard) Accept(ctx context.Context, itemID string, counter uint64, ttl time.Duration) error {
	const maxRetries = 4
	key := g.key(itemID)
	value := strconv.FormatUint(counter, 10)

	for i := 0; i < maxRetries; i++ {
		err := g.redis.Watch(ctx, func(tx *redis.Tx) error {
			raw, err := tx.Get(ctx, key).Result()
			switch {
			case errors.Is(err, redis.Nil):
			case err != nil:
				return err
			default:
				last, perr := strconv.ParseUint(raw, 10, 64)
				if perr == nil && counter <= last {
					return ErrReplayed
				}
			}

			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, key, value, ttl)
				return nil
			})
			return err
		}, key)

		if err == redis.TxFailedErr {
			continue
		}
		if err != nil {
			if errors.Is(err, ErrReplayed) {
				return ErrReplayed
			}
			return fmt.Errorf("%w: %v", ErrReplayBackend, err)
		}
		return nil
	}

	return ErrReplayConflict
}

// Forget drops the record for itemID, e.g. when its secret is rotated.
func (g *ReplayGuard) Forget(ctx context.Context, itemID string) error {
	if err := g.redis.Del(ctx, g.key(itemID)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrReplayBackend, err)
	}
	return nil
}
