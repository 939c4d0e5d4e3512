package repository

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"team_inbox/pkg/logger"
)

type RateLimitRepository interface {
	CheckLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
	Increment(ctx context.Context, key string, window time.Duration) (int64, error)
	// TTL reports how long until the counter window resets, for the
	// Retry-After hint on 429 responses.
	TTL(ctx context.Context, key string) (time.Duration, error)
}

type rateLimitRepository struct {
	redis *redis.Client
	log   logger.Logger
}

func NewRateLimitRepository(redis *redis.Client, log logger.Logger) RateLimitRepository {
	return &rateLimitRepository{redis: redis, log: log}
}

func (r *rateLimitRepository) CheckLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	count, err := r.redis.Get(ctx, key).Int()
	if err == redis.Nil {
		return true, nil
	}
	if err != nil {
		r.log.Error("Failed to check rate limit", "error", err)
		return false, err
	}

	return count < limit, nil
}

func (r *rateLimitRepository) Increment(ctx context.Context, key string, window time.Duration) (int64, error) {
	count, err := r.redis.Incr(ctx, key).Result()
	if err != nil {
		r.log.Error("Failed to increment rate limit", "error", err)
		return 0, err
	}

	if count == 1 {
		r.redis.Expire(ctx, key, window)
	}

	return count, nil
}

func (r *rateLimitRepository) TTL(ctx context.Context, key string) (time.Duration, error) {
	ttl, err := r.redis.TTL(ctx, key).Result()
	if err != nil {
		r.log.Error("Failed to get rate limit TTL", "error", err)
		return 0, err
	}
	if ttl < 0 {
		return 0, nil
	}
	return ttl, nil
}
