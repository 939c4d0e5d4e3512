package service

import (
	"context"
	"time"

	"team_inbox/internal/repository"
	"team_inbox/pkg/logger"
)

type RateLimitService interface {
	// Allow increments the counter for the key and reports whether the
	// request fits the limit. When denied, retryAfter says when the window
	// resets.
	Allow(ctx context.Context, key string, limit int, window time.Duration) (allowed bool, retryAfter time.Duration, err error)
}

type rateLimitService struct {
	rateLimitRepo repository.RateLimitRepository
	log           logger.Logger
}

func NewRateLimitService(rateLimitRepo repository.RateLimitRepository, log logger.Logger) RateLimitService {
	return &rateLimitService{rateLimitRepo: rateLimitRepo, log: log}
}

func (s *rateLimitService) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, time.Duration, error) {
	count, err := s.rateLimitRepo.Increment(ctx, key, window)
	if err != nil {
		// Fail open: a broken counter must not block traffic.
		s.log.Error("Rate limit check failed, allowing request", "error", err, "key", key)
		return true, 0, nil
	}

	if count <= int64(limit) {
		return true, 0, nil
	}

	retryAfter, err := s.rateLimitRepo.TTL(ctx, key)
	if err != nil {
		retryAfter = window
	}
	return false, retryAfter, nil
}
