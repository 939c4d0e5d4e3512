package channel

import (
	"context"
	"time"

	"team_inbox/pkg/logger"
)

type retryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Multiplier  float64
	MaxDelay    time.Duration
}

var defaultRetryPolicy = retryPolicy{
	MaxAttempts: 3,
	BaseDelay:   500 * time.Millisecond,
	Multiplier:  2,
	MaxDelay:    5 * time.Second,
}

func (p retryPolicy) delay(attempt int) time.Duration {
	d := p.BaseDelay
	for i := 1; i < attempt; i++ {
		d = time.Duration(float64(d) * p.Multiplier)
		if d >= p.MaxDelay {
			return p.MaxDelay
		}
	}
	if d > p.MaxDelay {
		return p.MaxDelay
	}
	return d
}

// callWithRetry runs fn until it succeeds, fails permanently, exhausts the
// attempt budget or the context ends. It returns the number of attempts made.
func callWithRetry(ctx context.Context, policy retryPolicy, log logger.Logger, fn func(context.Context) (*ProviderMessage, error)) (*ProviderMessage, int, error) {
	var lastErr error

	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		message, err := fn(ctx)
		if err == nil {
			return message, attempt, nil
		}
		lastErr = err

		if !IsRetryable(err) {
			return nil, attempt, err
		}
		if attempt == policy.MaxAttempts {
			break
		}

		log.Warn("Provider call failed, retrying",
			"attempt", attempt, "error", err)

		select {
		case <-time.After(policy.delay(attempt)):
		case <-ctx.Done():
			return nil, attempt, ctx.Err()
		}
	}

	return nil, policy.MaxAttempts, lastErr
}
