package errors

import (
	"context"
	"math/rand/v2"
	"time"
)

// RetryPolicy controls exponential backoff for transient collaborator
// failures.
type RetryPolicy struct {
	MaxAttempts   int           `yaml:"max_attempts"`
	InitialDelay  time.Duration `yaml:"initial_delay"`
	MaxDelay      time.Duration `yaml:"max_delay"`
	Multiplier    float64       `yaml:"multiplier"`
	JitterPercent float64       `yaml:"jitter_percent"`
}

// DefaultRetryPolicy retries transient failures three times with capped
// exponential backoff.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:   3,
		InitialDelay:  100 * time.Millisecond,
		MaxDelay:      5 * time.Second,
		Multiplier:    2.0,
		JitterPercent: 0.1,
	}
}

// NoRetry disables retries entirely.
func NoRetry() RetryPolicy {
	return RetryPolicy{MaxAttempts: 0}
}

// Retry runs fn up to policy.MaxAttempts+1 times, backing off between
// attempts. Permanent errors and context cancellation stop retrying
// immediately; the last error is returned.
func Retry(ctx context.Context, policy RetryPolicy, fn func(context.Context) error) error {
	var lastErr error

	delay := policy.InitialDelay
	for attempt := 0; attempt <= policy.MaxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return lastErr
			case <-time.After(jitter(delay, policy.JitterPercent)):
			}
			delay = nextDelay(delay, policy)
		}

		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if !Transient(lastErr) {
			return lastErr
		}
	}
	return lastErr
}

func nextDelay(current time.Duration, policy RetryPolicy) time.Duration {
	multiplier := policy.Multiplier
	if multiplier <= 1 {
		multiplier = 2.0
	}
	next := time.Duration(float64(current) * multiplier)
	if policy.MaxDelay > 0 && next > policy.MaxDelay {
		return policy.MaxDelay
	}
	return next
}

func jitter(d time.Duration, percent float64) time.Duration {
	if percent <= 0 || d <= 0 {
		return d
	}
	span := float64(d) * percent
	return d + time.Duration((rand.Float64()*2-1)*span)
}
