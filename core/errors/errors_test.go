package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKind(t *testing.T) {
	cases := map[string]struct {
		err  error
		want string
	}{
		"nil":              {nil, ""},
		"no agent":         {ErrNoSuitableAgent, "no_suitable_agent"},
		"timeout":          {ErrGenerationTimeout, "generation_timeout"},
		"gen failure":      {ErrGenerationFailure, "generation_failure"},
		"embedding":        {ErrEmbeddingUnavailable, "embedding_unavailable"},
		"agent exists":     {ErrAgentExists, "agent_exists"},
		"agent missing":    {ErrAgentNotFound, "agent_not_found"},
		"queue closed":     {ErrQueueClosed, "queue_closed"},
		"config":           {NewConfigError("workers", -1, "must be positive"), "configuration"},
		"unknown":          {stderrors.New("mystery"), "internal"},
		"wrapped timeout":  {fmt.Errorf("call failed: %w", ErrGenerationTimeout), "generation_timeout"},
		"wrapped embedder": {fmt.Errorf("%w: %w", ErrEmbeddingUnavailable, stderrors.New("dial tcp")), "embedding_unavailable"},
	}

	for name, tc := range cases {
		assert.Equal(t, tc.want, Kind(tc.err), name)
	}
}

func TestTransient(t *testing.T) {
	assert.True(t, Transient(ErrGenerationTimeout))
	assert.True(t, Transient(ErrGenerationFailure))
	assert.True(t, Transient(ErrEmbeddingUnavailable))
	assert.True(t, Transient(fmt.Errorf("wrapped: %w", ErrGenerationTimeout)))

	assert.False(t, Transient(nil))
	assert.False(t, Transient(ErrNoSuitableAgent))
	assert.False(t, Transient(ErrAgentNotFound))
	assert.False(t, Transient(NewConfigError("f", 1, "bad")))
}

func TestConfigError(t *testing.T) {
	err := NewConfigError("signal_weight", 1.5, "must be in [0, 1]")

	assert.True(t, IsConfig(err))
	assert.Contains(t, err.Error(), "signal_weight")
	assert.Contains(t, err.Error(), "1.5")

	wrapped := fmt.Errorf("spawn: %w", err)
	assert.True(t, IsConfig(wrapped))
	assert.False(t, IsConfig(stderrors.New("other")))
}

func TestRetrySucceedsAfterTransientFailures(t *testing.T) {
	policy := RetryPolicy{MaxAttempts: 3, InitialDelay: time.Millisecond, Multiplier: 2}

	attempts := 0
	err := Retry(context.Background(), policy, func(context.Context) error {
		attempts++
		if attempts < 3 {
			return ErrGenerationTimeout
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestRetryStopsOnPermanentError(t *testing.T) {
	policy := RetryPolicy{MaxAttempts: 5, InitialDelay: time.Millisecond}

	attempts := 0
	err := Retry(context.Background(), policy, func(context.Context) error {
		attempts++
		return ErrNoSuitableAgent
	})

	assert.True(t, stderrors.Is(err, ErrNoSuitableAgent))
	assert.Equal(t, 1, attempts, "permanent errors must not be retried")
}

func TestRetryExhaustsAttempts(t *testing.T) {
	policy := RetryPolicy{MaxAttempts: 2, InitialDelay: time.Millisecond, Multiplier: 2}

	attempts := 0
	err := Retry(context.Background(), policy, func(context.Context) error {
		attempts++
		return ErrGenerationFailure
	})

	assert.True(t, stderrors.Is(err, ErrGenerationFailure))
	assert.Equal(t, 3, attempts, "initial attempt plus two retries")
}

func TestRetryHonorsContextCancellation(t *testing.T) {
	policy := RetryPolicy{MaxAttempts: 10, InitialDelay: 50 * time.Millisecond}

	ctx, cancel := context.WithCancel(context.Background())
	attempts := 0
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	err := Retry(ctx, policy, func(context.Context) error {
		attempts++
		return ErrGenerationTimeout
	})

	assert.True(t, stderrors.Is(err, ErrGenerationTimeout))
	assert.LessOrEqual(t, attempts, 2)
}

func TestNoRetry(t *testing.T) {
	attempts := 0
	err := Retry(context.Background(), NoRetry(), func(context.Context) error {
		attempts++
		return ErrGenerationTimeout
	})

	assert.Error(t, err)
	assert.Equal(t, 1, attempts)
}

func TestNextDelayCapped(t *testing.T) {
	policy := RetryPolicy{Multiplier: 2, MaxDelay: 300 * time.Millisecond}

	d := nextDelay(200*time.Millisecond, policy)
	assert.Equal(t, 300*time.Millisecond, d)

	uncapped := nextDelay(100*time.Millisecond, RetryPolicy{Multiplier: 2})
	assert.Equal(t, 200*time.Millisecond, uncapped)
}
