// Package errors defines the error taxonomy shared by the routing core.
//
// Orchestrator-level failures (registration collisions, lookups, bad
// configuration) are returned synchronously to callers. Per-task failures
// (no suitable agent, generation failure or timeout) are recorded on the
// task record and never escape a worker loop.
package errors

import (
	"errors"
	"fmt"
)

var (
	// ErrAgentExists is returned when spawning an agent with an id that is
	// already registered.
	ErrAgentExists = errors.New("agent already exists")

	// ErrAgentNotFound is returned by registry lookups for unknown ids.
	ErrAgentNotFound = errors.New("agent not found")

	// ErrAgentBusy is returned when claiming an agent that is mid-task.
	ErrAgentBusy = errors.New("agent busy")

	// ErrNoSuitableAgent is recorded on a task when no candidate clears the
	// acceptance threshold, or when a required agent type has no members.
	ErrNoSuitableAgent = errors.New("no suitable agent")

	// ErrEmbeddingUnavailable wraps failures of the embedding provider. It is
	// scoped to the single call that triggered it.
	ErrEmbeddingUnavailable = errors.New("embedding unavailable")

	// ErrGenerationFailure wraps non-timeout failures of the generation
	// provider.
	ErrGenerationFailure = errors.New("generation failure")

	// ErrGenerationTimeout is recorded when the generation provider misses
	// its deadline.
	ErrGenerationTimeout = errors.New("generation timeout")

	// ErrQueueClosed is returned by enqueue attempts after shutdown.
	ErrQueueClosed = errors.New("task queue closed")

	// ErrTaskNotFound is returned by task lookups for unknown ids.
	ErrTaskNotFound = errors.New("task not found")

	// ErrTaskNotCancellable is returned when cancelling a task a worker has
	// already claimed.
	ErrTaskNotCancellable = errors.New("task not cancellable")

	// ErrTaskNotInterrupted is returned when recovering a task that is not
	// in the interrupted state.
	ErrTaskNotInterrupted = errors.New("task not interrupted")
)

// ConfigError reports an invalid configuration value, such as a weight pair
// that does not sum to one or a priority outside the allowed range.
type ConfigError struct {
	Field  string
	Value  any
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid config %s=%v: %s", e.Field, e.Value, e.Reason)
}

// NewConfigError builds a ConfigError for the given field.
func NewConfigError(field string, value any, reason string) *ConfigError {
	return &ConfigError{Field: field, Value: value, Reason: reason}
}

// IsConfig reports whether err is a configuration error.
func IsConfig(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}

// Kind maps err to the canonical short name recorded on task records and
// surfaced through status snapshots.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNoSuitableAgent):
		return "no_suitable_agent"
	case errors.Is(err, ErrGenerationTimeout):
		return "generation_timeout"
	case errors.Is(err, ErrGenerationFailure):
		return "generation_failure"
	case errors.Is(err, ErrEmbeddingUnavailable):
		return "embedding_unavailable"
	case errors.Is(err, ErrAgentExists):
		return "agent_exists"
	case errors.Is(err, ErrAgentNotFound):
		return "agent_not_found"
	case errors.Is(err, ErrQueueClosed):
		return "queue_closed"
	case IsConfig(err):
		return "configuration"
	default:
		return "internal"
	}
}

// Transient reports whether err is worth retrying against the same
// collaborator. Timeouts and generic generation failures are transient;
// taxonomy and configuration errors are permanent.
func Transient(err error) bool {
	return errors.Is(err, ErrGenerationTimeout) ||
		errors.Is(err, ErrGenerationFailure) ||
		errors.Is(err, ErrEmbeddingUnavailable)
}
