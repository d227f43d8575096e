// Package generation defines the downstream text-generation collaborator
// invoked once per processed task, plus provider implementations.
//
// Providers must honor the context deadline: a missed deadline surfaces as
// errors.ErrGenerationTimeout, every other failure as
// errors.ErrGenerationFailure. The blended vector on the request is the
// agent's signal/noise mix; providers that cannot consume a raw vector derive
// sampling temperature from the request instead.
package generation

import (
	"context"
	"errors"
	"fmt"
	"time"

	loomerrors "github.com/adalundhe/loom/core/errors"
)

// Request carries everything a provider needs for one generation call.
type Request struct {
	// Vector is the agent's blended signal/noise vector for this task.
	Vector []float32

	// Description is the task's free-text work request.
	Description string

	// Competence is the processing agent's specialization text.
	Competence string

	// Context holds optional prior results or caller-supplied context.
	Context []string

	// Temperature in [0, 1], derived from the agent's noise weight.
	Temperature float64

	MaxTokens int
}

// Response is a provider's answer.
type Response struct {
	Text     string
	Model    string
	Duration time.Duration
}

// Generator produces text for a blended task vector. Implementations must
// respect ctx cancellation and deadline.
type Generator interface {
	Name() string
	Generate(ctx context.Context, req *Request) (*Response, error)
}

// Failure wraps a provider error into the task error taxonomy, converting
// deadline misses to ErrGenerationTimeout.
func Failure(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", loomerrors.ErrGenerationTimeout, err)
	}
	return fmt.Errorf("%w: %w", loomerrors.ErrGenerationFailure, err)
}
