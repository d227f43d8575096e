package agent

import (
	"context"
	"math/rand/v2"
	"time"

	loomerrors "github.com/adalundhe/loom/core/errors"
	"github.com/adalundhe/loom/core/generation"
	"github.com/adalundhe/loom/core/vectors"
)

// contextWeight is the fixed contribution of an optional context vector to
// the blended vector.
const contextWeight = 0.1

// ProcessRequest carries one task into an agent's processing step.
type ProcessRequest struct {
	TaskID      string
	TaskVector  []float32
	Description string

	// Context holds optional prior results passed to the generator.
	Context []string

	// ContextVector optionally steers the blend toward caller context.
	ContextVector []float32

	// Seed drives the noise generator. Zero selects a nondeterministic
	// seed; tests pass a fixed value for reproducible blends.
	Seed uint64
}

// ProcessResult is the outcome of a successful processing step.
type ProcessResult struct {
	Text       string
	Model      string
	Similarity float64
	Blended    []float32
	Duration   time.Duration
}

// ProcessTask blends the task vector with seeded noise, invokes the
// generator, and applies the agent's learning update.
//
// State mutation is apply-on-success only: if the generator fails or times
// out, position, memory, and the completion counter are untouched and the
// collaborator error is returned unchanged.
//
// The caller must hold the agent's busy flag for the duration of the call.
func (a *Agent) ProcessTask(ctx context.Context, gen generation.Generator, req ProcessRequest) (*ProcessResult, error) {
	if len(req.TaskVector) != len(a.CoreVector) {
		return nil, loomerrors.NewConfigError("task_vector", len(req.TaskVector), "dimension mismatch")
	}

	blended := a.blend(req)
	_, similarity := a.CanHandle(req.TaskVector, 0)

	resp, err := gen.Generate(ctx, &generation.Request{
		Vector:      blended,
		Description: req.Description,
		Competence:  a.Competence,
		Context:     req.Context,
		Temperature: a.NoiseWeight,
	})
	if err != nil {
		return nil, err
	}

	vectors.Lerp(a.Position, req.TaskVector, a.LearningRate)
	a.memory.Append(Outcome{
		TaskID:      req.TaskID,
		Description: req.Description,
		Similarity:  similarity,
		Result:      resp.Text,
		CompletedAt: time.Now(),
	})
	a.tasksCompleted.Add(1)

	return &ProcessResult{
		Text:       resp.Text,
		Model:      resp.Model,
		Similarity: similarity,
		Blended:    blended,
		Duration:   resp.Duration,
	}, nil
}

// blend mixes the task vector with seeded gaussian noise and the optional
// context vector, returning a unit vector.
func (a *Agent) blend(req ProcessRequest) []float32 {
	noise := noiseVector(len(req.TaskVector), req.Seed)
	blended := vectors.Blend(req.TaskVector, noise, a.SignalWeight, a.NoiseWeight)

	if len(req.ContextVector) == len(blended) {
		ctxPart := vectors.Blend(blended, req.ContextVector, 1.0, contextWeight)
		if ctxPart != nil {
			blended = ctxPart
		}
	}

	vectors.Normalize(blended)
	return blended
}

// noiseVector draws a unit gaussian vector from a per-call seeded PCG source.
// Never touches the global generator.
func noiseVector(dimension int, seed uint64) []float32 {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))

	noise := make([]float32, dimension)
	for i := range noise {
		noise[i] = float32(rng.NormFloat64())
	}
	vectors.Normalize(noise)
	return noise
}
