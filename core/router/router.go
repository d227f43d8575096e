// Package router selects the best-matching agent for a task embedding. Pure
// selection logic: no locking, no mutation beyond reading candidate state.
package router

import (
	"fmt"

	"github.com/adalundhe/loom/core/agent"
	loomerrors "github.com/adalundhe/loom/core/errors"
	"github.com/adalundhe/loom/core/vectors"
)

// Defaults for the acceptance decision. The acceptance threshold is the
// single authoritative accept/reject cut-off; Agent.CanHandle thresholds are
// advisory per-call overrides.
const (
	DefaultAcceptanceThreshold = 0.5
	DefaultTieEpsilon          = 1e-6
)

// Config tunes routing decisions.
type Config struct {
	// AcceptanceThreshold is the minimum similarity for an assignment.
	AcceptanceThreshold float64

	// TieEpsilon treats candidates within this similarity band as tied.
	TieEpsilon float64
}

// DefaultConfig returns the standard acceptance settings.
func DefaultConfig() Config {
	return Config{
		AcceptanceThreshold: DefaultAcceptanceThreshold,
		TieEpsilon:          DefaultTieEpsilon,
	}
}

// Decision is the outcome of a routing call.
type Decision struct {
	Agent      *agent.Agent
	Similarity float64

	// Candidates is how many agents were considered after type filtering.
	Candidates int
}

// Route picks the best agent for the task embedding among candidates.
//
// Candidates are narrowed to requiredType when set. The arg-max similarity
// wins; below the acceptance threshold the task is rejected with
// ErrNoSuitableAgent rather than silently dropped. Ties within TieEpsilon go
// to the agent with the fewest completed tasks, then the lexicographically
// smallest id.
func Route(taskVector []float32, candidates []*agent.Agent, requiredType string, cfg Config) (*Decision, error) {
	if cfg.AcceptanceThreshold == 0 {
		cfg.AcceptanceThreshold = DefaultAcceptanceThreshold
	}
	if cfg.TieEpsilon == 0 {
		cfg.TieEpsilon = DefaultTieEpsilon
	}

	taskMag := vectors.Magnitude(taskVector)

	var best *agent.Agent
	var bestSim float64
	considered := 0

	for _, candidate := range candidates {
		if requiredType != "" && candidate.Kind != requiredType {
			continue
		}
		considered++

		sim := vectors.CosineSimilarity(taskVector, candidate.CoreVector, taskMag, 1.0)
		if best == nil || better(candidate, sim, best, bestSim, cfg.TieEpsilon) {
			best = candidate
			bestSim = sim
		}
	}

	if best == nil {
		return nil, fmt.Errorf("%w: no candidates for type %q",
			loomerrors.ErrNoSuitableAgent, requiredType)
	}
	if bestSim < cfg.AcceptanceThreshold {
		return nil, fmt.Errorf("%w: best similarity %.3f below threshold %.3f",
			loomerrors.ErrNoSuitableAgent, bestSim, cfg.AcceptanceThreshold)
	}

	return &Decision{Agent: best, Similarity: bestSim, Candidates: considered}, nil
}

// better reports whether challenger beats the incumbent, applying the
// epsilon tie-break chain: similarity, then fewest tasks completed, then
// smallest id.
func better(challenger *agent.Agent, challengerSim float64, incumbent *agent.Agent, incumbentSim float64, epsilon float64) bool {
	diff := challengerSim - incumbentSim
	if diff > epsilon {
		return true
	}
	if diff < -epsilon {
		return false
	}

	challengerDone := challenger.TasksCompleted()
	incumbentDone := incumbent.TasksCompleted()
	if challengerDone != incumbentDone {
		return challengerDone < incumbentDone
	}
	return challenger.ID < incumbent.ID
}
