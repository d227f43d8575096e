// Package agent implements the specialized worker entities tasks are routed
// to. An agent pairs a stable unit-length competence vector with mutable
// learning state: a drifting position vector, a bounded memory of past
// outcomes, and a completion counter.
//
// Agents have no goroutines of their own. Structural fields (id, core vector,
// weights, lineage) are immutable after construction; mutable state is only
// touched by the single worker that holds the agent's busy flag.
package agent

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	loomerrors "github.com/adalundhe/loom/core/errors"
	"github.com/adalundhe/loom/core/vectors"
)

const (
	// WeightTolerance is how far SignalWeight+NoiseWeight may stray from 1.
	WeightTolerance = 1e-6

	// DefaultLearningRate controls position drift after a completed task.
	DefaultLearningRate = 0.05

	// DefaultMemoryCapacity bounds the per-agent outcome log.
	DefaultMemoryCapacity = 64
)

// Alignment thresholds for CommunicateWith.
const (
	alignedThreshold  = 0.8
	complementaryLow  = 0.3
	complementaryHigh = 0.6
)

// Spec describes a new agent. Kind may name a preset (see Presets) or be
// empty for fully custom agents; Competence is the free-text specialization
// the core vector is embedded from.
type Spec struct {
	ID           string
	Kind         string
	Competence   string
	SignalWeight float64
	NoiseWeight  float64
	LearningRate float64
	MemoryCap    int
}

// Validate checks the weight invariant and ranges.
func (s Spec) Validate() error {
	if s.SignalWeight < 0 || s.SignalWeight > 1 {
		return loomerrors.NewConfigError("signal_weight", s.SignalWeight, "must be in [0, 1]")
	}
	if s.NoiseWeight < 0 || s.NoiseWeight > 1 {
		return loomerrors.NewConfigError("noise_weight", s.NoiseWeight, "must be in [0, 1]")
	}
	sum := s.SignalWeight + s.NoiseWeight
	if sum < 1-WeightTolerance || sum > 1+WeightTolerance {
		return loomerrors.NewConfigError("signal_weight+noise_weight", sum, "must sum to 1")
	}
	if s.LearningRate < 0 || s.LearningRate >= 1 {
		return loomerrors.NewConfigError("learning_rate", s.LearningRate, "must be in [0, 1)")
	}
	return nil
}

// Agent is a routable worker entity.
type Agent struct {
	ID           string
	Kind         string
	Competence   string
	CoreVector   []float32 // unit length, immutable
	SignalWeight float64
	NoiseWeight  float64
	LearningRate float64
	ParentIDs    []string
	CreatedAt    time.Time

	// Position drifts toward completed task vectors. Only the worker
	// holding the busy flag may touch it.
	Position []float32

	memory         *MemoryLog
	tasksCompleted atomic.Int64
	busy           atomic.Bool
}

// New builds an agent from spec with the given competence vector. The
// vector is copied and normalized to unit length; spec validation errors
// are returned as ConfigError.
func New(spec Spec, coreVector []float32) (*Agent, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	if len(coreVector) == 0 {
		return nil, loomerrors.NewConfigError("core_vector", nil, "must be non-empty")
	}

	id := spec.ID
	if id == "" {
		id = uuid.NewString()
	}
	if spec.LearningRate == 0 {
		spec.LearningRate = DefaultLearningRate
	}
	if spec.MemoryCap <= 0 {
		spec.MemoryCap = DefaultMemoryCapacity
	}

	core := vectors.NormalizeCopy(coreVector)
	position := make([]float32, len(core))
	copy(position, core)

	return &Agent{
		ID:           id,
		Kind:         spec.Kind,
		Competence:   spec.Competence,
		CoreVector:   core,
		SignalWeight: spec.SignalWeight,
		NoiseWeight:  spec.NoiseWeight,
		LearningRate: spec.LearningRate,
		CreatedAt:    time.Now(),
		Position:     position,
		memory:       NewMemoryLog(spec.MemoryCap),
	}, nil
}

// CanHandle reports whether the task vector clears threshold against the
// agent's core vector, along with the similarity itself. Deterministic for
// identical inputs.
func (a *Agent) CanHandle(taskVector []float32, threshold float64) (bool, float64) {
	sim := vectors.CosineSimilarity(taskVector, a.CoreVector, vectors.Magnitude(taskVector), 1.0)
	return sim >= threshold, sim
}

// TasksCompleted reports how many tasks the agent has finished. Safe to call
// concurrently.
func (a *Agent) TasksCompleted() int64 {
	return a.tasksCompleted.Load()
}

// Memory returns a snapshot of the agent's outcome log, oldest first.
func (a *Agent) Memory() []Outcome {
	return a.memory.Snapshot()
}

// MemoryCap returns the fixed capacity of the outcome log.
func (a *Agent) MemoryCap() int {
	return a.memory.Cap()
}

// TryAcquire claims the agent for exclusive processing. Returns false if
// another worker holds it.
func (a *Agent) TryAcquire() bool {
	return !a.busy.Swap(true)
}

// Release returns the agent to the idle state.
func (a *Agent) Release() {
	a.busy.Store(false)
}

// Busy reports whether the agent is currently mid-task.
func (a *Agent) Busy() bool {
	return a.busy.Load()
}

// Clone produces an independent agent with the same competence and weights,
// a fresh id, and reset history.
func (a *Agent) Clone() (*Agent, error) {
	clone, err := New(Spec{
		Kind:         a.Kind,
		Competence:   a.Competence,
		SignalWeight: a.SignalWeight,
		NoiseWeight:  a.NoiseWeight,
		LearningRate: a.LearningRate,
		MemoryCap:    a.memory.Cap(),
	}, a.CoreVector)
	if err != nil {
		return nil, err
	}
	clone.ParentIDs = []string{a.ID}
	return clone, nil
}

// MergeWith produces a hybrid agent whose core vector is the normalized sum
// of both parents' vectors and whose weights are averaged.
func (a *Agent) MergeWith(other *Agent) (*Agent, error) {
	if other == nil {
		return nil, loomerrors.NewConfigError("merge", nil, "other agent is nil")
	}
	summed := vectors.Sum(a.CoreVector, other.CoreVector)
	if summed == nil {
		return nil, loomerrors.NewConfigError("merge", nil,
			fmt.Sprintf("dimension mismatch: %d vs %d", len(a.CoreVector), len(other.CoreVector)))
	}

	memCap := a.memory.Cap()
	if other.memory.Cap() > memCap {
		memCap = other.memory.Cap()
	}

	merged, err := New(Spec{
		Kind:         "merged",
		Competence:   a.Competence + " / " + other.Competence,
		SignalWeight: (a.SignalWeight + other.SignalWeight) / 2,
		NoiseWeight:  (a.NoiseWeight + other.NoiseWeight) / 2,
		LearningRate: (a.LearningRate + other.LearningRate) / 2,
		MemoryCap:    memCap,
	}, summed)
	if err != nil {
		return nil, err
	}
	merged.ParentIDs = []string{a.ID, other.ID}
	return merged, nil
}

// Communication describes the relationship between two agents' competences.
type Communication struct {
	Similarity    float64
	Aligned       bool // similarity >= 0.8
	Complementary bool // 0.3 <= similarity < 0.6
}

// CommunicateWith compares two agents' core vectors.
func (a *Agent) CommunicateWith(other *Agent) Communication {
	sim := vectors.CosineSimilarity(a.CoreVector, other.CoreVector, 1.0, 1.0)
	return Communication{
		Similarity:    sim,
		Aligned:       sim >= alignedThreshold,
		Complementary: sim >= complementaryLow && sim < complementaryHigh,
	}
}

// Summary is a point-in-time view of an agent for status snapshots.
type Summary struct {
	ID             string    `json:"id"`
	Kind           string    `json:"kind"`
	Competence     string    `json:"competence"`
	TasksCompleted int64     `json:"tasks_completed"`
	Busy           bool      `json:"busy"`
	ParentIDs      []string  `json:"parent_ids,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// Summarize captures the agent's queryable state.
func (a *Agent) Summarize() Summary {
	return Summary{
		ID:             a.ID,
		Kind:           a.Kind,
		Competence:     a.Competence,
		TasksCompleted: a.tasksCompleted.Load(),
		Busy:           a.busy.Load(),
		ParentIDs:      a.ParentIDs,
		CreatedAt:      a.CreatedAt,
	}
}
