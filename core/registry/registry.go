// Package registry provides the id-keyed agent store. Structural operations
// (spawn, clone, merge, remove) happen under a registry-wide lock; per-agent
// mutable state is not the registry's concern.
package registry

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/adalundhe/loom/core/agent"
	loomerrors "github.com/adalundhe/loom/core/errors"
)

// Registry owns all live agents.
type Registry struct {
	mu     sync.RWMutex
	agents map[string]*agent.Agent
	logger *slog.Logger
}

// New creates an empty registry. A nil logger falls back to slog.Default.
func New(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		agents: make(map[string]*agent.Agent),
		logger: logger,
	}
}

// Spawn builds an agent from spec with the given competence vector and
// registers it. Fails with ErrAgentExists if the id is taken.
func (r *Registry) Spawn(spec agent.Spec, coreVector []float32) (*agent.Agent, error) {
	a, err := agent.New(spec, coreVector)
	if err != nil {
		return nil, err
	}
	if err := r.register(a); err != nil {
		return nil, err
	}

	r.logger.Info("agent spawned",
		"agent_id", a.ID,
		"kind", a.Kind,
		"signal_weight", a.SignalWeight)
	return a, nil
}

// Clone replicates the agent with the given id: identical competence and
// weights, fresh id, reset history.
func (r *Registry) Clone(id string) (*agent.Agent, error) {
	parent, err := r.Get(id)
	if err != nil {
		return nil, err
	}

	clone, err := parent.Clone()
	if err != nil {
		return nil, err
	}
	if err := r.register(clone); err != nil {
		return nil, err
	}

	r.logger.Info("agent cloned", "agent_id", clone.ID, "parent_id", id)
	return clone, nil
}

// Merge combines two agents into a new hybrid and registers it. The parents
// remain registered; callers remove them explicitly if desired.
func (r *Registry) Merge(idA, idB string) (*agent.Agent, error) {
	if idA == idB {
		return nil, loomerrors.NewConfigError("merge", idA, "cannot merge an agent with itself")
	}

	a, err := r.Get(idA)
	if err != nil {
		return nil, err
	}
	b, err := r.Get(idB)
	if err != nil {
		return nil, err
	}

	merged, err := a.MergeWith(b)
	if err != nil {
		return nil, err
	}
	if err := r.register(merged); err != nil {
		return nil, err
	}

	r.logger.Info("agents merged",
		"agent_id", merged.ID,
		"parent_a", idA,
		"parent_b", idB)
	return merged, nil
}

// Get looks up an agent by id.
func (r *Registry) Get(id string) (*agent.Agent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.agents[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", loomerrors.ErrAgentNotFound, id)
	}
	return a, nil
}

// Remove deletes an agent. Removal is explicit only; agents are never
// destroyed automatically.
func (r *Registry) Remove(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.agents[id]; !ok {
		return fmt.Errorf("%w: %s", loomerrors.ErrAgentNotFound, id)
	}
	delete(r.agents, id)
	r.logger.Info("agent removed", "agent_id", id)
	return nil
}

// List returns all registered agents, ordered by id for determinism.
func (r *Registry) List() []*agent.Agent {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*agent.Agent, 0, len(r.agents))
	for _, a := range r.agents {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Len reports the number of registered agents.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.agents)
}

// Summaries returns point-in-time summaries of all agents, ordered by id.
func (r *Registry) Summaries() []agent.Summary {
	agents := r.List()
	out := make([]agent.Summary, len(agents))
	for i, a := range agents {
		out[i] = a.Summarize()
	}
	return out
}

func (r *Registry) register(a *agent.Agent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.agents[a.ID]; ok {
		return fmt.Errorf("%w: %s", loomerrors.ErrAgentExists, a.ID)
	}
	r.agents[a.ID] = a
	return nil
}
