package orchestrator

import (
	"context"

	"github.com/adalundhe/loom/core/agent"
)

// SpawnAgent instantiates an agent from a named preset. A non-empty id
// overrides the generated one; collisions fail with ErrAgentExists.
func (o *Orchestrator) SpawnAgent(ctx context.Context, kind, id string) (string, error) {
	spec, err := agent.PresetSpec(kind)
	if err != nil {
		return "", err
	}
	spec.ID = id
	return o.SpawnCustom(ctx, spec)
}

// SpawnCustom instantiates an agent from a caller-supplied spec. The
// competence text is embedded to produce the core vector.
func (o *Orchestrator) SpawnCustom(ctx context.Context, spec agent.Spec) (string, error) {
	if spec.LearningRate == 0 {
		spec.LearningRate = o.cfg.Agents.LearningRate
	}
	if spec.MemoryCap == 0 {
		spec.MemoryCap = o.cfg.Agents.MemoryCapacity
	}

	coreVector, err := o.embedder.Embed(ctx, spec.Competence)
	if err != nil {
		return "", embedderFailure(err)
	}

	spawned, err := o.registry.Spawn(spec, coreVector)
	if err != nil {
		return "", err
	}
	return spawned.ID, nil
}

// CloneAgent replicates an existing agent: identical competence and weights,
// fresh id, reset history.
func (o *Orchestrator) CloneAgent(id string) (string, error) {
	clone, err := o.registry.Clone(id)
	if err != nil {
		return "", err
	}
	return clone.ID, nil
}

// MergeAgents combines two agents into a hybrid whose core vector is the
// normalized sum of the parents'. Both parents stay registered.
func (o *Orchestrator) MergeAgents(idA, idB string) (string, error) {
	merged, err := o.registry.Merge(idA, idB)
	if err != nil {
		return "", err
	}
	return merged.ID, nil
}

// RemoveAgent unregisters an agent. Agents are never removed automatically.
func (o *Orchestrator) RemoveAgent(id string) error {
	return o.registry.Remove(id)
}

// GetAgent returns a point-in-time summary of one agent.
func (o *Orchestrator) GetAgent(id string) (agent.Summary, error) {
	a, err := o.registry.Get(id)
	if err != nil {
		return agent.Summary{}, err
	}
	return a.Summarize(), nil
}

// Communicate compares two agents' competences using the fixed alignment
// thresholds.
func (o *Orchestrator) Communicate(idA, idB string) (agent.Communication, error) {
	a, err := o.registry.Get(idA)
	if err != nil {
		return agent.Communication{}, err
	}
	b, err := o.registry.Get(idB)
	if err != nil {
		return agent.Communication{}, err
	}
	return a.CommunicateWith(b), nil
}
