package orchestrator

import (
	"context"
	"errors"
	"fmt"

	"github.com/adalundhe/loom/core/decompose"
	"github.com/adalundhe/loom/core/embedder"
	loomerrors "github.com/adalundhe/loom/core/errors"
	"github.com/adalundhe/loom/core/task"
)

// AddTask embeds the description and enqueues a pending task. Identical
// descriptions reuse the cached embedding. Fails with ErrQueueClosed once
// the pool has been shut down.
func (o *Orchestrator) AddTask(ctx context.Context, description string, priority int, requiredType string) (string, error) {
	if err := task.ValidatePriority(priority); err != nil {
		return "", err
	}

	o.mu.Lock()
	stopped := o.stopped
	o.mu.Unlock()
	if stopped {
		return "", loomerrors.ErrQueueClosed
	}

	embedding, err := o.embedder.Embed(ctx, description)
	if err != nil {
		return "", embedderFailure(err)
	}

	t, err := task.New("", description, embedding, priority, requiredType)
	if err != nil {
		return "", err
	}

	o.mu.Lock()
	queue := o.queue
	o.tasks[t.ID] = t
	o.mu.Unlock()

	if err := queue.Push(t); err != nil {
		o.mu.Lock()
		delete(o.tasks, t.ID)
		o.mu.Unlock()
		return "", err
	}

	o.logger.Debug("task enqueued",
		"task_id", t.ID,
		"priority", priority,
		"required_agent_type", requiredType)
	return t.ID, nil
}

// DecomposeTask splits a compound description into ordered subtask strings
// without enqueuing anything.
func (o *Orchestrator) DecomposeTask(description string) []string {
	return decompose.Split(description)
}

// AddCompoundTask decomposes the description and enqueues every subtask.
// Earlier subtasks get higher priority so callers that care about sequence
// get it through dequeue order; nothing else guarantees ordering once the
// subtasks are running on different agents.
func (o *Orchestrator) AddCompoundTask(ctx context.Context, description string, priority int, requiredType string) ([]string, error) {
	parts := decompose.Split(description)

	ids := make([]string, 0, len(parts))
	for i, part := range parts {
		p := priority - i
		if p < task.MinPriority {
			p = task.MinPriority
		}
		id, err := o.AddTask(ctx, part, p, requiredType)
		if err != nil {
			return ids, fmt.Errorf("subtask %d: %w", i, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// CancelTask cancels a pending task. Tasks already claimed by a worker
// cannot be cancelled; there is no preemption.
func (o *Orchestrator) CancelTask(id string) error {
	t, ok := o.liveTask(id)
	if !ok {
		return fmt.Errorf("%w: %s", loomerrors.ErrTaskNotFound, id)
	}
	if err := t.Cancel(); err != nil {
		return err
	}

	o.store.Put(t.Snapshot())
	o.logger.Info("task cancelled", "task_id", id)
	return nil
}

// RecoverInterrupted returns an interrupted task to pending and, if the pool
// is accepting work, re-enqueues it. Recovery is explicit only.
func (o *Orchestrator) RecoverInterrupted(id string) error {
	t, ok := o.liveTask(id)
	if !ok {
		return fmt.Errorf("%w: %s", loomerrors.ErrTaskNotFound, id)
	}
	if err := t.Requeue(); err != nil {
		return err
	}

	o.mu.Lock()
	queue, stopped := o.queue, o.stopped
	o.mu.Unlock()

	if !stopped {
		if err := queue.Push(t); err != nil && !errors.Is(err, loomerrors.ErrQueueClosed) {
			return err
		}
	}

	o.logger.Info("task recovered", "task_id", id)
	return nil
}

// GetTask returns the current snapshot of a task, live or archived.
func (o *Orchestrator) GetTask(id string) (task.Snapshot, error) {
	if t, ok := o.liveTask(id); ok {
		snap := t.Snapshot()
		if snap.Status.Terminal() {
			// Terminal records live in the result store from here on. The
			// worker writes the store after the status flip, so keep the
			// live entry until the record has landed.
			if _, archived := o.store.Get(id); archived {
				o.mu.Lock()
				delete(o.tasks, id)
				o.mu.Unlock()
			}
		}
		return snap, nil
	}

	if snap, ok := o.store.Get(id); ok {
		return snap, nil
	}
	return task.Snapshot{}, fmt.Errorf("%w: %s", loomerrors.ErrTaskNotFound, id)
}

// SearchResults queries the full-text index over terminal tasks and resolves
// the hits to snapshots.
func (o *Orchestrator) SearchResults(query string, limit int) ([]task.Snapshot, error) {
	if o.search == nil {
		return nil, nil
	}

	hits, err := o.search.Search(query, limit)
	if err != nil {
		return nil, err
	}

	out := make([]task.Snapshot, 0, len(hits))
	for _, hit := range hits {
		if snap, ok := o.store.Get(hit.TaskID); ok {
			out = append(out, snap)
		}
	}
	return out, nil
}

func (o *Orchestrator) liveTask(id string) (*task.Task, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	t, ok := o.tasks[id]
	return t, ok
}

func embedderFailure(err error) error {
	if errors.Is(err, loomerrors.ErrEmbeddingUnavailable) {
		return err
	}
	return embedder.Unavailable(err)
}
