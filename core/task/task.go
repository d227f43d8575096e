// Package task defines the unit of routable work, the priority queue feeding
// the worker pool, and the stores terminal tasks outlive the queue in.
package task

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	loomerrors "github.com/adalundhe/loom/core/errors"
)

// Priority bounds. Higher is more urgent.
const (
	MinPriority     = 0
	MaxPriority     = 10
	DefaultPriority = 5
)

// Status is a task's lifecycle state.
type Status string

const (
	StatusPending     Status = "pending"
	StatusInProgress  Status = "in_progress"
	StatusCompleted   Status = "completed"
	StatusFailed      Status = "failed"
	StatusCancelled   Status = "cancelled"
	StatusInterrupted Status = "interrupted"
)

// Terminal reports whether a task in this status is immutable.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// ValidatePriority checks the priority range.
func ValidatePriority(priority int) error {
	if priority < MinPriority || priority > MaxPriority {
		return loomerrors.NewConfigError("priority", priority,
			fmt.Sprintf("must be in [%d, %d]", MinPriority, MaxPriority))
	}
	return nil
}

// Task is one unit of work. Structural fields (id, description, embedding,
// priority, type constraint) are immutable after creation; the status block
// is guarded by a per-task mutex and frozen once terminal.
type Task struct {
	ID                string
	Description       string
	Embedding         []float32
	Priority          int
	RequiredAgentType string
	CreatedAt         time.Time

	mu              sync.Mutex
	status          Status
	assignedAgentID string
	result          string
	errKind         string
	startedAt       time.Time
	finishedAt      time.Time

	// claimEpoch increments on every successful Claim. Complete and Fail
	// must present the epoch of their own claim, so a worker whose task
	// was interrupted and re-claimed cannot finish it with a stale result.
	claimEpoch uint64

	// seq disambiguates equal priorities: lower seq dequeues first.
	seq uint64
}

// New creates a pending task. Priority is validated; an empty id gets a UUID.
func New(id, description string, embedding []float32, priority int, requiredType string) (*Task, error) {
	if err := ValidatePriority(priority); err != nil {
		return nil, err
	}
	if id == "" {
		id = uuid.NewString()
	}
	return &Task{
		ID:                id,
		Description:       description,
		Embedding:         embedding,
		Priority:          priority,
		RequiredAgentType: requiredType,
		CreatedAt:         time.Now(),
		status:            StatusPending,
	}, nil
}

// Snapshot is an immutable point-in-time view of a task.
type Snapshot struct {
	ID                string    `json:"id"`
	Description       string    `json:"description"`
	Priority          int       `json:"priority"`
	RequiredAgentType string    `json:"required_agent_type,omitempty"`
	Status            Status    `json:"status"`
	AssignedAgentID   string    `json:"assigned_agent_id,omitempty"`
	Result            string    `json:"result,omitempty"`
	Error             string    `json:"error,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
	StartedAt         time.Time `json:"started_at,omitzero"`
	FinishedAt        time.Time `json:"finished_at,omitzero"`
}

// Snapshot captures the task's current state.
func (t *Task) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()

	return Snapshot{
		ID:                t.ID,
		Description:       t.Description,
		Priority:          t.Priority,
		RequiredAgentType: t.RequiredAgentType,
		Status:            t.status,
		AssignedAgentID:   t.assignedAgentID,
		Result:            t.result,
		Error:             t.errKind,
		CreatedAt:         t.CreatedAt,
		StartedAt:         t.startedAt,
		FinishedAt:        t.finishedAt,
	}
}

// Status returns the current lifecycle state.
func (t *Task) Status() Status {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status
}

// Claim transitions pending → in_progress for the given agent. At most one
// caller can win the claim; everyone else gets false. The returned epoch
// identifies this claim and must be presented to Complete or Fail.
func (t *Task) Claim(agentID string) (uint64, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.status != StatusPending {
		return 0, false
	}
	t.claimEpoch++
	t.status = StatusInProgress
	t.assignedAgentID = agentID
	t.startedAt = time.Now()
	return t.claimEpoch, true
}

// Assign records the routed agent on an already claimed task.
func (t *Task) Assign(agentID string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.status == StatusInProgress {
		t.assignedAgentID = agentID
	}
}

// Complete transitions in_progress → completed with the generation result.
// The epoch must match the caller's claim.
func (t *Task) Complete(epoch uint64, result string) bool {
	return t.finish(epoch, StatusCompleted, result, "")
}

// Fail transitions in_progress → failed, recording the error kind. The epoch
// must match the caller's claim.
func (t *Task) Fail(epoch uint64, err error) bool {
	return t.finish(epoch, StatusFailed, "", loomerrors.Kind(err))
}

// Cancel transitions pending → cancelled. Claimed tasks cannot be cancelled.
func (t *Task) Cancel() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.status != StatusPending {
		return fmt.Errorf("%w: %s is %s", loomerrors.ErrTaskNotCancellable, t.ID, t.status)
	}
	t.status = StatusCancelled
	t.finishedAt = time.Now()
	return nil
}

// Interrupt transitions in_progress → interrupted. Used when the pool shuts
// down before the task's worker finishes; the task is never silently lost.
func (t *Task) Interrupt() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.status != StatusInProgress {
		return false
	}
	t.status = StatusInterrupted
	t.finishedAt = time.Now()
	return true
}

// Requeue transitions interrupted → pending so the task can be enqueued
// again. Recovery is explicit only.
func (t *Task) Requeue() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.status != StatusInterrupted {
		return fmt.Errorf("%w: %s is %s", loomerrors.ErrTaskNotInterrupted, t.ID, t.status)
	}
	t.status = StatusPending
	t.assignedAgentID = ""
	t.startedAt = time.Time{}
	t.finishedAt = time.Time{}
	return nil
}

func (t *Task) finish(epoch uint64, status Status, result, errKind string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.status != StatusInProgress || t.claimEpoch != epoch {
		return false
	}
	t.status = status
	t.result = result
	t.errKind = errKind
	t.finishedAt = time.Now()
	return true
}
