package agent

import (
	"sync"
	"time"
)

// Outcome is one completed task as remembered by an agent.
type Outcome struct {
	TaskID      string    `json:"task_id"`
	Description string    `json:"description"`
	Similarity  float64   `json:"similarity"`
	Result      string    `json:"result"`
	CompletedAt time.Time `json:"completed_at"`
}

// MemoryLog is a fixed-capacity ordered log of task outcomes. When full, the
// oldest entry is evicted. Writes come from the single worker holding the
// agent; reads may come from status snapshots, hence the mutex.
type MemoryLog struct {
	mu      sync.Mutex
	entries []Outcome
	start   int
	count   int
}

// NewMemoryLog creates a log holding at most capacity outcomes.
func NewMemoryLog(capacity int) *MemoryLog {
	if capacity <= 0 {
		capacity = DefaultMemoryCapacity
	}
	return &MemoryLog{entries: make([]Outcome, capacity)}
}

// Append records an outcome, evicting the oldest if the log is full.
func (m *MemoryLog) Append(outcome Outcome) {
	m.mu.Lock()
	defer m.mu.Unlock()

	idx := (m.start + m.count) % len(m.entries)
	m.entries[idx] = outcome

	if m.count < len(m.entries) {
		m.count++
		return
	}
	m.start = (m.start + 1) % len(m.entries)
}

// Snapshot returns the outcomes oldest first.
func (m *MemoryLog) Snapshot() []Outcome {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Outcome, m.count)
	for i := 0; i < m.count; i++ {
		out[i] = m.entries[(m.start+i)%len(m.entries)]
	}
	return out
}

// Len reports the number of stored outcomes.
func (m *MemoryLog) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.count
}

// Cap reports the fixed capacity.
func (m *MemoryLog) Cap() int {
	return len(m.entries)
}
