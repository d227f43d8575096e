package orchestrator

import (
	"context"
	"fmt"

	"github.com/adalundhe/loom/core/agent"
	"github.com/adalundhe/loom/core/metrics"
	"github.com/adalundhe/loom/core/pool"
	"github.com/adalundhe/loom/core/task"
)

// StartWorkers launches n concurrent workers (config default when n <= 0).
// After a previous StopWorkers, the queue is rebuilt and still-pending tasks
// are re-enqueued before the new pool starts.
func (o *Orchestrator) StartWorkers(n int) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.pool != nil && o.pool.Running() {
		return fmt.Errorf("worker pool already running")
	}
	if n <= 0 {
		n = o.cfg.Pool.Workers
	}

	if o.stopped {
		o.queue = task.NewQueue(o.cfg.Pool.QueueCapacity)
		for _, t := range o.tasks {
			if t.Status() == task.StatusPending {
				_ = o.queue.Push(t)
			}
		}
		o.stopped = false
	}

	o.pool = pool.New(pool.Config{
		Queue:             o.queue,
		Registry:          o.registry,
		Generator:         o.gen,
		Router:            o.routerConfig(),
		Sink:              o.sink,
		Store:             o.store,
		Search:            o.search,
		GenerationTimeout: o.cfg.Pool.GenerationTimeout,
		Retry:             o.cfg.Pool.Retry,
		Logger:            o.logger,
	})
	o.pool.Start(n)
	return nil
}

// StopWorkers signals every worker to stop after its current task and waits
// up to the deadline on ctx. Tasks still in flight at the deadline end up
// interrupted and recoverable; subsequent AddTask calls fail with
// ErrQueueClosed until StartWorkers runs again.
func (o *Orchestrator) StopWorkers(ctx context.Context) error {
	o.mu.Lock()
	p := o.pool
	o.stopped = true
	o.mu.Unlock()

	if p == nil {
		return nil
	}
	return p.Stop(ctx)
}

// Status is a point-in-time view of the whole system. Building it costs
// O(active agents) and holds no lock longer than the registry snapshot.
type Status struct {
	Agents         []agent.Summary      `json:"agents"`
	QueueDepth     int                  `json:"queue_depth"`
	Completed      int64                `json:"completed"`
	Failed         int64                `json:"failed"`
	RecentFailures []task.FailureRecord `json:"recent_failures,omitempty"`
	Pool           pool.Stats           `json:"pool"`
	Metrics        metrics.Stats        `json:"metrics"`
}

// GetStatus snapshots agents, queue depth, aggregate counts, and the most
// recent failure reasons.
func (o *Orchestrator) GetStatus() Status {
	o.mu.Lock()
	queue := o.queue
	p := o.pool
	o.mu.Unlock()

	completed, failed := o.store.Counts()
	status := Status{
		Agents:         o.registry.Summaries(),
		QueueDepth:     queue.Len(),
		Completed:      completed,
		Failed:         failed,
		RecentFailures: o.store.RecentFailures(10),
		Metrics:        o.agg.Snapshot(),
	}
	if p != nil {
		status.Pool = p.Stats()
	}
	return status
}
