// Package pool runs the fixed-size worker pool that drains the task queue.
//
// Each worker loops idle → dequeuing → routing → processing. A task is
// claimed by exactly one worker, and an agent is held by exactly one worker
// for the duration of its processing step (per-agent busy flag, not a
// registry-wide lock). One task's failure is recorded on that task alone and
// never stops the pool.
package pool

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/adalundhe/loom/core/agent"
	loomerrors "github.com/adalundhe/loom/core/errors"
	"github.com/adalundhe/loom/core/generation"
	"github.com/adalundhe/loom/core/metrics"
	"github.com/adalundhe/loom/core/registry"
	"github.com/adalundhe/loom/core/router"
	"github.com/adalundhe/loom/core/task"
)

// WorkerState is one worker's position in its loop.
type WorkerState int32

const (
	StateIdle WorkerState = iota
	StateDequeuing
	StateRouting
	StateProcessing
	StateStopped
)

func (s WorkerState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateDequeuing:
		return "dequeuing"
	case StateRouting:
		return "routing"
	case StateProcessing:
		return "processing"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// DefaultStopTimeout bounds how long Stop waits for in-flight tasks.
const DefaultStopTimeout = 30 * time.Second

// busyRetryDelay is the pause before re-trying a busy agent.
const busyRetryDelay = 2 * time.Millisecond

// Config wires the pool's collaborators.
type Config struct {
	Queue     *task.Queue
	Registry  *registry.Registry
	Generator generation.Generator
	Router    router.Config
	Sink      metrics.Sink
	Store     *task.ResultStore
	Search    *task.SearchIndex // optional

	// GenerationTimeout is the per-task deadline for the generator.
	GenerationTimeout time.Duration

	// Retry backs off and re-runs transient generation failures within the
	// generation deadline. The zero value runs each generation once.
	Retry loomerrors.RetryPolicy

	Logger *slog.Logger
}

// Pool is the set of running workers.
type Pool struct {
	cfg Config

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	running atomic.Bool
	states  []atomic.Int32

	inflightMu sync.Mutex
	inflight   map[int]*task.Task

	tasksProcessed atomic.Int64
	tasksFailed    atomic.Int64
}

// New builds a pool. Queue, Registry, Generator, and Store are required.
func New(cfg Config) *Pool {
	if cfg.Sink == nil {
		cfg.Sink = metrics.Nop{}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.GenerationTimeout <= 0 {
		cfg.GenerationTimeout = 30 * time.Second
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Pool{
		cfg:      cfg,
		ctx:      ctx,
		cancel:   cancel,
		inflight: make(map[int]*task.Task),
	}
}

// Start launches n worker loops. No-op if already running.
func (p *Pool) Start(n int) {
	if n <= 0 {
		n = 1
	}
	if p.running.Swap(true) {
		return
	}

	p.states = make([]atomic.Int32, n)
	for i := range n {
		p.wg.Add(1)
		go p.worker(i)
	}
	p.cfg.Logger.Info("worker pool started", "workers", n)
}

// Stop signals all workers to finish their current task and exit, waiting up
// to the deadline on ctx (or DefaultStopTimeout if none). Tasks still
// in-flight at the deadline are marked interrupted and recorded in the
// result store; they are recoverable via an explicit requeue, never silently
// lost.
func (p *Pool) Stop(ctx context.Context) error {
	if !p.running.Swap(false) {
		return nil
	}

	p.cfg.Queue.Close()
	p.cancel()

	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, DefaultStopTimeout)
		defer cancel()
	}

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.cfg.Logger.Info("worker pool stopped")
		return nil
	case <-ctx.Done():
		interrupted := p.interruptInflight()
		p.cfg.Logger.Warn("worker pool stop timed out",
			"interrupted_tasks", interrupted)
		return ctx.Err()
	}
}

// Running reports whether the pool has active workers.
func (p *Pool) Running() bool {
	return p.running.Load()
}

// Stats is a snapshot of pool activity.
type Stats struct {
	Workers        int            `json:"workers"`
	Running        bool           `json:"running"`
	TasksProcessed int64          `json:"tasks_processed"`
	TasksFailed    int64          `json:"tasks_failed"`
	WorkerStates   map[string]int `json:"worker_states"`
}

// Stats summarizes worker activity.
func (p *Pool) Stats() Stats {
	states := make(map[string]int)
	for i := range p.states {
		states[WorkerState(p.states[i].Load()).String()]++
	}
	return Stats{
		Workers:        len(p.states),
		Running:        p.running.Load(),
		TasksProcessed: p.tasksProcessed.Load(),
		TasksFailed:    p.tasksFailed.Load(),
		WorkerStates:   states,
	}
}

func (p *Pool) worker(id int) {
	defer p.wg.Done()
	defer p.setState(id, StateStopped)

	for {
		p.setState(id, StateIdle)
		if p.ctx.Err() != nil {
			// Stop after the current task; remaining queued tasks
			// stay pending.
			return
		}

		p.setState(id, StateDequeuing)
		t, err := p.cfg.Queue.Pop(p.ctx)
		if err != nil {
			return
		}
		if t == nil {
			continue
		}
		epoch, ok := t.Claim("")
		if !ok {
			continue
		}

		p.trackInflight(id, t)
		p.process(id, t, epoch)
		p.untrackInflight(id)
	}
}

func (p *Pool) process(id int, t *task.Task, epoch uint64) {
	p.setState(id, StateRouting)

	decision, err := router.Route(t.Embedding, p.cfg.Registry.List(), t.RequiredAgentType, p.cfg.Router)
	if err != nil {
		p.recordFailure(t, epoch, "", 0, err)
		return
	}

	worker := p.acquireAgent(t, decision)
	if worker == nil {
		// Task was interrupted while waiting for the agent.
		return
	}
	defer worker.Release()

	t.Assign(worker.ID)
	p.setState(id, StateProcessing)

	// The generation deadline is independent of pool shutdown: in-flight
	// calls are never preempted, only bounded.
	gctx, cancel := context.WithTimeout(context.Background(), p.cfg.GenerationTimeout)
	defer cancel()

	// A failed attempt leaves the agent's position, memory, and counter
	// untouched, so transient failures can re-run the whole step.
	start := time.Now()
	var result *agent.ProcessResult
	err = loomerrors.Retry(gctx, p.cfg.Retry, func(ctx context.Context) error {
		var perr error
		result, perr = worker.ProcessTask(ctx, p.cfg.Generator, agent.ProcessRequest{
			TaskID:      t.ID,
			TaskVector:  t.Embedding,
			Description: t.Description,
		})
		return perr
	})
	if err != nil {
		p.recordFailure(t, epoch, worker.ID, decision.Similarity, err)
		return
	}

	if !t.Complete(epoch, result.Text) {
		// Interrupted mid-processing; the result is discarded and the
		// interrupted record stands.
		p.cfg.Logger.Warn("discarding result for interrupted task", "task_id", t.ID)
		return
	}

	p.tasksProcessed.Add(1)
	p.cfg.Store.Put(t.Snapshot())
	p.indexTerminal(t)
	p.observe(metrics.Sample{
		AgentID:    worker.ID,
		TaskID:     t.ID,
		Similarity: decision.Similarity,
		Duration:   time.Since(start),
		Success:    true,
	})
}

// acquireAgent serializes "select agent + mark busy": the routing decision
// is only committed once the busy CAS succeeds. If the chosen agent is held
// by another worker, re-route until an agent is free or the task stops being
// in_progress.
func (p *Pool) acquireAgent(t *task.Task, decision *router.Decision) *agent.Agent {
	for {
		if decision.Agent.TryAcquire() {
			return decision.Agent
		}
		if t.Status() != task.StatusInProgress {
			return nil
		}
		time.Sleep(busyRetryDelay)

		next, err := router.Route(t.Embedding, p.cfg.Registry.List(), t.RequiredAgentType, p.cfg.Router)
		if err == nil {
			decision = next
		}
	}
}

func (p *Pool) recordFailure(t *task.Task, epoch uint64, agentID string, similarity float64, err error) {
	if !t.Fail(epoch, err) {
		return
	}
	p.tasksFailed.Add(1)
	p.cfg.Store.Put(t.Snapshot())
	p.indexTerminal(t)

	p.cfg.Logger.Warn("task failed",
		"task_id", t.ID,
		"agent_id", agentID,
		"error_kind", loomerrors.Kind(err),
		"error", err)

	p.observe(metrics.Sample{
		AgentID:    agentID,
		TaskID:     t.ID,
		Similarity: similarity,
		Success:    false,
	})
}

// observe delivers a metric sample; sink panics are swallowed because a
// metrics failure must never fail the task.
func (p *Pool) observe(sample metrics.Sample) {
	defer func() {
		if r := recover(); r != nil {
			p.cfg.Logger.Warn("metrics sink panicked", "panic", r)
		}
	}()
	p.cfg.Sink.Observe(sample)
}

func (p *Pool) indexTerminal(t *task.Task) {
	if p.cfg.Search == nil {
		return
	}
	if err := p.cfg.Search.Index(t.Snapshot()); err != nil {
		p.cfg.Logger.Warn("search index update failed", "task_id", t.ID, "error", err)
	}
}

func (p *Pool) interruptInflight() int {
	p.inflightMu.Lock()
	defer p.inflightMu.Unlock()

	interrupted := 0
	for _, t := range p.inflight {
		if t.Interrupt() {
			p.cfg.Store.Put(t.Snapshot())
			interrupted++
		}
	}
	return interrupted
}

func (p *Pool) trackInflight(id int, t *task.Task) {
	p.inflightMu.Lock()
	p.inflight[id] = t
	p.inflightMu.Unlock()
}

func (p *Pool) untrackInflight(id int) {
	p.inflightMu.Lock()
	delete(p.inflight, id)
	p.inflightMu.Unlock()
}

func (p *Pool) setState(id int, state WorkerState) {
	if id < len(p.states) {
		p.states[id].Store(int32(state))
	}
}
