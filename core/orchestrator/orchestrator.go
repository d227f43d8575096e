// Package orchestrator composes the embedder, registry, queue, router, and
// worker pool into the single caller-facing API surface.
//
// All methods return explicit errors; nothing panics across the worker
// boundary. Per-task processing failures are recorded on the task record and
// surfaced through GetTask and GetStatus, never thrown at the caller.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/adalundhe/loom/core/config"
	"github.com/adalundhe/loom/core/embedder"
	"github.com/adalundhe/loom/core/generation"
	"github.com/adalundhe/loom/core/metrics"
	"github.com/adalundhe/loom/core/pool"
	"github.com/adalundhe/loom/core/registry"
	"github.com/adalundhe/loom/core/router"
	"github.com/adalundhe/loom/core/task"
)

// Options overrides the orchestrator's collaborators. Zero values select the
// config-driven defaults.
type Options struct {
	Config    *config.Config
	Embedder  embedder.Embedder
	Generator generation.Generator
	Sink      metrics.Sink
	Logger    *slog.Logger
}

// Orchestrator is the composition root and API surface.
type Orchestrator struct {
	cfg      *config.Config
	embedder embedder.Embedder
	gen      generation.Generator
	registry *registry.Registry
	store    *task.ResultStore
	search   *task.SearchIndex
	agg      *metrics.Aggregate
	sink     metrics.Sink
	logger   *slog.Logger

	mu      sync.Mutex
	queue   *task.Queue
	pool    *pool.Pool
	tasks   map[string]*task.Task
	stopped bool
}

// New builds an orchestrator. The default stack is the cached local
// embedder, the static generator, and an sqlite-archived result store.
func New(opts Options) (*Orchestrator, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	emb := opts.Embedder
	if emb == nil {
		emb = embedder.NewLocal(cfg.Embedding.Dimension)
	}
	cached, err := embedder.NewCached(emb, cfg.Embedding.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("embedding cache: %w", err)
	}

	gen := opts.Generator
	if gen == nil {
		gen = generation.NewStatic()
	}

	store, err := task.NewResultStore(task.ResultStoreConfig{DBPath: cfg.Results.DBPath})
	if err != nil {
		return nil, fmt.Errorf("result store: %w", err)
	}

	var search *task.SearchIndex
	if cfg.Results.SearchEnabled {
		search, err = task.NewSearchIndex()
		if err != nil {
			store.Close()
			return nil, fmt.Errorf("search index: %w", err)
		}
	}

	agg := metrics.NewAggregate()
	sink := metrics.Sink(agg)
	if opts.Sink != nil {
		sink = metrics.Multi{agg, opts.Sink}
	}

	return &Orchestrator{
		cfg:      cfg,
		embedder: cached,
		gen:      gen,
		registry: registry.New(logger),
		store:    store,
		search:   search,
		agg:      agg,
		sink:     sink,
		logger:   logger,
		queue:    task.NewQueue(cfg.Pool.QueueCapacity),
		tasks:    make(map[string]*task.Task),
	}, nil
}

// Close shuts down the pool if running and releases the stores.
func (o *Orchestrator) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), o.cfg.Pool.StopTimeout)
	defer cancel()
	_ = o.StopWorkers(ctx)

	if o.search != nil {
		_ = o.search.Close()
	}
	return o.store.Close()
}

// routerConfig builds the routing settings from config.
func (o *Orchestrator) routerConfig() router.Config {
	return router.Config{
		AcceptanceThreshold: o.cfg.Routing.AcceptanceThreshold,
		TieEpsilon:          o.cfg.Routing.TieEpsilon,
	}
}
