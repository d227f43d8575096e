// Package config loads and watches the router's configuration. Readers get
// immutable snapshots through an atomic pointer; a file watcher reloads on
// change and notifies subscribers.
package config

import (
	"time"

	loomerrors "github.com/adalundhe/loom/core/errors"
)

// Config is the full configuration snapshot. Treat instances as immutable.
type Config struct {
	Embedding EmbeddingConfig `yaml:"embedding"`
	Routing   RoutingConfig   `yaml:"routing"`
	Pool      PoolConfig      `yaml:"pool"`
	Agents    AgentsConfig    `yaml:"agents"`
	Provider  ProviderConfig  `yaml:"provider"`
	Results   ResultsConfig   `yaml:"results"`
}

type EmbeddingConfig struct {
	// Backend selects the embedder: local, onnx, or genai.
	Backend   string `yaml:"backend"`
	Dimension int    `yaml:"dimension"`
	CacheSize int    `yaml:"cache_size"`
	HFRepo    string `yaml:"hf_repo"`
}

type RoutingConfig struct {
	// AcceptanceThreshold is the single authoritative accept/reject
	// similarity cut-off.
	AcceptanceThreshold float64 `yaml:"acceptance_threshold"`
	TieEpsilon          float64 `yaml:"tie_epsilon"`
}

type PoolConfig struct {
	Workers           int           `yaml:"workers"`
	QueueCapacity     int           `yaml:"queue_capacity"`
	GenerationTimeout time.Duration `yaml:"generation_timeout"`
	StopTimeout       time.Duration `yaml:"stop_timeout"`

	// Retry re-runs transient generation failures within the generation
	// deadline. MaxAttempts 0 runs each generation once.
	Retry loomerrors.RetryPolicy `yaml:"retry"`
}

type AgentsConfig struct {
	LearningRate   float64 `yaml:"learning_rate"`
	MemoryCapacity int     `yaml:"memory_capacity"`
}

type ProviderConfig struct {
	// Backend selects the generator: static, gemini, anthropic, or openai.
	Backend   string `yaml:"backend"`
	Model     string `yaml:"model"`
	MaxTokens int    `yaml:"max_tokens"`
}

type ResultsConfig struct {
	DBPath        string `yaml:"db_path"`
	SearchEnabled bool   `yaml:"search_enabled"`
}

// Default returns the baseline configuration.
func Default() *Config {
	return &Config{
		Embedding: EmbeddingConfig{
			Backend:   "local",
			Dimension: 256,
			CacheSize: 4096,
		},
		Routing: RoutingConfig{
			AcceptanceThreshold: 0.5,
			TieEpsilon:          1e-6,
		},
		Pool: PoolConfig{
			Workers:           4,
			QueueCapacity:     1024,
			GenerationTimeout: 30 * time.Second,
			StopTimeout:       30 * time.Second,
			Retry: loomerrors.RetryPolicy{
				MaxAttempts:   2,
				InitialDelay:  100 * time.Millisecond,
				MaxDelay:      2 * time.Second,
				Multiplier:    2.0,
				JitterPercent: 0.1,
			},
		},
		Agents: AgentsConfig{
			LearningRate:   0.05,
			MemoryCapacity: 64,
		},
		Provider: ProviderConfig{
			Backend:   "static",
			MaxTokens: 1024,
		},
		Results: ResultsConfig{
			DBPath:        ".loom/task_results.db",
			SearchEnabled: true,
		},
	}
}

// Validate checks ranges that would otherwise surface as runtime faults.
func (c *Config) Validate() error {
	if c.Embedding.Dimension <= 0 {
		return loomerrors.NewConfigError("embedding.dimension", c.Embedding.Dimension, "must be positive")
	}
	if c.Routing.AcceptanceThreshold < -1 || c.Routing.AcceptanceThreshold > 1 {
		return loomerrors.NewConfigError("routing.acceptance_threshold", c.Routing.AcceptanceThreshold, "must be in [-1, 1]")
	}
	if c.Routing.TieEpsilon < 0 {
		return loomerrors.NewConfigError("routing.tie_epsilon", c.Routing.TieEpsilon, "must be non-negative")
	}
	if c.Pool.Workers <= 0 {
		return loomerrors.NewConfigError("pool.workers", c.Pool.Workers, "must be positive")
	}
	if c.Agents.LearningRate < 0 || c.Agents.LearningRate >= 1 {
		return loomerrors.NewConfigError("agents.learning_rate", c.Agents.LearningRate, "must be in [0, 1)")
	}
	return nil
}
