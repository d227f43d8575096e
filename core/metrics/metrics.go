// Package metrics defines the optional per-task observation sink. Delivery
// failures never fail the task that produced the sample.
package metrics

import (
	"log/slog"
	"sync"
	"time"

	"gonum.org/v1/gonum/stat"
)

// Sample is one processed-task observation.
type Sample struct {
	AgentID    string
	TaskID     string
	Similarity float64
	Duration   time.Duration
	Success    bool
}

// Sink receives samples. Implementations must be fast or buffer internally;
// errors are swallowed by the caller.
type Sink interface {
	Observe(sample Sample)
}

// Nop discards all samples.
type Nop struct{}

func (Nop) Observe(Sample) {}

// SlogSink logs each sample at debug level.
type SlogSink struct {
	Logger *slog.Logger
}

// NewSlogSink builds a logging sink; nil falls back to slog.Default.
func NewSlogSink(logger *slog.Logger) *SlogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogSink{Logger: logger}
}

func (s *SlogSink) Observe(sample Sample) {
	s.Logger.Debug("task processed",
		"agent_id", sample.AgentID,
		"task_id", sample.TaskID,
		"similarity", sample.Similarity,
		"duration", sample.Duration,
		"success", sample.Success)
}

// Multi fans samples out to several sinks.
type Multi []Sink

func (m Multi) Observe(sample Sample) {
	for _, sink := range m {
		sink.Observe(sample)
	}
}

// Aggregate accumulates routing statistics for status snapshots.
type Aggregate struct {
	mu           sync.Mutex
	similarities []float64
	durations    []float64
	successes    int64
	failures     int64
}

// NewAggregate returns an empty aggregate sink.
func NewAggregate() *Aggregate {
	return &Aggregate{}
}

func (a *Aggregate) Observe(sample Sample) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.similarities = append(a.similarities, sample.Similarity)
	a.durations = append(a.durations, sample.Duration.Seconds())
	if sample.Success {
		a.successes++
	} else {
		a.failures++
	}
}

// Stats is a summary of everything observed so far.
type Stats struct {
	Samples          int64   `json:"samples"`
	Successes        int64   `json:"successes"`
	Failures         int64   `json:"failures"`
	MeanSimilarity   float64 `json:"mean_similarity"`
	StdDevSimilarity float64 `json:"stddev_similarity"`
	MeanDuration     float64 `json:"mean_duration_seconds"`
}

// Snapshot computes the current summary.
func (a *Aggregate) Snapshot() Stats {
	a.mu.Lock()
	defer a.mu.Unlock()

	stats := Stats{
		Samples:   int64(len(a.similarities)),
		Successes: a.successes,
		Failures:  a.failures,
	}
	if len(a.similarities) > 0 {
		mean, stddev := stat.MeanStdDev(a.similarities, nil)
		stats.MeanSimilarity = mean
		if len(a.similarities) > 1 {
			stats.StdDevSimilarity = stddev
		}
		stats.MeanDuration = stat.Mean(a.durations, nil)
	}
	return stats
}
