package metrics

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAggregateSnapshot(t *testing.T) {
	agg := NewAggregate()

	agg.Observe(Sample{AgentID: "a", Similarity: 0.8, Duration: time.Second, Success: true})
	agg.Observe(Sample{AgentID: "a", Similarity: 0.6, Duration: 3 * time.Second, Success: true})
	agg.Observe(Sample{AgentID: "b", Similarity: 0.4, Duration: 2 * time.Second, Success: false})

	stats := agg.Snapshot()
	assert.Equal(t, int64(3), stats.Samples)
	assert.Equal(t, int64(2), stats.Successes)
	assert.Equal(t, int64(1), stats.Failures)
	assert.InDelta(t, 0.6, stats.MeanSimilarity, 1e-9)
	assert.InDelta(t, 0.2, stats.StdDevSimilarity, 1e-9)
	assert.InDelta(t, 2.0, stats.MeanDuration, 1e-9)
}

func TestAggregateEmpty(t *testing.T) {
	stats := NewAggregate().Snapshot()

	assert.Zero(t, stats.Samples)
	assert.Zero(t, stats.MeanSimilarity)
	assert.Zero(t, stats.StdDevSimilarity)
}

func TestAggregateSingleSampleHasNoStdDev(t *testing.T) {
	agg := NewAggregate()
	agg.Observe(Sample{Similarity: 0.7, Success: true})

	stats := agg.Snapshot()
	assert.InDelta(t, 0.7, stats.MeanSimilarity, 1e-9)
	assert.Zero(t, stats.StdDevSimilarity)
}

func TestAggregateConcurrentObserve(t *testing.T) {
	agg := NewAggregate()

	var wg sync.WaitGroup
	for range 64 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			agg.Observe(Sample{Similarity: 0.5, Success: true})
		}()
	}
	wg.Wait()

	stats := agg.Snapshot()
	assert.Equal(t, int64(64), stats.Samples)
	assert.Equal(t, int64(64), stats.Successes)
}

type recordingSink struct {
	mu      sync.Mutex
	samples []Sample
}

func (r *recordingSink) Observe(sample Sample) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.samples = append(r.samples, sample)
}

func TestMultiFansOut(t *testing.T) {
	first := &recordingSink{}
	second := &recordingSink{}
	multi := Multi{first, second, Nop{}}

	multi.Observe(Sample{TaskID: "t1", Success: true})

	assert.Len(t, first.samples, 1)
	assert.Len(t, second.samples, 1)
	assert.Equal(t, "t1", first.samples[0].TaskID)
}
