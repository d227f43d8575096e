package router

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adalundhe/loom/core/agent"
	loomerrors "github.com/adalundhe/loom/core/errors"
	"github.com/adalundhe/loom/core/generation"
)

func testVector(hot int) []float32 {
	v := make([]float32, 8)
	v[hot] = 1
	return v
}

func testAgent(t *testing.T, id, kind string, coreVector []float32) *agent.Agent {
	t.Helper()
	a, err := agent.New(agent.Spec{
		ID:           id,
		Kind:         kind,
		SignalWeight: 0.9,
		NoiseWeight:  0.1,
	}, coreVector)
	require.NoError(t, err)
	return a
}

func TestRoutePicksHighestSimilarity(t *testing.T) {
	aligned := testAgent(t, "aligned", "code", testVector(0))
	orthogonal := testAgent(t, "orthogonal", "code", testVector(1))

	decision, err := Route(testVector(0), []*agent.Agent{orthogonal, aligned}, "", DefaultConfig())
	require.NoError(t, err)

	assert.Equal(t, "aligned", decision.Agent.ID)
	assert.InDelta(t, 1.0, decision.Similarity, 1e-6)
	assert.Equal(t, 2, decision.Candidates)
}

func TestRouteTypeFilter(t *testing.T) {
	code := testAgent(t, "code", "code", testVector(0))
	research := testAgent(t, "research", "research", testVector(0))
	candidates := []*agent.Agent{code, research}

	decision, err := Route(testVector(0), candidates, "research", DefaultConfig())
	require.NoError(t, err)
	assert.Equal(t, "research", decision.Agent.ID)
	assert.Equal(t, 1, decision.Candidates, "type filter narrows the pool before scoring")
}

func TestRouteNoCandidatesForType(t *testing.T) {
	code := testAgent(t, "code", "code", testVector(0))

	_, err := Route(testVector(0), []*agent.Agent{code}, "math", DefaultConfig())
	require.Error(t, err)
	assert.True(t, errors.Is(err, loomerrors.ErrNoSuitableAgent))
}

func TestRouteBelowThreshold(t *testing.T) {
	orthogonal := testAgent(t, "orthogonal", "code", testVector(1))

	_, err := Route(testVector(0), []*agent.Agent{orthogonal}, "", DefaultConfig())
	require.Error(t, err)
	assert.True(t, errors.Is(err, loomerrors.ErrNoSuitableAgent),
		"similarity below the acceptance threshold must reject, not assign")
}

func TestRouteEmptyCandidates(t *testing.T) {
	_, err := Route(testVector(0), nil, "", DefaultConfig())
	assert.True(t, errors.Is(err, loomerrors.ErrNoSuitableAgent))
}

func TestRouteTieBreakFewestCompleted(t *testing.T) {
	seasoned := testAgent(t, "a-seasoned", "code", testVector(0))
	fresh := testAgent(t, "b-fresh", "code", testVector(0))

	_, err := seasoned.ProcessTask(context.Background(), generation.NewMock("ok"), agent.ProcessRequest{
		TaskID:     "warmup",
		TaskVector: testVector(0),
		Seed:       1,
	})
	require.NoError(t, err)
	require.Equal(t, int64(1), seasoned.TasksCompleted())

	decision, err := Route(testVector(0), []*agent.Agent{seasoned, fresh}, "", DefaultConfig())
	require.NoError(t, err)
	assert.Equal(t, "b-fresh", decision.Agent.ID,
		"tied similarity goes to the agent with fewer completed tasks")
}

func TestRouteTieBreakSmallestID(t *testing.T) {
	b := testAgent(t, "bbb", "code", testVector(0))
	a := testAgent(t, "aaa", "code", testVector(0))

	decision, err := Route(testVector(0), []*agent.Agent{b, a}, "", DefaultConfig())
	require.NoError(t, err)
	assert.Equal(t, "aaa", decision.Agent.ID)
}

func TestRouteEpsilonBandTreatedAsTie(t *testing.T) {
	// Two near-identical vectors: within a wide epsilon the id tie-break
	// applies even though raw similarities differ slightly.
	exact := testAgent(t, "zzz", "code", testVector(0))
	near := testAgent(t, "aaa", "code", []float32{1, 0.001, 0, 0, 0, 0, 0, 0})

	cfg := Config{AcceptanceThreshold: 0.5, TieEpsilon: 0.01}
	decision, err := Route(testVector(0), []*agent.Agent{exact, near}, "", cfg)
	require.NoError(t, err)
	assert.Equal(t, "aaa", decision.Agent.ID)

	// With a tight epsilon the higher similarity wins outright.
	tight := Config{AcceptanceThreshold: 0.5, TieEpsilon: 1e-9}
	decision, err = Route(testVector(0), []*agent.Agent{exact, near}, "", tight)
	require.NoError(t, err)
	assert.Equal(t, "zzz", decision.Agent.ID)
}

func TestRouteZeroConfigUsesDefaults(t *testing.T) {
	aligned := testAgent(t, "aligned", "code", testVector(0))

	decision, err := Route(testVector(0), []*agent.Agent{aligned}, "", Config{})
	require.NoError(t, err)
	assert.Equal(t, "aligned", decision.Agent.ID)
}

func TestRouteDeterministic(t *testing.T) {
	agents := []*agent.Agent{
		testAgent(t, "a", "code", testVector(0)),
		testAgent(t, "b", "code", []float32{0.9, 0.1, 0, 0, 0, 0, 0, 0}),
		testAgent(t, "c", "code", []float32{0.8, 0.2, 0, 0, 0, 0, 0, 0}),
	}

	first, err := Route(testVector(0), agents, "", DefaultConfig())
	require.NoError(t, err)
	for range 10 {
		again, err := Route(testVector(0), agents, "", DefaultConfig())
		require.NoError(t, err)
		assert.Equal(t, first.Agent.ID, again.Agent.ID)
		assert.Equal(t, first.Similarity, again.Similarity)
	}
}
