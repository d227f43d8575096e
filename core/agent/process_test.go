package agent

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	loomerrors "github.com/adalundhe/loom/core/errors"
	"github.com/adalundhe/loom/core/generation"
	"github.com/adalundhe/loom/core/vectors"
)

func TestProcessTaskSuccess(t *testing.T) {
	a := newTestAgent(t, KindCode, 0)
	gen := generation.NewMock("done")
	ctx := context.Background()

	before := make([]float32, len(a.Position))
	copy(before, a.Position)

	result, err := a.ProcessTask(ctx, gen, ProcessRequest{
		TaskID:      "t1",
		TaskVector:  testVector(8, 1),
		Description: "implement the handler",
		Seed:        42,
	})
	require.NoError(t, err)

	assert.Equal(t, "done", result.Text)
	assert.True(t, vectors.IsUnit(result.Blended, 1e-3))
	assert.Equal(t, int64(1), a.TasksCompleted())
	require.Len(t, a.Memory(), 1)
	assert.Equal(t, "t1", a.Memory()[0].TaskID)
	assert.NotEqual(t, before, a.Position, "position drifts toward the task vector")
}

func TestProcessTaskSeededBlendIsReproducible(t *testing.T) {
	a := newTestAgent(t, KindCreative, 0)
	b := newTestAgent(t, KindCreative, 0)
	gen := generation.NewMock("ok")
	ctx := context.Background()

	req := ProcessRequest{
		TaskID:      "t1",
		TaskVector:  testVector(8, 1),
		Description: "brainstorm names",
		Seed:        7,
	}

	r1, err := a.ProcessTask(ctx, gen, req)
	require.NoError(t, err)
	r2, err := b.ProcessTask(ctx, gen, req)
	require.NoError(t, err)

	assert.Equal(t, r1.Blended, r2.Blended, "same seed must give the same blend")

	req.Seed = 8
	r3, err := newTestAgent(t, KindCreative, 0).ProcessTask(ctx, gen, req)
	require.NoError(t, err)
	assert.NotEqual(t, r1.Blended, r3.Blended, "different seeds must diverge")
}

func TestProcessTaskFailureLeavesStateUntouched(t *testing.T) {
	a := newTestAgent(t, KindCode, 0)
	gen := generation.NewMock("never")
	gen.Fail(errors.New("provider exploded"))
	ctx := context.Background()

	before := make([]float32, len(a.Position))
	copy(before, a.Position)

	_, err := a.ProcessTask(ctx, gen, ProcessRequest{
		TaskID:     "t1",
		TaskVector: testVector(8, 1),
		Seed:       1,
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, loomerrors.ErrGenerationFailure))

	assert.Zero(t, a.TasksCompleted())
	assert.Empty(t, a.Memory())
	assert.Equal(t, before, a.Position, "failed generation must not move the position")
}

func TestProcessTaskTimeout(t *testing.T) {
	a := newTestAgent(t, KindCode, 0)
	gen := generation.NewMock("slow")
	gen.Latency = 100 * time.Millisecond

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := a.ProcessTask(ctx, gen, ProcessRequest{
		TaskID:     "t1",
		TaskVector: testVector(8, 0),
		Seed:       1,
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, loomerrors.ErrGenerationTimeout))
	assert.Zero(t, a.TasksCompleted())
}

func TestProcessTaskDimensionMismatch(t *testing.T) {
	a := newTestAgent(t, KindCode, 0)
	gen := generation.NewMock("ok")

	_, err := a.ProcessTask(context.Background(), gen, ProcessRequest{
		TaskVector: testVector(16, 0),
		Seed:       1,
	})
	assert.Error(t, err)
	assert.Zero(t, gen.Calls(), "generator must not be invoked on bad input")
}

func TestProcessTaskContextVectorSteersBlend(t *testing.T) {
	gen := generation.NewMock("ok")
	ctx := context.Background()
	contextVec := testVector(8, 3)

	plain, err := newTestAgent(t, KindCode, 0).ProcessTask(ctx, gen, ProcessRequest{
		TaskVector: testVector(8, 1),
		Seed:       5,
	})
	require.NoError(t, err)

	steered, err := newTestAgent(t, KindCode, 0).ProcessTask(ctx, gen, ProcessRequest{
		TaskVector:    testVector(8, 1),
		ContextVector: contextVec,
		Seed:          5,
	})
	require.NoError(t, err)

	assert.Greater(t,
		vectors.Cosine(steered.Blended, contextVec),
		vectors.Cosine(plain.Blended, contextVec),
		"context vector should pull the blend toward itself")
}

func TestProcessTaskMemoryBounded(t *testing.T) {
	spec, _ := PresetSpec(KindCode)
	spec.MemoryCap = 2
	a, err := New(spec, testVector(8, 0))
	require.NoError(t, err)
	gen := generation.NewMock("ok")

	for i := range 5 {
		_, err := a.ProcessTask(context.Background(), gen, ProcessRequest{
			TaskID:     string(rune('a' + i)),
			TaskVector: testVector(8, 0),
			Seed:       uint64(i + 1),
		})
		require.NoError(t, err)
	}

	assert.Equal(t, int64(5), a.TasksCompleted())
	require.Len(t, a.Memory(), 2, "memory holds only the newest outcomes")
	assert.Equal(t, "d", a.Memory()[0].TaskID)
	assert.Equal(t, "e", a.Memory()[1].TaskID)
}
