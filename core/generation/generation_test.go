package generation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	loomerrors "github.com/adalundhe/loom/core/errors"
)

func TestStaticGenerate(t *testing.T) {
	gen := NewStatic()

	resp, err := gen.Generate(context.Background(), &Request{
		Description: "summarize the design doc",
		Competence:  "information retrieval",
	})
	require.NoError(t, err)

	assert.Contains(t, resp.Text, "summarize the design doc")
	assert.Contains(t, resp.Text, "information retrieval")
	assert.Equal(t, "static", resp.Model)
	assert.Equal(t, "static", gen.Name())
}

func TestStaticIncludesContextCount(t *testing.T) {
	gen := NewStatic()

	resp, err := gen.Generate(context.Background(), &Request{
		Description: "continue the work",
		Competence:  "general purpose task handling",
		Context:     []string{"earlier result", "another result"},
	})
	require.NoError(t, err)
	assert.Contains(t, resp.Text, "2 context items")
}

func TestStaticHonorsCancelledContext(t *testing.T) {
	gen := NewStatic()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := gen.Generate(ctx, &Request{Description: "x"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, loomerrors.ErrGenerationFailure))
}

func TestMockLatencyAndTimeout(t *testing.T) {
	gen := NewMock("slow answer")
	gen.Latency = 50 * time.Millisecond

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
	defer cancel()

	_, err := gen.Generate(ctx, &Request{Description: "x"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, loomerrors.ErrGenerationTimeout),
		"a missed deadline must surface as a timeout, not a generic failure")
	assert.Equal(t, int64(1), gen.Calls())
}

func TestMockFailArmAndDisarm(t *testing.T) {
	gen := NewMock("fine")
	boom := errors.New("rate limited")
	gen.Fail(boom)

	_, err := gen.Generate(context.Background(), &Request{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, loomerrors.ErrGenerationFailure))
	assert.True(t, errors.Is(err, boom))

	gen.Fail(nil)
	resp, err := gen.Generate(context.Background(), &Request{})
	require.NoError(t, err)
	assert.Equal(t, "fine", resp.Text)
}

func TestFailureMapping(t *testing.T) {
	assert.NoError(t, Failure(nil))

	timeout := Failure(context.DeadlineExceeded)
	assert.True(t, errors.Is(timeout, loomerrors.ErrGenerationTimeout))

	other := Failure(errors.New("502 bad gateway"))
	assert.True(t, errors.Is(other, loomerrors.ErrGenerationFailure))
	assert.False(t, errors.Is(other, loomerrors.ErrGenerationTimeout))
}
