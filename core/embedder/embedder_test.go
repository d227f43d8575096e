package embedder

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	loomerrors "github.com/adalundhe/loom/core/errors"
	"github.com/adalundhe/loom/core/vectors"
)

func TestLocalDeterministic(t *testing.T) {
	local := NewLocal(DefaultDimension)
	ctx := context.Background()

	a, err := local.Embed(ctx, "debug the authentication flow")
	require.NoError(t, err)
	b, err := local.Embed(ctx, "debug the authentication flow")
	require.NoError(t, err)

	assert.Equal(t, a, b, "identical text must produce identical vectors")
}

func TestLocalUnitLength(t *testing.T) {
	local := NewLocal(128)
	ctx := context.Background()

	for _, text := range []string{
		"implement quicksort",
		"write a poem about rivers",
		"x",
		"",
	} {
		vec, err := local.Embed(ctx, text)
		require.NoError(t, err)
		require.Len(t, vec, 128)

		if text == "" {
			continue // empty text has no features, zero vector is fine
		}
		assert.True(t, vectors.IsUnit(vec, 1e-3), "embedding of %q should be unit length", text)
	}
}

func TestLocalSimilarTextsScoreHigher(t *testing.T) {
	local := NewLocal(DefaultDimension)
	ctx := context.Background()

	code1, _ := local.Embed(ctx, "fix the null pointer bug in the parser")
	code2, _ := local.Embed(ctx, "fix the nil pointer bug in the tokenizer")
	poem, _ := local.Embed(ctx, "compose a haiku about winter mornings")

	related := vectors.Cosine(code1, code2)
	unrelated := vectors.Cosine(code1, poem)
	assert.Greater(t, related, unrelated,
		"related descriptions should be closer than unrelated ones")
}

func TestLocalEmbedBatch(t *testing.T) {
	local := NewLocal(64)
	ctx := context.Background()

	batch, err := local.EmbedBatch(ctx, []string{"alpha task", "beta task"})
	require.NoError(t, err)
	require.Len(t, batch, 2)

	single, err := local.Embed(ctx, "alpha task")
	require.NoError(t, err)
	assert.Equal(t, single, batch[0])
}

func TestLocalDimensionFallback(t *testing.T) {
	assert.Equal(t, DefaultDimension, NewLocal(0).Dimension())
	assert.Equal(t, DefaultDimension, NewLocal(-5).Dimension())
}

func TestCachedHitsAndMisses(t *testing.T) {
	mock := NewMock(64)
	cached, err := NewCached(mock, 16)
	require.NoError(t, err)
	ctx := context.Background()

	first, err := cached.Embed(ctx, "same text")
	require.NoError(t, err)
	second, err := cached.Embed(ctx, "same text")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, int64(1), mock.Calls(), "second call must be served from cache")

	hits, misses := cached.Stats()
	assert.Equal(t, int64(1), hits)
	assert.Equal(t, int64(1), misses)
}

func TestCachedBatchPartialHit(t *testing.T) {
	mock := NewMock(64)
	cached, err := NewCached(mock, 16)
	require.NoError(t, err)
	ctx := context.Background()

	_, err = cached.Embed(ctx, "cached text")
	require.NoError(t, err)

	batch, err := cached.EmbedBatch(ctx, []string{"cached text", "new text"})
	require.NoError(t, err)
	require.Len(t, batch, 2)
	assert.NotNil(t, batch[0])
	assert.NotNil(t, batch[1])

	hits, _ := cached.Stats()
	assert.Equal(t, int64(1), hits)
}

func TestMockFailureScopedToCall(t *testing.T) {
	mock := NewMock(64)
	ctx := context.Background()

	boom := errors.New("provider down")
	mock.Fail(boom)

	_, err := mock.Embed(ctx, "anything")
	require.Error(t, err)
	assert.True(t, errors.Is(err, loomerrors.ErrEmbeddingUnavailable))
	assert.True(t, errors.Is(err, boom))

	// Disarming restores service for the next call.
	mock.Fail(nil)
	vec, err := mock.Embed(ctx, "anything")
	require.NoError(t, err)
	assert.NotEmpty(t, vec)
}

func TestUnavailableWrapsNilAsNil(t *testing.T) {
	assert.NoError(t, Unavailable(nil))
}
