// Package embedder converts free text into fixed-dimension unit vectors.
//
// The default Local embedder is fully offline and deterministic: identical
// text always yields an identical vector, which the router and the tests rely
// on. Remote embedders (ONNX, GenAI) implement the same interface; all
// failures are reported as errors.ErrEmbeddingUnavailable scoped to the
// failing call.
package embedder

import (
	"context"
	"fmt"

	loomerrors "github.com/adalundhe/loom/core/errors"
)

// DefaultDimension is the vector dimension used when a config does not set
// one. Fixed per deployment; agents and tasks must share it.
const DefaultDimension = 256

// Embedder turns text into a unit vector of a fixed dimension.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimension() int
}

// Unavailable wraps err as an embedding-provider failure.
func Unavailable(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", loomerrors.ErrEmbeddingUnavailable, err)
}
