package embedder

import (
	"context"
	"sync/atomic"
)

// Mock is a test embedder that answers from a Local embedder unless a
// failure is armed, in which case every call fails with the armed error.
type Mock struct {
	local *Local

	calls   atomic.Int64
	failErr atomic.Pointer[error]
}

// NewMock returns a Mock with the given dimension.
func NewMock(dimension int) *Mock {
	return &Mock{local: NewLocal(dimension)}
}

// Fail arms err as the response for all subsequent calls; Fail(nil) disarms.
func (m *Mock) Fail(err error) {
	if err == nil {
		m.failErr.Store(nil)
		return
	}
	wrapped := Unavailable(err)
	m.failErr.Store(&wrapped)
}

// Calls reports the number of Embed/EmbedBatch invocations.
func (m *Mock) Calls() int64 {
	return m.calls.Load()
}

func (m *Mock) Dimension() int {
	return m.local.Dimension()
}

func (m *Mock) Embed(ctx context.Context, text string) ([]float32, error) {
	m.calls.Add(1)
	if errp := m.failErr.Load(); errp != nil {
		return nil, *errp
	}
	return m.local.Embed(ctx, text)
}

func (m *Mock) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	m.calls.Add(1)
	if errp := m.failErr.Load(); errp != nil {
		return nil, *errp
	}
	return m.local.EmbedBatch(ctx, texts)
}
