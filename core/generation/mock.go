package generation

import (
	"context"
	"sync/atomic"
	"time"
)

// Mock is a scriptable generator for tests: fixed response text, optional
// per-call latency, and an armable failure. A latency longer than the ctx
// deadline surfaces as ErrGenerationTimeout, exactly like a slow provider.
type Mock struct {
	Text    string
	Latency time.Duration

	calls   atomic.Int64
	failErr atomic.Pointer[error]
}

// NewMock returns a Mock answering with text.
func NewMock(text string) *Mock {
	return &Mock{Text: text}
}

// Fail arms err for all subsequent calls; Fail(nil) disarms.
func (m *Mock) Fail(err error) {
	if err == nil {
		m.failErr.Store(nil)
		return
	}
	wrapped := Failure(err)
	m.failErr.Store(&wrapped)
}

// Calls reports how many Generate invocations have happened.
func (m *Mock) Calls() int64 {
	return m.calls.Load()
}

func (m *Mock) Name() string {
	return "mock"
}

func (m *Mock) Generate(ctx context.Context, req *Request) (*Response, error) {
	m.calls.Add(1)

	if m.Latency > 0 {
		select {
		case <-time.After(m.Latency):
		case <-ctx.Done():
			return nil, Failure(ctx.Err())
		}
	}

	if errp := m.failErr.Load(); errp != nil {
		return nil, *errp
	}

	return &Response{
		Text:     m.Text,
		Model:    "mock",
		Duration: m.Latency,
	}, nil
}
