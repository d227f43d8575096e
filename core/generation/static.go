package generation

import (
	"context"
	"fmt"
	"time"
)

// Static is an offline generator that composes a deterministic response from
// the request. Used by the demo command and anywhere no provider credentials
// are configured.
type Static struct{}

// NewStatic returns the offline generator.
func NewStatic() *Static {
	return &Static{}
}

func (s *Static) Name() string {
	return "static"
}

func (s *Static) Generate(ctx context.Context, req *Request) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, Failure(err)
	}

	start := time.Now()
	text := fmt.Sprintf("[%s] processed %q", req.Competence, req.Description)
	if len(req.Context) > 0 {
		text = fmt.Sprintf("%s with %d context items", text, len(req.Context))
	}

	return &Response{
		Text:     text,
		Model:    "static",
		Duration: time.Since(start),
	}, nil
}
