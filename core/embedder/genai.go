package embedder

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

const (
	defaultGenAIModel     = "gemini-embedding-001"
	defaultGenAIDimension = 768
)

// GenAI embeds text through Google's Gemini embedding API.
type GenAI struct {
	client    *genai.Client
	model     string
	dimension int
}

// GenAIConfig configures the Gemini embedder.
type GenAIConfig struct {
	APIKey    string
	Model     string
	Dimension int
}

// NewGenAI builds a Gemini-backed embedder.
func NewGenAI(ctx context.Context, cfg GenAIConfig) (*GenAI, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("genai embedder: API key is required")
	}
	if cfg.Model == "" {
		cfg.Model = defaultGenAIModel
	}
	if cfg.Dimension <= 0 {
		cfg.Dimension = defaultGenAIDimension
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: cfg.APIKey})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return &GenAI{
		client:    client,
		model:     cfg.Model,
		dimension: cfg.Dimension,
	}, nil
}

func (g *GenAI) Dimension() int {
	return g.dimension
}

func (g *GenAI) Embed(ctx context.Context, text string) ([]float32, error) {
	results, err := g.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, Unavailable(fmt.Errorf("no embedding returned"))
	}
	return results[0], nil
}

func (g *GenAI) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	contents := make([]*genai.Content, len(texts))
	for i, text := range texts {
		contents[i] = genai.NewContentFromText(text, genai.RoleUser)
	}

	result, err := g.client.Models.EmbedContent(ctx, g.model, contents,
		&genai.EmbedContentConfig{
			TaskType: "SEMANTIC_SIMILARITY",
		},
	)
	if err != nil {
		return nil, Unavailable(fmt.Errorf("genai embed: %w", err))
	}
	if len(result.Embeddings) != len(texts) {
		return nil, Unavailable(fmt.Errorf("genai embed: got %d embeddings for %d texts",
			len(result.Embeddings), len(texts)))
	}

	out := make([][]float32, len(result.Embeddings))
	for i, emb := range result.Embeddings {
		out[i] = emb.Values
	}
	return out, nil
}
