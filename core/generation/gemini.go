package generation

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/genai"
)

const (
	defaultGeminiModel     = "gemini-2.0-flash"
	defaultGeminiMaxTokens = 1024
)

// GeminiConfig configures the Gemini-backed generator.
type GeminiConfig struct {
	APIKey    string
	Model     string
	MaxTokens int
}

// Gemini generates task responses through the Google GenAI API.
type Gemini struct {
	client *genai.Client
	config GeminiConfig
}

// NewGemini builds a Gemini generator.
func NewGemini(ctx context.Context, config GeminiConfig) (*Gemini, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("gemini generator: API key is required")
	}
	if config.Model == "" {
		config.Model = defaultGeminiModel
	}
	if config.MaxTokens == 0 {
		config.MaxTokens = defaultGeminiMaxTokens
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: config.APIKey})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return &Gemini{client: client, config: config}, nil
}

func (g *Gemini) Name() string {
	return "gemini"
}

func (g *Gemini) Generate(ctx context.Context, req *Request) (*Response, error) {
	start := time.Now()

	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = g.config.MaxTokens
	}

	cfg := &genai.GenerateContentConfig{
		MaxOutputTokens:   int32(maxTokens),
		SystemInstruction: genai.NewContentFromText(systemPrompt(req), genai.RoleUser),
	}
	if req.Temperature > 0 {
		cfg.Temperature = genai.Ptr(float32(req.Temperature))
	}

	contents := []*genai.Content{
		genai.NewContentFromText(userPrompt(req), genai.RoleUser),
	}

	result, err := g.client.Models.GenerateContent(ctx, g.config.Model, contents, cfg)
	if err != nil {
		return nil, Failure(fmt.Errorf("gemini generate: %w", err))
	}

	return &Response{
		Text:     result.Text(),
		Model:    g.config.Model,
		Duration: time.Since(start),
	}, nil
}
