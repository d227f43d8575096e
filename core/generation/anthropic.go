package generation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const (
	defaultAnthropicModel     = "claude-haiku-4-5-20251001"
	defaultAnthropicMaxTokens = 1024
)

// AnthropicConfig configures the Claude-backed generator.
type AnthropicConfig struct {
	APIKey    string
	Model     string
	MaxTokens int
	BaseURL   string
}

// Anthropic generates task responses through the Claude Messages API.
type Anthropic struct {
	client *anthropic.Client
	config AnthropicConfig
}

// NewAnthropic builds an Anthropic generator.
func NewAnthropic(config AnthropicConfig) (*Anthropic, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("anthropic generator: API key is required")
	}
	if config.Model == "" {
		config.Model = defaultAnthropicModel
	}
	if config.MaxTokens == 0 {
		config.MaxTokens = defaultAnthropicMaxTokens
	}

	opts := []option.RequestOption{option.WithAPIKey(config.APIKey)}
	if config.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(config.BaseURL))
	}
	client := anthropic.NewClient(opts...)

	return &Anthropic{client: &client, config: config}, nil
}

func (a *Anthropic) Name() string {
	return "anthropic"
}

func (a *Anthropic) Generate(ctx context.Context, req *Request) (*Response, error) {
	start := time.Now()

	msg, err := a.client.Messages.New(ctx, a.buildParams(req))
	if err != nil {
		return nil, Failure(fmt.Errorf("anthropic generate: %w", err))
	}

	var text strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}

	return &Response{
		Text:     text.String(),
		Model:    string(msg.Model),
		Duration: time.Since(start),
	}, nil
}

func (a *Anthropic) buildParams(req *Request) anthropic.MessageNewParams {
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = a.config.MaxTokens
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(a.config.Model),
		MaxTokens: int64(maxTokens),
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt(req)},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(userPrompt(req))),
		},
	}

	if req.Temperature > 0 {
		params.Temperature = anthropic.Float(req.Temperature)
	}
	return params
}

func systemPrompt(req *Request) string {
	if req.Competence == "" {
		return "You are a specialized task agent. Complete the given task directly."
	}
	return fmt.Sprintf(
		"You are a specialized task agent whose competence is: %s. Complete the given task directly.",
		req.Competence,
	)
}

func userPrompt(req *Request) string {
	if len(req.Context) == 0 {
		return req.Description
	}

	var b strings.Builder
	b.WriteString(req.Description)
	b.WriteString("\n\nContext:\n")
	for _, c := range req.Context {
		b.WriteString("- ")
		b.WriteString(c)
		b.WriteString("\n")
	}
	return b.String()
}
