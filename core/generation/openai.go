package generation

import (
	"context"
	"fmt"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/responses"
	"github.com/openai/openai-go/shared"
)

const (
	defaultOpenAIModel     = "gpt-5.2-codex"
	defaultOpenAIMaxTokens = 1024
)

// OpenAIConfig configures the GPT-backed generator.
type OpenAIConfig struct {
	APIKey    string
	Model     string
	MaxTokens int
	BaseURL   string
}

// OpenAI generates task responses through the OpenAI Responses API.
type OpenAI struct {
	client *openai.Client
	config OpenAIConfig
}

// NewOpenAI builds an OpenAI generator.
func NewOpenAI(config OpenAIConfig) (*OpenAI, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("openai generator: API key is required")
	}
	if config.Model == "" {
		config.Model = defaultOpenAIModel
	}
	if config.MaxTokens == 0 {
		config.MaxTokens = defaultOpenAIMaxTokens
	}

	opts := []option.RequestOption{option.WithAPIKey(config.APIKey)}
	if config.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(config.BaseURL))
	}
	client := openai.NewClient(opts...)

	return &OpenAI{client: &client, config: config}, nil
}

func (o *OpenAI) Name() string {
	return "openai"
}

func (o *OpenAI) Generate(ctx context.Context, req *Request) (*Response, error) {
	start := time.Now()

	result, err := o.client.Responses.New(ctx, o.buildParams(req))
	if err != nil {
		return nil, Failure(fmt.Errorf("openai generate: %w", err))
	}

	return &Response{
		Text:     result.OutputText(),
		Model:    string(result.Model),
		Duration: time.Since(start),
	}, nil
}

func (o *OpenAI) buildParams(req *Request) responses.ResponseNewParams {
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = o.config.MaxTokens
	}

	input := responses.ResponseInputParam{
		responses.ResponseInputItemParamOfMessage(systemPrompt(req), responses.EasyInputMessageRoleSystem),
		responses.ResponseInputItemParamOfMessage(userPrompt(req), responses.EasyInputMessageRoleUser),
	}

	params := responses.ResponseNewParams{
		Model: shared.ResponsesModel(o.config.Model),
		Input: responses.ResponseNewParamsInputUnion{
			OfInputItemList: input,
		},
		MaxOutputTokens: openai.Int(int64(maxTokens)),
	}

	if req.Temperature > 0 {
		params.Temperature = openai.Float(req.Temperature)
	}
	return params
}
