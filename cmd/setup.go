package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/adalundhe/loom/core/config"
	"github.com/adalundhe/loom/core/embedder"
	"github.com/adalundhe/loom/core/generation"
	"github.com/adalundhe/loom/core/orchestrator"
)

// loadConfig reads the config file when --config is set, defaults otherwise.
func loadConfig() (*config.Config, error) {
	if rootConfigPath == "" {
		return config.Default(), nil
	}
	manager := config.NewManager(rootConfigPath)
	if err := manager.Load(); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return manager.Get(), nil
}

// buildEmbedder constructs the configured embedding backend. The onnx backend
// downloads its model up front so the first task does not pay for it.
func buildEmbedder(ctx context.Context, cfg *config.Config) (embedder.Embedder, error) {
	switch cfg.Embedding.Backend {
	case "", "local":
		return embedder.NewLocal(cfg.Embedding.Dimension), nil
	case "onnx":
		onnx, err := embedder.NewONNX(embedder.ONNXConfig{
			HFRepo:    cfg.Embedding.HFRepo,
			Dimension: cfg.Embedding.Dimension,
		})
		if err != nil {
			return nil, err
		}
		if err := onnx.EnsureModel(ctx); err != nil {
			return nil, err
		}
		return onnx, nil
	case "genai":
		return embedder.NewGenAI(ctx, embedder.GenAIConfig{
			APIKey:    os.Getenv("GEMINI_API_KEY"),
			Dimension: cfg.Embedding.Dimension,
		})
	default:
		return nil, fmt.Errorf("unknown embedding backend %q", cfg.Embedding.Backend)
	}
}

// buildGenerator constructs the configured text-generation provider. API keys
// come from the environment, never from the config file.
func buildGenerator(ctx context.Context, cfg *config.Config) (generation.Generator, error) {
	switch cfg.Provider.Backend {
	case "", "static":
		return generation.NewStatic(), nil
	case "gemini":
		return generation.NewGemini(ctx, generation.GeminiConfig{
			APIKey:    os.Getenv("GEMINI_API_KEY"),
			Model:     cfg.Provider.Model,
			MaxTokens: cfg.Provider.MaxTokens,
		})
	case "anthropic":
		return generation.NewAnthropic(generation.AnthropicConfig{
			APIKey:    os.Getenv("ANTHROPIC_API_KEY"),
			Model:     cfg.Provider.Model,
			MaxTokens: cfg.Provider.MaxTokens,
		})
	case "openai":
		return generation.NewOpenAI(generation.OpenAIConfig{
			APIKey:    os.Getenv("OPENAI_API_KEY"),
			Model:     cfg.Provider.Model,
			MaxTokens: cfg.Provider.MaxTokens,
		})
	default:
		return nil, fmt.Errorf("unknown provider backend %q", cfg.Provider.Backend)
	}
}

// buildOrchestrator wires config, embedder, and generator into a ready
// orchestrator.
func buildOrchestrator(ctx context.Context, logger *slog.Logger) (*orchestrator.Orchestrator, *config.Config, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}

	embed, err := buildEmbedder(ctx, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("build embedder: %w", err)
	}

	gen, err := buildGenerator(ctx, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("build generator: %w", err)
	}

	orch, err := orchestrator.New(orchestrator.Options{
		Config:    cfg,
		Embedder:  embed,
		Generator: gen,
		Logger:    logger,
	})
	if err != nil {
		return nil, nil, err
	}
	return orch, cfg, nil
}
