package embedder

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"github.com/knights-analytics/hugot"
	"github.com/knights-analytics/hugot/options"
	"github.com/knights-analytics/hugot/pipelines"
)

// ONNXConfig configures the hugot-backed embedder.
type ONNXConfig struct {
	// HFRepo is the HuggingFace repo of a feature-extraction model, e.g.
	// "sentence-transformers/all-MiniLM-L6-v2".
	HFRepo string

	// Dimension of the model's output vectors.
	Dimension int

	CacheDir       string
	OrtLibraryPath string
	UseGPU         bool
}

// ONNX runs a local sentence-transformer through hugot. Until EnsureModel has
// loaded the model it transparently answers from a Local fallback so callers
// never block on a download.
type ONNX struct {
	cfg       ONNXConfig
	modelPath string
	fallback  *Local

	mu       sync.RWMutex
	session  *hugot.Session
	pipeline *pipelines.FeatureExtractionPipeline
	loaded   bool
}

// NewONNX builds an ONNX embedder. The model is not loaded until EnsureModel
// is called.
func NewONNX(cfg ONNXConfig) (*ONNX, error) {
	if cfg.HFRepo == "" {
		return nil, fmt.Errorf("onnx embedder: HFRepo is required")
	}
	if cfg.Dimension <= 0 {
		cfg.Dimension = DefaultDimension
	}
	if cfg.CacheDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("get home dir: %w", err)
		}
		cfg.CacheDir = filepath.Join(home, ".loom", "models")
	}
	if err := os.MkdirAll(cfg.CacheDir, 0755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}

	return &ONNX{
		cfg:      cfg,
		fallback: NewLocal(cfg.Dimension),
	}, nil
}

func (o *ONNX) Dimension() int {
	return o.cfg.Dimension
}

func (o *ONNX) Embed(ctx context.Context, text string) ([]float32, error) {
	results, err := o.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, Unavailable(fmt.Errorf("no embedding returned"))
	}
	return results[0], nil
}

func (o *ONNX) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	o.mu.RLock()
	pipeline, loaded := o.pipeline, o.loaded
	o.mu.RUnlock()

	if !loaded || pipeline == nil {
		return o.fallback.EmbedBatch(ctx, texts)
	}

	output, err := pipeline.RunPipeline(texts)
	if err != nil {
		return nil, Unavailable(fmt.Errorf("inference: %w", err))
	}
	return output.Embeddings, nil
}

// EnsureModel downloads the model if missing and loads the ORT session.
// Idempotent.
func (o *ONNX) EnsureModel(ctx context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.loaded {
		return nil
	}

	if o.modelPath == "" {
		modelPath, err := hugot.DownloadModel(o.cfg.HFRepo, o.cfg.CacheDir, hugot.NewDownloadOptions())
		if err != nil {
			return fmt.Errorf("download model: %w", err)
		}
		o.modelPath = modelPath
	}

	if err := o.loadSession(); err != nil {
		return err
	}

	o.loaded = true
	return nil
}

func (o *ONNX) loadSession() error {
	sessionOpts := []options.WithOption{
		options.WithIntraOpNumThreads(runtime.NumCPU()),
	}
	if o.cfg.OrtLibraryPath != "" {
		sessionOpts = append(sessionOpts, options.WithOnnxLibraryPath(o.cfg.OrtLibraryPath))
	}
	if o.cfg.UseGPU {
		sessionOpts = append(sessionOpts, options.WithCuda(nil))
	}

	session, err := hugot.NewORTSession(sessionOpts...)
	if err != nil {
		return fmt.Errorf("create ORT session: %w", err)
	}

	pipeline, err := hugot.NewPipeline(session, hugot.FeatureExtractionConfig{
		ModelPath: o.modelPath,
		Name:      filepath.Base(o.cfg.HFRepo),
	})
	if err != nil {
		session.Destroy()
		return fmt.Errorf("create pipeline: %w", err)
	}

	o.session = session
	o.pipeline = pipeline
	return nil
}

func (o *ONNX) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.session != nil {
		o.session.Destroy()
		o.session = nil
	}
	o.pipeline = nil
	o.loaded = false
	return nil
}
