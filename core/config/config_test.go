package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	loomerrors "github.com/adalundhe/loom/core/errors"
)

func TestDefaultValidates(t *testing.T) {
	assert.NoError(t, Default().Validate())
}

func TestValidateRanges(t *testing.T) {
	cases := map[string]func(*Config){
		"zero dimension":     func(c *Config) { c.Embedding.Dimension = 0 },
		"threshold too high": func(c *Config) { c.Routing.AcceptanceThreshold = 1.5 },
		"threshold too low":  func(c *Config) { c.Routing.AcceptanceThreshold = -1.5 },
		"negative epsilon":   func(c *Config) { c.Routing.TieEpsilon = -1e-6 },
		"no workers":         func(c *Config) { c.Pool.Workers = 0 },
		"learning rate 1":    func(c *Config) { c.Agents.LearningRate = 1.0 },
	}

	for name, mutate := range cases {
		cfg := Default()
		mutate(cfg)
		err := cfg.Validate()
		require.Error(t, err, name)
		assert.True(t, loomerrors.IsConfig(err), name)
	}
}

func TestManagerDefaultsWithoutPath(t *testing.T) {
	m := NewManager("")
	require.NoError(t, m.Load())

	cfg := m.Get()
	require.NotNil(t, cfg)
	assert.Equal(t, "local", cfg.Embedding.Backend)
	assert.InDelta(t, 0.5, cfg.Routing.AcceptanceThreshold, 1e-9)
}

func TestManagerMissingFileKeepsDefaults(t *testing.T) {
	m := NewManager(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, m.Load())
	assert.Equal(t, Default().Pool.Workers, m.Get().Pool.Workers)
}

func TestManagerLoadsYAMLOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "loom.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
routing:
  acceptance_threshold: 0.65
pool:
  workers: 12
  generation_timeout: 10s
provider:
  backend: anthropic
  model: claude-sonnet-4-20250514
`), 0644))

	m := NewManager(path)
	require.NoError(t, m.Load())

	cfg := m.Get()
	assert.InDelta(t, 0.65, cfg.Routing.AcceptanceThreshold, 1e-9)
	assert.Equal(t, 12, cfg.Pool.Workers)
	assert.Equal(t, 10*time.Second, cfg.Pool.GenerationTimeout)
	assert.Equal(t, "anthropic", cfg.Provider.Backend)

	// Untouched sections keep defaults.
	assert.Equal(t, Default().Embedding.Dimension, cfg.Embedding.Dimension)
}

func TestManagerRejectsInvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "loom.yaml")
	require.NoError(t, os.WriteFile(path, []byte("pool:\n  workers: -3\n"), 0644))

	m := NewManager(path)
	err := m.Load()
	require.Error(t, err)
	assert.True(t, loomerrors.IsConfig(err))

	// The previous snapshot survives a failed load.
	assert.Equal(t, Default().Pool.Workers, m.Get().Pool.Workers)
}

func TestManagerNotifiesSubscribers(t *testing.T) {
	m := NewManager("")

	ch := make(chan *Config, 1)
	m.Subscribe(func(cfg *Config) { ch <- cfg })

	require.NoError(t, m.Load())
	select {
	case cfg := <-ch:
		assert.NotNil(t, cfg)
	default:
		t.Fatal("subscriber was not notified")
	}
}

func TestManagerWatchReloadsOnWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "loom.yaml")
	require.NoError(t, os.WriteFile(path, []byte("pool:\n  workers: 2\n"), 0644))

	m := NewManager(path)
	require.NoError(t, m.Load())
	require.NoError(t, m.Watch())
	defer m.Close()

	updated := make(chan *Config, 4)
	m.Subscribe(func(cfg *Config) { updated <- cfg })

	require.NoError(t, os.WriteFile(path, []byte("pool:\n  workers: 6\n"), 0644))

	select {
	case <-updated:
		assert.Equal(t, 6, m.Get().Pool.Workers)
	case <-time.After(2 * time.Second):
		t.Fatal("watcher never delivered the reload")
	}
}
