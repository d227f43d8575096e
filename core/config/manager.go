package config

import (
	"fmt"
	"os"
	"sync"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"
)

// Manager holds the current configuration snapshot and reloads it when the
// backing file changes.
type Manager struct {
	current atomic.Pointer[Config]
	path    string

	watcherMu sync.RWMutex
	watchers  []func(*Config)

	watchOnce sync.Once
	stopWatch chan struct{}
}

// NewManager creates a manager seeded with defaults. path may be empty for a
// purely in-memory configuration.
func NewManager(path string) *Manager {
	m := &Manager{
		path:      path,
		stopWatch: make(chan struct{}),
	}
	m.current.Store(Default())
	return m
}

// Get returns the current snapshot. Never nil.
func (m *Manager) Get() *Config {
	return m.current.Load()
}

// Load reads the configuration file over the defaults, validates, and
// publishes the new snapshot. A missing file leaves the defaults in place.
func (m *Manager) Load() error {
	cfg := Default()

	if m.path != "" {
		data, err := os.ReadFile(m.path)
		switch {
		case os.IsNotExist(err):
			// Defaults apply.
		case err != nil:
			return fmt.Errorf("read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return fmt.Errorf("parse config: %w", err)
			}
		}
	}

	if err := cfg.Validate(); err != nil {
		return err
	}

	m.current.Store(cfg)
	m.notify(cfg)
	return nil
}

// Subscribe registers fn to run on every successful reload.
func (m *Manager) Subscribe(fn func(*Config)) {
	m.watcherMu.Lock()
	defer m.watcherMu.Unlock()
	m.watchers = append(m.watchers, fn)
}

// Watch starts reloading on file changes. Safe to call once; no-op without a
// path.
func (m *Manager) Watch() error {
	if m.path == "" {
		return nil
	}

	var watchErr error
	m.watchOnce.Do(func() {
		watcher, err := fsnotify.NewWatcher()
		if err != nil {
			watchErr = fmt.Errorf("create watcher: %w", err)
			return
		}
		if err := watcher.Add(m.path); err != nil {
			watcher.Close()
			watchErr = fmt.Errorf("watch %s: %w", m.path, err)
			return
		}
		go m.watchLoop(watcher)
	})
	return watchErr
}

// Close stops the file watcher.
func (m *Manager) Close() {
	select {
	case <-m.stopWatch:
	default:
		close(m.stopWatch)
	}
}

func (m *Manager) watchLoop(watcher *fsnotify.Watcher) {
	defer watcher.Close()

	for {
		select {
		case <-m.stopWatch:
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				// Reload errors keep the previous snapshot.
				_ = m.Load()
			}
		case _, ok := <-watcher.Errors:
			if !ok {
				return
			}
		}
	}
}

func (m *Manager) notify(cfg *Config) {
	m.watcherMu.RLock()
	defer m.watcherMu.RUnlock()
	for _, fn := range m.watchers {
		fn(cfg)
	}
}
