package task

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dgraph-io/ristretto"
	_ "modernc.org/sqlite"
)

// ResultStore keeps terminal and interrupted tasks queryable after they leave
// the queue. Storage is tiered: a ristretto cache holds recent records, and
// records evicted from the cache are archived to SQLite in batches.
type ResultStore struct {
	cache *ristretto.Cache
	db    *sql.DB

	config ResultStoreConfig

	evictionMu sync.Mutex
	evictions  []Snapshot

	completed atomic.Int64
	failed    atomic.Int64

	failuresMu     sync.Mutex
	recentFailures []FailureRecord
}

// FailureRecord is one recorded task failure for status queries.
type FailureRecord struct {
	TaskID   string    `json:"task_id"`
	Error    string    `json:"error"`
	FailedAt time.Time `json:"failed_at"`
}

// ResultStoreConfig configures the tiered store.
type ResultStoreConfig struct {
	// DBPath is the SQLite archive location. ":memory:" keeps the cold
	// tier in-process; empty selects the default path.
	DBPath string

	NumCounters int64
	MaxCost     int64
	BufferItems int64

	// EvictionBatchSize is how many evicted records accumulate before an
	// async flush to SQLite.
	EvictionBatchSize int

	// RecentFailureLimit bounds the in-memory failure-reason ring.
	RecentFailureLimit int
}

// DefaultResultStoreConfig returns the defaults used by the orchestrator.
func DefaultResultStoreConfig() ResultStoreConfig {
	return ResultStoreConfig{
		DBPath:             filepath.Join(".loom", "task_results.db"),
		NumCounters:        1e5,
		MaxCost:            1 << 26, // 64MB
		BufferItems:        64,
		EvictionBatchSize:  64,
		RecentFailureLimit: 32,
	}
}

// NewResultStore opens the tiered store.
func NewResultStore(cfg ResultStoreConfig) (*ResultStore, error) {
	defaults := DefaultResultStoreConfig()
	if cfg.DBPath == "" {
		cfg.DBPath = defaults.DBPath
	}
	if cfg.NumCounters == 0 {
		cfg.NumCounters = defaults.NumCounters
	}
	if cfg.MaxCost == 0 {
		cfg.MaxCost = defaults.MaxCost
	}
	if cfg.BufferItems == 0 {
		cfg.BufferItems = defaults.BufferItems
	}
	if cfg.EvictionBatchSize == 0 {
		cfg.EvictionBatchSize = defaults.EvictionBatchSize
	}
	if cfg.RecentFailureLimit == 0 {
		cfg.RecentFailureLimit = defaults.RecentFailureLimit
	}

	store := &ResultStore{
		config:    cfg,
		evictions: make([]Snapshot, 0, cfg.EvictionBatchSize),
	}

	if err := store.initSQLite(cfg.DBPath); err != nil {
		return nil, fmt.Errorf("init sqlite: %w", err)
	}

	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: cfg.NumCounters,
		MaxCost:     cfg.MaxCost,
		BufferItems: cfg.BufferItems,
		OnEvict:     store.onEvict,
		OnReject:    store.onReject,
	})
	if err != nil {
		store.db.Close()
		return nil, fmt.Errorf("init ristretto: %w", err)
	}
	store.cache = cache

	return store, nil
}

func (s *ResultStore) initSQLite(path string) error {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return fmt.Errorf("create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}

	if path != ":memory:" {
		if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			db.Close()
			return fmt.Errorf("enable WAL: %w", err)
		}
	}

	schema := `
	CREATE TABLE IF NOT EXISTS task_results (
		id TEXT PRIMARY KEY,
		description TEXT NOT NULL,
		priority INTEGER NOT NULL,
		required_agent_type TEXT,
		status TEXT NOT NULL,
		assigned_agent_id TEXT,
		result TEXT,
		error TEXT,
		created_at TIMESTAMP NOT NULL,
		started_at TIMESTAMP,
		finished_at TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_results_status ON task_results(status);
	CREATE INDEX IF NOT EXISTS idx_results_agent ON task_results(assigned_agent_id);
	CREATE INDEX IF NOT EXISTS idx_results_finished ON task_results(finished_at);
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return fmt.Errorf("create schema: %w", err)
	}

	s.db = db
	return nil
}

// Put records a task snapshot and updates the aggregate counters.
func (s *ResultStore) Put(snap Snapshot) {
	switch snap.Status {
	case StatusCompleted:
		s.completed.Add(1)
	case StatusFailed:
		s.failed.Add(1)
		s.recordFailure(snap)
	}

	s.cache.Set(snap.ID, snap, snapshotCost(snap))
	// Make the record visible to Get immediately; ristretto sets are
	// buffered by default.
	s.cache.Wait()
}

// Get returns a stored snapshot, consulting the hot tier first.
func (s *ResultStore) Get(id string) (Snapshot, bool) {
	if value, ok := s.cache.Get(id); ok {
		if snap, ok := value.(Snapshot); ok {
			return snap, true
		}
	}
	return s.getCold(id)
}

// Counts reports the totals of completed and failed tasks since startup.
func (s *ResultStore) Counts() (completed, failed int64) {
	return s.completed.Load(), s.failed.Load()
}

// RecentFailures returns up to n most recent failure records, newest first.
func (s *ResultStore) RecentFailures(n int) []FailureRecord {
	s.failuresMu.Lock()
	defer s.failuresMu.Unlock()

	if n <= 0 || n > len(s.recentFailures) {
		n = len(s.recentFailures)
	}

	out := make([]FailureRecord, n)
	for i := range n {
		out[i] = s.recentFailures[len(s.recentFailures)-1-i]
	}
	return out
}

// Close flushes pending evictions and releases both tiers.
func (s *ResultStore) Close() error {
	s.evictionMu.Lock()
	batch := s.evictions
	s.evictions = nil
	s.evictionMu.Unlock()
	s.archiveBatch(batch)

	s.cache.Close()
	return s.db.Close()
}

func (s *ResultStore) recordFailure(snap Snapshot) {
	s.failuresMu.Lock()
	defer s.failuresMu.Unlock()

	s.recentFailures = append(s.recentFailures, FailureRecord{
		TaskID:   snap.ID,
		Error:    snap.Error,
		FailedAt: snap.FinishedAt,
	})
	if len(s.recentFailures) > s.config.RecentFailureLimit {
		s.recentFailures = s.recentFailures[1:]
	}
}

func (s *ResultStore) onEvict(item *ristretto.Item) {
	snap, ok := item.Value.(Snapshot)
	if !ok {
		return
	}

	s.evictionMu.Lock()
	s.evictions = append(s.evictions, snap)
	if len(s.evictions) < s.config.EvictionBatchSize {
		s.evictionMu.Unlock()
		return
	}
	batch := s.evictions
	s.evictions = make([]Snapshot, 0, s.config.EvictionBatchSize)
	s.evictionMu.Unlock()

	go s.archiveBatch(batch)
}

func (s *ResultStore) onReject(item *ristretto.Item) {
	if snap, ok := item.Value.(Snapshot); ok {
		go s.archiveBatch([]Snapshot{snap})
	}
}

func (s *ResultStore) archiveBatch(batch []Snapshot) {
	if len(batch) == 0 {
		return
	}

	tx, err := s.db.Begin()
	if err != nil {
		return
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT OR REPLACE INTO task_results
		(id, description, priority, required_agent_type, status,
		 assigned_agent_id, result, error, created_at, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return
	}
	defer stmt.Close()

	for _, snap := range batch {
		if _, err := stmt.Exec(
			snap.ID, snap.Description, snap.Priority, snap.RequiredAgentType,
			string(snap.Status), snap.AssignedAgentID, snap.Result, snap.Error,
			snap.CreatedAt, nullableTime(snap.StartedAt), nullableTime(snap.FinishedAt),
		); err != nil {
			return
		}
	}
	tx.Commit()
}

func (s *ResultStore) getCold(id string) (Snapshot, bool) {
	row := s.db.QueryRow(`
		SELECT id, description, priority, required_agent_type, status,
		       assigned_agent_id, result, error, created_at, started_at, finished_at
		FROM task_results WHERE id = ?
	`, id)

	var snap Snapshot
	var status string
	var startedAt, finishedAt sql.NullTime
	err := row.Scan(
		&snap.ID, &snap.Description, &snap.Priority, &snap.RequiredAgentType,
		&status, &snap.AssignedAgentID, &snap.Result, &snap.Error,
		&snap.CreatedAt, &startedAt, &finishedAt,
	)
	if err != nil {
		return Snapshot{}, false
	}

	snap.Status = Status(status)
	if startedAt.Valid {
		snap.StartedAt = startedAt.Time
	}
	if finishedAt.Valid {
		snap.FinishedAt = finishedAt.Time
	}
	return snap, true
}

func snapshotCost(snap Snapshot) int64 {
	return int64(200 + len(snap.ID) + len(snap.Description) + len(snap.Result) + len(snap.Error))
}

func nullableTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}
