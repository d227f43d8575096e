package task

import (
	"fmt"
	"sync"

	"github.com/blevesearch/bleve/v2"
)

// SearchHit is one result from the terminal-task index.
type SearchHit struct {
	TaskID string
	Score  float64
}

// SearchIndex provides full-text search over terminal task descriptions and
// results, backed by an in-memory bleve index.
type SearchIndex struct {
	mu    sync.RWMutex
	index bleve.Index
}

type searchDocument struct {
	ID          string `json:"id"`
	Description string `json:"description"`
	Result      string `json:"result"`
	Status      string `json:"status"`
	AgentID     string `json:"agent_id"`
}

// NewSearchIndex creates an empty in-memory index.
func NewSearchIndex() (*SearchIndex, error) {
	index, err := bleve.NewMemOnly(bleve.NewIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("create bleve index: %w", err)
	}
	return &SearchIndex{index: index}, nil
}

// Index adds or replaces a terminal task in the index.
func (s *SearchIndex) Index(snap Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.index.Index(snap.ID, searchDocument{
		ID:          snap.ID,
		Description: snap.Description,
		Result:      snap.Result,
		Status:      string(snap.Status),
		AgentID:     snap.AssignedAgentID,
	})
}

// Search runs a match query over indexed tasks and returns up to limit hits,
// best first.
func (s *SearchIndex) Search(query string, limit int) ([]SearchHit, error) {
	if limit <= 0 {
		limit = 10
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	req := bleve.NewSearchRequest(bleve.NewMatchQuery(query))
	req.Size = limit

	result, err := s.index.Search(req)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	hits := make([]SearchHit, 0, len(result.Hits))
	for _, hit := range result.Hits {
		hits = append(hits, SearchHit{TaskID: hit.ID, Score: hit.Score})
	}
	return hits, nil
}

// Close releases the index.
func (s *SearchIndex) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index.Close()
}
