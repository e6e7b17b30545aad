package history

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Entry captures the statistics of one retrieval call. Entries are written
// asynchronously after the call returns and are never read back by the
// engine itself.
type Entry struct {
	ID                  string    `json:"id,omitempty"`
	Query               string    `json:"query"`
	ResultCount         int       `json:"result_count"`
	AverageRelevance    float32   `json:"average_relevance"`
	CitationCount       int       `json:"citation_count"`
	DocumentIDs         []string  `json:"document_ids"`
	TopK                int       `json:"top_k"`
	SimilarityThreshold float32   `json:"similarity_threshold"`
	HybridSearch        bool      `json:"hybrid_search"`
	RerankerEnabled     bool      `json:"reranker_enabled"`
	ScoreImprovement    float32   `json:"score_improvement"`
	GapDetected         bool      `json:"gap_detected"`
	CreatedAt           time.Time `json:"created_at"`
}

// Repository persists query history entries.
type Repository interface {
	SaveQueryHistory(ctx context.Context, entry Entry) (string, error)
}

// MemoryRepository keeps entries in process memory, mainly for tests and
// local runs.
type MemoryRepository struct {
	mu      sync.RWMutex
	entries []Entry
	nextID  int
}

// NewMemoryRepository creates an empty repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{}
}

// SaveQueryHistory implements Repository.
func (r *MemoryRepository) SaveQueryHistory(ctx context.Context, entry Entry) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	entry.ID = fmt.Sprintf("qh_%d", r.nextID)
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	r.entries = append(r.entries, entry)
	return entry.ID, nil
}

// Entries returns a snapshot of the stored entries.
func (r *MemoryRepository) Entries() []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Entry, len(r.entries))
	copy(out, r.entries)
	return out
}

var _ Repository = (*MemoryRepository)(nil)
