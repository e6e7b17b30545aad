package inmemory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/sweetpotato0/ragline/document"
	"github.com/sweetpotato0/ragline/vector"
)

type entry struct {
	chunkID    string
	documentID string
	chunkIndex int
	values     []float32
	metadata   map[string]string
	text       string
}

// Store implements vector.Store using in-memory storage.
type Store struct {
	mu      sync.RWMutex
	entries map[string]entry
	byDoc   map[string][]string
}

// New creates a new in-memory vector store.
func New() *Store {
	return &Store{
		entries: make(map[string]entry),
		byDoc:   make(map[string][]string),
	}
}

// Upsert indexes the chunks of a document, replacing previous entries.
func (s *Store) Upsert(ctx context.Context, doc document.Document, chunks []document.Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, chunkID := range s.byDoc[doc.ID] {
		delete(s.entries, chunkID)
	}
	ids := make([]string, 0, len(chunks))
	for _, chunk := range chunks {
		if chunk.ID == "" {
			return fmt.Errorf("inmemory: chunk ID cannot be empty")
		}
		if len(chunk.Embedding) == 0 {
			return fmt.Errorf("inmemory: chunk %s has no embedding", chunk.ID)
		}
		values := make([]float32, len(chunk.Embedding))
		copy(values, chunk.Embedding)
		s.entries[chunk.ID] = entry{
			chunkID:    chunk.ID,
			documentID: doc.ID,
			chunkIndex: chunk.ChunkIndex,
			values:     values,
			metadata:   doc.Metadata,
			text:       chunk.Content,
		}
		ids = append(ids, chunk.ID)
	}
	s.byDoc[doc.ID] = ids
	return nil
}

// Delete removes all entries belonging to a document.
func (s *Store) Delete(ctx context.Context, documentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, chunkID := range s.byDoc[documentID] {
		delete(s.entries, chunkID)
	}
	delete(s.byDoc, documentID)
	return nil
}

// Query finds the topK entries nearest to the query vector by cosine
// similarity.
func (s *Store) Query(ctx context.Context, queryVector []float32, topK int, filters map[string]string) ([]vector.Match, error) {
	if len(queryVector) == 0 {
		return nil, fmt.Errorf("inmemory: query vector cannot be empty")
	}
	if topK <= 0 {
		topK = 10
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	matches := make([]vector.Match, 0, len(s.entries))
	for _, e := range s.entries {
		if len(e.values) != len(queryVector) {
			continue
		}
		if len(filters) > 0 && !vector.MatchesFilters(e.metadata, filters) {
			continue
		}
		matches = append(matches, vector.Match{
			ID:         e.chunkID,
			DocumentID: e.documentID,
			ChunkIndex: e.chunkIndex,
			Score:      vector.CosineSimilarity(queryVector, e.values),
			Metadata:   e.metadata,
			Text:       e.text,
		})
	}

	sort.Slice(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	if len(matches) > topK {
		matches = matches[:topK]
	}
	return matches, nil
}

// Count returns the number of indexed chunks.
func (s *Store) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries), nil
}

var _ vector.Store = (*Store)(nil)
