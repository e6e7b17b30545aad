package knowledge

import (
	"context"
	"fmt"
	"sync"

	"github.com/sweetpotato0/ragline/document"
	pkgerrors "github.com/sweetpotato0/ragline/pkg/errors"
)

// Repository is the knowledge base read/write contract the retrieval engine
// depends on. Persistence and versioning mechanics behind it are out of the
// engine's scope.
type Repository interface {
	SaveDocument(ctx context.Context, doc document.Document, chunks []document.Chunk) error
	DeleteDocument(ctx context.Context, documentID string) error
	Document(ctx context.Context, documentID string) (document.Document, error)
	Chunk(ctx context.Context, chunkID string) (document.Chunk, error)
	DocumentWithChunks(ctx context.Context, documentID string) (document.Document, []document.Chunk, error)
}

// MemoryRepository is a concurrency-safe in-process Repository.
type MemoryRepository struct {
	mu        sync.RWMutex
	documents map[string]document.Document
	chunks    map[string]document.Chunk
	byDoc     map[string][]string
}

// NewMemoryRepository creates an empty repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		documents: make(map[string]document.Document),
		chunks:    make(map[string]document.Chunk),
		byDoc:     make(map[string][]string),
	}
}

// SaveDocument stores the document and replaces its chunk set.
func (r *MemoryRepository) SaveDocument(ctx context.Context, doc document.Document, chunks []document.Chunk) error {
	if doc.ID == "" {
		return fmt.Errorf("knowledge: document id is required: %w", pkgerrors.ErrInvalidInput)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, chunkID := range r.byDoc[doc.ID] {
		delete(r.chunks, chunkID)
	}
	r.documents[doc.ID] = doc.Clone()
	ids := make([]string, 0, len(chunks))
	for _, chunk := range chunks {
		r.chunks[chunk.ID] = chunk.Clone()
		ids = append(ids, chunk.ID)
	}
	r.byDoc[doc.ID] = ids
	return nil
}

// DeleteDocument removes the document and its chunks.
func (r *MemoryRepository) DeleteDocument(ctx context.Context, documentID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, chunkID := range r.byDoc[documentID] {
		delete(r.chunks, chunkID)
	}
	delete(r.byDoc, documentID)
	delete(r.documents, documentID)
	return nil
}

// Document fetches a document by ID.
func (r *MemoryRepository) Document(ctx context.Context, documentID string) (document.Document, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	doc, ok := r.documents[documentID]
	if !ok {
		return document.Document{}, fmt.Errorf("knowledge: document %s: %w", documentID, pkgerrors.ErrNotFound)
	}
	return doc.Clone(), nil
}

// Chunk fetches a chunk by ID.
func (r *MemoryRepository) Chunk(ctx context.Context, chunkID string) (document.Chunk, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	chunk, ok := r.chunks[chunkID]
	if !ok {
		return document.Chunk{}, fmt.Errorf("knowledge: chunk %s: %w", chunkID, pkgerrors.ErrNotFound)
	}
	return chunk.Clone(), nil
}

// DocumentWithChunks fetches a document together with its chunk set ordered
// by chunk index.
func (r *MemoryRepository) DocumentWithChunks(ctx context.Context, documentID string) (document.Document, []document.Chunk, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	doc, ok := r.documents[documentID]
	if !ok {
		return document.Document{}, nil, fmt.Errorf("knowledge: document %s: %w", documentID, pkgerrors.ErrNotFound)
	}
	chunks := make([]document.Chunk, 0, len(r.byDoc[documentID]))
	for _, chunkID := range r.byDoc[documentID] {
		if chunk, ok := r.chunks[chunkID]; ok {
			chunks = append(chunks, chunk.Clone())
		}
	}
	return doc.Clone(), chunks, nil
}

var _ Repository = (*MemoryRepository)(nil)
