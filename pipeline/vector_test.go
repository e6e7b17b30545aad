package pipeline

import (
	"context"
	"testing"

	"github.com/sweetpotato0/ragline/document"
	"github.com/sweetpotato0/ragline/embedder"
	"github.com/sweetpotato0/ragline/knowledge"
	"github.com/sweetpotato0/ragline/vector"
)

// stubStore returns a fixed match list.
type stubStore struct {
	matches []vector.Match
}

func (s *stubStore) Upsert(ctx context.Context, doc document.Document, chunks []document.Chunk) error {
	return nil
}

func (s *stubStore) Delete(ctx context.Context, documentID string) error { return nil }

func (s *stubStore) Query(ctx context.Context, queryVector []float32, topK int, filters map[string]string) ([]vector.Match, error) {
	return s.matches, nil
}

func TestVectorPipelineResolvesMatches(t *testing.T) {
	repo := knowledge.NewMemoryRepository()
	doc := document.Document{ID: "doc-1", Title: "Doc"}
	chunk := document.Chunk{
		ID:                    document.ChunkID("doc-1", 0),
		DocumentID:            "doc-1",
		Content:               "hello",
		EmbeddingModelVersion: "v1",
	}
	if err := repo.SaveDocument(context.Background(), doc, []document.Chunk{chunk}); err != nil {
		t.Fatalf("SaveDocument failed: %v", err)
	}

	store := &stubStore{matches: []vector.Match{{ID: chunk.ID, DocumentID: "doc-1", Score: 0.8}}}
	p := NewVectorPipeline(store, repo, staticEmbedder([]float32{1, 0}, "v1"))

	results, err := p.Search(context.Background(), Query{Text: "hello", TopK: 5})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if results[0].Document.Title != "Doc" || results[0].Chunk.Content != "hello" {
		t.Error("match was not resolved to its document and chunk")
	}
	if results[0].Score != 0.8 {
		t.Errorf("score = %f, want 0.8", results[0].Score)
	}
}

func TestVectorPipelineSkipsStaleMatches(t *testing.T) {
	repo := knowledge.NewMemoryRepository()
	store := &stubStore{matches: []vector.Match{{ID: "gone#0", DocumentID: "gone", Score: 0.9}}}
	p := NewVectorPipeline(store, repo, staticEmbedder([]float32{1}, "v1"))

	results, err := p.Search(context.Background(), Query{Text: "q"})
	if err != nil {
		t.Fatalf("stale matches must be skipped, not fail: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("expected no results, got %d", len(results))
	}
}

func TestVectorPipelineSkipsVersionMismatch(t *testing.T) {
	repo := knowledge.NewMemoryRepository()
	doc := document.Document{ID: "doc-1"}
	chunk := document.Chunk{
		ID:                    document.ChunkID("doc-1", 0),
		DocumentID:            "doc-1",
		Content:               "old embedding space",
		EmbeddingModelVersion: "v0",
	}
	if err := repo.SaveDocument(context.Background(), doc, []document.Chunk{chunk}); err != nil {
		t.Fatalf("SaveDocument failed: %v", err)
	}

	store := &stubStore{matches: []vector.Match{{ID: chunk.ID, DocumentID: "doc-1", Score: 0.9}}}
	p := NewVectorPipeline(store, repo, staticEmbedder([]float32{1}, "v1"))

	results, err := p.Search(context.Background(), Query{Text: "q"})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(results) != 0 {
		t.Error("chunks embedded under another model version must be dropped")
	}
}

func TestVectorPipelineReusesProvidedEmbedding(t *testing.T) {
	repo := knowledge.NewMemoryRepository()
	store := &stubStore{}

	var embeds int
	svc := embedder.ServiceFunc(func(ctx context.Context, req embedder.Request) ([]embedder.Embedding, error) {
		embeds++
		return []embedder.Embedding{{Values: []float32{1}, Version: req.Version}}, nil
	})
	p := NewVectorPipeline(store, repo, NewEmbedder(svc, "m", "v1", false))

	q := Query{Text: "q", Embedding: &embedder.Embedding{Values: []float32{1}, Version: "v1"}}
	if _, err := p.Search(context.Background(), q); err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if embeds != 0 {
		t.Errorf("provided embedding must be reused, upstream called %d times", embeds)
	}
}
