package knowledge

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/sweetpotato0/ragline/chunking"
	"github.com/sweetpotato0/ragline/document"
	"github.com/sweetpotato0/ragline/embedder"
	"github.com/sweetpotato0/ragline/lexical"
	"github.com/sweetpotato0/ragline/vector"
)

// capturingStore records upserts and deletes.
type capturingStore struct {
	upserted map[string][]document.Chunk
	deleted  []string
}

func newCapturingStore() *capturingStore {
	return &capturingStore{upserted: make(map[string][]document.Chunk)}
}

func (s *capturingStore) Upsert(ctx context.Context, doc document.Document, chunks []document.Chunk) error {
	s.upserted[doc.ID] = chunks
	return nil
}

func (s *capturingStore) Delete(ctx context.Context, documentID string) error {
	s.deleted = append(s.deleted, documentID)
	return nil
}

func (s *capturingStore) Query(ctx context.Context, queryVector []float32, topK int, filters map[string]string) ([]vector.Match, error) {
	return nil, nil
}

func lengthEmbedder() embedder.Service {
	return embedder.ServiceFunc(func(ctx context.Context, req embedder.Request) ([]embedder.Embedding, error) {
		out := make([]embedder.Embedding, len(req.Texts))
		for i, text := range req.Texts {
			out[i] = embedder.Embedding{Values: []float32{float32(len(text))}, Version: req.Version}
		}
		return out, nil
	})
}

func TestIndexerIngest(t *testing.T) {
	repo := NewMemoryRepository()
	store := newCapturingStore()
	index := lexical.NewBM25Index()

	ix, err := NewIndexer(repo, store, index, lengthEmbedder(),
		WithEmbeddingModel("test", "test/v1"),
		WithStrategy(chunking.NewCharacterStrategy(chunking.WithChunkSize(40), chunking.WithOverlap(0))),
	)
	if err != nil {
		t.Fatalf("NewIndexer failed: %v", err)
	}

	doc := document.Document{ID: "doc-1", Title: "Guide", SourceType: document.SourceUser}
	text := strings.Repeat("searchable knowledge content here ", 5)
	if err := ix.Ingest(context.Background(), doc, text); err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}

	saved, chunks, err := repo.DocumentWithChunks(context.Background(), "doc-1")
	if err != nil {
		t.Fatalf("DocumentWithChunks failed: %v", err)
	}
	if saved.EmbeddingModelVersion != "test/v1" {
		t.Errorf("document embedding version = %q", saved.EmbeddingModelVersion)
	}
	if saved.ChunkingStrategyVersion != "character/v1" {
		t.Errorf("document chunking version = %q", saved.ChunkingStrategyVersion)
	}
	if len(chunks) == 0 {
		t.Fatal("expected chunks to be saved")
	}
	for _, chunk := range chunks {
		if len(chunk.Embedding) == 0 {
			t.Errorf("chunk %s has no embedding", chunk.ID)
		}
		if chunk.TokenCount == 0 {
			t.Errorf("chunk %s has no token count", chunk.ID)
		}
		if chunk.EmbeddingModelVersion != "test/v1" {
			t.Errorf("chunk %s embedding version = %q", chunk.ID, chunk.EmbeddingModelVersion)
		}
	}
	if len(store.upserted["doc-1"]) != len(chunks) {
		t.Error("vector store did not receive the chunk set")
	}

	hits, err := index.Search(context.Background(), "searchable knowledge", 5, nil)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(hits) == 0 {
		t.Error("keyword index did not receive the chunks")
	}
}

func TestIndexerIngestEmbedFailure(t *testing.T) {
	repo := NewMemoryRepository()
	failing := embedder.ServiceFunc(func(ctx context.Context, req embedder.Request) ([]embedder.Embedding, error) {
		return nil, errors.New("quota exceeded")
	})
	ix, err := NewIndexer(repo, newCapturingStore(), nil, failing)
	if err != nil {
		t.Fatalf("NewIndexer failed: %v", err)
	}

	doc := document.Document{ID: "doc-1"}
	if err := ix.Ingest(context.Background(), doc, "some content here."); err == nil {
		t.Fatal("expected embedding failure to propagate")
	}
	if _, err := repo.Document(context.Background(), "doc-1"); err == nil {
		t.Error("failed ingestion must not persist the document")
	}
}

func TestIndexerDelete(t *testing.T) {
	repo := NewMemoryRepository()
	store := newCapturingStore()
	index := lexical.NewBM25Index()
	ix, err := NewIndexer(repo, store, index, lengthEmbedder())
	if err != nil {
		t.Fatalf("NewIndexer failed: %v", err)
	}

	doc := document.Document{ID: "doc-1"}
	if err := ix.Ingest(context.Background(), doc, "content to be removed later."); err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}
	if err := ix.Delete(context.Background(), "doc-1"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	if _, err := repo.Document(context.Background(), "doc-1"); err == nil {
		t.Error("document should be gone from the repository")
	}
	if len(store.deleted) != 1 || store.deleted[0] != "doc-1" {
		t.Error("vector store delete not called")
	}
}

func TestMemoryRepositoryNotFound(t *testing.T) {
	repo := NewMemoryRepository()
	if _, err := repo.Document(context.Background(), "missing"); err == nil {
		t.Error("expected not-found error for missing document")
	}
	if _, err := repo.Chunk(context.Background(), "missing#0"); err == nil {
		t.Error("expected not-found error for missing chunk")
	}
}
