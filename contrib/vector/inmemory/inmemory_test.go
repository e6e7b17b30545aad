package inmemory

import (
	"context"
	"testing"

	"github.com/sweetpotato0/ragline/document"
)

func chunkWithEmbedding(docID string, index int, emb []float32) document.Chunk {
	return document.Chunk{
		ID:         document.ChunkID(docID, index),
		DocumentID: docID,
		ChunkIndex: index,
		Content:    "content",
		Embedding:  emb,
	}
}

func TestUpsertAndQuery(t *testing.T) {
	store := New()
	ctx := context.Background()

	doc := document.Document{ID: "doc-1", Metadata: map[string]string{"topic": "go"}}
	chunks := []document.Chunk{
		chunkWithEmbedding("doc-1", 0, []float32{1, 0}),
		chunkWithEmbedding("doc-1", 1, []float32{0, 1}),
	}
	if err := store.Upsert(ctx, doc, chunks); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	matches, err := store.Query(ctx, []float32{1, 0}, 10, nil)
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(matches) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(matches))
	}
	if matches[0].ID != "doc-1#0" {
		t.Errorf("nearest chunk should rank first, got %s", matches[0].ID)
	}
	if matches[0].Score <= matches[1].Score {
		t.Error("matches are not sorted by similarity")
	}
}

func TestUpsertReplaces(t *testing.T) {
	store := New()
	ctx := context.Background()
	doc := document.Document{ID: "doc-1"}

	if err := store.Upsert(ctx, doc, []document.Chunk{
		chunkWithEmbedding("doc-1", 0, []float32{1, 0}),
		chunkWithEmbedding("doc-1", 1, []float32{0, 1}),
	}); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}
	if err := store.Upsert(ctx, doc, []document.Chunk{
		chunkWithEmbedding("doc-1", 0, []float32{1, 1}),
	}); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	count, err := store.Count(ctx)
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count != 1 {
		t.Errorf("re-upsert must replace previous entries, count = %d", count)
	}
}

func TestUpsertValidation(t *testing.T) {
	store := New()
	ctx := context.Background()
	doc := document.Document{ID: "doc-1"}

	noID := document.Chunk{DocumentID: "doc-1", Embedding: []float32{1}}
	if err := store.Upsert(ctx, doc, []document.Chunk{noID}); err == nil {
		t.Error("expected error for a chunk without ID")
	}
	noEmb := document.Chunk{ID: "doc-1#0", DocumentID: "doc-1"}
	if err := store.Upsert(ctx, doc, []document.Chunk{noEmb}); err == nil {
		t.Error("expected error for a chunk without embedding")
	}
}

func TestQueryFilters(t *testing.T) {
	store := New()
	ctx := context.Background()

	if err := store.Upsert(ctx, document.Document{ID: "doc-go", Metadata: map[string]string{"topic": "go"}},
		[]document.Chunk{chunkWithEmbedding("doc-go", 0, []float32{1, 0})}); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}
	if err := store.Upsert(ctx, document.Document{ID: "doc-py", Metadata: map[string]string{"topic": "python"}},
		[]document.Chunk{chunkWithEmbedding("doc-py", 0, []float32{1, 0})}); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	matches, err := store.Query(ctx, []float32{1, 0}, 10, map[string]string{"topic": "go"})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(matches) != 1 || matches[0].DocumentID != "doc-go" {
		t.Errorf("filter should keep only doc-go, got %v", matches)
	}
}

func TestQuerySkipsDimensionMismatch(t *testing.T) {
	store := New()
	ctx := context.Background()
	if err := store.Upsert(ctx, document.Document{ID: "doc-1"},
		[]document.Chunk{chunkWithEmbedding("doc-1", 0, []float32{1, 0, 0})}); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	matches, err := store.Query(ctx, []float32{1, 0}, 10, nil)
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(matches) != 0 {
		t.Error("entries with a different dimensionality must be skipped")
	}
}

func TestDelete(t *testing.T) {
	store := New()
	ctx := context.Background()
	if err := store.Upsert(ctx, document.Document{ID: "doc-1"},
		[]document.Chunk{chunkWithEmbedding("doc-1", 0, []float32{1, 0})}); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}
	if err := store.Delete(ctx, "doc-1"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	count, err := store.Count(ctx)
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count != 0 {
		t.Errorf("expected empty store after delete, count = %d", count)
	}
}
