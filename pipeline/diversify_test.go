package pipeline

import (
	"testing"

	"github.com/sweetpotato0/ragline/document"
)

func embeddedResult(id string, embedding []float32, score float32) Result {
	return Result{
		Document: document.Document{ID: id},
		Chunk:    document.Chunk{ID: id + "#0", DocumentID: id, Embedding: embedding},
		Score:    score,
	}
}

func TestDiversifyPenalizesNearDuplicates(t *testing.T) {
	query := []float32{1, 0, 0}
	results := []Result{
		embeddedResult("doc-a", []float32{1, 0, 0}, 0.9),
		// Near-duplicate of doc-a, slightly less relevant.
		embeddedResult("doc-b", []float32{0.99, 0.1, 0}, 0.85),
		// Less relevant but orthogonal to the first pick.
		embeddedResult("doc-c", []float32{0, 1, 0}, 0.4),
	}

	diversified := Diversify(query, results, 0.3, 0)
	if len(diversified) != 3 {
		t.Fatalf("expected all results back, got %d", len(diversified))
	}
	if diversified[0].Document.ID != "doc-a" {
		t.Errorf("most relevant chunk should be picked first, got %s", diversified[0].Document.ID)
	}
	if diversified[1].Document.ID != "doc-c" {
		t.Errorf("orthogonal chunk should beat the near-duplicate, got %s", diversified[1].Document.ID)
	}
}

func TestDiversifyPureRelevanceKeepsOrder(t *testing.T) {
	query := []float32{1, 0, 0}
	results := []Result{
		embeddedResult("doc-a", []float32{1, 0, 0}, 0.9),
		embeddedResult("doc-b", []float32{0.99, 0.1, 0}, 0.85),
		embeddedResult("doc-c", []float32{0, 1, 0}, 0.4),
	}

	diversified := Diversify(query, results, 1, 0)
	want := []string{"doc-a", "doc-b", "doc-c"}
	for i, id := range want {
		if diversified[i].Document.ID != id {
			t.Errorf("position %d: got %s, want %s", i, diversified[i].Document.ID, id)
		}
	}
}

func TestDiversifyLimit(t *testing.T) {
	query := []float32{1, 0}
	results := []Result{
		embeddedResult("doc-a", []float32{1, 0}, 0.9),
		embeddedResult("doc-b", []float32{0, 1}, 0.8),
		embeddedResult("doc-c", []float32{1, 1}, 0.7),
	}

	diversified := Diversify(query, results, 0.7, 2)
	if len(diversified) != 2 {
		t.Fatalf("expected the limit to cap output at 2, got %d", len(diversified))
	}
}

func TestDiversifyFallsBackToFinalScore(t *testing.T) {
	// No embeddings at all: relevance is the pipeline score and no diversity
	// penalty applies, so ordering follows the scores.
	results := []Result{
		embeddedResult("doc-low", nil, 0.2),
		embeddedResult("doc-high", nil, 0.9),
	}

	diversified := Diversify(nil, results, 0.5, 0)
	if diversified[0].Document.ID != "doc-high" {
		t.Errorf("highest score should come first without embeddings, got %s", diversified[0].Document.ID)
	}
}

func TestDiversifyEmpty(t *testing.T) {
	if got := Diversify([]float32{1}, nil, 0.5, 3); len(got) != 0 {
		t.Fatalf("expected no results, got %d", len(got))
	}
}
