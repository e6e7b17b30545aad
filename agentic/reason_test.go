package agentic

import (
	"context"
	"sync"
	"testing"

	"github.com/sweetpotato0/ragline/document"
	"github.com/sweetpotato0/ragline/pipeline"
)

// recordingSearch returns canned results per query text and records calls.
type recordingSearch struct {
	mu      sync.Mutex
	results map[string][]pipeline.Result
	queries []string
}

func (s *recordingSearch) Search(ctx context.Context, q pipeline.Query) ([]pipeline.Result, error) {
	s.mu.Lock()
	s.queries = append(s.queries, q.Text)
	s.mu.Unlock()
	return s.results[q.Text], nil
}

func reasonResult(id string, score float32) pipeline.Result {
	return pipeline.Result{
		Chunk: document.Chunk{ID: id, DocumentID: "doc", Content: id},
		Score: score,
	}
}

func TestMergeByMaxScore(t *testing.T) {
	merged := MergeByMaxScore([]pipeline.Result{
		reasonResult("a", 0.3),
		reasonResult("b", 0.5),
		reasonResult("a", 0.8),
		reasonResult("c", 0.1),
	})
	if len(merged) != 3 {
		t.Fatalf("expected 3 unique chunks, got %d", len(merged))
	}
	if merged[0].Chunk.ID != "a" || merged[0].Score != 0.8 {
		t.Errorf("chunk a should keep its max score 0.8, got %s/%f", merged[0].Chunk.ID, merged[0].Score)
	}
	for i := 1; i < len(merged); i++ {
		if merged[i].Score > merged[i-1].Score {
			t.Errorf("merged results are not sorted at position %d", i)
		}
	}
}

func TestMergeByMaxScoreEmpty(t *testing.T) {
	if out := MergeByMaxScore(nil); len(out) != 0 {
		t.Errorf("merging nothing should be empty, got %v", out)
	}
}

func TestMultiStepReasonerRetrievesPerSubQuery(t *testing.T) {
	search := &recordingSearch{results: map[string][]pipeline.Result{
		"capital of France":  {reasonResult("doc#0", 0.9), reasonResult("doc#1", 0.4)},
		"currency of France": {reasonResult("doc#1", 0.7)},
	}}
	decomposer := completionDecomposer{queries: []string{"capital of France", "currency of France"}}
	r := NewMultiStepReasoner(decomposer, search, WithStepTopK(3))

	results, err := r.Retrieve(context.Background(), pipeline.Query{Text: "capital and currency of France"})
	if err != nil {
		t.Fatalf("Retrieve failed: %v", err)
	}
	if len(search.queries) != 2 {
		t.Errorf("expected 2 sub-query searches, got %d", len(search.queries))
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 merged chunks, got %d", len(results))
	}
	// doc#1 appears in both steps; the higher score wins.
	for _, res := range results {
		if res.Chunk.ID == "doc#1" && res.Score != 0.7 {
			t.Errorf("doc#1 should keep its max score 0.7, got %f", res.Score)
		}
	}
}

func TestMultiStepReasonerDecomposeFailure(t *testing.T) {
	r := NewMultiStepReasoner(NewHeuristicDecomposer(60), &recordingSearch{})
	if _, err := r.Retrieve(context.Background(), pipeline.Query{Text: ""}); err == nil {
		t.Error("expected decomposition error to propagate")
	}
}
