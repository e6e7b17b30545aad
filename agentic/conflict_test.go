package agentic

import (
	"context"
	"errors"
	"testing"

	"github.com/sweetpotato0/ragline/completion"
	"github.com/sweetpotato0/ragline/document"
	"github.com/sweetpotato0/ragline/message"
	"github.com/sweetpotato0/ragline/pipeline"
)

func validated(id, content string, quality float32) ValidatedChunk {
	return ValidatedChunk{
		Result: pipeline.Result{
			Chunk: document.Chunk{ID: id, DocumentID: "doc", Content: content},
			Score: 0.8,
		},
		QualityScore: quality,
	}
}

func TestHeuristicResolverNegationConflict(t *testing.T) {
	r := NewHeuristicResolver()
	chunks := []ValidatedChunk{
		validated("a", "the service does support batch mode", 0.9),
		validated("b", "the service does not support batch mode", 0.5),
		validated("c", "completely unrelated text about other matters", 0.9),
	}

	res, err := r.Resolve(context.Background(), chunks)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if len(res.Conflicts) != 1 {
		t.Fatalf("expected 1 conflict, got %d", len(res.Conflicts))
	}
	if res.Conflicts[0].DetectionMethod != DetectionHeuristic {
		t.Errorf("unexpected detection method %q", res.Conflicts[0].DetectionMethod)
	}
	// The higher-quality side survives.
	ids := make(map[string]bool)
	for _, chunk := range res.Resolved {
		ids[chunk.Result.Chunk.ID] = true
	}
	if !ids["a"] || ids["b"] || !ids["c"] {
		t.Errorf("expected a and c to survive, got %v", ids)
	}
}

func TestHeuristicResolverNumberConflict(t *testing.T) {
	r := NewHeuristicResolver()
	chunks := []ValidatedChunk{
		validated("a", "the api limit is 100 requests per minute", 0.5),
		validated("b", "the api limit is 500 requests per minute", 0.9),
	}

	res, err := r.Resolve(context.Background(), chunks)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if len(res.Conflicts) != 1 {
		t.Fatalf("expected 1 conflict, got %d", len(res.Conflicts))
	}
	if len(res.Resolved) != 1 || res.Resolved[0].Result.Chunk.ID != "b" {
		t.Errorf("higher-quality chunk b should win, got %v", res.Resolved)
	}
}

func TestHeuristicResolverNoConflict(t *testing.T) {
	r := NewHeuristicResolver()
	chunks := []ValidatedChunk{
		validated("a", "Paris is the capital of France", 0.9),
		validated("b", "Berlin is the capital of Germany with many museums", 0.9),
	}

	res, err := r.Resolve(context.Background(), chunks)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if len(res.Conflicts) != 0 {
		t.Errorf("unrelated statements flagged as conflicting: %v", res.Conflicts)
	}
	if len(res.Resolved) != 2 {
		t.Errorf("expected both chunks to survive, got %d", len(res.Resolved))
	}
}

func TestSemanticResolverScoresConflicts(t *testing.T) {
	model := completion.ModelFunc(func(ctx context.Context, msgs []*message.Message) (string, error) {
		return "0.85", nil
	})
	r := NewSemanticResolver(NewHeuristicResolver(), model)
	chunks := []ValidatedChunk{
		validated("a", "the feature is not available in this region", 0.9),
		validated("b", "the feature is available in this region", 0.5),
	}

	res, err := r.Resolve(context.Background(), chunks)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if len(res.Conflicts) != 1 {
		t.Fatalf("expected 1 conflict, got %d", len(res.Conflicts))
	}
	conflict := res.Conflicts[0]
	if conflict.DetectionMethod != DetectionSemantic {
		t.Errorf("expected semantic detection, got %q", conflict.DetectionMethod)
	}
	if conflict.SemanticScore == nil || *conflict.SemanticScore != 0.85 {
		t.Errorf("expected semantic score 0.85, got %v", conflict.SemanticScore)
	}
}

func TestSemanticResolverModelFailureKeepsHeuristicVerdict(t *testing.T) {
	model := completion.ModelFunc(func(ctx context.Context, msgs []*message.Message) (string, error) {
		return "", errors.New("model unavailable")
	})
	r := NewSemanticResolver(NewHeuristicResolver(), model)
	chunks := []ValidatedChunk{
		validated("a", "the cache does expire entries automatically", 0.9),
		validated("b", "the cache does not expire entries automatically", 0.5),
	}

	res, err := r.Resolve(context.Background(), chunks)
	if err != nil {
		t.Fatalf("model failure must not fail resolution: %v", err)
	}
	if len(res.Conflicts) != 1 {
		t.Fatalf("expected the heuristic conflict to remain, got %d", len(res.Conflicts))
	}
	if res.Conflicts[0].DetectionMethod != DetectionHeuristic {
		t.Errorf("failed semantic check must keep the heuristic verdict, got %q", res.Conflicts[0].DetectionMethod)
	}
	if res.Conflicts[0].SemanticScore != nil {
		t.Error("no semantic score should be recorded on failure")
	}
}
