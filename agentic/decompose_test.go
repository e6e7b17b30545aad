package agentic

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/sweetpotato0/ragline/completion"
	"github.com/sweetpotato0/ragline/message"
)

func TestHeuristicDecomposerShortQueryPassesThrough(t *testing.T) {
	d := NewHeuristicDecomposer(60)
	queries, err := d.Decompose(context.Background(), "What is Go?")
	if err != nil {
		t.Fatalf("Decompose failed: %v", err)
	}
	if len(queries) != 1 || queries[0] != "What is Go?" {
		t.Errorf("short query must pass through unchanged, got %v", queries)
	}
}

func TestHeuristicDecomposerSplitsCompoundQuery(t *testing.T) {
	d := NewHeuristicDecomposer(20)
	query := "What is the capital of France? What currency does France use?"
	queries, err := d.Decompose(context.Background(), query)
	if err != nil {
		t.Fatalf("Decompose failed: %v", err)
	}
	if len(queries) != 2 {
		t.Fatalf("expected 2 sub-queries, got %v", queries)
	}
	for _, q := range queries {
		if strings.TrimSpace(q) == "" {
			t.Error("sub-queries must be non-empty")
		}
	}
}

func TestHeuristicDecomposerCapsSubQueries(t *testing.T) {
	d := NewHeuristicDecomposer(10)
	query := "one thing and two thing and three thing and four thing and five thing and six thing and seven thing"
	queries, err := d.Decompose(context.Background(), query)
	if err != nil {
		t.Fatalf("Decompose failed: %v", err)
	}
	if len(queries) > MaxSubQueries {
		t.Errorf("expected at most %d sub-queries, got %d", MaxSubQueries, len(queries))
	}
}

func TestHeuristicDecomposerEmptyQuery(t *testing.T) {
	d := NewHeuristicDecomposer(60)
	if _, err := d.Decompose(context.Background(), "   "); err == nil {
		t.Error("expected error for an empty query")
	}
}

func TestLLMDecomposerParsesLines(t *testing.T) {
	model := completion.ModelFunc(func(ctx context.Context, msgs []*message.Message) (string, error) {
		return "1. capital of France\n- currency of France\n\n* population of France", nil
	})
	d := NewLLMDecomposer(model)

	queries, err := d.Decompose(context.Background(), "Tell me about France")
	if err != nil {
		t.Fatalf("Decompose failed: %v", err)
	}
	want := []string{"capital of France", "currency of France", "population of France"}
	if len(queries) != len(want) {
		t.Fatalf("got %v, want %v", queries, want)
	}
	for i := range want {
		if queries[i] != want[i] {
			t.Errorf("query %d = %q, want %q", i, queries[i], want[i])
		}
	}
}

func TestLLMDecomposerEmptyOutput(t *testing.T) {
	model := completion.ModelFunc(func(ctx context.Context, msgs []*message.Message) (string, error) {
		return "\n\n", nil
	})
	d := NewLLMDecomposer(model)
	if _, err := d.Decompose(context.Background(), "anything"); err == nil {
		t.Error("expected error when the model produces no sub-queries")
	}
}

func TestFallbackDecomposerUsesFallbackOnError(t *testing.T) {
	primary := NewLLMDecomposer(completion.ModelFunc(func(ctx context.Context, msgs []*message.Message) (string, error) {
		return "", errors.New("model unavailable")
	}))
	d := NewFallbackDecomposer(primary, NewHeuristicDecomposer(60))

	queries, err := d.Decompose(context.Background(), "What is Go?")
	if err != nil {
		t.Fatalf("fallback must absorb primary failure: %v", err)
	}
	if len(queries) != 1 || queries[0] != "What is Go?" {
		t.Errorf("expected the heuristic result, got %v", queries)
	}
}

func TestFallbackDecomposerPrefersPrimary(t *testing.T) {
	primary := completionDecomposer{queries: []string{"sub one", "sub two"}}
	d := NewFallbackDecomposer(primary, NewHeuristicDecomposer(60))

	queries, err := d.Decompose(context.Background(), "a compound question")
	if err != nil {
		t.Fatalf("Decompose failed: %v", err)
	}
	if len(queries) != 2 || queries[0] != "sub one" {
		t.Errorf("primary result expected, got %v", queries)
	}
}

type completionDecomposer struct {
	queries []string
}

func (d completionDecomposer) Decompose(ctx context.Context, query string) ([]string, error) {
	return d.queries, nil
}
