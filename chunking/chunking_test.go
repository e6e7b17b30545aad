package chunking

import (
	"context"
	"fmt"
	"strings"
	"testing"
)

func TestCharacterStrategyWindows(t *testing.T) {
	strategy := NewCharacterStrategy(WithChunkSize(10), WithOverlap(0))
	text := strings.Repeat("a", 25)

	chunks, err := strategy.Chunk(context.Background(), "doc-1", text, "emb/v1")
	if err != nil {
		t.Fatalf("Chunk failed: %v", err)
	}
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}

	var rebuilt strings.Builder
	for i, chunk := range chunks {
		if chunk.ChunkIndex != i {
			t.Errorf("chunk %d has index %d", i, chunk.ChunkIndex)
		}
		if chunk.ID != fmt.Sprintf("doc-1#%d", i) {
			t.Errorf("chunk %d has id %q", i, chunk.ID)
		}
		if chunk.EmbeddingModelVersion != "emb/v1" {
			t.Errorf("chunk %d missing embedding version", i)
		}
		rebuilt.WriteString(chunk.Content)
	}
	if rebuilt.String() != text {
		t.Errorf("zero-overlap chunks do not reconstruct the input")
	}
}

func TestCharacterStrategyOverlap(t *testing.T) {
	strategy := NewCharacterStrategy(WithChunkSize(10), WithOverlap(4))
	text := strings.Repeat("x", 30)

	chunks, err := strategy.Chunk(context.Background(), "doc-1", text, "emb/v1")
	if err != nil {
		t.Fatalf("Chunk failed: %v", err)
	}
	for i := 1; i < len(chunks); i++ {
		prev := chunks[i-1].Content
		tail := prev[len(prev)-4:]
		if !strings.HasPrefix(chunks[i].Content, tail) {
			t.Errorf("chunk %d does not overlap its predecessor", i)
		}
	}
}

func TestCharacterStrategyClampsOverlap(t *testing.T) {
	// Overlap larger than half the window must not stall the sweep.
	strategy := NewCharacterStrategy(WithChunkSize(10), WithOverlap(10))
	text := strings.Repeat("y", 40)

	chunks, err := strategy.Chunk(context.Background(), "doc-1", text, "emb/v1")
	if err != nil {
		t.Fatalf("Chunk failed: %v", err)
	}
	if len(chunks) == 0 || len(chunks) > 8 {
		t.Fatalf("unexpected chunk count %d", len(chunks))
	}
}

func TestCharacterStrategyEmptyInput(t *testing.T) {
	strategy := NewCharacterStrategy()
	chunks, err := strategy.Chunk(context.Background(), "doc-1", "", "emb/v1")
	if err != nil {
		t.Fatalf("Chunk failed: %v", err)
	}
	if len(chunks) != 0 {
		t.Errorf("expected no chunks for empty text, got %d", len(chunks))
	}

	if _, err := strategy.Chunk(context.Background(), "", "text", "emb/v1"); err == nil {
		t.Error("expected error for missing document id")
	}
}

func TestSentenceStrategyRespectsBudget(t *testing.T) {
	strategy := NewSentenceStrategy(WithMaxChars(60), WithMinChars(0))
	text := "First sentence here. Second sentence here. Third sentence is a little longer. Fourth one."

	chunks, err := strategy.Chunk(context.Background(), "doc-1", text, "emb/v1")
	if err != nil {
		t.Fatalf("Chunk failed: %v", err)
	}
	if len(chunks) < 2 {
		t.Fatalf("expected the budget to force multiple chunks, got %d", len(chunks))
	}
	for i, chunk := range chunks {
		if len(chunk.Content) > 60 && !strings.Contains(chunk.Content, ". ") {
			continue // single oversized sentence is allowed
		}
		if chunk.ChunkIndex != i {
			t.Errorf("chunk %d has index %d", i, chunk.ChunkIndex)
		}
	}
}

func TestSentenceStrategyMergesShortChunks(t *testing.T) {
	strategy := NewSentenceStrategy(WithMaxChars(40), WithMinChars(20))
	text := "A fairly long opening sentence goes here. Tiny. Another fairly long sentence follows it."

	chunks, err := strategy.Chunk(context.Background(), "doc-1", text, "emb/v1")
	if err != nil {
		t.Fatalf("Chunk failed: %v", err)
	}
	for i, chunk := range chunks {
		if len(chunk.Content) < 20 {
			t.Errorf("chunk %d is below the minimum size: %q", i, chunk.Content)
		}
	}
}

func TestRecursiveStrategySplitsOversizedChunks(t *testing.T) {
	// One huge sentence with no terminal punctuation inside it.
	text := strings.Repeat("word ", 400) + "end."
	strategy := NewRecursiveStrategy(WithCeiling(500))

	chunks, err := strategy.Chunk(context.Background(), "doc-1", text, "emb/v1")
	if err != nil {
		t.Fatalf("Chunk failed: %v", err)
	}
	if len(chunks) < 2 {
		t.Fatalf("expected recursive split, got %d chunks", len(chunks))
	}
	for i, chunk := range chunks {
		if chunk.ChunkIndex != i {
			t.Errorf("chunk %d has index %d, want contiguous sequence", i, chunk.ChunkIndex)
		}
		if chunk.ID != fmt.Sprintf("doc-1#%d", i) {
			t.Errorf("chunk %d id %q does not match its index", i, chunk.ID)
		}
		if chunk.ChunkingStrategyVersion != "recursive/v1" {
			t.Errorf("chunk %d carries strategy version %q", i, chunk.ChunkingStrategyVersion)
		}
	}
}

func TestChunkAll(t *testing.T) {
	strategy := NewCharacterStrategy(WithChunkSize(10), WithOverlap(0))
	inputs := []Input{
		{DocumentID: "doc-a", Text: strings.Repeat("a", 25), EmbeddingModelVersion: "emb/v1"},
		{DocumentID: "doc-b", Text: "", EmbeddingModelVersion: "emb/v1"},
		{DocumentID: "doc-c", Text: strings.Repeat("c", 5), EmbeddingModelVersion: "emb/v1"},
	}

	results, err := ChunkAll(context.Background(), strategy, inputs, 2)
	if err != nil {
		t.Fatalf("ChunkAll failed: %v", err)
	}
	if len(results) != len(inputs) {
		t.Fatalf("expected %d results, got %d", len(inputs), len(results))
	}
	if len(results[0]) != 3 {
		t.Errorf("doc-a: expected 3 chunks, got %d", len(results[0]))
	}
	if len(results[1]) != 0 {
		t.Errorf("doc-b: expected no chunks, got %d", len(results[1]))
	}
	if len(results[2]) != 1 {
		t.Errorf("doc-c: expected 1 chunk, got %d", len(results[2]))
	}
	for i, result := range results {
		for _, chunk := range result {
			if chunk.DocumentID != inputs[i].DocumentID {
				t.Errorf("result %d contains chunk for %q", i, chunk.DocumentID)
			}
		}
	}
}

func TestSplitSentences(t *testing.T) {
	sentences := splitSentences("One. Two! Three? 四。Trailing")
	want := []string{"One.", "Two!", "Three?", "四。", "Trailing"}
	if len(sentences) != len(want) {
		t.Fatalf("expected %d sentences, got %d: %v", len(want), len(sentences), sentences)
	}
	for i := range want {
		if sentences[i] != want[i] {
			t.Errorf("sentence %d = %q, want %q", i, sentences[i], want[i])
		}
	}
}
