package chunking

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sweetpotato0/ragline/document"
)

// Strategy splits raw document text into retrievable chunks. Each strategy is
// tagged with a name and version; the version is recorded on every chunk so
// re-chunking migrations can tell stale chunks apart.
type Strategy interface {
	Name() string
	Version() string
	Chunk(ctx context.Context, documentID, text, embeddingModelVersion string) ([]document.Chunk, error)
}

// CharacterStrategy emits fixed-size windows with a configurable overlap.
type CharacterStrategy struct {
	size    int
	overlap int
}

// CharacterOption customises the character strategy.
type CharacterOption func(*CharacterStrategy)

// WithChunkSize overrides the window size in characters.
func WithChunkSize(size int) CharacterOption {
	return func(s *CharacterStrategy) {
		if size > 0 {
			s.size = size
		}
	}
}

// WithOverlap configures how many characters consecutive windows share.
func WithOverlap(overlap int) CharacterOption {
	return func(s *CharacterStrategy) {
		if overlap >= 0 {
			s.overlap = overlap
		}
	}
}

// NewCharacterStrategy constructs a character chunker with sane defaults.
func NewCharacterStrategy(opts ...CharacterOption) *CharacterStrategy {
	s := &CharacterStrategy{size: 800, overlap: 120}
	for _, opt := range opts {
		opt(s)
	}
	// Overlap beyond half the window would stall the sweep.
	if s.overlap > s.size/2 {
		s.overlap = s.size / 2
	}
	return s
}

// Name implements Strategy.
func (s *CharacterStrategy) Name() string { return "character" }

// Version implements Strategy.
func (s *CharacterStrategy) Version() string { return "character/v1" }

// Chunk implements Strategy.
func (s *CharacterStrategy) Chunk(ctx context.Context, documentID, text, embeddingModelVersion string) ([]document.Chunk, error) {
	if documentID == "" {
		return nil, fmt.Errorf("chunking: document id is required")
	}
	if text == "" {
		return nil, nil
	}

	stride := s.size - s.overlap
	if stride < 1 {
		stride = 1
	}

	runes := []rune(text)
	chunks := make([]document.Chunk, 0, len(runes)/stride+1)
	for start := 0; start < len(runes); start += stride {
		end := start + s.size
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, newChunk(documentID, len(chunks), string(runes[start:end]), s.Version(), embeddingModelVersion))
		if end == len(runes) {
			break
		}
	}
	return chunks, nil
}

func newChunk(documentID string, index int, content, strategyVersion, embeddingModelVersion string) document.Chunk {
	now := time.Now()
	return document.Chunk{
		ID:                      document.ChunkID(documentID, index),
		DocumentID:              documentID,
		Content:                 content,
		ChunkIndex:              index,
		ChunkingStrategyVersion: strategyVersion,
		EmbeddingModelVersion:   embeddingModelVersion,
		CreatedAt:               now,
		UpdatedAt:               now,
	}
}

func reindex(documentID string, chunks []document.Chunk) []document.Chunk {
	for i := range chunks {
		chunks[i].ChunkIndex = i
		chunks[i].ID = document.ChunkID(documentID, i)
	}
	return chunks
}

var _ Strategy = (*CharacterStrategy)(nil)

// splitSentences breaks text on sentence-ending punctuation, keeping the
// punctuation attached to the preceding sentence.
func splitSentences(text string) []string {
	var sentences []string
	var buf strings.Builder
	for _, r := range text {
		buf.WriteRune(r)
		switch r {
		case '.', '!', '?', '。', '！', '？':
			if s := strings.TrimSpace(buf.String()); s != "" {
				sentences = append(sentences, s)
			}
			buf.Reset()
		}
	}
	if s := strings.TrimSpace(buf.String()); s != "" {
		sentences = append(sentences, s)
	}
	return sentences
}
