package chunking

import (
	"context"
	"fmt"
	"strings"

	"github.com/sweetpotato0/ragline/document"
)

// SentenceStrategy accumulates whole sentences into chunks bounded by a
// character budget. A post-pass merges degenerate short chunks into their
// neighbor so no chunk ends up too small to be a useful retrieval unit.
type SentenceStrategy struct {
	maxChars int
	minChars int
}

// SentenceOption customises the sentence strategy.
type SentenceOption func(*SentenceStrategy)

// WithMaxChars caps the chunk size in characters. A single sentence longer
// than the cap still becomes its own chunk.
func WithMaxChars(max int) SentenceOption {
	return func(s *SentenceStrategy) {
		if max > 0 {
			s.maxChars = max
		}
	}
}

// WithMinChars merges chunks shorter than min into their neighbor.
func WithMinChars(min int) SentenceOption {
	return func(s *SentenceStrategy) {
		if min >= 0 {
			s.minChars = min
		}
	}
}

// NewSentenceStrategy constructs a sentence chunker with sane defaults.
func NewSentenceStrategy(opts ...SentenceOption) *SentenceStrategy {
	s := &SentenceStrategy{maxChars: 800, minChars: 100}
	for _, opt := range opts {
		opt(s)
	}
	if s.minChars > s.maxChars {
		s.minChars = s.maxChars / 2
	}
	return s
}

// Name implements Strategy.
func (s *SentenceStrategy) Name() string { return "sentence" }

// Version implements Strategy.
func (s *SentenceStrategy) Version() string { return "sentence/v1" }

// Chunk implements Strategy.
func (s *SentenceStrategy) Chunk(ctx context.Context, documentID, text, embeddingModelVersion string) ([]document.Chunk, error) {
	if documentID == "" {
		return nil, fmt.Errorf("chunking: document id is required")
	}
	sentences := splitSentences(text)
	if len(sentences) == 0 {
		return nil, nil
	}

	pieces := make([]string, 0, len(sentences))
	var buf strings.Builder
	for _, sentence := range sentences {
		if buf.Len() > 0 && buf.Len()+1+len(sentence) > s.maxChars {
			pieces = append(pieces, buf.String())
			buf.Reset()
		}
		if buf.Len() > 0 {
			buf.WriteByte(' ')
		}
		buf.WriteString(sentence)
	}
	if buf.Len() > 0 {
		pieces = append(pieces, buf.String())
	}

	pieces = s.mergeShort(pieces)

	chunks := make([]document.Chunk, 0, len(pieces))
	for _, piece := range pieces {
		chunks = append(chunks, newChunk(documentID, len(chunks), piece, s.Version(), embeddingModelVersion))
	}
	return chunks, nil
}

// mergeShort folds pieces under the minimum size into the previous piece, or
// the next one when they lead the document.
func (s *SentenceStrategy) mergeShort(pieces []string) []string {
	if s.minChars <= 0 || len(pieces) < 2 {
		return pieces
	}
	merged := make([]string, 0, len(pieces))
	for _, piece := range pieces {
		if len(merged) > 0 && len(piece) < s.minChars {
			merged[len(merged)-1] = merged[len(merged)-1] + " " + piece
			continue
		}
		merged = append(merged, piece)
	}
	if len(merged) > 1 && len(merged[0]) < s.minChars {
		merged[1] = merged[0] + " " + merged[1]
		merged = merged[1:]
	}
	return merged
}

var _ Strategy = (*SentenceStrategy)(nil)
