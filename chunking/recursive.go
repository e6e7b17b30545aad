package chunking

import (
	"context"

	"github.com/sweetpotato0/ragline/document"
)

// RecursiveStrategy runs the sentence strategy first and re-splits any chunk
// still above a hard character ceiling with the character strategy. The
// resulting chunk indices form a single contiguous sequence across both
// passes.
type RecursiveStrategy struct {
	sentence *SentenceStrategy
	fallback *CharacterStrategy
	ceiling  int
}

// RecursiveOption customises the recursive strategy.
type RecursiveOption func(*RecursiveStrategy)

// WithCeiling sets the hard per-chunk character ceiling that triggers the
// character fallback.
func WithCeiling(ceiling int) RecursiveOption {
	return func(s *RecursiveStrategy) {
		if ceiling > 0 {
			s.ceiling = ceiling
		}
	}
}

// WithSentenceStrategy overrides the first-pass sentence chunker.
func WithSentenceStrategy(sentence *SentenceStrategy) RecursiveOption {
	return func(s *RecursiveStrategy) {
		if sentence != nil {
			s.sentence = sentence
		}
	}
}

// WithCharacterFallback overrides the fallback character chunker.
func WithCharacterFallback(fallback *CharacterStrategy) RecursiveOption {
	return func(s *RecursiveStrategy) {
		if fallback != nil {
			s.fallback = fallback
		}
	}
}

// NewRecursiveStrategy constructs a recursive chunker with sane defaults.
func NewRecursiveStrategy(opts ...RecursiveOption) *RecursiveStrategy {
	s := &RecursiveStrategy{
		sentence: NewSentenceStrategy(),
		fallback: NewCharacterStrategy(WithChunkSize(400), WithOverlap(0)),
		ceiling:  1200,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name implements Strategy.
func (s *RecursiveStrategy) Name() string { return "recursive" }

// Version implements Strategy.
func (s *RecursiveStrategy) Version() string { return "recursive/v1" }

// Chunk implements Strategy.
func (s *RecursiveStrategy) Chunk(ctx context.Context, documentID, text, embeddingModelVersion string) ([]document.Chunk, error) {
	first, err := s.sentence.Chunk(ctx, documentID, text, embeddingModelVersion)
	if err != nil {
		return nil, err
	}

	out := make([]document.Chunk, 0, len(first))
	for _, chunk := range first {
		if len(chunk.Content) <= s.ceiling {
			out = append(out, chunk)
			continue
		}
		split, err := s.fallback.Chunk(ctx, documentID, chunk.Content, embeddingModelVersion)
		if err != nil {
			return nil, err
		}
		for _, sub := range split {
			sub.ChunkingStrategyVersion = s.Version()
			out = append(out, sub)
		}
	}

	for i := range out {
		out[i].ChunkingStrategyVersion = s.Version()
	}
	return reindex(documentID, out), nil
}

var _ Strategy = (*RecursiveStrategy)(nil)
