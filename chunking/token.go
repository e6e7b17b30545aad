package chunking

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/sweetpotato0/ragline/document"
)

var tokenSegRegex = regexp.MustCompile(`\p{L}[\p{L}\p{M}]*|\p{N}+|[^\s]`)

// TokenStrategy approximates token-aware chunking without depending on a
// provider-specific codec. It keeps whitespace intact while enforcing token
// windows and overlaps.
type TokenStrategy struct {
	maxTokens     int
	overlapTokens int
}

// TokenOption customises the token strategy.
type TokenOption func(*TokenStrategy)

// WithMaxTokens sets the maximum tokens per chunk.
func WithMaxTokens(tokens int) TokenOption {
	return func(s *TokenStrategy) {
		if tokens > 0 {
			s.maxTokens = tokens
		}
	}
}

// WithOverlapTokens sets how many tokens consecutive chunks share.
func WithOverlapTokens(tokens int) TokenOption {
	return func(s *TokenStrategy) {
		if tokens >= 0 {
			s.overlapTokens = tokens
		}
	}
}

// NewTokenStrategy constructs a token-window chunker with sane defaults.
func NewTokenStrategy(opts ...TokenOption) *TokenStrategy {
	s := &TokenStrategy{maxTokens: 256, overlapTokens: 32}
	for _, opt := range opts {
		opt(s)
	}
	if s.overlapTokens >= s.maxTokens {
		s.overlapTokens = s.maxTokens / 2
	}
	return s
}

// Name implements Strategy.
func (s *TokenStrategy) Name() string { return "token" }

// Version implements Strategy.
func (s *TokenStrategy) Version() string { return "token/v1" }

type tokenSegment struct {
	start  int
	end    int
	counts bool
}

// Chunk implements Strategy.
func (s *TokenStrategy) Chunk(ctx context.Context, documentID, text, embeddingModelVersion string) ([]document.Chunk, error) {
	if documentID == "" {
		return nil, fmt.Errorf("chunking: document id is required")
	}
	if text == "" {
		return nil, nil
	}

	segments, tokenSegments := buildTokenSegments(text)
	if len(tokenSegments) == 0 {
		return []document.Chunk{newChunk(documentID, 0, text, s.Version(), embeddingModelVersion)}, nil
	}

	var chunks []document.Chunk
	tokenStart := 0
	for tokenStart < len(tokenSegments) {
		tokenEnd := tokenStart + s.maxTokens
		if tokenEnd > len(tokenSegments) {
			tokenEnd = len(tokenSegments)
		}
		startSegment := tokenSegments[tokenStart]
		if startSegment > 0 && !segments[startSegment-1].counts {
			startSegment--
		}
		endSegment := tokenSegments[tokenEnd-1] + 1
		for endSegment < len(segments) && !segments[endSegment].counts {
			endSegment++
		}

		content := extractSegments(text, segments[startSegment:endSegment])
		chunks = append(chunks, newChunk(documentID, len(chunks), content, s.Version(), embeddingModelVersion))

		if tokenEnd == len(tokenSegments) {
			break
		}
		tokenStart = tokenEnd - s.overlapTokens
		if tokenStart < 0 {
			tokenStart = 0
		}
	}
	return chunks, nil
}

// buildTokenSegments splits text into alternating token and whitespace
// segments, returning the segment list and the indices of token segments.
func buildTokenSegments(text string) ([]tokenSegment, []int) {
	var segments []tokenSegment
	var tokenSegments []int
	matches := tokenSegRegex.FindAllStringIndex(text, -1)
	prevEnd := 0
	for _, loc := range matches {
		if loc[0] > prevEnd {
			segments = append(segments, tokenSegment{start: prevEnd, end: loc[0]})
		}
		segments = append(segments, tokenSegment{start: loc[0], end: loc[1], counts: true})
		tokenSegments = append(tokenSegments, len(segments)-1)
		prevEnd = loc[1]
	}
	if prevEnd < len(text) {
		segments = append(segments, tokenSegment{start: prevEnd, end: len(text)})
	}
	return segments, tokenSegments
}

func extractSegments(content string, segments []tokenSegment) string {
	var b strings.Builder
	for _, seg := range segments {
		b.WriteString(content[seg.start:seg.end])
	}
	return b.String()
}

var _ Strategy = (*TokenStrategy)(nil)
