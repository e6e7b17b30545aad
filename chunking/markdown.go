package chunking

import (
	"context"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"github.com/sweetpotato0/ragline/document"
)

// MarkdownStrategy splits markdown by heading hierarchy using a goldmark AST.
// Sections above the character ceiling are re-split with a fallback strategy;
// short neighboring sections are merged.
type MarkdownStrategy struct {
	maxHeadingLevel int
	maxChars        int
	minChars        int
	fallback        Strategy
	parser          goldmark.Markdown
}

// MarkdownOption customises the markdown strategy.
type MarkdownOption func(*MarkdownStrategy)

// WithMaxHeadingLevel caps which heading level starts a new section.
func WithMaxHeadingLevel(level int) MarkdownOption {
	return func(s *MarkdownStrategy) {
		if level > 0 {
			s.maxHeadingLevel = level
		}
	}
}

// WithMaxSectionChars re-splits sections above this size with the fallback.
func WithMaxSectionChars(chars int) MarkdownOption {
	return func(s *MarkdownStrategy) {
		if chars > 0 {
			s.maxChars = chars
		}
	}
}

// WithMinSectionChars merges adjoining sections until they reach this size.
func WithMinSectionChars(chars int) MarkdownOption {
	return func(s *MarkdownStrategy) {
		if chars >= 0 {
			s.minChars = chars
		}
	}
}

// WithMarkdownFallback swaps the strategy used for oversized sections.
func WithMarkdownFallback(fallback Strategy) MarkdownOption {
	return func(s *MarkdownStrategy) {
		if fallback != nil {
			s.fallback = fallback
		}
	}
}

// NewMarkdownStrategy constructs a markdown chunker with sane defaults.
func NewMarkdownStrategy(opts ...MarkdownOption) *MarkdownStrategy {
	s := &MarkdownStrategy{
		maxHeadingLevel: 3,
		maxChars:        1200,
		minChars:        240,
		parser:          goldmark.New(),
		fallback:        NewCharacterStrategy(WithChunkSize(800), WithOverlap(120)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name implements Strategy.
func (s *MarkdownStrategy) Name() string { return "markdown" }

// Version implements Strategy.
func (s *MarkdownStrategy) Version() string { return "markdown/v1" }

// Chunk implements Strategy.
func (s *MarkdownStrategy) Chunk(ctx context.Context, documentID, content, embeddingModelVersion string) ([]document.Chunk, error) {
	if documentID == "" {
		return nil, fmt.Errorf("chunking: document id is required")
	}

	sections := s.splitSections(content)
	if len(sections) == 0 {
		return nil, nil
	}

	chunks := make([]document.Chunk, 0, len(sections))
	for _, section := range sections {
		payload := strings.TrimSpace(section)
		if payload == "" {
			continue
		}
		if len(payload) <= s.maxChars {
			chunks = append(chunks, newChunk(documentID, len(chunks), payload, s.Version(), embeddingModelVersion))
			continue
		}
		splits, err := s.fallback.Chunk(ctx, documentID, payload, embeddingModelVersion)
		if err != nil {
			return nil, err
		}
		for _, split := range splits {
			split.ChunkingStrategyVersion = s.Version()
			chunks = append(chunks, split)
		}
	}

	for i := range chunks {
		chunks[i].ChunkingStrategyVersion = s.Version()
	}
	return reindex(documentID, chunks), nil
}

// splitSections cuts the source at headings up to the configured level.
func (s *MarkdownStrategy) splitSections(content string) []string {
	source := []byte(content)
	root := s.parser.Parser().Parse(text.NewReader(source))

	var offsets []int
	_ = ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		heading, ok := n.(*ast.Heading)
		if !ok {
			return ast.WalkContinue, nil
		}
		if heading.Level > s.maxHeadingLevel {
			return ast.WalkContinue, nil
		}
		lines := heading.Lines()
		if lines == nil || lines.Len() == 0 {
			return ast.WalkContinue, nil
		}
		// The heading line starts after the leading # markers; back up to the
		// line start so the markers stay in the section text.
		start := lines.At(0).Start
		for start > 0 && source[start-1] != '\n' {
			start--
		}
		offsets = append(offsets, start)
		return ast.WalkSkipChildren, nil
	})

	if len(offsets) == 0 {
		if trimmed := strings.TrimSpace(content); trimmed != "" {
			return []string{trimmed}
		}
		return nil
	}

	var sections []string
	if intro := strings.TrimSpace(string(source[:offsets[0]])); intro != "" {
		sections = append(sections, intro)
	}
	for i, start := range offsets {
		end := len(source)
		if i+1 < len(offsets) {
			end = offsets[i+1]
		}
		if raw := strings.TrimSpace(string(source[start:end])); raw != "" {
			sections = append(sections, raw)
		}
	}
	return s.mergeShortSections(sections)
}

func (s *MarkdownStrategy) mergeShortSections(sections []string) []string {
	if s.minChars <= 0 || len(sections) == 0 {
		return sections
	}
	merged := make([]string, 0, len(sections))
	var buffer string
	for i, section := range sections {
		current := section
		if buffer != "" {
			current = buffer + "\n\n" + section
			buffer = ""
		}
		if len(current) < s.minChars && i < len(sections)-1 {
			buffer = current
			continue
		}
		merged = append(merged, current)
	}
	if buffer != "" {
		merged = append(merged, buffer)
	}
	return merged
}

var _ Strategy = (*MarkdownStrategy)(nil)
