package agentic

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sweetpotato0/ragline/completion"
	"github.com/sweetpotato0/ragline/message"
	"github.com/sweetpotato0/ragline/pkg/logging"
)

// MaxSubQueries caps how many sub-queries any decomposer may emit.
const MaxSubQueries = 5

// Decomposer breaks a complex query into independent sub-queries. A
// decomposer returning the query itself as the only element is a valid
// outcome for simple queries.
type Decomposer interface {
	Decompose(ctx context.Context, query string) ([]string, error)
}

// HeuristicDecomposer splits without any model call. Queries below the
// length threshold pass through unchanged; longer ones are split on question
// marks and coordinating conjunctions.
type HeuristicDecomposer struct {
	minLength int
}

// NewHeuristicDecomposer creates the rule-based decomposer. Queries shorter
// than minLength characters are never split.
func NewHeuristicDecomposer(minLength int) *HeuristicDecomposer {
	if minLength <= 0 {
		minLength = 60
	}
	return &HeuristicDecomposer{minLength: minLength}
}

// Decompose implements Decomposer.
func (d *HeuristicDecomposer) Decompose(ctx context.Context, query string) ([]string, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("agentic: query cannot be empty")
	}
	if len(query) < d.minLength {
		return []string{query}, nil
	}

	parts := splitQuery(query)
	if len(parts) <= 1 {
		return []string{query}, nil
	}
	if len(parts) > MaxSubQueries {
		parts = parts[:MaxSubQueries]
	}
	return parts, nil
}

func splitQuery(query string) []string {
	segments := []string{query}
	for _, sep := range []string{"?", ";", " and ", " as well as ", ", and "} {
		var next []string
		for _, segment := range segments {
			for _, piece := range strings.Split(segment, sep) {
				piece = strings.TrimSpace(piece)
				if piece != "" {
					next = append(next, piece)
				}
			}
		}
		segments = next
	}
	return segments
}

// LLMDecomposer asks a completion model to split the query, one sub-query
// per output line.
type LLMDecomposer struct {
	model  completion.Model
	prompt string
}

const decomposePrompt = `Break the user's question into at most %d independent search queries, one per line. Each query must be answerable on its own. Output only the queries, no numbering and no commentary.`

// NewLLMDecomposer creates the model-backed decomposer.
func NewLLMDecomposer(model completion.Model) *LLMDecomposer {
	return &LLMDecomposer{
		model:  model,
		prompt: fmt.Sprintf(decomposePrompt, MaxSubQueries),
	}
}

// Decompose implements Decomposer.
func (d *LLMDecomposer) Decompose(ctx context.Context, query string) ([]string, error) {
	if d.model == nil {
		return nil, fmt.Errorf("agentic: decomposer model is not configured")
	}
	out, err := d.model.Complete(ctx, []*message.Message{
		message.NewMessage(message.RoleSystem, d.prompt),
		message.NewMessage(message.RoleUser, query),
	})
	if err != nil {
		return nil, fmt.Errorf("decompose query: %w", err)
	}

	var queries []string
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(line), "-*0123456789. "))
		if line == "" {
			continue
		}
		queries = append(queries, line)
		if len(queries) == MaxSubQueries {
			break
		}
	}
	if len(queries) == 0 {
		return nil, fmt.Errorf("decompose query: model produced no sub-queries")
	}
	return queries, nil
}

// FallbackDecomposer tries a primary decomposer and falls back on any error
// or empty result. Decomposition is never a hard failure point: the fallback
// is expected to always succeed.
type FallbackDecomposer struct {
	primary  Decomposer
	fallback Decomposer
	logger   *slog.Logger
}

// NewFallbackDecomposer wires primary with fallback.
func NewFallbackDecomposer(primary, fallback Decomposer) *FallbackDecomposer {
	return &FallbackDecomposer{
		primary:  primary,
		fallback: fallback,
		logger:   logging.WithComponent("decomposer"),
	}
}

// Decompose implements Decomposer.
func (d *FallbackDecomposer) Decompose(ctx context.Context, query string) ([]string, error) {
	if d.primary != nil {
		queries, err := d.primary.Decompose(ctx, query)
		if err == nil && len(queries) > 0 {
			return queries, nil
		}
		if err != nil {
			d.logger.Warn("primary decomposer failed, using fallback", "error", err)
		}
	}
	return d.fallback.Decompose(ctx, query)
}

var (
	_ Decomposer = (*HeuristicDecomposer)(nil)
	_ Decomposer = (*LLMDecomposer)(nil)
	_ Decomposer = (*FallbackDecomposer)(nil)
)
