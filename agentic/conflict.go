package agentic

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sweetpotato0/ragline/completion"
	"github.com/sweetpotato0/ragline/lexical"
	"github.com/sweetpotato0/ragline/message"
	"github.com/sweetpotato0/ragline/pkg/logging"
)

// Detection methods recorded on conflicts.
const (
	DetectionHeuristic = "heuristic"
	DetectionSemantic  = "semantic"
)

// Conflict describes a set of chunks whose contents appear contradictory.
type Conflict struct {
	ChunkIDs        []string `json:"chunk_ids"`
	Reason          string   `json:"reason"`
	SemanticScore   *float32 `json:"semantic_score,omitempty"`
	DetectionMethod string   `json:"detection_method"`
}

// Resolution carries the accepted chunks and the conflicts detected among
// the candidates.
type Resolution struct {
	Resolved  []ValidatedChunk
	Conflicts []Conflict
}

// ConflictResolver detects contradictory chunks and decides which side wins.
type ConflictResolver interface {
	Resolve(ctx context.Context, chunks []ValidatedChunk) (Resolution, error)
}

// HeuristicResolver flags chunk pairs that share most of their vocabulary
// but disagree on negation or numbers, keeping the higher-quality chunk of
// each conflicting pair.
type HeuristicResolver struct {
	overlapThreshold float32
}

// NewHeuristicResolver creates the rule-based resolver.
func NewHeuristicResolver() *HeuristicResolver {
	return &HeuristicResolver{overlapThreshold: 0.5}
}

// Resolve implements ConflictResolver.
func (r *HeuristicResolver) Resolve(ctx context.Context, chunks []ValidatedChunk) (Resolution, error) {
	dropped := make(map[string]bool)
	var conflicts []Conflict

	for i := 0; i < len(chunks); i++ {
		for j := i + 1; j < len(chunks); j++ {
			a, b := chunks[i], chunks[j]
			if dropped[a.Result.Chunk.ID] || dropped[b.Result.Chunk.ID] {
				continue
			}
			reason, ok := r.contradicts(a.Result.Chunk.Content, b.Result.Chunk.Content)
			if !ok {
				continue
			}
			conflicts = append(conflicts, Conflict{
				ChunkIDs:        []string{a.Result.Chunk.ID, b.Result.Chunk.ID},
				Reason:          reason,
				DetectionMethod: DetectionHeuristic,
			})
			// Prefer the fresher / higher-quality side.
			if a.QualityScore >= b.QualityScore {
				dropped[b.Result.Chunk.ID] = true
			} else {
				dropped[a.Result.Chunk.ID] = true
			}
		}
	}

	resolved := make([]ValidatedChunk, 0, len(chunks))
	for _, chunk := range chunks {
		if !dropped[chunk.Result.Chunk.ID] {
			resolved = append(resolved, chunk)
		}
	}
	return Resolution{Resolved: resolved, Conflicts: conflicts}, nil
}

var negationTerms = map[string]string{
	"not": "", "no": "", "never": "", "cannot": "", "isn": "", "aren": "", "don": "", "doesn": "",
}

// contradicts reports whether two texts look like competing statements about
// the same fact.
func (r *HeuristicResolver) contradicts(a, b string) (string, bool) {
	tokensA := lexical.Tokenize(a)
	tokensB := lexical.Tokenize(b)
	if len(tokensA) == 0 || len(tokensB) == 0 {
		return "", false
	}

	setA := tokenSet(tokensA)
	setB := tokenSet(tokensB)
	overlap := overlapRatio(setA, setB)
	if overlap < r.overlapThreshold {
		return "", false
	}

	negA := hasNegation(setA)
	negB := hasNegation(setB)
	if negA != negB {
		return "statements overlap but disagree on negation", true
	}

	numsA := numbers(tokensA)
	numsB := numbers(tokensB)
	if len(numsA) > 0 && len(numsB) > 0 && !sameNumbers(numsA, numsB) {
		return "statements overlap but cite different figures", true
	}
	return "", false
}

func tokenSet(tokens []string) map[string]struct{} {
	set := make(map[string]struct{}, len(tokens))
	for _, tok := range tokens {
		set[tok] = struct{}{}
	}
	return set
}

func overlapRatio(a, b map[string]struct{}) float32 {
	small, large := a, b
	if len(b) < len(a) {
		small, large = b, a
	}
	if len(small) == 0 {
		return 0
	}
	shared := 0
	for tok := range small {
		if _, ok := large[tok]; ok {
			shared++
		}
	}
	return float32(shared) / float32(len(small))
}

func hasNegation(set map[string]struct{}) bool {
	for term := range negationTerms {
		if _, ok := set[term]; ok {
			return true
		}
	}
	return false
}

func numbers(tokens []string) []string {
	var out []string
	for _, tok := range tokens {
		if tok[0] >= '0' && tok[0] <= '9' {
			out = append(out, tok)
		}
	}
	return out
}

func sameNumbers(a, b []string) bool {
	set := tokenSet(a)
	for _, n := range b {
		if _, ok := set[n]; !ok {
			return false
		}
	}
	return true
}

// SemanticResolver decorates a base resolver with a completion-model check
// that scores whether heuristically flagged pairs genuinely contradict. Model
// failures fall back to the base resolution untouched.
type SemanticResolver struct {
	base   ConflictResolver
	model  completion.Model
	logger *slog.Logger
}

const conflictPrompt = `You compare two text fragments. Reply with a single number between 0 and 1: the probability that the fragments make contradictory claims about the same fact. Reply with the number only.`

// NewSemanticResolver wraps base with an LLM-assisted semantic check.
func NewSemanticResolver(base ConflictResolver, model completion.Model) *SemanticResolver {
	return &SemanticResolver{
		base:   base,
		model:  model,
		logger: logging.WithComponent("conflict_resolver"),
	}
}

// Resolve implements ConflictResolver.
func (r *SemanticResolver) Resolve(ctx context.Context, chunks []ValidatedChunk) (Resolution, error) {
	resolution, err := r.base.Resolve(ctx, chunks)
	if err != nil {
		return Resolution{}, err
	}
	if r.model == nil || len(resolution.Conflicts) == 0 {
		return resolution, nil
	}

	byID := make(map[string]ValidatedChunk, len(chunks))
	for _, chunk := range chunks {
		byID[chunk.Result.Chunk.ID] = chunk
	}

	for i := range resolution.Conflicts {
		conflict := &resolution.Conflicts[i]
		if len(conflict.ChunkIDs) != 2 {
			continue
		}
		a, okA := byID[conflict.ChunkIDs[0]]
		b, okB := byID[conflict.ChunkIDs[1]]
		if !okA || !okB {
			continue
		}
		score, err := r.scorePair(ctx, a.Result.Chunk.Content, b.Result.Chunk.Content)
		if err != nil {
			r.logger.Warn("semantic conflict check failed, keeping heuristic verdict", "error", err)
			continue
		}
		conflict.SemanticScore = &score
		conflict.DetectionMethod = DetectionSemantic
	}
	return resolution, nil
}

func (r *SemanticResolver) scorePair(ctx context.Context, a, b string) (float32, error) {
	out, err := r.model.Complete(ctx, []*message.Message{
		message.NewMessage(message.RoleSystem, conflictPrompt),
		message.NewMessage(message.RoleUser, fmt.Sprintf("Fragment A:\n%s\n\nFragment B:\n%s", a, b)),
	})
	if err != nil {
		return 0, err
	}
	var score float32
	if _, err := fmt.Sscanf(strings.TrimSpace(out), "%f", &score); err != nil {
		return 0, fmt.Errorf("parse conflict score %q: %w", out, err)
	}
	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}
	return score, nil
}

var (
	_ ConflictResolver = (*HeuristicResolver)(nil)
	_ ConflictResolver = (*SemanticResolver)(nil)
)
