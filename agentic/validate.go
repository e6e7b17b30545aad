package agentic

import (
	"context"
	"time"

	"github.com/sweetpotato0/ragline/document"
	"github.com/sweetpotato0/ragline/pipeline"
)

// ValidatedChunk is a retrieval result annotated with a source-quality score
// and the reasons behind it.
type ValidatedChunk struct {
	Result       pipeline.Result
	QualityScore float32
	Reasons      []string
}

// Validator assigns quality scores to retrieval results.
type Validator interface {
	Validate(ctx context.Context, results []pipeline.Result) []ValidatedChunk
}

// SourceValidator scores results on freshness and content-quality
// heuristics. Scores stay in [0,1]; validation never drops a result, it only
// annotates it so the conflict resolver can prefer better sources.
type SourceValidator struct {
	staleAfter time.Duration
	now        func() time.Time
}

// ValidatorOption customises the source validator.
type ValidatorOption func(*SourceValidator)

// WithStaleAfter sets the age past which a document is considered stale.
func WithStaleAfter(age time.Duration) ValidatorOption {
	return func(v *SourceValidator) {
		if age > 0 {
			v.staleAfter = age
		}
	}
}

// NewSourceValidator creates a validator with default heuristics.
func NewSourceValidator(opts ...ValidatorOption) *SourceValidator {
	v := &SourceValidator{
		staleAfter: 180 * 24 * time.Hour,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Validate implements Validator.
func (v *SourceValidator) Validate(ctx context.Context, results []pipeline.Result) []ValidatedChunk {
	out := make([]ValidatedChunk, 0, len(results))
	for _, res := range results {
		score, reasons := v.score(res)
		out = append(out, ValidatedChunk{
			Result:       res,
			QualityScore: score,
			Reasons:      reasons,
		})
	}
	return out
}

func (v *SourceValidator) score(res pipeline.Result) (float32, []string) {
	score := float32(1.0)
	var reasons []string

	updated := res.Document.UpdatedAt
	if updated.IsZero() {
		updated = res.Chunk.UpdatedAt
	}
	if !updated.IsZero() && v.now().Sub(updated) > v.staleAfter {
		score -= 0.3
		reasons = append(reasons, "document is stale")
	}

	if len(res.Chunk.Content) < 40 {
		score -= 0.2
		reasons = append(reasons, "chunk content is very short")
	}

	switch res.Document.SourceType {
	case document.SourceRemote:
		score -= 0.2
		reasons = append(reasons, "remote source")
	case document.SourceCached:
		score -= 0.1
		reasons = append(reasons, "cached source")
	}

	if res.Document.Title == "" {
		score -= 0.1
		reasons = append(reasons, "document has no title")
	}

	if score < 0 {
		score = 0
	}
	if len(reasons) == 0 {
		reasons = append(reasons, "no quality issues detected")
	}
	return score, reasons
}

var _ Validator = (*SourceValidator)(nil)
