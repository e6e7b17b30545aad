package pipeline

import (
	"context"
	"log/slog"
	"sort"

	"github.com/sweetpotato0/ragline/pkg/logging"
	"github.com/sweetpotato0/ragline/vector"
)

// BM25Scorer scores a candidate text against a query using corpus-wide term
// statistics. *lexical.BM25Index satisfies this.
type BM25Scorer interface {
	ScoreText(query, text string) float32
}

// RerankedPipeline decorates an inner pipeline with a second-pass scorer that
// blends BM25 and semantic-similarity signals into a [0,1] score. Reranking
// is best-effort: any failure during scoring returns the inner results
// unchanged.
type RerankedPipeline struct {
	inner    Search
	scorer   BM25Scorer
	embedder *Embedder
	logger   *slog.Logger

	enabled        bool
	bm25Weight     float32
	semanticWeight float32
	minScore       float32
}

// RerankOption customises the reranked pipeline.
type RerankOption func(*RerankedPipeline)

// WithRerankEnabled toggles reranking; when disabled the decorator is a
// strict passthrough.
func WithRerankEnabled(enabled bool) RerankOption {
	return func(p *RerankedPipeline) {
		p.enabled = enabled
	}
}

// WithRerankWeights sets the relative contribution of the BM25 and semantic
// signals. A zero weight skips computing that signal entirely.
func WithRerankWeights(bm25, semantic float32) RerankOption {
	return func(p *RerankedPipeline) {
		if bm25 >= 0 && semantic >= 0 {
			p.bm25Weight = bm25
			p.semanticWeight = semantic
		}
	}
}

// WithMinScore filters out results whose fused score falls below the
// threshold.
func WithMinScore(min float32) RerankOption {
	return func(p *RerankedPipeline) {
		if min >= 0 {
			p.minScore = min
		}
	}
}

// NewRerankedPipeline wraps inner with cross-signal reranking.
func NewRerankedPipeline(inner Search, scorer BM25Scorer, emb *Embedder, opts ...RerankOption) *RerankedPipeline {
	p := &RerankedPipeline{
		inner:          inner,
		scorer:         scorer,
		embedder:       emb,
		logger:         logging.WithComponent("reranker"),
		enabled:        true,
		bm25Weight:     0.3,
		semanticWeight: 0.7,
		minScore:       0,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Search implements Search.
func (p *RerankedPipeline) Search(ctx context.Context, q Query) ([]Result, error) {
	inner, err := p.inner.Search(ctx, q)
	if err != nil {
		return nil, err
	}
	if !p.enabled || len(inner) == 0 {
		return inner, nil
	}

	reranked, ok := p.rerank(ctx, q, inner)
	if !ok {
		return inner, nil
	}
	return reranked, nil
}

// rerank computes the fused scores. The bool result reports whether the
// rerank succeeded; on failure the caller falls back to the inner ranking.
func (p *RerankedPipeline) rerank(ctx context.Context, q Query, inner []Result) ([]Result, bool) {
	bm25 := make(map[string]float32, len(inner))
	semantic := make(map[string]float32, len(inner))

	if p.bm25Weight > 0 {
		if p.scorer == nil {
			p.logger.Warn("bm25 weight set but no scorer configured, skipping rerank")
			return nil, false
		}
		for _, res := range inner {
			bm25[res.Chunk.ID] = p.scorer.ScoreText(q.Text, res.Chunk.Content)
		}
		minMaxNormalize(bm25)
	}

	if p.semanticWeight > 0 {
		queryEmb := q.Embedding
		if queryEmb == nil {
			emb, err := p.embedder.EmbedQuery(ctx, q.Text)
			if err != nil {
				p.logger.Warn("query embedding failed, returning inner results", "error", err)
				return nil, false
			}
			queryEmb = &emb
		}
		for _, res := range inner {
			if len(res.Chunk.Embedding) == 0 {
				semantic[res.Chunk.ID] = 0
				continue
			}
			cos := vector.CosineSimilarity(queryEmb.Values, res.Chunk.Embedding)
			semantic[res.Chunk.ID] = (cos + 1) / 2
		}
		minMaxNormalize(semantic)
	}

	fused := FuseScores(bm25, semantic, p.bm25Weight, p.semanticWeight)

	out := make([]Result, 0, len(inner))
	for _, res := range inner {
		score := fused[res.Chunk.ID]
		if score < p.minScore {
			continue
		}
		res.RerankedScore = &score
		out = append(out, res)
	}
	sortByRerankedScore(out)
	if q.TopK > 0 && len(out) > q.TopK {
		out = out[:q.TopK]
	}
	return out, true
}

// FuseScores combines two score maps with a weight-normalized linear blend.
// Weights are renormalized to sum to 1 even when the caller's weights do not;
// missing entries contribute zero. Fusing empty maps yields an empty map.
func FuseScores(a, b map[string]float32, weightA, weightB float32) map[string]float32 {
	out := make(map[string]float32, len(a)+len(b))
	total := weightA + weightB
	if total <= 0 {
		return out
	}
	wa := weightA / total
	wb := weightB / total
	for id, score := range a {
		out[id] += wa * score
	}
	for id, score := range b {
		out[id] += wb * score
	}
	return out
}

// minMaxNormalize rescales the score set to [0,1] in place. A set of equal
// scores is left untouched.
func minMaxNormalize(scores map[string]float32) {
	if len(scores) == 0 {
		return
	}
	var lo, hi float32
	first := true
	for _, s := range scores {
		if first {
			lo, hi = s, s
			first = false
			continue
		}
		if s < lo {
			lo = s
		}
		if s > hi {
			hi = s
		}
	}
	if hi == lo {
		return
	}
	for id, s := range scores {
		scores[id] = (s - lo) / (hi - lo)
	}
}

func sortByRerankedScore(results []Result) {
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].FinalScore() > results[j].FinalScore()
	})
}

var _ Search = (*RerankedPipeline)(nil)
