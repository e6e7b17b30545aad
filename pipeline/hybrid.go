package pipeline

import (
	"context"
	"sort"

	"golang.org/x/sync/errgroup"
)

// DefaultRRFConstant is the usual smoothing constant for reciprocal rank
// fusion.
const DefaultRRFConstant = 60

// HybridPipeline runs a vector and a lexical pipeline on the same query and
// fuses their rankings with Reciprocal Rank Fusion. Both sides are read-only
// against shared stores, so they run concurrently; the query embedding is
// computed once up front and shared.
type HybridPipeline struct {
	vec           Search
	lex           Search
	embedder      *Embedder
	rrfK          int
	vectorWeight  float32
	lexicalWeight float32
}

// HybridOption customises the hybrid pipeline.
type HybridOption func(*HybridPipeline)

// WithRRFConstant overrides the RRF smoothing constant.
func WithRRFConstant(k int) HybridOption {
	return func(p *HybridPipeline) {
		if k > 0 {
			p.rrfK = k
		}
	}
}

// WithHybridWeights biases the fusion toward semantic or keyword matching.
func WithHybridWeights(vectorWeight, lexicalWeight float32) HybridOption {
	return func(p *HybridPipeline) {
		if vectorWeight >= 0 && lexicalWeight >= 0 {
			p.vectorWeight = vectorWeight
			p.lexicalWeight = lexicalWeight
		}
	}
}

// NewHybridPipeline composes a vector and a lexical pipeline. The embedder is
// used to compute the query embedding when the caller did not supply one.
func NewHybridPipeline(vec, lex Search, emb *Embedder, opts ...HybridOption) *HybridPipeline {
	p := &HybridPipeline{
		vec:           vec,
		lex:           lex,
		embedder:      emb,
		rrfK:          DefaultRRFConstant,
		vectorWeight:  1.0,
		lexicalWeight: 1.0,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Search implements Search.
func (p *HybridPipeline) Search(ctx context.Context, q Query) ([]Result, error) {
	if q.Embedding == nil && p.embedder != nil {
		emb, err := p.embedder.EmbedQuery(ctx, q.Text)
		if err != nil {
			return nil, err
		}
		q.Embedding = &emb
	}

	var vecResults, lexResults []Result
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		vecResults, err = p.vec.Search(gctx, q)
		return err
	})
	g.Go(func() error {
		var err error
		lexResults, err = p.lex.Search(gctx, q)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	fused := FuseRRF([]RankedList{
		{Results: vecResults, Weight: p.vectorWeight},
		{Results: lexResults, Weight: p.lexicalWeight},
	}, p.rrfK)
	if q.TopK > 0 && len(fused) > q.TopK {
		fused = fused[:q.TopK]
	}
	return fused, nil
}

// RankedList is one ranked result list feeding into RRF fusion.
type RankedList struct {
	Results []Result
	Weight  float32
}

// FuseRRF merges ranked lists by Reciprocal Rank Fusion: an item at 0-based
// rank r contributes weight/(k+r+1), contributions for the same chunk are
// summed, and the fused list is sorted by descending score.
func FuseRRF(lists []RankedList, k int) []Result {
	if k <= 0 {
		k = DefaultRRFConstant
	}

	type fusedEntry struct {
		result Result
		score  float32
	}
	entries := make(map[string]*fusedEntry)
	order := make([]string, 0)

	for _, list := range lists {
		for rank, res := range list.Results {
			contribution := list.Weight / float32(k+rank+1)
			entry, ok := entries[res.Chunk.ID]
			if !ok {
				entry = &fusedEntry{result: res}
				entries[res.Chunk.ID] = entry
				order = append(order, res.Chunk.ID)
			}
			entry.score += contribution
		}
	}

	fused := make([]Result, 0, len(entries))
	for _, id := range order {
		entry := entries[id]
		entry.result.Score = entry.score
		entry.result.RerankedScore = nil
		fused = append(fused, entry.result)
	}
	sort.SliceStable(fused, func(i, j int) bool {
		return fused[i].Score > fused[j].Score
	})
	return fused
}

var _ Search = (*HybridPipeline)(nil)
