package agentic

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/sweetpotato0/ragline/pipeline"
	"github.com/sweetpotato0/ragline/pkg/logging"
)

// MultiStepReasoner decomposes a query, retrieves for each sub-query and
// merges the step results, keeping the maximum score per chunk.
type MultiStepReasoner struct {
	decomposer Decomposer
	search     pipeline.Search
	stepTopK   int
	logger     *slog.Logger
}

// ReasonerOption customises the reasoner.
type ReasonerOption func(*MultiStepReasoner)

// WithStepTopK bounds how many results each sub-query step retrieves.
func WithStepTopK(k int) ReasonerOption {
	return func(r *MultiStepReasoner) {
		if k > 0 {
			r.stepTopK = k
		}
	}
}

// NewMultiStepReasoner creates a reasoner over the given pipeline.
func NewMultiStepReasoner(decomposer Decomposer, search pipeline.Search, opts ...ReasonerOption) *MultiStepReasoner {
	r := &MultiStepReasoner{
		decomposer: decomposer,
		search:     search,
		stepTopK:   4,
		logger:     logging.WithComponent("multi_step_reasoner"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Retrieve runs the decomposed sub-queries and merges their results. The
// sub-query searches are independent reads and run concurrently, all reusing
// the query embedding carried by q.
func (r *MultiStepReasoner) Retrieve(ctx context.Context, q pipeline.Query) ([]pipeline.Result, error) {
	queries, err := r.decomposer.Decompose(ctx, q.Text)
	if err != nil {
		return nil, err
	}
	r.logger.Debug("query decomposed", "sub_queries", len(queries))

	var mu sync.Mutex
	collected := make([][]pipeline.Result, len(queries))
	g, gctx := errgroup.WithContext(ctx)
	for i, sub := range queries {
		g.Go(func() error {
			stepQuery := pipeline.Query{
				Text:    sub,
				TopK:    r.stepTopK,
				Filters: q.Filters,
			}
			// Reuse the precomputed embedding only when the sub-query is the
			// original query text; rewritten sub-queries embed themselves.
			if sub == q.Text {
				stepQuery.Embedding = q.Embedding
			}
			results, err := r.search.Search(gctx, stepQuery)
			if err != nil {
				return err
			}
			mu.Lock()
			collected[i] = results
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	all := make([]pipeline.Result, 0)
	for _, results := range collected {
		all = append(all, results...)
	}
	return MergeByMaxScore(all), nil
}

// MergeByMaxScore groups results by chunk ID and keeps the highest-scoring
// entry per group, sorted by descending score.
func MergeByMaxScore(results []pipeline.Result) []pipeline.Result {
	best := make(map[string]pipeline.Result, len(results))
	order := make([]string, 0, len(results))
	for _, res := range results {
		current, ok := best[res.Chunk.ID]
		if !ok {
			best[res.Chunk.ID] = res
			order = append(order, res.Chunk.ID)
			continue
		}
		if res.Score > current.Score {
			best[res.Chunk.ID] = res
		}
	}
	merged := make([]pipeline.Result, 0, len(best))
	for _, id := range order {
		merged = append(merged, best[id])
	}
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Score > merged[j].Score
	})
	return merged
}
