package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sweetpotato0/ragline/knowledge"
	"github.com/sweetpotato0/ragline/pkg/logging"
	pkgerrors "github.com/sweetpotato0/ragline/pkg/errors"
	"github.com/sweetpotato0/ragline/vector"
)

// VectorPipeline retrieves by nearest-neighbor search and resolves every
// match back to a full chunk/document record. Matches whose document or
// chunk can no longer be resolved are stale index entries and are skipped,
// not surfaced as errors.
type VectorPipeline struct {
	store    vector.Store
	repo     knowledge.Repository
	embedder *Embedder
	logger   *slog.Logger
}

// NewVectorPipeline creates a vector search pipeline.
func NewVectorPipeline(store vector.Store, repo knowledge.Repository, emb *Embedder) *VectorPipeline {
	return &VectorPipeline{
		store:    store,
		repo:     repo,
		embedder: emb,
		logger:   logging.WithComponent("vector_pipeline"),
	}
}

// Embedder exposes the query embedder so wrapping pipelines can reuse it.
func (p *VectorPipeline) Embedder() *Embedder { return p.embedder }

// Search implements Search.
func (p *VectorPipeline) Search(ctx context.Context, q Query) ([]Result, error) {
	queryEmb := q.Embedding
	if queryEmb == nil {
		emb, err := p.embedder.EmbedQuery(ctx, q.Text)
		if err != nil {
			return nil, err
		}
		queryEmb = &emb
	}

	matches, err := p.store.Query(ctx, queryEmb.Values, q.TopK, q.Filters)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}

	results := make([]Result, 0, len(matches))
	for _, match := range matches {
		chunk, err := p.repo.Chunk(ctx, match.ID)
		if err != nil {
			if errors.Is(err, pkgerrors.ErrNotFound) {
				p.logger.Debug("skipping stale vector match", "chunk_id", match.ID)
				continue
			}
			return nil, err
		}
		// Mixed-version embeddings are not comparable; drop them during
		// re-embedding migrations instead of returning bogus scores.
		if chunk.EmbeddingModelVersion != "" && queryEmb.Version != "" && chunk.EmbeddingModelVersion != queryEmb.Version {
			p.logger.Debug("skipping chunk with mismatched embedding version",
				"chunk_id", chunk.ID,
				"chunk_version", chunk.EmbeddingModelVersion,
				"query_version", queryEmb.Version,
			)
			continue
		}
		doc, err := p.repo.Document(ctx, chunk.DocumentID)
		if err != nil {
			if errors.Is(err, pkgerrors.ErrNotFound) {
				p.logger.Debug("skipping match with missing document", "doc_id", chunk.DocumentID)
				continue
			}
			return nil, err
		}
		results = append(results, Result{
			Document: doc,
			Chunk:    chunk,
			Score:    match.Score,
		})
	}
	return results, nil
}

var _ Search = (*VectorPipeline)(nil)
