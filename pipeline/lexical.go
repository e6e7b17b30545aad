package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sweetpotato0/ragline/knowledge"
	"github.com/sweetpotato0/ragline/lexical"
	"github.com/sweetpotato0/ragline/pkg/logging"
	pkgerrors "github.com/sweetpotato0/ragline/pkg/errors"
)

// LexicalPipeline retrieves by BM25 keyword match over the same chunk set
// the vector pipeline reads, resolving hits through the knowledge repository.
type LexicalPipeline struct {
	keyword lexical.Searcher
	repo    knowledge.Repository
	logger  *slog.Logger
}

// NewLexicalPipeline creates a keyword search pipeline.
func NewLexicalPipeline(keyword lexical.Searcher, repo knowledge.Repository) *LexicalPipeline {
	return &LexicalPipeline{
		keyword: keyword,
		repo:    repo,
		logger:  logging.WithComponent("lexical_pipeline"),
	}
}

// Search implements Search.
func (p *LexicalPipeline) Search(ctx context.Context, q Query) ([]Result, error) {
	hits, err := p.keyword.Search(ctx, q.Text, q.TopK, q.Filters)
	if err != nil {
		return nil, fmt.Errorf("lexical search: %w", err)
	}

	results := make([]Result, 0, len(hits))
	for _, hit := range hits {
		chunk, err := p.repo.Chunk(ctx, hit.ChunkID)
		if err != nil {
			if errors.Is(err, pkgerrors.ErrNotFound) {
				p.logger.Debug("skipping stale keyword hit", "chunk_id", hit.ChunkID)
				continue
			}
			return nil, err
		}
		doc, err := p.repo.Document(ctx, chunk.DocumentID)
		if err != nil {
			if errors.Is(err, pkgerrors.ErrNotFound) {
				p.logger.Debug("skipping hit with missing document", "doc_id", chunk.DocumentID)
				continue
			}
			return nil, err
		}
		results = append(results, Result{
			Document: doc,
			Chunk:    chunk,
			Score:    hit.Score,
		})
	}
	return results, nil
}

var _ Search = (*LexicalPipeline)(nil)
