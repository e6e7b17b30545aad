package chunking

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/sweetpotato0/ragline/document"
)

// Input identifies one document to chunk in a batch.
type Input struct {
	DocumentID            string
	Text                  string
	EmbeddingModelVersion string
}

// ChunkAll chunks several documents with bounded parallelism. The result
// slice is aligned with inputs, so each document's chunk index order is
// untouched regardless of scheduling.
func ChunkAll(ctx context.Context, strategy Strategy, inputs []Input, parallelism int) ([][]document.Chunk, error) {
	if parallelism < 1 {
		parallelism = 1
	}

	out := make([][]document.Chunk, len(inputs))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(parallelism)
	for i, input := range inputs {
		g.Go(func() error {
			chunks, err := strategy.Chunk(ctx, input.DocumentID, input.Text, input.EmbeddingModelVersion)
			if err != nil {
				return err
			}
			out[i] = chunks
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
