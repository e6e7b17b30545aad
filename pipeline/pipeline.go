package pipeline

import (
	"context"
	"fmt"

	"github.com/sweetpotato0/ragline/document"
	"github.com/sweetpotato0/ragline/embedder"
)

// Query carries one retrieval request through a pipeline. When Embedding is
// set the pipelines reuse it instead of embedding Text again; the
// orchestrator relies on this to embed each query exactly once.
type Query struct {
	Text      string
	Embedding *embedder.Embedding
	TopK      int
	Filters   map[string]string
}

// Result is one retrieved chunk with its resolved parent document. Score is
// the pipeline's native score; RerankedScore, when set, is the post-fusion
// score in [0,1].
type Result struct {
	Document      document.Document
	Chunk         document.Chunk
	Score         float32
	RerankedScore *float32
}

// FinalScore returns the reranked score when present, the raw score otherwise.
func (r Result) FinalScore() float32 {
	if r.RerankedScore != nil {
		return *r.RerankedScore
	}
	return r.Score
}

// Search is the retrieval pipeline contract. Concrete pipelines (vector,
// lexical, hybrid, reranked) compose over this interface.
type Search interface {
	Search(ctx context.Context, q Query) ([]Result, error)
}

// Embedder turns query text into an embedding under a fixed model
// configuration. Pipelines share one so a retrieval call never embeds the
// same query twice.
type Embedder struct {
	service   embedder.Service
	model     string
	version   string
	normalize bool
}

// NewEmbedder binds an embedding service to a model configuration.
func NewEmbedder(service embedder.Service, model, version string, normalize bool) *Embedder {
	return &Embedder{service: service, model: model, version: version, normalize: normalize}
}

// EmbedQuery embeds a single query string.
func (e *Embedder) EmbedQuery(ctx context.Context, text string) (embedder.Embedding, error) {
	if e == nil || e.service == nil {
		return embedder.Embedding{}, fmt.Errorf("pipeline: embedder not configured")
	}
	out, err := e.service.Embed(ctx, embedder.Request{
		Texts:     []string{text},
		Model:     e.model,
		Version:   e.version,
		Normalize: e.normalize,
		BatchSize: 1,
	})
	if err != nil {
		return embedder.Embedding{}, fmt.Errorf("embed query: %w", err)
	}
	if len(out) == 0 {
		return embedder.Embedding{}, fmt.Errorf("embed query: no embedding returned")
	}
	return out[0], nil
}

// Version returns the embedding model version this embedder produces.
func (e *Embedder) Version() string { return e.version }
