package knowledge

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sweetpotato0/ragline/chunking"
	"github.com/sweetpotato0/ragline/document"
	"github.com/sweetpotato0/ragline/embedder"
	"github.com/sweetpotato0/ragline/lexical"
	"github.com/sweetpotato0/ragline/pkg/logging"
	"github.com/sweetpotato0/ragline/tokenizer"
	"github.com/sweetpotato0/ragline/vector"
)

// Indexer drives the ingestion write path: chunk a document, embed the
// chunks, and index them into the stores the retrieval pipelines read from.
type Indexer struct {
	repo     Repository
	store    vector.Store
	keyword  lexical.Searcher
	embedder embedder.Service
	strategy chunking.Strategy
	counter  tokenizer.Counter

	model        string
	modelVersion string
	normalize    bool
	batchSize    int
	logger       *slog.Logger
}

// IndexerOption customises the indexer.
type IndexerOption func(*Indexer)

// WithEmbeddingModel sets the embedding model and version recorded on chunks.
func WithEmbeddingModel(model, version string) IndexerOption {
	return func(ix *Indexer) {
		ix.model = model
		ix.modelVersion = version
	}
}

// WithNormalize toggles L2-normalisation of stored embeddings.
func WithNormalize(enabled bool) IndexerOption {
	return func(ix *Indexer) {
		ix.normalize = enabled
	}
}

// WithBatchSize sets the embedding batch size.
func WithBatchSize(size int) IndexerOption {
	return func(ix *Indexer) {
		if size > 0 {
			ix.batchSize = size
		}
	}
}

// WithStrategy overrides the chunking strategy.
func WithStrategy(strategy chunking.Strategy) IndexerOption {
	return func(ix *Indexer) {
		if strategy != nil {
			ix.strategy = strategy
		}
	}
}

// WithTokenCounter sets the counter used to record chunk token counts.
func WithTokenCounter(counter tokenizer.Counter) IndexerOption {
	return func(ix *Indexer) {
		if counter != nil {
			ix.counter = counter
		}
	}
}

// NewIndexer creates an indexer writing through the given stores. The keyword
// searcher is optional; pass nil to skip lexical indexing.
func NewIndexer(repo Repository, store vector.Store, keyword lexical.Searcher, emb embedder.Service, opts ...IndexerOption) (*Indexer, error) {
	if repo == nil || store == nil || emb == nil {
		return nil, fmt.Errorf("knowledge: repository, vector store and embedder are required")
	}
	ix := &Indexer{
		repo:      repo,
		store:     store,
		keyword:   keyword,
		embedder:  emb,
		strategy:  chunking.NewRecursiveStrategy(),
		counter:   tokenizer.Heuristic{},
		batchSize: 16,
		logger:    logging.WithComponent("indexer"),
	}
	for _, opt := range opts {
		opt(ix)
	}
	return ix, nil
}

// Ingest chunks, embeds and indexes one document's text.
func (ix *Indexer) Ingest(ctx context.Context, doc document.Document, text string) error {
	if doc.ID == "" {
		return fmt.Errorf("knowledge: document id is required")
	}
	now := time.Now()
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = now
	}
	doc.UpdatedAt = now
	doc.ChunkingStrategyVersion = ix.strategy.Version()
	doc.EmbeddingModelVersion = ix.modelVersion

	chunks, err := ix.strategy.Chunk(ctx, doc.ID, text, ix.modelVersion)
	if err != nil {
		return fmt.Errorf("chunk document %s: %w", doc.ID, err)
	}

	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Content
	}
	embeddings, err := ix.embedder.Embed(ctx, embedder.Request{
		Texts:     texts,
		Model:     ix.model,
		Version:   ix.modelVersion,
		Normalize: ix.normalize,
		BatchSize: ix.batchSize,
	})
	if err != nil {
		return fmt.Errorf("embed document %s: %w", doc.ID, err)
	}
	if len(embeddings) != len(chunks) {
		return fmt.Errorf("embed document %s: expected %d embeddings, got %d", doc.ID, len(chunks), len(embeddings))
	}
	for i := range chunks {
		chunks[i].Embedding = embeddings[i].Values
		chunks[i].TokenCount = ix.counter.CountTokens(chunks[i].Content)
	}

	if err := ix.repo.SaveDocument(ctx, doc, chunks); err != nil {
		return fmt.Errorf("save document %s: %w", doc.ID, err)
	}
	if err := ix.store.Upsert(ctx, doc, chunks); err != nil {
		return fmt.Errorf("upsert vectors for %s: %w", doc.ID, err)
	}
	if ix.keyword != nil {
		if err := ix.keyword.Index(ctx, doc, chunks); err != nil {
			return fmt.Errorf("index keywords for %s: %w", doc.ID, err)
		}
	}
	ix.logger.Info("document ingested", "doc_id", doc.ID, "chunks", len(chunks))
	return nil
}

// Delete removes a document from every store.
func (ix *Indexer) Delete(ctx context.Context, documentID string) error {
	if err := ix.store.Delete(ctx, documentID); err != nil {
		return fmt.Errorf("delete vectors for %s: %w", documentID, err)
	}
	if ix.keyword != nil {
		if err := ix.keyword.Delete(ctx, documentID); err != nil {
			return fmt.Errorf("delete keywords for %s: %w", documentID, err)
		}
	}
	if err := ix.repo.DeleteDocument(ctx, documentID); err != nil {
		return fmt.Errorf("delete document %s: %w", documentID, err)
	}
	ix.logger.Info("document deleted", "doc_id", documentID)
	return nil
}
