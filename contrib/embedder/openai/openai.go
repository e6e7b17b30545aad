package openai

import (
	"context"
	"fmt"
	"strings"
	"time"

	openaisdk "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/sweetpotato0/ragline/embedder"
	"github.com/sweetpotato0/ragline/vector"
)

// Service implements embedder.Service using the OpenAI embeddings API.
type Service struct {
	client openaisdk.Client
}

// New creates an OpenAI-backed embedding service.
func New(apiKey, baseURL string) *Service {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if strings.TrimSpace(baseURL) != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &Service{client: openaisdk.NewClient(opts...)}
}

// Embed converts texts to embeddings, batching upstream calls.
func (s *Service) Embed(ctx context.Context, req embedder.Request) ([]embedder.Embedding, error) {
	if len(req.Texts) == 0 {
		return nil, nil
	}
	batchSize := req.BatchSize
	if batchSize <= 0 {
		batchSize = 16
	}

	out := make([]embedder.Embedding, 0, len(req.Texts))
	for start := 0; start < len(req.Texts); start += batchSize {
		end := start + batchSize
		if end > len(req.Texts) {
			end = len(req.Texts)
		}
		batch, err := s.embedBatch(ctx, req, req.Texts[start:end])
		if err != nil {
			return nil, err
		}
		out = append(out, batch...)
	}
	return out, nil
}

func (s *Service) embedBatch(ctx context.Context, req embedder.Request, texts []string) ([]embedder.Embedding, error) {
	params := openaisdk.EmbeddingNewParams{
		Model: openaisdk.EmbeddingModel(req.Model),
		Input: openaisdk.EmbeddingNewParamsInputUnion{
			OfArrayOfStrings: texts,
		},
	}

	resp, err := s.client.Embeddings.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("create embeddings: %w", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("expected %d embeddings, got %d", len(texts), len(resp.Data))
	}

	out := make([]embedder.Embedding, len(resp.Data))
	for i, data := range resp.Data {
		values := make([]float32, len(data.Embedding))
		for j, v := range data.Embedding {
			values[j] = float32(v)
		}
		if req.Normalize {
			values = vector.Normalize(values)
		}
		out[i] = embedder.Embedding{
			Values:     values,
			Model:      req.Model,
			Version:    req.Version,
			Normalized: req.Normalize,
			CreatedAt:  time.Now(),
		}
	}
	return out, nil
}

var _ embedder.Service = (*Service)(nil)
