package embedder

import (
	"context"
	"time"
)

// Embedding is a fixed-dimension vector representation of a piece of text.
type Embedding struct {
	Values     []float32 `json:"values"`
	Model      string    `json:"model"`
	Version    string    `json:"version"`
	Normalized bool      `json:"normalized"`
	CreatedAt  time.Time `json:"created_at"`
}

// Dimensions returns the vector length.
func (e Embedding) Dimensions() int {
	return len(e.Values)
}

// Request bundles the parameters of one embedding call.
type Request struct {
	Texts     []string
	Model     string
	Version   string
	Normalize bool
	BatchSize int
}

// Service converts text into embeddings, one per input text and in input
// order. Implementations live under contrib; tests use in-process fakes.
type Service interface {
	Embed(ctx context.Context, req Request) ([]Embedding, error)
}

// ServiceFunc adapts a function to the Service interface.
type ServiceFunc func(ctx context.Context, req Request) ([]Embedding, error)

// Embed implements Service.
func (f ServiceFunc) Embed(ctx context.Context, req Request) ([]Embedding, error) {
	return f(ctx, req)
}
