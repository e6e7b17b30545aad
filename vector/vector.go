package vector

import (
	"context"
	"math"

	"github.com/sweetpotato0/ragline/document"
)

// Match is one nearest-neighbor hit returned by a Store query.
type Match struct {
	ID         string
	DocumentID string
	ChunkIndex int
	Score      float32
	Metadata   map[string]string
	Text       string
}

// Store defines the interface for vector storage and similarity search.
// Filters are matched with AND semantics against the metadata stored
// alongside each chunk.
type Store interface {
	// Upsert indexes the chunks of a document, replacing any previous entries.
	Upsert(ctx context.Context, doc document.Document, chunks []document.Chunk) error

	// Delete removes all entries belonging to a document.
	Delete(ctx context.Context, documentID string) error

	// Query finds the topK entries nearest to the query vector.
	Query(ctx context.Context, queryVector []float32, topK int, filters map[string]string) ([]Match, error)
}

// CosineSimilarity calculates the cosine similarity between two vectors.
func CosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dotProduct, normA, normB float64
	for i := 0; i < len(a); i++ {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return float32(dotProduct / (math.Sqrt(normA) * math.Sqrt(normB)))
}

// Normalize scales the vector to unit length (L2 norm).
func Normalize(vec []float32) []float32 {
	if len(vec) == 0 {
		return vec
	}
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	if sum == 0 {
		return vec
	}
	inv := float32(1 / math.Sqrt(sum))
	for i := range vec {
		vec[i] *= inv
	}
	return vec
}

// MatchesFilters reports whether metadata satisfies every equality filter.
func MatchesFilters(metadata, filters map[string]string) bool {
	for k, want := range filters {
		if metadata[k] != want {
			return false
		}
	}
	return true
}
