package document

import (
	"fmt"
	"time"
)

// SourceType describes where a document originated.
type SourceType string

const (
	SourceUser     SourceType = "user"
	SourceInternal SourceType = "internal"
	SourceRemote   SourceType = "remote"
	SourceCached   SourceType = "cached"
)

// Document represents a knowledge source that can be chunked and indexed.
type Document struct {
	ID                      string            `json:"id"`
	Title                   string            `json:"title"`
	Description             string            `json:"description,omitempty"`
	SourceType              SourceType        `json:"source_type"`
	URI                     string            `json:"uri,omitempty"`
	Metadata                map[string]string `json:"metadata,omitempty"`
	ChunkingStrategyVersion string            `json:"chunking_strategy_version,omitempty"`
	EmbeddingModelVersion   string            `json:"embedding_model_version,omitempty"`
	CreatedAt               time.Time         `json:"created_at"`
	UpdatedAt               time.Time         `json:"updated_at"`
}

// Chunk represents a slice of a document that is indexed for retrieval.
type Chunk struct {
	ID                      string    `json:"id"`
	DocumentID              string    `json:"document_id"`
	Content                 string    `json:"content"`
	ChunkIndex              int       `json:"chunk_index"`
	TokenCount              int       `json:"token_count,omitempty"`
	Embedding               []float32 `json:"embedding,omitempty"`
	ChunkingStrategyVersion string    `json:"chunking_strategy_version,omitempty"`
	EmbeddingModelVersion   string    `json:"embedding_model_version,omitempty"`
	CreatedAt               time.Time `json:"created_at"`
	UpdatedAt               time.Time `json:"updated_at"`
}

// ChunkID derives the stable chunk identifier from its document and position.
// Chunk IDs are deterministic so that re-chunking a document with the same
// strategy produces the same identifiers.
func ChunkID(documentID string, index int) string {
	return fmt.Sprintf("%s#%d", documentID, index)
}

// Clone returns a deep copy of the document.
func (d Document) Clone() Document {
	out := d
	if d.Metadata != nil {
		out.Metadata = make(map[string]string, len(d.Metadata))
		for k, v := range d.Metadata {
			out.Metadata[k] = v
		}
	}
	return out
}

// Clone returns a deep copy of the chunk.
func (c Chunk) Clone() Chunk {
	out := c
	if c.Embedding != nil {
		out.Embedding = make([]float32, len(c.Embedding))
		copy(out.Embedding, c.Embedding)
	}
	return out
}
