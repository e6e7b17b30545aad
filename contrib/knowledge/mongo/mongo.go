package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/sweetpotato0/ragline/config"
	"github.com/sweetpotato0/ragline/document"
	"github.com/sweetpotato0/ragline/knowledge"
	pkgerrors "github.com/sweetpotato0/ragline/pkg/errors"
)

// Repository implements knowledge.Repository using MongoDB.
type Repository struct {
	client    *mongo.Client
	documents *mongo.Collection
	chunks    *mongo.Collection
}

// Config holds MongoDB connection configuration.
type Config struct {
	URI      string
	Database string
}

// DefaultConfig returns default MongoDB configuration.
func DefaultConfig() *Config {
	return &Config{
		URI:      "mongodb://localhost:27017",
		Database: "ragline",
	}
}

type mongoDocument struct {
	ID                      string            `bson:"_id"`
	Title                   string            `bson:"title"`
	Description             string            `bson:"description,omitempty"`
	SourceType              string            `bson:"source_type"`
	URI                     string            `bson:"uri,omitempty"`
	Metadata                map[string]string `bson:"metadata,omitempty"`
	ChunkingStrategyVersion string            `bson:"chunking_strategy_version,omitempty"`
	EmbeddingModelVersion   string            `bson:"embedding_model_version,omitempty"`
	CreatedAt               time.Time         `bson:"created_at"`
	UpdatedAt               time.Time         `bson:"updated_at"`
}

type mongoChunk struct {
	ID                      string    `bson:"_id"`
	DocumentID              string    `bson:"document_id"`
	Content                 string    `bson:"content"`
	ChunkIndex              int       `bson:"chunk_index"`
	TokenCount              int       `bson:"token_count,omitempty"`
	Embedding               []float32 `bson:"embedding,omitempty"`
	ChunkingStrategyVersion string    `bson:"chunking_strategy_version,omitempty"`
	EmbeddingModelVersion   string    `bson:"embedding_model_version,omitempty"`
	CreatedAt               time.Time `bson:"created_at"`
	UpdatedAt               time.Time `bson:"updated_at"`
}

func validate(cfg *Config) error {
	return config.NewValidator().
		RequireNonEmpty("uri", cfg.URI).
		RequireNonEmpty("database", cfg.Database).
		Err()
}

// New creates a MongoDB-backed knowledge repository.
func New(config *Config) (*Repository, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := validate(config); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(config.URI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	db := client.Database(config.Database)
	repo := &Repository{
		client:    client,
		documents: db.Collection("documents"),
		chunks:    db.Collection("chunks"),
	}
	if err := repo.createIndexes(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to create indexes: %w", err)
	}
	return repo, nil
}

func (r *Repository) createIndexes(ctx context.Context) error {
	_, err := r.chunks.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "document_id", Value: 1}, {Key: "chunk_index", Value: 1}},
	})
	return err
}

// SaveDocument stores the document and replaces its chunk set.
func (r *Repository) SaveDocument(ctx context.Context, doc document.Document, chunks []document.Chunk) error {
	if doc.ID == "" {
		return fmt.Errorf("mongo: document id is required: %w", pkgerrors.ErrInvalidInput)
	}

	opts := options.Replace().SetUpsert(true)
	if _, err := r.documents.ReplaceOne(ctx, bson.M{"_id": doc.ID}, toMongoDocument(doc), opts); err != nil {
		return fmt.Errorf("failed to save document %s: %w", doc.ID, err)
	}

	if _, err := r.chunks.DeleteMany(ctx, bson.M{"document_id": doc.ID}); err != nil {
		return fmt.Errorf("failed to delete previous chunks: %w", err)
	}
	if len(chunks) == 0 {
		return nil
	}
	docs := make([]any, len(chunks))
	for i, chunk := range chunks {
		docs[i] = toMongoChunk(chunk)
	}
	if _, err := r.chunks.InsertMany(ctx, docs); err != nil {
		return fmt.Errorf("failed to insert chunks for %s: %w", doc.ID, err)
	}
	return nil
}

// DeleteDocument removes the document and its chunks.
func (r *Repository) DeleteDocument(ctx context.Context, documentID string) error {
	if _, err := r.chunks.DeleteMany(ctx, bson.M{"document_id": documentID}); err != nil {
		return fmt.Errorf("failed to delete chunks for %s: %w", documentID, err)
	}
	if _, err := r.documents.DeleteOne(ctx, bson.M{"_id": documentID}); err != nil {
		return fmt.Errorf("failed to delete document %s: %w", documentID, err)
	}
	return nil
}

// Document fetches a document by ID.
func (r *Repository) Document(ctx context.Context, documentID string) (document.Document, error) {
	var stored mongoDocument
	err := r.documents.FindOne(ctx, bson.M{"_id": documentID}).Decode(&stored)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return document.Document{}, fmt.Errorf("mongo: document %s: %w", documentID, pkgerrors.ErrNotFound)
		}
		return document.Document{}, fmt.Errorf("failed to get document %s: %w", documentID, err)
	}
	return fromMongoDocument(stored), nil
}

// Chunk fetches a chunk by ID.
func (r *Repository) Chunk(ctx context.Context, chunkID string) (document.Chunk, error) {
	var stored mongoChunk
	err := r.chunks.FindOne(ctx, bson.M{"_id": chunkID}).Decode(&stored)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return document.Chunk{}, fmt.Errorf("mongo: chunk %s: %w", chunkID, pkgerrors.ErrNotFound)
		}
		return document.Chunk{}, fmt.Errorf("failed to get chunk %s: %w", chunkID, err)
	}
	return fromMongoChunk(stored), nil
}

// DocumentWithChunks fetches a document and its ordered chunk set.
func (r *Repository) DocumentWithChunks(ctx context.Context, documentID string) (document.Document, []document.Chunk, error) {
	doc, err := r.Document(ctx, documentID)
	if err != nil {
		return document.Document{}, nil, err
	}

	opts := options.Find().SetSort(bson.D{{Key: "chunk_index", Value: 1}})
	cursor, err := r.chunks.Find(ctx, bson.M{"document_id": documentID}, opts)
	if err != nil {
		return document.Document{}, nil, fmt.Errorf("failed to list chunks for %s: %w", documentID, err)
	}
	defer cursor.Close(ctx)

	var chunks []document.Chunk
	for cursor.Next(ctx) {
		var stored mongoChunk
		if err := cursor.Decode(&stored); err != nil {
			return document.Document{}, nil, fmt.Errorf("failed to decode chunk: %w", err)
		}
		chunks = append(chunks, fromMongoChunk(stored))
	}
	if err := cursor.Err(); err != nil {
		return document.Document{}, nil, fmt.Errorf("error iterating chunks: %w", err)
	}
	return doc, chunks, nil
}

// Close disconnects the underlying client.
func (r *Repository) Close(ctx context.Context) error {
	return r.client.Disconnect(ctx)
}

func toMongoDocument(doc document.Document) mongoDocument {
	return mongoDocument{
		ID:                      doc.ID,
		Title:                   doc.Title,
		Description:             doc.Description,
		SourceType:              string(doc.SourceType),
		URI:                     doc.URI,
		Metadata:                doc.Metadata,
		ChunkingStrategyVersion: doc.ChunkingStrategyVersion,
		EmbeddingModelVersion:   doc.EmbeddingModelVersion,
		CreatedAt:               doc.CreatedAt,
		UpdatedAt:               doc.UpdatedAt,
	}
}

func fromMongoDocument(stored mongoDocument) document.Document {
	return document.Document{
		ID:                      stored.ID,
		Title:                   stored.Title,
		Description:             stored.Description,
		SourceType:              document.SourceType(stored.SourceType),
		URI:                     stored.URI,
		Metadata:                stored.Metadata,
		ChunkingStrategyVersion: stored.ChunkingStrategyVersion,
		EmbeddingModelVersion:   stored.EmbeddingModelVersion,
		CreatedAt:               stored.CreatedAt,
		UpdatedAt:               stored.UpdatedAt,
	}
}

func toMongoChunk(chunk document.Chunk) mongoChunk {
	return mongoChunk{
		ID:                      chunk.ID,
		DocumentID:              chunk.DocumentID,
		Content:                 chunk.Content,
		ChunkIndex:              chunk.ChunkIndex,
		TokenCount:              chunk.TokenCount,
		Embedding:               chunk.Embedding,
		ChunkingStrategyVersion: chunk.ChunkingStrategyVersion,
		EmbeddingModelVersion:   chunk.EmbeddingModelVersion,
		CreatedAt:               chunk.CreatedAt,
		UpdatedAt:               chunk.UpdatedAt,
	}
}

func fromMongoChunk(stored mongoChunk) document.Chunk {
	return document.Chunk{
		ID:                      stored.ID,
		DocumentID:              stored.DocumentID,
		Content:                 stored.Content,
		ChunkIndex:              stored.ChunkIndex,
		TokenCount:              stored.TokenCount,
		Embedding:               stored.Embedding,
		ChunkingStrategyVersion: stored.ChunkingStrategyVersion,
		EmbeddingModelVersion:   stored.EmbeddingModelVersion,
		CreatedAt:               stored.CreatedAt,
		UpdatedAt:               stored.UpdatedAt,
	}
}

var _ knowledge.Repository = (*Repository)(nil)
