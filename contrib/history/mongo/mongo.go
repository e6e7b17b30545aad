package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/sweetpotato0/ragline/config"
	"github.com/sweetpotato0/ragline/history"
)

// Repository implements history.Repository using MongoDB. The write path is
// fire-and-forget from the orchestrator's perspective, so there is no read
// API beyond what operators query directly.
type Repository struct {
	client     *mongo.Client
	collection *mongo.Collection
}

// Config holds MongoDB connection configuration.
type Config struct {
	URI        string
	Database   string
	Collection string
}

// DefaultConfig returns default MongoDB configuration.
func DefaultConfig() *Config {
	return &Config{
		URI:        "mongodb://localhost:27017",
		Database:   "ragline",
		Collection: "query_history",
	}
}

func validate(cfg *Config) error {
	return config.NewValidator().
		RequireNonEmpty("uri", cfg.URI).
		RequireNonEmpty("database", cfg.Database).
		RequireNonEmpty("collection", cfg.Collection).
		Err()
}

// New creates a MongoDB-backed query history repository.
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

	collection := client.Database(config.Database).Collection(config.Collection)
	if _, err := collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "created_at", Value: -1}},
	}); err != nil {
		return nil, fmt.Errorf("failed to create index: %w", err)
	}
	return &Repository{client: client, collection: collection}, nil
}

// SaveQueryHistory implements history.Repository.
func (r *Repository) SaveQueryHistory(ctx context.Context, entry history.Entry) (string, error) {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	res, err := r.collection.InsertOne(ctx, bson.M{
		"query":                entry.Query,
		"result_count":         entry.ResultCount,
		"average_relevance":    entry.AverageRelevance,
		"citation_count":       entry.CitationCount,
		"document_ids":         entry.DocumentIDs,
		"top_k":                entry.TopK,
		"similarity_threshold": entry.SimilarityThreshold,
		"hybrid_search":        entry.HybridSearch,
		"reranker_enabled":     entry.RerankerEnabled,
		"score_improvement":    entry.ScoreImprovement,
		"gap_detected":         entry.GapDetected,
		"created_at":           entry.CreatedAt,
	})
	if err != nil {
		return "", fmt.Errorf("failed to save query history: %w", err)
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		return oid.Hex(), nil
	}
	return fmt.Sprintf("%v", res.InsertedID), nil
}

// Close disconnects the underlying client.
func (r *Repository) Close(ctx context.Context) error {
	return r.client.Disconnect(ctx)
}

var _ history.Repository = (*Repository)(nil)
