package pg

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	_ "github.com/lib/pq"

	"github.com/sweetpotato0/ragline/config"
	"github.com/sweetpotato0/ragline/document"
	"github.com/sweetpotato0/ragline/vector"
)

// Store implements vector.Store on PostgreSQL with the pgvector extension.
type Store struct {
	db        *sql.DB
	dimension int
	tableName string
}

// Config holds pgvector configuration.
type Config struct {
	Host      string
	Port      int
	User      string
	Password  string
	DBName    string
	SSLMode   string
	Dimension int    // Embedding dimension (default: 1536)
	TableName string // Table name (default: rag_chunks)
}

// DefaultConfig returns default pgvector configuration.
func DefaultConfig() *Config {
	return &Config{
		Host:      "127.0.0.1",
		Port:      5432,
		User:      "postgres",
		Password:  "postgres",
		DBName:    "ragline",
		SSLMode:   "disable",
		Dimension: 1536,
		TableName: "rag_chunks",
	}
}

func validate(cfg *Config) error {
	return config.NewValidator().
		RequireNonEmpty("host", cfg.Host).
		RequireRange("port", cfg.Port, 1, 65535).
		RequireNonEmpty("table_name", cfg.TableName).
		RequirePositive("dimension", cfg.Dimension).
		Err()
}

// New creates a pgvector-backed store.
func New(config *Config) (*Store, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := validate(config); err != nil {
		return nil, err
	}

	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		config.Host, config.Port, config.User, config.Password, config.DBName, config.SSLMode)

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping PostgreSQL: %w", err)
	}

	store := &Store{
		db:        db,
		dimension: config.Dimension,
		tableName: config.TableName,
	}
	if err := store.setup(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to setup pgvector: %w", err)
	}
	return store, nil
}

func (s *Store) setup(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		return fmt.Errorf("failed to create vector extension: %w", err)
	}

	createTableSQL := fmt.Sprintf(`
	CREATE TABLE IF NOT EXISTS %s (
		id VARCHAR(255) PRIMARY KEY,
		document_id VARCHAR(255) NOT NULL,
		chunk_index INT NOT NULL,
		content TEXT NOT NULL,
		metadata JSONB NOT NULL DEFAULT '{}',
		embedding vector(%d) NOT NULL,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`, s.tableName, s.dimension)
	if _, err := s.db.ExecContext(ctx, createTableSQL); err != nil {
		return fmt.Errorf("failed to create table: %w", err)
	}

	indexSQL := fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_document_id_idx ON %s (document_id)`,
		s.tableName, s.tableName)
	if _, err := s.db.ExecContext(ctx, indexSQL); err != nil {
		return fmt.Errorf("failed to create document index: %w", err)
	}
	return nil
}

// Upsert replaces the indexed chunks of a document.
func (s *Store) Upsert(ctx context.Context, doc document.Document, chunks []document.Chunk) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin upsert: %w", err)
	}
	defer tx.Rollback()

	deleteSQL := fmt.Sprintf("DELETE FROM %s WHERE document_id = $1", s.tableName)
	if _, err := tx.ExecContext(ctx, deleteSQL, doc.ID); err != nil {
		return fmt.Errorf("failed to delete previous chunks: %w", err)
	}

	metadata, err := json.Marshal(doc.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}

	insertSQL := fmt.Sprintf(`
	INSERT INTO %s (id, document_id, chunk_index, content, metadata, embedding)
	VALUES ($1, $2, $3, $4, $5, $6::vector)`, s.tableName)
	for _, chunk := range chunks {
		if len(chunk.Embedding) != s.dimension {
			return fmt.Errorf("chunk %s dimension mismatch: expected %d, got %d",
				chunk.ID, s.dimension, len(chunk.Embedding))
		}
		if _, err := tx.ExecContext(ctx, insertSQL,
			chunk.ID, doc.ID, chunk.ChunkIndex, chunk.Content, metadata, vectorToString(chunk.Embedding),
		); err != nil {
			return fmt.Errorf("failed to insert chunk %s: %w", chunk.ID, err)
		}
	}
	return tx.Commit()
}

// Delete removes all entries belonging to a document.
func (s *Store) Delete(ctx context.Context, documentID string) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE document_id = $1", s.tableName)
	if _, err := s.db.ExecContext(ctx, query, documentID); err != nil {
		return fmt.Errorf("failed to delete document %s: %w", documentID, err)
	}
	return nil
}

// Query finds the topK entries nearest to the query vector using cosine
// distance.
func (s *Store) Query(ctx context.Context, queryVector []float32, topK int, filters map[string]string) ([]vector.Match, error) {
	if len(queryVector) != s.dimension {
		return nil, fmt.Errorf("query vector dimension mismatch: expected %d, got %d", s.dimension, len(queryVector))
	}
	if topK <= 0 {
		topK = 10
	}

	var sb strings.Builder
	args := []any{vectorToString(queryVector)}
	fmt.Fprintf(&sb, `
	SELECT id, document_id, chunk_index, content, metadata, 1 - (embedding <=> $1::vector) AS score
	FROM %s`, s.tableName)
	if len(filters) > 0 {
		filterJSON, err := json.Marshal(filters)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal filters: %w", err)
		}
		args = append(args, filterJSON)
		fmt.Fprintf(&sb, " WHERE metadata @> $%d", len(args))
	}
	args = append(args, topK)
	fmt.Fprintf(&sb, " ORDER BY embedding <=> $1::vector LIMIT $%d", len(args))

	rows, err := s.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query embeddings: %w", err)
	}
	defer rows.Close()

	matches := make([]vector.Match, 0, topK)
	for rows.Next() {
		var match vector.Match
		var metadataJSON []byte
		if err := rows.Scan(&match.ID, &match.DocumentID, &match.ChunkIndex, &match.Text, &metadataJSON, &match.Score); err != nil {
			return nil, fmt.Errorf("failed to scan match: %w", err)
		}
		if len(metadataJSON) > 0 {
			if err := json.Unmarshal(metadataJSON, &match.Metadata); err != nil {
				return nil, fmt.Errorf("failed to parse metadata for %s: %w", match.ID, err)
			}
		}
		matches = append(matches, match)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating matches: %w", err)
	}
	return matches, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func vectorToString(vec []float32) string {
	parts := make([]string, len(vec))
	for i, v := range vec {
		parts[i] = fmt.Sprintf("%f", v)
	}
	return "[" + strings.Join(parts, ",") + "]"
}

var _ vector.Store = (*Store)(nil)
