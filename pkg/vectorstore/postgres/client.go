// Package postgres provides a PostgreSQL + pgvector implementation of the
// vector store. Similarity search runs inside the database using pgvector's
// cosine distance operator.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "github.com/lib/pq"

	"github.com/recallmem/recallmem-go/pkg/core"
	"github.com/recallmem/recallmem-go/pkg/vectorstore"
)

// Client is a PostgreSQL + pgvector store client.
type Client struct {
	db             *sql.DB
	collectionName string
	dimensions     int
}

// Config contains PostgreSQL configuration.
type Config struct {
	Host               string
	Port               int
	User               string
	Password           string
	DBName             string
	CollectionName     string
	EmbeddingModelDims int
	SSLMode            string
}

// NewClient creates a new PostgreSQL store client.
func NewClient(cfg *Config) (*Client, error) {
	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}

	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, sslMode)

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("NewPostgresClient: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("NewPostgresClient: %w", err)
	}

	collection := cfg.CollectionName
	if collection == "" {
		collection = "documents"
	}

	client := &Client{
		db:             db,
		collectionName: collection,
		dimensions:     cfg.EmbeddingModelDims,
	}

	if err := client.initTables(context.Background()); err != nil {
		return nil, err
	}

	return client, nil
}

// initTables enables pgvector and creates the documents table.
func (c *Client) initTables(ctx context.Context) error {
	_, err := c.db.ExecContext(ctx, "CREATE EXTENSION IF NOT EXISTS vector")
	if err != nil {
		return fmt.Errorf("initTables: create extension: %w", err)
	}

	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id BIGSERIAL PRIMARY KEY,
			content TEXT NOT NULL,
			embedding vector(%d) NOT NULL,
			metadata JSONB,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`, c.collectionName, c.dimensions)

	_, err = c.db.ExecContext(ctx, query)
	if err != nil {
		return fmt.Errorf("initTables: create table: %w", err)
	}

	return nil
}

// Add inserts documents with their embeddings in a single transaction.
func (c *Client) Add(ctx context.Context, documents []vectorstore.Document, embeddings [][]float64) ([]int64, error) {
	if len(documents) != len(embeddings) {
		return nil, core.NewMemoryError("add documents",
			fmt.Errorf("%w: %d documents but %d embeddings", core.ErrDimensionMismatch, len(documents), len(embeddings)))
	}
	if len(documents) == 0 {
		return nil, nil
	}

	for i, emb := range embeddings {
		if len(emb) != c.dimensions {
			return nil, core.NewMemoryError("add documents",
				fmt.Errorf("%w: embedding %d has dimension %d, want %d", core.ErrDimensionMismatch, i, len(emb), c.dimensions))
		}
	}

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("Add: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	query := fmt.Sprintf(`
		INSERT INTO %s (content, embedding, metadata)
		VALUES ($1, $2, $3)
		RETURNING id
	`, c.collectionName)

	ids := make([]int64, len(documents))
	for i, doc := range documents {
		metadataJSON, err := json.Marshal(doc.Metadata)
		if err != nil {
			return nil, fmt.Errorf("Add: %w", err)
		}

		var id int64
		err = tx.QueryRowContext(ctx, query, doc.Content, vectorToString(embeddings[i]), string(metadataJSON)).Scan(&id)
		if err != nil {
			return nil, fmt.Errorf("Add: %w", err)
		}
		ids[i] = id
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("Add: %w", err)
	}

	return ids, nil
}

// SimilaritySearch performs vector search using pgvector's cosine distance.
// Metadata filters are applied with JSONB containment.
func (c *Client) SimilaritySearch(ctx context.Context, query []float64, k int, filter map[string]interface{}) ([]vectorstore.SearchResult, error) {
	if k <= 0 {
		return nil, nil
	}

	whereClause := ""
	args := []interface{}{vectorToString(query)}
	if len(filter) > 0 {
		filterJSON, err := json.Marshal(filter)
		if err != nil {
			return nil, fmt.Errorf("SimilaritySearch: %w", err)
		}
		whereClause = "WHERE metadata @> $2::jsonb"
		args = append(args, string(filterJSON))
	}

	// <=> is cosine distance; similarity = 1 - distance.
	selectQuery := fmt.Sprintf(`
		SELECT id, content, metadata, 1 - (embedding <=> $1) AS similarity
		FROM %s
		%s
		ORDER BY embedding <=> $1
		LIMIT $%d
	`, c.collectionName, whereClause, len(args)+1)
	args = append(args, k)

	rows, err := c.db.QueryContext(ctx, selectQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("SimilaritySearch: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []vectorstore.SearchResult
	for rows.Next() {
		var doc vectorstore.Document
		var metadataStr sql.NullString
		var score float64

		if err := rows.Scan(&doc.ID, &doc.Content, &metadataStr, &score); err != nil {
			return nil, fmt.Errorf("SimilaritySearch: %w", err)
		}
		if metadataStr.Valid && metadataStr.String != "" && metadataStr.String != "null" {
			if err := json.Unmarshal([]byte(metadataStr.String), &doc.Metadata); err != nil {
				return nil, fmt.Errorf("SimilaritySearch: parse metadata: %w", err)
			}
		}

		results = append(results, vectorstore.SearchResult{
			Document: doc,
			Score:    score,
			Source:   "vector",
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("SimilaritySearch: %w", err)
	}

	return results, nil
}

// Delete removes documents by ID. Unknown IDs are ignored.
func (c *Client) Delete(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}

	placeholders := ""
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		if i > 0 {
			placeholders += ", "
		}
		placeholders += fmt.Sprintf("$%d", i+1)
		args[i] = id
	}

	query := fmt.Sprintf("DELETE FROM %s WHERE id IN (%s)", c.collectionName, placeholders)
	if _, err := c.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("Delete: %w", err)
	}
	return nil
}

// Stats returns summary statistics for the store.
func (c *Client) Stats(ctx context.Context) (*vectorstore.Stats, error) {
	query := fmt.Sprintf(`
		SELECT COUNT(*), COALESCE(SUM(LENGTH(content)), 0)
		FROM %s
	`, c.collectionName)

	var count, totalChars int
	if err := c.db.QueryRowContext(ctx, query).Scan(&count, &totalChars); err != nil {
		return nil, fmt.Errorf("Stats: %w", err)
	}

	dim := c.dimensions
	if count == 0 {
		dim = 0
	}
	return &vectorstore.Stats{
		DocumentCount:   count,
		Dimension:       dim,
		TotalCharacters: totalChars,
	}, nil
}

// Save is a no-op. PostgreSQL persists on every write.
func (c *Client) Save(path string) error {
	return nil
}

// Load is a no-op. Contents live in the database.
func (c *Client) Load(path string) error {
	return nil
}

// Close closes the database connection.
func (c *Client) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}
