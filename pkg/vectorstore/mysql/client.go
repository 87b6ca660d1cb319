// Package mysql provides a MySQL implementation of the vector store.
//
// Plain MySQL has no native vector type, so embeddings are stored as JSON
// strings and similarity is calculated in memory, the same strategy the
// SQLite backend uses.
package mysql

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"math"
	"sort"

	_ "github.com/go-sql-driver/mysql"

	"github.com/recallmem/recallmem-go/pkg/core"
	"github.com/recallmem/recallmem-go/pkg/vectorstore"
)

// Client is a MySQL store client.
type Client struct {
	db             *sql.DB
	collectionName string
	dimensions     int
}

// Config contains MySQL configuration.
type Config struct {
	Host               string
	Port               int
	User               string
	Password           string
	DBName             string
	CollectionName     string
	EmbeddingModelDims int
}

// NewClient creates a new MySQL store client.
func NewClient(cfg *Config) (*Client, error) {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.DBName)

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("NewMySQLClient: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("NewMySQLClient: %w", err)
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

// initTables initializes the database table.
func (c *Client) initTables(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id BIGINT PRIMARY KEY AUTO_INCREMENT,
			content LONGTEXT NOT NULL,
			embedding LONGTEXT NOT NULL,
			metadata JSON,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`, c.collectionName)

	if _, err := c.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("initTables: %w", err)
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

	dim := c.dimensions
	if dim == 0 {
		dim = len(embeddings[0])
	}
	for i, emb := range embeddings {
		if len(emb) != dim {
			return nil, core.NewMemoryError("add documents",
				fmt.Errorf("%w: embedding %d has dimension %d, want %d", core.ErrDimensionMismatch, i, len(emb), dim))
		}
	}

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("Add: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	query := fmt.Sprintf(`
		INSERT INTO %s (content, embedding, metadata)
		VALUES (?, ?, ?)
	`, c.collectionName)

	ids := make([]int64, len(documents))
	for i, doc := range documents {
		embeddingJSON, err := json.Marshal(embeddings[i])
		if err != nil {
			return nil, fmt.Errorf("Add: %w", err)
		}
		metadataJSON, err := json.Marshal(doc.Metadata)
		if err != nil {
			return nil, fmt.Errorf("Add: %w", err)
		}

		result, err := tx.ExecContext(ctx, query, doc.Content, string(embeddingJSON), string(metadataJSON))
		if err != nil {
			return nil, fmt.Errorf("Add: %w", err)
		}
		id, err := result.LastInsertId()
		if err != nil {
			return nil, fmt.Errorf("Add: %w", err)
		}
		ids[i] = id
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("Add: %w", err)
	}

	c.dimensions = dim
	return ids, nil
}

// SimilaritySearch performs vector similarity search with in-memory cosine
// similarity, loading all rows and filtering on metadata after the scan.
func (c *Client) SimilaritySearch(ctx context.Context, query []float64, k int, filter map[string]interface{}) ([]vectorstore.SearchResult, error) {
	if k <= 0 {
		return nil, nil
	}

	selectQuery := fmt.Sprintf(`
		SELECT id, content, embedding, metadata
		FROM %s
		ORDER BY id
	`, c.collectionName)

	rows, err := c.db.QueryContext(ctx, selectQuery)
	if err != nil {
		return nil, fmt.Errorf("SimilaritySearch: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []vectorstore.SearchResult
	for rows.Next() {
		var doc vectorstore.Document
		var embeddingStr string
		var metadataStr sql.NullString

		if err := rows.Scan(&doc.ID, &doc.Content, &embeddingStr, &metadataStr); err != nil {
			return nil, fmt.Errorf("SimilaritySearch: %w", err)
		}

		var embedding []float64
		if err := json.Unmarshal([]byte(embeddingStr), &embedding); err != nil {
			return nil, fmt.Errorf("SimilaritySearch: parse embedding: %w", err)
		}
		if metadataStr.Valid && metadataStr.String != "" && metadataStr.String != "null" {
			if err := json.Unmarshal([]byte(metadataStr.String), &doc.Metadata); err != nil {
				return nil, fmt.Errorf("SimilaritySearch: parse metadata: %w", err)
			}
		}

		if !matchesFilter(doc.Metadata, filter) {
			continue
		}

		results = append(results, vectorstore.SearchResult{
			Document: doc,
			Score:    cosineSimilarity(query, embedding),
			Source:   "vector",
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("SimilaritySearch: %w", err)
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if len(results) > k {
		results = results[:k]
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
		placeholders += "?"
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
		SELECT COUNT(*), COALESCE(SUM(CHAR_LENGTH(content)), 0)
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

// Save is a no-op. MySQL persists on every write.
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

func cosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) {
		return 0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}

func matchesFilter(metadata, filter map[string]interface{}) bool {
	if len(filter) == 0 {
		return true
	}
	for key, want := range filter {
		got, ok := metadata[key]
		if !ok {
			return false
		}
		if wi, ok := want.(int); ok {
			want = float64(wi)
		}
		if got != want {
			return false
		}
	}
	return true
}
