// Package sqlite provides a SQLite implementation of the vector store.
//
// SQLite is a lightweight, file-based database suitable for local development
// and small-scale applications. Vectors are stored as JSON strings in TEXT
// fields, and similarity search uses in-memory cosine similarity calculation.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	_ "github.com/mattn/go-sqlite3"

	"github.com/recallmem/recallmem-go/pkg/core"
	"github.com/recallmem/recallmem-go/pkg/vectorstore"
)

// Client implements vectorstore.Store using SQLite as the backend.
type Client struct {
	// db is the SQLite database connection.
	db *sql.DB

	// collectionName is the name of the table storing documents.
	collectionName string

	// dimensions is the dimension of embedding vectors. Fixed by
	// configuration or by the first inserted batch.
	dimensions int
}

// Config contains configuration for creating a SQLite store.
type Config struct {
	// DBPath is the path to the SQLite database file.
	DBPath string

	// CollectionName is the name of the table to use. Defaults to "documents".
	CollectionName string

	// EmbeddingModelDims is the dimension of embedding vectors. When 0 the
	// dimension is inferred from existing rows or the first inserted batch.
	EmbeddingModelDims int
}

// NewClient creates a new SQLite store client.
func NewClient(cfg *Config) (*Client, error) {
	dbDir := filepath.Dir(cfg.DBPath)
	if dbDir != "" && dbDir != "." {
		if err := os.MkdirAll(dbDir, 0755); err != nil {
			return nil, fmt.Errorf("NewSQLiteClient: failed to create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", cfg.DBPath+"?_foreign_keys=1&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("NewSQLiteClient: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("NewSQLiteClient: %w", err)
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

	if client.dimensions == 0 {
		if err := client.inferDimensions(context.Background()); err != nil {
			return nil, err
		}
	}

	return client, nil
}

// initTables initializes the database table structure.
//
// SQLite stores vectors as JSON strings in TEXT fields.
func (c *Client) initTables(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			content TEXT NOT NULL,
			embedding TEXT NOT NULL,
			metadata TEXT,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`, c.collectionName)

	if _, err := c.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("initTables: %w", err)
	}
	return nil
}

// inferDimensions reads the dimension from an existing row, if any.
func (c *Client) inferDimensions(ctx context.Context) error {
	query := fmt.Sprintf("SELECT embedding FROM %s LIMIT 1", c.collectionName)

	var embeddingStr string
	err := c.db.QueryRowContext(ctx, query).Scan(&embeddingStr)
	if err == sql.ErrNoRows {
		return nil
	}
	if err != nil {
		return fmt.Errorf("inferDimensions: %w", err)
	}

	var embedding []float64
	if err := json.Unmarshal([]byte(embeddingStr), &embedding); err != nil {
		return fmt.Errorf("inferDimensions: parse embedding: %w", err)
	}
	c.dimensions = len(embedding)
	return nil
}

// Add inserts documents with their embeddings in a single transaction.
//
// The batch is validated before the transaction starts: a length mismatch or
// a wrong-dimension embedding rejects the whole batch.
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

// SimilaritySearch performs vector similarity search using cosine similarity.
//
// SQLite does not have native vector operations, so similarity is calculated
// in memory after loading all rows. Metadata filters are applied after the
// scan for the same reason.
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
		doc, embedding, err := scanDocument(rows)
		if err != nil {
			return nil, err
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

// Save is a no-op. SQLite persists on every write.
func (c *Client) Save(path string) error {
	return nil
}

// Load is a no-op. SQLite contents are loaded from the database file on open.
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

// scanDocument scans a document and its embedding from a row set.
func scanDocument(rows *sql.Rows) (vectorstore.Document, []float64, error) {
	var doc vectorstore.Document
	var embeddingStr string
	var metadataStr sql.NullString

	if err := rows.Scan(&doc.ID, &doc.Content, &embeddingStr, &metadataStr); err != nil {
		return vectorstore.Document{}, nil, fmt.Errorf("scan document: %w", err)
	}

	var embedding []float64
	if err := json.Unmarshal([]byte(embeddingStr), &embedding); err != nil {
		return vectorstore.Document{}, nil, fmt.Errorf("parse embedding: %w", err)
	}

	if metadataStr.Valid && metadataStr.String != "" && metadataStr.String != "null" {
		if err := json.Unmarshal([]byte(metadataStr.String), &doc.Metadata); err != nil {
			return vectorstore.Document{}, nil, fmt.Errorf("parse metadata: %w", err)
		}
	}

	return doc, embedding, nil
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
		// JSON numbers decode as float64; normalize ints before comparing.
		if wi, ok := want.(int); ok {
			want = float64(wi)
		}
		if got != want {
			return false
		}
	}
	return true
}
