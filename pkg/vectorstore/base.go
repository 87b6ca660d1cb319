// Package vectorstore provides interfaces and types for vector storage backends.
//
// It defines the Store interface that all storage implementations must satisfy,
// along with document and search result types.
package vectorstore

import "context"

// Document represents a text document stored in a vector store.
type Document struct {
	// ID is the unique identifier assigned by the store on insertion.
	ID int64

	// Content is the text content of the document.
	Content string

	// Metadata contains additional structured information.
	Metadata map[string]interface{}
}

// SearchResult represents a single similarity search hit.
type SearchResult struct {
	// Document is the matched document.
	Document Document

	// Score is the cosine similarity between the query and the document,
	// in [-1, 1]. Higher is more similar.
	Score float64

	// Source identifies which retrieval path produced the result
	// ("vector", "keyword", or "hybrid"). Empty for plain vector search.
	Source string
}

// Stats contains summary statistics for a store.
type Stats struct {
	// DocumentCount is the number of documents in the store.
	DocumentCount int

	// Dimension is the embedding dimension, or 0 if the store is empty
	// and no dimension has been fixed yet.
	Dimension int

	// TotalCharacters is the sum of content lengths across all documents.
	TotalCharacters int
}

// Store defines the interface for vector storage backends.
//
// All storage implementations (in-memory, SQLite, PostgreSQL, MySQL) must
// implement this interface.
type Store interface {
	// Add inserts documents with their pre-computed embeddings.
	//
	// documents and embeddings must have equal length, and every embedding
	// must match the store's dimension. A mismatch rejects the whole batch
	// and leaves the store unchanged. Returns the assigned document IDs.
	Add(ctx context.Context, documents []Document, embeddings [][]float64) ([]int64, error)

	// SimilaritySearch returns the top-k documents most similar to the
	// query embedding, sorted by score descending. filter, when non-nil,
	// keeps only documents whose metadata contains every filter entry.
	SimilaritySearch(ctx context.Context, query []float64, k int, filter map[string]interface{}) ([]SearchResult, error)

	// Delete removes documents by ID. Unknown IDs are ignored.
	Delete(ctx context.Context, ids []int64) error

	// Stats returns summary statistics for the store.
	Stats(ctx context.Context) (*Stats, error)

	// Save persists the store contents to the given path. Backends that
	// persist on every write may implement this as a no-op.
	Save(path string) error

	// Load restores the store contents from the given path, replacing any
	// current contents.
	Load(path string) error

	// Close closes the store and releases resources.
	Close() error
}
