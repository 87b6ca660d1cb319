// Package inmem provides an in-memory vector store with optional snapshot
// persistence.
package inmem

import (
	"context"
	"encoding/gob"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/recallmem/recallmem-go/pkg/core"
	"github.com/recallmem/recallmem-go/pkg/vectorstore"
)

func init() {
	// Metadata values survive a gob round trip only when their concrete
	// types are registered.
	gob.Register(map[string]interface{}{})
	gob.Register([]interface{}{})
}

// Store is an in-memory vector store.
//
// Documents and embeddings are held in parallel slices; index i of each
// slice belongs to the same document. IDs are assigned sequentially.
type Store struct {
	mu         sync.RWMutex
	documents  []vectorstore.Document
	embeddings [][]float64
	dimension  int
	nextID     int64
}

// snapshot is the gob-encoded persistence format.
type snapshot struct {
	Documents  []vectorstore.Document
	Embeddings [][]float64
	Dimension  int
	NextID     int64
}

// New creates an empty in-memory store. The embedding dimension is fixed
// by the first batch added.
func New() *Store {
	return &Store{}
}

// Add inserts documents with their embeddings.
//
// The batch is validated before anything is stored: a length mismatch or a
// wrong-dimension embedding rejects the whole batch.
func (s *Store) Add(ctx context.Context, documents []vectorstore.Document, embeddings [][]float64) ([]int64, error) {
	if len(documents) != len(embeddings) {
		return nil, core.NewMemoryError("add documents",
			fmt.Errorf("%w: %d documents but %d embeddings", core.ErrDimensionMismatch, len(documents), len(embeddings)))
	}
	if len(documents) == 0 {
		return nil, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	dim := s.dimension
	if dim == 0 {
		dim = len(embeddings[0])
	}
	for i, emb := range embeddings {
		if len(emb) != dim {
			return nil, core.NewMemoryError("add documents",
				fmt.Errorf("%w: embedding %d has dimension %d, want %d", core.ErrDimensionMismatch, i, len(emb), dim))
		}
	}

	s.dimension = dim

	ids := make([]int64, len(documents))
	for i, doc := range documents {
		doc.ID = s.nextID
		s.nextID++
		ids[i] = doc.ID
		s.documents = append(s.documents, doc)
		s.embeddings = append(s.embeddings, emb(embeddings[i]))
	}
	return ids, nil
}

// emb copies an embedding so later caller mutations cannot alias store state.
func emb(v []float64) []float64 {
	out := make([]float64, len(v))
	copy(out, v)
	return out
}

// SimilaritySearch returns the top-k documents by cosine similarity.
func (s *Store) SimilaritySearch(ctx context.Context, query []float64, k int, filter map[string]interface{}) ([]vectorstore.SearchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.documents) == 0 || k <= 0 {
		return nil, nil
	}
	if s.dimension != 0 && len(query) != s.dimension {
		return nil, core.NewMemoryError("similarity search",
			fmt.Errorf("%w: query has dimension %d, want %d", core.ErrDimensionMismatch, len(query), s.dimension))
	}

	results := make([]vectorstore.SearchResult, 0, len(s.documents))
	for i, doc := range s.documents {
		if !matchesFilter(doc.Metadata, filter) {
			continue
		}
		results = append(results, vectorstore.SearchResult{
			Document: doc,
			Score:    CosineSimilarity(query, s.embeddings[i]),
			Source:   "vector",
		})
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
func (s *Store) Delete(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}

	remove := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		remove[id] = struct{}{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	docs := s.documents[:0]
	embs := s.embeddings[:0]
	for i, doc := range s.documents {
		if _, ok := remove[doc.ID]; ok {
			continue
		}
		docs = append(docs, doc)
		embs = append(embs, s.embeddings[i])
	}
	s.documents = docs
	s.embeddings = embs
	return nil
}

// Stats returns summary statistics for the store.
func (s *Store) Stats(ctx context.Context) (*vectorstore.Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	total := 0
	for _, doc := range s.documents {
		total += len(doc.Content)
	}
	return &vectorstore.Stats{
		DocumentCount:   len(s.documents),
		Dimension:       s.dimension,
		TotalCharacters: total,
	}, nil
}

// Save writes the store contents to path. The file is written to a
// temporary sibling first and renamed into place.
func (s *Store) Save(path string) error {
	// Delete compacts the backing arrays in place, so the snapshot must
	// copy them before the lock is released. The inner embedding slices are
	// never written after Add, so copying the outer slices is enough.
	s.mu.RLock()
	snap := snapshot{
		Documents:  append([]vectorstore.Document(nil), s.documents...),
		Embeddings: append([][]float64(nil), s.embeddings...),
		Dimension:  s.dimension,
		NextID:     s.nextID,
	}
	s.mu.RUnlock()

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return core.NewMemoryError("save vector store", err)
		}
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp*")
	if err != nil {
		return core.NewMemoryError("save vector store", err)
	}
	if err := gob.NewEncoder(tmp).Encode(&snap); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return core.NewMemoryError("save vector store", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return core.NewMemoryError("save vector store", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		_ = os.Remove(tmp.Name())
		return core.NewMemoryError("save vector store", err)
	}
	return nil
}

// Load replaces the store contents with a previously saved snapshot.
func (s *Store) Load(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return core.NewMemoryError("load vector store", err)
	}
	defer func() { _ = f.Close() }()

	var snap snapshot
	if err := gob.NewDecoder(f).Decode(&snap); err != nil {
		return core.NewMemoryError("load vector store", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.documents = snap.Documents
	s.embeddings = snap.Embeddings
	s.dimension = snap.Dimension
	s.nextID = snap.NextID
	return nil
}

// Close closes the store.
func (s *Store) Close() error {
	return nil
}

// CosineSimilarity computes cosine similarity between two vectors.
// Returns 0 when either vector has zero norm or lengths differ.
func CosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

func matchesFilter(metadata, filter map[string]interface{}) bool {
	if len(filter) == 0 {
		return true
	}
	for key, want := range filter {
		got, ok := metadata[key]
		if !ok || got != want {
			return false
		}
	}
	return true
}
