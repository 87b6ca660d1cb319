package vectorstore

import (
	"context"
	"sort"
	"strings"

	"github.com/recallmem/recallmem-go/pkg/core"
	"github.com/recallmem/recallmem-go/pkg/embedder"
)

const (
	// hybridVectorWeight and hybridKeywordWeight blend the two retrieval
	// signals. They must sum to 1.
	hybridVectorWeight  = 0.7
	hybridKeywordWeight = 0.3

	// hybridCandidateFactor over-fetches vector candidates before
	// re-scoring so keyword overlap can promote lower-ranked hits.
	hybridCandidateFactor = 3

	hybridQueryKeywords = 10
)

// HybridSearcher combines vector similarity with keyword overlap.
//
// Vector search alone misses exact-term matches when the embedding is weak
// (short queries, rare tokens); keyword overlap alone misses paraphrases.
// The searcher over-fetches vector candidates and re-scores each one as
// 0.7*similarity + 0.3*keyword-overlap.
type HybridSearcher struct {
	store    Store
	provider embedder.Provider
}

// NewHybridSearcher creates a searcher over the given store and embedder.
func NewHybridSearcher(store Store, provider embedder.Provider) *HybridSearcher {
	return &HybridSearcher{store: store, provider: provider}
}

// Search embeds the query, retrieves vector candidates, and re-scores them
// with keyword overlap. Results are sorted by combined score descending and
// truncated to k.
func (h *HybridSearcher) Search(ctx context.Context, query string, k int, filter map[string]interface{}) ([]SearchResult, error) {
	if k <= 0 {
		return nil, nil
	}

	queryEmbedding, err := h.provider.Embed(ctx, query)
	if err != nil {
		return nil, err
	}

	candidates, err := h.store.SimilaritySearch(ctx, queryEmbedding, k*hybridCandidateFactor, filter)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	queryKeywords := core.ExtractKeywords(query, hybridQueryKeywords)

	results := make([]SearchResult, len(candidates))
	for i, cand := range candidates {
		overlap := keywordOverlap(queryKeywords, cand.Document.Content)
		results[i] = SearchResult{
			Document: cand.Document,
			Score:    hybridVectorWeight*cand.Score + hybridKeywordWeight*overlap,
			Source:   "hybrid",
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

// keywordOverlap returns the fraction of query keywords present in the
// document content, in [0, 1].
func keywordOverlap(queryKeywords []string, content string) float64 {
	if len(queryKeywords) == 0 {
		return 0
	}
	lower := strings.ToLower(content)
	hits := 0
	for _, kw := range queryKeywords {
		if strings.Contains(lower, kw) {
			hits++
		}
	}
	return float64(hits) / float64(len(queryKeywords))
}
