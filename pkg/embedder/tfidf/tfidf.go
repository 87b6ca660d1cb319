// Package tfidf provides a TF-IDF style embedding strategy over a fixed
// vocabulary.
//
// The vector dimension equals the vocabulary size; each component is the
// token's term frequency in the input scaled by its inverse document
// frequency over the corpus observed so far. Tokens outside the vocabulary
// are ignored. An embedder that has observed no documents produces zero
// vectors rather than failing.
package tfidf

import (
	"context"
	"math"
	"regexp"
	"strings"
	"sync"
)

var tokenPattern = regexp.MustCompile(`[a-zA-Z0-9_\p{Han}]+`)

// Embedder implements embedder.Provider with TF-IDF vectors over a fixed
// vocabulary. It maintains a running document-frequency counter fed by
// Observe / Fit.
type Embedder struct {
	mu sync.RWMutex

	// vocabulary maps token -> vector index.
	vocabulary map[string]int

	// docFrequencies counts, per token, how many observed documents
	// contained it.
	docFrequencies map[string]int

	// docCount is the number of documents observed.
	docCount int
}

// New creates a TF-IDF embedder over the given vocabulary. The vocabulary
// map is used as-is; indices must be unique and in [0, len).
func New(vocabulary map[string]int) *Embedder {
	if vocabulary == nil {
		vocabulary = map[string]int{}
	}
	return &Embedder{
		vocabulary:     vocabulary,
		docFrequencies: make(map[string]int),
	}
}

// NewFromCorpus builds the vocabulary from the corpus (every distinct token,
// in first-seen order) and fits the document frequencies in one step.
func NewFromCorpus(corpus []string) *Embedder {
	vocab := make(map[string]int)
	for _, doc := range corpus {
		for _, tok := range tokenize(doc) {
			if _, ok := vocab[tok]; !ok {
				vocab[tok] = len(vocab)
			}
		}
	}

	e := New(vocab)
	e.Fit(corpus)
	return e
}

// Observe feeds one document into the running document-frequency counter.
func (e *Embedder) Observe(text string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	seen := make(map[string]struct{})
	for _, tok := range tokenize(text) {
		if _, dup := seen[tok]; dup {
			continue
		}
		seen[tok] = struct{}{}
		e.docFrequencies[tok]++
	}
	e.docCount++
}

// Fit observes every document in the corpus.
func (e *Embedder) Fit(corpus []string) {
	for _, doc := range corpus {
		e.Observe(doc)
	}
}

// Embed computes the TF-IDF vector for text.
func (e *Embedder) Embed(_ context.Context, text string) ([]float64, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	vector := make([]float64, len(e.vocabulary))

	tokens := tokenize(text)
	if len(tokens) == 0 || e.docCount == 0 {
		return vector, nil
	}

	counts := make(map[string]int)
	for _, tok := range tokens {
		counts[tok]++
	}

	for tok, count := range counts {
		idx, ok := e.vocabulary[tok]
		if !ok {
			continue
		}
		tf := float64(count) / float64(len(tokens))
		idf := math.Log(float64(e.docCount) / float64(e.docFrequencies[tok]+1))
		vector[idx] = tf * idf
	}

	return vector, nil
}

// EmbedBatch embeds each text in turn.
func (e *Embedder) EmbedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	vectors := make([][]float64, len(texts))
	for i, text := range texts {
		v, err := e.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		vectors[i] = v
	}
	return vectors, nil
}

// Dimensions returns the vocabulary size.
func (e *Embedder) Dimensions() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.vocabulary)
}

// Close is a no-op.
func (e *Embedder) Close() error {
	return nil
}

func tokenize(text string) []string {
	return tokenPattern.FindAllString(strings.ToLower(text), -1)
}
