// Package charpresence provides the character-presence embedding strategy.
//
// The vector has one component per lowercase Latin letter: 1.0 if the
// letter appears anywhere in the lowercased text, else 0.0. This is a
// deliberately crude placeholder, not semantically meaningful: similarity
// between two such vectors measures "shares Latin letters", nothing more.
// Any real deployment should substitute a proper embedding provider; the
// embedder.Provider interface makes that a drop-in change.
package charpresence

import (
	"context"
	"strings"
)

// Dimension is the fixed vector dimension: one slot per Latin letter.
const Dimension = 26

// Embedder implements embedder.Provider with letter-presence vectors.
// The zero value is ready to use.
type Embedder struct{}

// New creates a character-presence embedder.
func New() *Embedder {
	return &Embedder{}
}

// Embed returns the 26-dimensional letter-presence vector for text.
func (e *Embedder) Embed(_ context.Context, text string) ([]float64, error) {
	lower := strings.ToLower(text)

	vector := make([]float64, Dimension)
	for i := 0; i < Dimension; i++ {
		if strings.ContainsRune(lower, rune('a'+i)) {
			vector[i] = 1.0
		}
	}
	return vector, nil
}

// EmbedBatch embeds each text in turn.
func (e *Embedder) EmbedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	vectors := make([][]float64, len(texts))
	for i, text := range texts {
		v, _ := e.Embed(ctx, text)
		vectors[i] = v
	}
	return vectors, nil
}

// Dimensions returns 26.
func (e *Embedder) Dimensions() int {
	return Dimension
}

// Close is a no-op.
func (e *Embedder) Close() error {
	return nil
}
