package tfidf_test

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/recallmem/recallmem-go/pkg/embedder/tfidf"
)

func TestNewFromCorpus(t *testing.T) {
	corpus := []string{
		"redis cache layer",
		"postgres storage layer",
	}
	e := tfidf.NewFromCorpus(corpus)

	// Distinct tokens: redis, cache, layer, postgres, storage.
	assert.Equal(t, 5, e.Dimensions())
}

func TestEmbedWeighting(t *testing.T) {
	e := tfidf.NewFromCorpus([]string{
		"redis cache",
		"postgres storage",
		"postgres replication",
	})

	vector, err := e.Embed(context.Background(), "redis postgres")
	require.NoError(t, err)
	require.Len(t, vector, 5)

	var nonzero []float64
	for _, v := range vector {
		if v != 0 {
			nonzero = append(nonzero, v)
		}
	}

	// "redis" appears in one of three documents: tf=1/2, idf=log(3/2).
	// "postgres" appears in two: idf=log(3/3)=0, so its component is zero.
	require.Len(t, nonzero, 1)
	assert.InDelta(t, 0.5*math.Log(3.0/2.0), nonzero[0], 1e-9)
}

func TestEmbedUnfitReturnsZeroVector(t *testing.T) {
	e := tfidf.New(map[string]int{"redis": 0, "cache": 1})

	vector, err := e.Embed(context.Background(), "redis cache")
	require.NoError(t, err)
	require.Len(t, vector, 2)
	assert.Equal(t, []float64{0, 0}, vector)
}

func TestEmbedOutOfVocabularyIgnored(t *testing.T) {
	e := tfidf.New(map[string]int{"redis": 0})
	e.Fit([]string{"redis", "memcached"})

	vector, err := e.Embed(context.Background(), "memcached")
	require.NoError(t, err)
	assert.Equal(t, []float64{0}, vector)
}

func TestObserveAccumulates(t *testing.T) {
	e := tfidf.New(map[string]int{"cache": 0})
	e.Observe("cache warmup")
	e.Observe("cache eviction")
	e.Observe("unrelated text")

	vector, err := e.Embed(context.Background(), "cache")
	require.NoError(t, err)
	// tf=1, idf=log(3/(2+1))=0.
	assert.InDelta(t, 0.0, vector[0], 1e-9)
}

func TestEmbedBatch(t *testing.T) {
	e := tfidf.NewFromCorpus([]string{"alpha beta", "beta gamma"})

	vectors, err := e.EmbedBatch(context.Background(), []string{"alpha", "gamma"})
	require.NoError(t, err)
	require.Len(t, vectors, 2)
	assert.Len(t, vectors[0], 3)
	assert.Len(t, vectors[1], 3)
}
