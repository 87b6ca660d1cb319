package inmem_test

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/recallmem/recallmem-go/pkg/core"
	"github.com/recallmem/recallmem-go/pkg/vectorstore"
	"github.com/recallmem/recallmem-go/pkg/vectorstore/inmem"
)

func TestAddAssignsSequentialIDs(t *testing.T) {
	s := inmem.New()
	ctx := context.Background()

	ids, err := s.Add(ctx,
		[]vectorstore.Document{{Content: "one"}, {Content: "two"}},
		[][]float64{{1, 0}, {0, 1}},
	)
	require.NoError(t, err)
	assert.Equal(t, []int64{0, 1}, ids)

	ids, err = s.Add(ctx,
		[]vectorstore.Document{{Content: "three"}},
		[][]float64{{1, 1}},
	)
	require.NoError(t, err)
	assert.Equal(t, []int64{2}, ids)
}

func TestAddDimensionMismatchRejectsWholeBatch(t *testing.T) {
	s := inmem.New()
	ctx := context.Background()

	_, err := s.Add(ctx,
		[]vectorstore.Document{{Content: "seed"}},
		[][]float64{{1, 0, 0}},
	)
	require.NoError(t, err)

	_, err = s.Add(ctx,
		[]vectorstore.Document{{Content: "good"}, {Content: "bad"}},
		[][]float64{{0, 1, 0}, {0, 1}},
	)
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrDimensionMismatch)

	// The batch was rejected wholesale; the store is unchanged.
	stats, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.DocumentCount)
}

func TestAddLengthMismatch(t *testing.T) {
	s := inmem.New()

	_, err := s.Add(context.Background(),
		[]vectorstore.Document{{Content: "one"}, {Content: "two"}},
		[][]float64{{1, 0}},
	)
	assert.ErrorIs(t, err, core.ErrDimensionMismatch)
}

func TestSimilaritySearchOrdering(t *testing.T) {
	s := inmem.New()
	ctx := context.Background()

	_, err := s.Add(ctx,
		[]vectorstore.Document{
			{Content: "exact match"},
			{Content: "orthogonal"},
			{Content: "partial match"},
		},
		[][]float64{
			{1, 0},
			{0, 1},
			{1, 1},
		},
	)
	require.NoError(t, err)

	results, err := s.SimilaritySearch(ctx, []float64{1, 0}, 3, nil)
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, "exact match", results[0].Document.Content)
	assert.InDelta(t, 1.0, results[0].Score, 1e-9)
	assert.Equal(t, "partial match", results[1].Document.Content)
	assert.Equal(t, "orthogonal", results[2].Document.Content)
	assert.InDelta(t, 0.0, results[2].Score, 1e-9)
}

func TestSimilaritySearchTopK(t *testing.T) {
	s := inmem.New()
	ctx := context.Background()

	_, err := s.Add(ctx,
		[]vectorstore.Document{{Content: "a"}, {Content: "b"}, {Content: "c"}},
		[][]float64{{1, 0}, {0.9, 0.1}, {0, 1}},
	)
	require.NoError(t, err)

	results, err := s.SimilaritySearch(ctx, []float64{1, 0}, 2, nil)
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestSimilaritySearchMetadataFilter(t *testing.T) {
	s := inmem.New()
	ctx := context.Background()

	_, err := s.Add(ctx,
		[]vectorstore.Document{
			{Content: "go doc", Metadata: map[string]interface{}{"lang": "go"}},
			{Content: "rust doc", Metadata: map[string]interface{}{"lang": "rust"}},
		},
		[][]float64{{1, 0}, {1, 0}},
	)
	require.NoError(t, err)

	results, err := s.SimilaritySearch(ctx, []float64{1, 0}, 5, map[string]interface{}{"lang": "go"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "go doc", results[0].Document.Content)
}

func TestSimilaritySearchZeroNormQuery(t *testing.T) {
	s := inmem.New()
	ctx := context.Background()

	_, err := s.Add(ctx,
		[]vectorstore.Document{{Content: "doc"}},
		[][]float64{{1, 0}},
	)
	require.NoError(t, err)

	results, err := s.SimilaritySearch(ctx, []float64{0, 0}, 1, nil)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, 0.0, results[0].Score)
}

func TestDeleteCompactsInLockstep(t *testing.T) {
	s := inmem.New()
	ctx := context.Background()

	ids, err := s.Add(ctx,
		[]vectorstore.Document{{Content: "keep"}, {Content: "drop"}, {Content: "also keep"}},
		[][]float64{{1, 0}, {0, 1}, {1, 1}},
	)
	require.NoError(t, err)

	require.NoError(t, s.Delete(ctx, []int64{ids[1], 999}))

	stats, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.DocumentCount)

	results, err := s.SimilaritySearch(ctx, []float64{0, 1}, 5, nil)
	require.NoError(t, err)
	for _, r := range results {
		assert.NotEqual(t, "drop", r.Document.Content)
	}
}

func TestStats(t *testing.T) {
	s := inmem.New()
	ctx := context.Background()

	stats, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.DocumentCount)
	assert.Equal(t, 0, stats.Dimension)

	_, err = s.Add(ctx,
		[]vectorstore.Document{{Content: "abcd"}, {Content: "ef"}},
		[][]float64{{1, 0, 0}, {0, 1, 0}},
	)
	require.NoError(t, err)

	stats, err = s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.DocumentCount)
	assert.Equal(t, 3, stats.Dimension)
	assert.Equal(t, 6, stats.TotalCharacters)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "store.gob")

	src := inmem.New()
	_, err := src.Add(ctx,
		[]vectorstore.Document{
			{Content: "persisted doc", Metadata: map[string]interface{}{"topic": "storage"}},
		},
		[][]float64{{0.5, 0.5}},
	)
	require.NoError(t, err)
	require.NoError(t, src.Save(path))

	dst := inmem.New()
	require.NoError(t, dst.Load(path))

	stats, err := dst.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.DocumentCount)
	assert.Equal(t, 2, stats.Dimension)

	results, err := dst.SimilaritySearch(ctx, []float64{0.5, 0.5}, 1, nil)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "persisted doc", results[0].Document.Content)
	assert.Equal(t, "storage", results[0].Document.Metadata["topic"])

	// IDs keep increasing from where the snapshot left off.
	ids, err := dst.Add(ctx,
		[]vectorstore.Document{{Content: "new"}},
		[][]float64{{1, 0}},
	)
	require.NoError(t, err)
	assert.Equal(t, []int64{1}, ids)
}

func TestSaveConcurrentWithDelete(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "store.gob")

	s := inmem.New()
	docs := make([]vectorstore.Document, 200)
	embs := make([][]float64, 200)
	for i := range docs {
		docs[i] = vectorstore.Document{Content: fmt.Sprintf("doc %d", i)}
		embs[i] = []float64{float64(i), 1}
	}
	ids, err := s.Add(ctx, docs, embs)
	require.NoError(t, err)

	// Save copies the store state under the lock, so a snapshot taken while
	// deletes compact the backing arrays must still decode cleanly.
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 50; i++ {
			_ = s.Save(path)
		}
	}()
	go func() {
		defer wg.Done()
		for _, id := range ids {
			_ = s.Delete(ctx, []int64{id})
		}
	}()
	wg.Wait()

	require.NoError(t, s.Save(path))

	restored := inmem.New()
	require.NoError(t, restored.Load(path))
	stats, err := restored.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.DocumentCount)
	assert.Equal(t, 2, stats.Dimension)
}

func TestLoadMissingFile(t *testing.T) {
	s := inmem.New()
	err := s.Load(filepath.Join(t.TempDir(), "missing.gob"))
	assert.Error(t, err)
}

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b []float64
		want float64
	}{
		{"identical", []float64{1, 2}, []float64{1, 2}, 1.0},
		{"orthogonal", []float64{1, 0}, []float64{0, 1}, 0.0},
		{"opposite", []float64{1, 0}, []float64{-1, 0}, -1.0},
		{"zero norm", []float64{0, 0}, []float64{1, 0}, 0.0},
		{"length mismatch", []float64{1}, []float64{1, 0}, 0.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, inmem.CosineSimilarity(tt.a, tt.b), 1e-9)
		})
	}
}
