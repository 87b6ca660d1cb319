package vectorstore

import (
	"context"

	"github.com/recallmem/recallmem-go/pkg/embedder"
)

// AddDocuments embeds each document's content with the given provider and
// inserts the batch into the store. Use Store.Add directly when embeddings
// are already computed.
func AddDocuments(ctx context.Context, s Store, provider embedder.Provider, documents []Document) ([]int64, error) {
	if len(documents) == 0 {
		return nil, nil
	}

	texts := make([]string, len(documents))
	for i, doc := range documents {
		texts[i] = doc.Content
	}

	embeddings, err := provider.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, err
	}
	return s.Add(ctx, documents, embeddings)
}
