package search

import (
	"context"

	"github.com/refbase-io/refbase/internal/domain"
)

// LexicalSearcher runs keyword search over the document catalog.
type LexicalSearcher interface {
	Search(ctx context.Context, query string, f domain.Filters, limit int) ([]domain.SearchResult, error)
}

// VectorQuerier runs KNN search over the vector index.
type VectorQuerier interface {
	Query(ctx context.Context, vec []float32, opts domain.VectorQueryOptions) ([]domain.VectorMatch, error)
}

// Embedder vectorizes text into embeddings.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}
