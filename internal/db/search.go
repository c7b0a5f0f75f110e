package db

import "github.com/refbase-io/refbase/internal/domain"

// KNNQuery is the input for vector similarity search.
type KNNQuery struct {
	IndexName    string
	Filter       domain.VectorFilter
	Vector       []float32
	K            int
	ReturnFields []string
}

// SearchResult is the output of a search operation.
type SearchResult struct {
	Total   int
	Entries []SearchEntry
}

// SearchEntry is a single hit from a search, in provider rank order.
type SearchEntry struct {
	Key    string
	Score  float64
	Fields map[string]string
}
